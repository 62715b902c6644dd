package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spheroids/spheroids/buffer"

	"github.com/evilsocket/islazy/fs"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidName = errors.New("storage: invalid buffer name")
)

// Index is a thread safe collection of named buffers mirrored
// on disk as one .dat file per buffer.
type Index struct {
	sync.RWMutex
	dataPath string
	index    map[string]*buffer.Buffer
}

// NewIndex creates an empty index for the given folder.
func NewIndex(dataPath string) *Index {
	return &Index{
		dataPath: dataPath,
		index:    make(map[string]*buffer.Buffer),
	}
}

// Load creates the index folder if needed and loads every .dat
// file it contains.
func (i *Index) Load() error {
	i.Lock()
	defer i.Unlock()

	if !fs.Exists(i.dataPath) {
		log.Debugf("creating %s ...", i.dataPath)
		if err := os.MkdirAll(i.dataPath, 0755); err != nil {
			return err
		}
	}

	absPath, files, err := ListPath(i.dataPath)
	if err != nil {
		return err
	}

	i.dataPath = absPath
	i.index = make(map[string]*buffer.Buffer)
	if nfiles := len(files); nfiles > 0 {
		log.Infof("loading %d data files from %s ...", nfiles, i.dataPath)
		for name, fileName := range files {
			b, err := Load(fileName)
			if err != nil {
				return err
			}
			i.index[name] = b
		}
	}

	return nil
}

// Path returns the folder backing the index.
func (i *Index) Path() string {
	i.RLock()
	defer i.RUnlock()
	return i.dataPath
}

func (i *Index) pathFor(name string) string {
	return filepath.Join(i.dataPath, name+DatFileExt)
}

// Size returns the number of buffers in the index.
func (i *Index) Size() int {
	i.RLock()
	defer i.RUnlock()
	return len(i.index)
}

// Names returns the sorted list of buffer names.
func (i *Index) Names() []string {
	i.RLock()
	defer i.RUnlock()
	names := make([]string, 0, len(i.index))
	for name := range i.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForEach calls cb for every buffer, in name order. cb must not
// modify the index.
func (i *Index) ForEach(cb func(name string, b *buffer.Buffer) error) error {
	names := i.Names()

	i.RLock()
	defer i.RUnlock()
	for _, name := range names {
		if b, found := i.index[name]; found {
			if err := cb(name, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns the buffer with the given name or nil.
func (i *Index) Find(name string) *buffer.Buffer {
	i.RLock()
	defer i.RUnlock()
	return i.index[name]
}

// Put stores the buffer under name, replacing any previous one,
// and flushes it to disk.
func (i *Index) Put(name string, b *buffer.Buffer) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrInvalidName
	}

	i.Lock()
	defer i.Unlock()

	if err := Flush(b, i.pathFor(name)); err != nil {
		return err
	}
	i.index[name] = b
	return nil
}

// Delete removes the buffer and its data file, returning the
// removed buffer or nil if not found.
func (i *Index) Delete(name string) *buffer.Buffer {
	i.Lock()
	defer i.Unlock()

	b, found := i.index[name]
	if !found {
		return nil
	}

	delete(i.index, name)

	if err := os.Remove(i.pathFor(name)); err != nil {
		log.Warnf("could not remove %s: %v", i.pathFor(name), err)
	}

	return b
}
