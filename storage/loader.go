package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spheroids/spheroids/buffer"
	pb "github.com/spheroids/spheroids/proto"

	"github.com/golang/protobuf/proto"
)

const (
	// DatFileExt holds the default file extension for data files.
	DatFileExt = ".dat"
	// CSVFileExt holds the file extension of importable text files.
	CSVFileExt = ".csv"
)

// ListPath enumerates .dat files in a given folder and returns the
// same folder as an absolute path and a map of files indexed by name.
func ListPath(dataPath string) (string, map[string]string, error) {
	dataPath, _ = filepath.Abs(dataPath)
	if info, err := os.Stat(dataPath); err != nil {
		return "", nil, err
	} else if !info.IsDir() {
		return "", nil, fmt.Errorf("%s is not a folder", dataPath)
	}

	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return "", nil, err
	}

	loadable := make(map[string]string)
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || filepath.Ext(fileName) != DatFileExt {
			continue
		}

		name := strings.TrimSuffix(fileName, DatFileExt)
		loadable[name] = filepath.Join(dataPath, fileName)
	}

	return dataPath, loadable, nil
}

// Load reads and deserializes a .dat file into a new buffer.
func Load(fileName string) (*buffer.Buffer, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("error while reading %s: %w", fileName, err)
	}

	var msg pb.Buffer
	if err = proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("error while deserializing %s: %w", fileName, err)
	}

	b, err := fromProto(&msg)
	if err != nil {
		return nil, fmt.Errorf("error while loading %s: %w", fileName, err)
	}
	return b, nil
}

// LoadCSV reads a numeric CSV file into a rank 2 buffer, one row per
// record. Lines starting with # are ignored, if skipHeader is true the
// first record is discarded.
func LoadCSV(fileName string, skipHeader bool) (*buffer.Buffer, error) {
	fp, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	return ReadCSV(fp, skipHeader)
}

// ReadCSV is LoadCSV over a generic reader.
func ReadCSV(r io.Reader, skipHeader bool) (*buffer.Buffer, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	data := make([]float64, 0)
	rows, cols := 0, 0
	for first := true; ; first = false {
		parts, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		} else if skipHeader && first {
			continue
		}

		if cols == 0 {
			cols = len(parts)
		}

		for col, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				line, _ := reader.FieldPos(col)
				return nil, fmt.Errorf("line %d column %d: %w", line, col+1, err)
			}
			data = append(data, v)
		}
		rows++
	}

	return buffer.Wrap(data, rows, cols)
}

func fromProto(msg *pb.Buffer) (*buffer.Buffer, error) {
	shape := make([]int, len(msg.Shape))
	for i, dim := range msg.Shape {
		shape[i] = int(dim)
	}
	return buffer.Wrap(msg.Data, shape...)
}

func toProto(b *buffer.Buffer) *pb.Buffer {
	shape := make([]int64, len(b.Shape))
	for i, dim := range b.Shape {
		shape[i] = int64(dim)
	}
	return &pb.Buffer{
		Shape: shape,
		Data:  b.Data,
	}
}
