package common

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"sync"
	"syscall"

	"github.com/evilsocket/islazy/log"
	"github.com/sirupsen/logrus"
)

// Profiler writes a CPU profile covering Start to Stop and, if
// requested, a heap profile taken when it stops.
type Profiler struct {
	sync.Mutex
	cpuProfile string
	memProfile string
	cpuFile    *os.File
	stopped    bool
}

// NewProfiler creates a profiler, empty file names disable the
// corresponding profile.
func NewProfiler(cpuProfile, memProfile string) *Profiler {
	return &Profiler{
		cpuProfile: cpuProfile,
		memProfile: memProfile,
	}
}

func (p *Profiler) Start() error {
	p.Lock()
	defer p.Unlock()

	if p.cpuProfile == "" || p.cpuFile != nil {
		return nil
	}

	f, err := os.Create(p.cpuProfile)
	if err != nil {
		return fmt.Errorf("could not create cpu profile: %w", err)
	} else if err = pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start cpu profile: %w", err)
	}

	log.Debug("cpu profiling to %s", p.cpuProfile)
	p.cpuFile = f
	return nil
}

// Stop flushes the profiles, only the first call has any effect.
func (p *Profiler) Stop() error {
	p.Lock()
	defer p.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	if p.cpuFile != nil {
		log.Info("saving cpu profile to %s ...", p.cpuProfile)
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return err
		}
		p.cpuFile = nil
	}

	if p.memProfile == "" {
		return nil
	}

	log.Info("saving memory profile to %s ...", p.memProfile)
	f, err := os.Create(p.memProfile)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()

	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}

// OnSignal runs handlers and exits when the process is interrupted.
// The returned function stops listening.
func OnSignal(handlers ...func(os.Signal)) (stop func()) {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("got signal %v", sig)
			for _, handler := range handlers {
				handler(sig)
			}
			os.Exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
		})
	}
}

var logFile *os.File

// SetupLogging configures both the command line logger and the one
// used by library packages.
func SetupLogging(fileName string, logDebug bool) error {
	log.OnFatal = log.ExitOnFatal
	if fileName != "" {
		f, err := os.OpenFile(fileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}

		closeLogFile()
		logFile = f
		log.Output = fileName
		logrus.SetOutput(f)
	}

	if logDebug {
		log.Level = log.DEBUG
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		log.Level = log.INFO
		logrus.SetLevel(logrus.InfoLevel)
	}

	return log.Open()
}

// TeardownLogging closes the log files and sends library logs back
// to stderr.
func TeardownLogging() {
	log.Close()
	logrus.SetOutput(os.Stderr)
	closeLogFile()
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
