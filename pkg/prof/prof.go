//go:build profile

package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ardnew/usbmidi/pkg"
)

// Enabled reports whether profiling was compiled in.
const Enabled = true

// ErrActive indicates a profiling session is already running.
var ErrActive = errors.New("profile session already active")

var (
	activeMutex sync.Mutex
	active      *Session
)

// Session is a running profile capture.
type Session struct {
	config  Config
	cpuFile *os.File
}

// Start begins a profiling session. Only one session may run at a time.
func Start(config Config) (*Session, error) {
	activeMutex.Lock()
	defer activeMutex.Unlock()

	if active != nil {
		return nil, ErrActive
	}

	s := &Session{config: config}
	if config.CPU != "" {
		f, err := os.Create(config.CPU)
		if err != nil {
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		s.cpuFile = f
	}
	if config.Block != "" {
		runtime.SetBlockProfileRate(1)
	}
	if config.Mutex != "" {
		runtime.SetMutexProfileFraction(1)
	}

	active = s
	pkg.LogDebug(pkg.ComponentDevice, "profiling started", "cpu", config.CPU)
	return s, nil
}

// Stop ends the CPU profile and writes the requested snapshot profiles.
// The first error encountered is returned after every profile is attempted.
func (s *Session) Stop() error {
	activeMutex.Lock()
	defer activeMutex.Unlock()

	if active != s {
		return nil
	}
	active = nil

	var first error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := s.cpuFile.Close(); err != nil {
			first = err
		}
	}

	snapshots := []struct {
		name string
		path string
	}{
		{"heap", s.config.Heap},
		{"block", s.config.Block},
		{"mutex", s.config.Mutex},
	}
	for _, snap := range snapshots {
		if snap.path == "" {
			continue
		}
		if err := writeSnapshot(snap.name, snap.path); err != nil && first == nil {
			first = err
		}
	}

	if s.config.Block != "" {
		runtime.SetBlockProfileRate(0)
	}
	if s.config.Mutex != "" {
		runtime.SetMutexProfileFraction(0)
	}

	pkg.LogDebug(pkg.ComponentDevice, "profiling stopped")
	return first
}

func writeSnapshot(name, path string) error {
	p := pprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("%s profile: %w", name, pkg.ErrNotSupported)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s profile: %w", name, err)
	}
	defer f.Close()

	if name == "heap" {
		runtime.GC()
	}
	return p.WriteTo(f, 0)
}
