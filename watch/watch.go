// Package watch notices when a file is changed by someone else, by polling its
// modification time and size.
package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultInterval is how often a file is polled when no interval is given.
const DefaultInterval = 2 * time.Second

// ErrMissingOnChange is returned when a monitor is created without a callback.
var ErrMissingOnChange = errors.New("change callback is required")

// Monitor polls a file and calls back when it changes. The callback runs on
// the monitor's goroutine.
type Monitor struct {
	path     string
	interval time.Duration
	onChange func()

	mu          sync.Mutex
	lastModTime time.Time
	lastSize    int64
	exists      bool
	paused      bool
	running     bool
	stopCh      chan struct{}
	stoppedCh   chan struct{}
}

// New creates a monitor for the file at path, taking its current state as the
// baseline. The file doesn't have to exist yet.
func New(path string, interval time.Duration, onChange func()) (*Monitor, error) {
	if onChange == nil {
		return nil, ErrMissingOnChange
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	m := &Monitor{
		path:     path,
		interval: interval,
		onChange: onChange,
	}
	m.baseline()
	return m, nil
}

// Record the file's current state as unchanged. Must hold mu, or be called
// before the monitor is shared.
func (m *Monitor) baseline() {
	info, err := os.Stat(m.path)
	if err != nil {
		m.exists = false
		m.lastModTime = time.Time{}
		m.lastSize = 0
		return
	}
	m.exists = true
	m.lastModTime = info.ModTime()
	m.lastSize = info.Size()
}

// Start polling in the background until Stop is called or ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.stoppedCh = make(chan struct{})

	go m.watchLoop(ctx, m.stopCh, m.stoppedCh)
}

// Stop polling and wait for the polling goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, stoppedCh := m.stopCh, m.stoppedCh
	m.mu.Unlock()

	close(stopCh)
	<-stoppedCh
}

// Pause stops reporting changes, for while the file is being rewritten by its
// owner.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// Resume reporting changes. Whatever happened to the file while paused is
// taken as the new baseline.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline()
	m.paused = false
}

// Running reports whether the monitor is polling.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) watchLoop(ctx context.Context, stopCh, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return

		case <-ctx.Done():
			m.mu.Lock()
			if m.stopCh == stopCh {
				m.running = false
			}
			m.mu.Unlock()
			return

		case <-ticker.C:
			if m.check() {
				m.onChange()
			}
		}
	}
}

// Reports whether the file differs from the baseline, updating the baseline
// if so.
func (m *Monitor) check() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		return false
	}

	exists, modTime, size := m.exists, m.lastModTime, m.lastSize
	m.baseline()

	return exists != m.exists || !modTime.Equal(m.lastModTime) || size != m.lastSize
}
