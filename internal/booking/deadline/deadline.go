package deadline

import (
	"sync"
	"time"
)

// Manager owns the global search countdown. Remaining is advisory, for
// display; only the expire callback authoritatively ends the search.
type Manager struct {
	interval time.Duration
	onExpire func()

	mu        sync.Mutex
	remaining int
	running   bool
	fired     bool
	stop      chan struct{}
}

// New builds a manager ticking at one-second granularity.
func New(onExpire func()) *Manager {
	return NewWithInterval(onExpire, time.Second)
}

// NewWithInterval is New with a custom tick, used by tests.
func NewWithInterval(onExpire func(), interval time.Duration) *Manager {
	return &Manager{interval: interval, onExpire: onExpire}
}

// Start begins the countdown. A second Start while running is ignored; the
// callback fires at most once per manager.
func (m *Manager) Start(durationSeconds int) {
	m.mu.Lock()
	if m.running || m.fired {
		m.mu.Unlock()
		return
	}
	m.remaining = durationSeconds
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go m.run(stop)
}

func (m *Manager) run(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if !m.running {
				m.mu.Unlock()
				return
			}
			if m.remaining > 0 {
				m.remaining--
			}
			if m.remaining > 0 {
				m.mu.Unlock()
				continue
			}
			// reached zero: fire once and shut down
			m.running = false
			m.fired = true
			fn := m.onExpire
			m.mu.Unlock()

			if fn != nil {
				fn()
			}
			return
		}
	}
}

// Remaining returns the seconds left, for display only.
func (m *Manager) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// Cancel stops the countdown. The callback never fires after Cancel.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
}
