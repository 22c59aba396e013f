// Package connectivity observes network reachability and drives the
// offline/online transitions that trigger sync.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Probe reports whether the remote backend is currently reachable.
type Probe func(ctx context.Context) bool

// HTTPProbe probes by issuing a HEAD request to the given URL. Any response
// counts as reachable; transport failure counts as offline.
func HTTPProbe(url string) Probe {
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Monitor polls a Probe and notifies subscribers on state changes. A
// subscriber is called exactly once per actual transition; repeated
// identical probe results emit nothing.
type Monitor struct {
	mu       sync.RWMutex
	probe    Probe
	interval time.Duration
	online   bool
	subs     []func(online bool)
	cancel   context.CancelFunc
	done     chan struct{}
	logger   *slog.Logger
}

func NewMonitor(probe Probe, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
}

// Online returns the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a callback invoked on every transition. Callbacks run
// on the monitor goroutine and should hand off long work.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// Start probes once immediately, then on every tick until the context is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)

		m.check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Check runs a single probe cycle. Exposed so a manual refresh can force a
// re-evaluation between ticks.
func (m *Monitor) Check(ctx context.Context) {
	m.check(ctx)
}

func (m *Monitor) check(ctx context.Context) {
	current := m.probe(ctx)

	m.mu.Lock()
	changed := current != m.online
	m.online = current
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if !changed {
		return
	}

	if m.logger != nil {
		m.logger.Info("connectivity changed", "online", current)
	}
	for _, fn := range subs {
		fn(current)
	}
}
