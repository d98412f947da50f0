// Package connectivity derives a process-wide online/offline flag from
// link-layer state and actual internet reachability.
package connectivity

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// LinkChecker reports link-layer connectivity.
type LinkChecker interface {
	LinkUp() bool
}

// Prober reports actual internet reachability. A device link-connected to a
// LAN with no upstream route must probe as unreachable.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// Monitor evaluates both conditions on a fixed interval and notifies
// subscribers on every transition. It is the single writer of the online
// flag; everyone else only reads.
type Monitor struct {
	link     LinkChecker
	probe    Prober
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	online atomic.Bool

	mu   sync.Mutex
	subs []func(online bool)
}

// NewMonitor constructs a Monitor.
func NewMonitor(link LinkChecker, probe Prober, interval, timeout time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Monitor{
		link:     link,
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Online returns the last evaluated connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Subscribe registers a transition callback. Callbacks run on the monitor's
// goroutine and must not block; the coordinator subscribes once at startup.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Start evaluates once immediately, then on every interval tick until ctx
// is done.
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Check performs one evaluation, stores the result, and notifies
// subscribers if the state changed. Returns the new state.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	online := m.link.LinkUp() && m.probe.Reachable(probeCtx)

	previous := m.online.Swap(online)
	if previous != online {
		m.logger.Info("connectivity changed", zap.Bool("online", online))
		m.notify(online)
	}
	return online
}

func (m *Monitor) notify(online bool) {
	m.mu.Lock()
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// InterfaceLinkChecker inspects the host's network interfaces: any
// non-loopback interface that is up and has an address counts as link-up.
type InterfaceLinkChecker struct{}

// NewInterfaceLinkChecker returns the default link checker.
func NewInterfaceLinkChecker() *InterfaceLinkChecker {
	return &InterfaceLinkChecker{}
}

// LinkUp implements LinkChecker.
func (c *InterfaceLinkChecker) LinkUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// HTTPProber treats any completed HTTP round trip below 500 as reachable.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber builds a prober against the given URL, typically the remote
// service health endpoint.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProber{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Reachable implements Prober.
func (p *HTTPProber) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	return resp.StatusCode < http.StatusInternalServerError
}
