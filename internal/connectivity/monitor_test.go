package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct{ up bool }

func (f *fakeLink) LinkUp() bool { return f.up }

type fakeProbe struct{ reachable bool }

func (f *fakeProbe) Reachable(ctx context.Context) bool { return f.reachable }

func TestOnlineRequiresBothConditions(t *testing.T) {
	tests := []struct {
		name      string
		linkUp    bool
		reachable bool
		want      bool
	}{
		{"both up", true, true, true},
		{"link only (LAN without upstream)", true, false, false},
		{"probe only", false, true, false},
		{"both down", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(&fakeLink{up: tt.linkUp}, &fakeProbe{reachable: tt.reachable}, time.Minute, time.Second, nil)
			got := m.Check(context.Background())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, m.Online())
		})
	}
}

func TestNotifiesOnlyOnTransition(t *testing.T) {
	link := &fakeLink{up: true}
	probe := &fakeProbe{reachable: false}
	m := NewMonitor(link, probe, time.Minute, time.Second, nil)

	var transitions []bool
	m.Subscribe(func(online bool) {
		transitions = append(transitions, online)
	})

	ctx := context.Background()
	m.Check(ctx) // offline, no change from initial false
	m.Check(ctx)
	require.Empty(t, transitions)

	probe.reachable = true
	m.Check(ctx)
	m.Check(ctx) // still online, no second notification
	require.Equal(t, []bool{true}, transitions)

	link.up = false
	m.Check(ctx)
	require.Equal(t, []bool{true, false}, transitions)
}

func TestHTTPProber(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ok.Close)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(failing.Close)

	ctx := context.Background()
	assert.True(t, NewHTTPProber(ok.URL, time.Second).Reachable(ctx))
	assert.False(t, NewHTTPProber(failing.URL, time.Second).Reachable(ctx))

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed.Close()
	assert.False(t, NewHTTPProber(closed.URL, time.Second).Reachable(ctx))
}
