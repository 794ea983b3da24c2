package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/composables"
)

type collector struct {
	mu     sync.Mutex
	events []Event
	auth   string
}

func (c *collector) handler(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	user, _, _ := r.BasicAuth()
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.auth = user
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestTracker_DeliversWithTenantContext(t *testing.T) {
	t.Parallel()

	c := &collector{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	tr, err := NewTracker(Options{URL: srv.URL, WriteKey: "wk", Workers: 2})
	require.NoError(t, err)
	tr.Start(context.Background())

	tenantID := uuid.New()
	ctx := composables.WithTenantID(context.Background(), tenantID)
	tr.Track(ctx, "Automation Created", map[string]any{"type": "webhook"})
	tr.Close()

	events := c.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "Automation Created", events[0].Name)
	assert.Equal(t, tenantID.String(), events[0].TenantID)
	assert.Equal(t, "webhook", events[0].Properties["type"])
	assert.Equal(t, "wk", c.auth)
}

func TestTracker_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	c := &collector{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	tr, err := NewTracker(Options{URL: srv.URL, QueueSize: 1})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		tr.Track(context.Background(), "first", nil)
		tr.Track(context.Background(), "second", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked on a full queue")
	}

	tr.Start(context.Background())
	tr.Close()

	events := c.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].Name)
}

func TestTracker_CollectorFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, err := NewTracker(Options{URL: srv.URL})
	require.NoError(t, err)
	tr.Start(context.Background())
	assert.NotPanics(t, func() {
		tr.Track(context.Background(), "x", nil)
		tr.Close()
	})
}

func TestNewTracker_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewTracker(Options{})
	require.Error(t, err)
}
