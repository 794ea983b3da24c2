package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crowd-dev/crowd-api/pkg/composables"
)

// Sink receives product analytics events. Track never blocks the caller and
// never fails the request that emitted the event.
type Sink interface {
	Track(ctx context.Context, event string, properties map[string]any)
}

type Event struct {
	Name       string         `json:"event"`
	TenantID   string         `json:"tenantId,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Track(context.Context, string, map[string]any) {}

type Options struct {
	URL       string
	WriteKey  string
	QueueSize int
	Workers   int
	Timeout   time.Duration
	Client    *http.Client
	Logger    *logrus.Logger
}

func (o *Options) setDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Tracker buffers events in a bounded queue drained by worker goroutines that
// post them to an HTTP collector. A full queue drops the event.
type Tracker struct {
	opts  Options
	queue chan Event
	m     *metrics

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	now       func() time.Time
}

func NewTracker(opts Options) (*Tracker, error) {
	if opts.URL == "" {
		return nil, errors.New("analytics: url is required")
	}
	opts.setDefaults()
	return &Tracker{
		opts:  opts,
		queue: make(chan Event, opts.QueueSize),
		m:     getMetrics(),
		now:   time.Now,
	}, nil
}

func (t *Tracker) Track(ctx context.Context, event string, properties map[string]any) {
	ev := Event{
		Name:       event,
		Properties: properties,
		Timestamp:  t.now().UTC(),
	}
	if tenantID, err := composables.UseTenantID(ctx); err == nil {
		ev.TenantID = tenantID.String()
	}
	if userID := composables.UseUserID(ctx); userID != uuid.Nil {
		ev.UserID = userID.String()
	}

	select {
	case t.queue <- ev:
		t.m.eventsTotal.WithLabelValues("queued").Inc()
	default:
		t.m.eventsTotal.WithLabelValues("dropped").Inc()
		composables.UseLogger(ctx).WithField("event", event).Warn("analytics: queue full, dropping event")
	}
}

// Start launches the workers. They run until Close is called or ctx ends.
func (t *Tracker) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		ctx, t.cancel = context.WithCancel(ctx)
		for i := 0; i < t.opts.Workers; i++ {
			t.wg.Add(1)
			go t.work(ctx)
		}
	})
}

// Close stops the workers after flushing whatever is still queued.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		t.wg.Wait()
	})
}

func (t *Tracker) work(ctx context.Context) {
	defer t.wg.Done()
	for {
		select {
		case ev := <-t.queue:
			t.deliver(ctx, ev)
		case <-ctx.Done():
			t.drain()
			return
		}
	}
}

func (t *Tracker) drain() {
	for {
		select {
		case ev := <-t.queue:
			ctx, cancel := context.WithTimeout(context.Background(), t.opts.Timeout)
			t.deliver(ctx, ev)
			cancel()
		default:
			return
		}
	}
}

func (t *Tracker) deliver(ctx context.Context, ev Event) {
	start := time.Now()
	err := t.post(ctx, ev)
	t.m.deliveryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		t.m.eventsTotal.WithLabelValues("failed").Inc()
		t.opts.Logger.WithError(err).WithField("event", ev.Name).Warn("analytics: delivery failed")
		return
	}
	t.m.eventsTotal.WithLabelValues("delivered").Inc()
}

func (t *Tracker) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if t.opts.WriteKey != "" {
		req.SetBasicAuth(t.opts.WriteKey, "")
	}
	resp, err := t.opts.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post event")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("collector responded %d", resp.StatusCode)
	}
	return nil
}
