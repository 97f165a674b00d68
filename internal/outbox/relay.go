package outbox

import (
	"context"
	"log"
	"time"

	"github.com/example/ec-checkout/internal/infrastructure/store"
)

// Publisher forwards one event to the broker.
type Publisher interface {
	PublishEvent(ctx context.Context, event store.Event) error
}

// Recorder observes relay progress.
type Recorder interface {
	OutboxPublished(n int)
	OutboxFailed()
}

type nopRecorder struct{}

func (nopRecorder) OutboxPublished(int) {}
func (nopRecorder) OutboxFailed()       {}

type Options struct {
	Interval  time.Duration
	BatchSize int
	Recorder  Recorder
}

// Relay polls the outbox for committed events and publishes them in order.
type Relay struct {
	outbox    store.OutboxStore
	publisher Publisher
	interval  time.Duration
	batchSize int
	recorder  Recorder
}

func NewRelay(outbox store.OutboxStore, publisher Publisher, opts Options) *Relay {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		recorder:  opts.Recorder,
	}
}

// Run drains the outbox every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	log.Printf("[Outbox] Relay started (interval %s, batch %d)", r.interval, r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[Outbox] %v", err)
		}
		select {
		case <-ctx.Done():
			log.Printf("[Outbox] Relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch. It stops at the first publish failure so later
// events never overtake an earlier one; the failed event is retried on the
// next call.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	defer func() {
		if sent > 0 {
			r.recorder.OutboxPublished(sent)
		}
	}()

	for _, e := range events {
		if err := r.publisher.PublishEvent(ctx, e); err != nil {
			r.recorder.OutboxFailed()
			return sent, &PublishError{EventID: e.ID, EventType: e.EventType, Err: err}
		}
		if err := r.outbox.MarkSent(ctx, e.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

type PublishError struct {
	EventID   string
	EventType string
	Err       error
}

func (e *PublishError) Error() string {
	return "publish " + e.EventType + " " + e.EventID + ": " + e.Err.Error()
}

func (e *PublishError) Unwrap() error { return e.Err }
