// Package notify delivers wallet events to the external notification service
// after the money movement has committed. Delivery is best-effort: a failure
// here never affects the transaction that produced the event.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

var ErrQueueFull = errors.New("notification queue full")

type Sink interface {
	Send(ctx context.Context, n domain.Notification) error
}

type DispatcherConfig struct {
	Buffer          int
	// Workers is the number of concurrent deliveries. A notification stuck in
	// its retry budget only holds up its own worker.
	Workers         int
	MaxElapsed      time.Duration
	InitialInterval time.Duration
}

// Dispatcher buffers notifications and delivers them from a fixed pool of
// workers, retrying each with exponential backoff.
type Dispatcher struct {
	sink   Sink
	queue  chan domain.Notification
	logger *slog.Logger
	cfg    DispatcherConfig
}

func NewDispatcher(sink Sink, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = backoff.DefaultInitialInterval
	}
	return &Dispatcher{
		sink:   sink,
		queue:  make(chan domain.Notification, cfg.Buffer),
		logger: logger,
		cfg:    cfg,
	}
}

// Enqueue never blocks. It fails with ErrQueueFull when the buffer is full.
func (d *Dispatcher) Enqueue(_ context.Context, n domain.Notification) error {
	select {
	case d.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the workers and blocks until ctx is done and every worker has
// returned.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("notification dispatcher started", "buffer", cap(d.queue), "workers", d.cfg.Workers)

	var wg sync.WaitGroup
	for range d.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()

	d.logger.Info("notification dispatcher stopped", "pending", len(d.queue))
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval
	b.MaxElapsedTime = d.cfg.MaxElapsed

	attempts := 0
	send := func() error {
		attempts++
		return d.sink.Send(ctx, n)
	}
	onRetry := func(err error, next time.Duration) {
		d.logger.Warn("notification delivery failed, retrying",
			"notification_id", n.ID,
			"attempt", attempts,
			"retry_in", next,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(send, backoff.WithContext(b, ctx), onRetry); err != nil {
		d.logger.Error("notification delivery abandoned",
			"notification_id", n.ID,
			"account_id", n.AccountID,
			"kind", n.Kind,
			"attempts", attempts,
			"error", err,
		)
		return
	}

	d.logger.Info("notification delivered",
		"notification_id", n.ID,
		"account_id", n.AccountID,
		"kind", n.Kind,
		"attempts", attempts,
	)
}
