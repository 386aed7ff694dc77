package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Dispatcher drains a Store into the server. It makes sure the bucket
// exists before the first heartbeat and retries failed deliveries after
// RetryInterval, oldest request first.
type Dispatcher struct {
	client        *Client
	store         Store
	bucket        Bucket
	retryInterval time.Duration
	logger        *slog.Logger

	wake        chan struct{}
	bucketReady bool
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Bucket        Bucket
	RetryInterval time.Duration
	Logger        *slog.Logger
}

func NewDispatcher(client *Client, store Store, cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	return &Dispatcher{
		client:        client,
		store:         store,
		bucket:        cfg.Bucket,
		retryInterval: cfg.RetryInterval,
		logger:        cfg.Logger,
		wake:          make(chan struct{}, 1),
	}
}

// Enqueue stores a heartbeat for delivery and wakes the dispatcher.
func (d *Dispatcher) Enqueue(ctx context.Context, ev Event, pulse time.Duration) error {
	if err := d.store.Push(ctx, NewRequest(d.bucket.ID, pulse, ev)); err != nil {
		return err
	}
	heartbeatsQueued.Inc()
	d.updateQueueLength(ctx)
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of undelivered heartbeats.
func (d *Dispatcher) Pending(ctx context.Context) (int, error) {
	return d.store.Len(ctx)
}

// Run delivers queued heartbeats until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "server", d.client.BaseURL(), "bucket", d.bucket.ID)
	defer d.logger.Info("dispatcher stopped")

	d.updateQueueLength(ctx)
	for {
		delivered, err := d.deliverNext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		var wait <-chan time.Time
		switch {
		case err != nil:
			d.logger.Warn("heartbeat delivery failed", "error", err, "retry_in", d.retryInterval)
			wait = time.After(d.retryInterval)
		case delivered:
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		case <-wait:
		}
	}
}

// DrainOnce tries to deliver everything queued and returns the first
// error.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	for {
		delivered, err := d.deliverNext(ctx)
		if err != nil || !delivered {
			return err
		}
	}
}

// Shutdown makes a last delivery attempt after Run has returned, bounded
// by ctx. Whatever is still queued afterwards is logged.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	err := d.DrainOnce(ctx)
	if err == nil {
		return nil
	}
	// ctx may be the reason for the failure; count with a fresh one.
	lenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, lenErr := d.store.Len(lenCtx)
	if lenErr != nil {
		n = -1
	}
	d.logger.Warn("heartbeats left undelivered at shutdown", "pending", n, "error", err)
	return err
}

func (d *Dispatcher) deliverNext(ctx context.Context) (bool, error) {
	req, ok, err := d.store.Peek(ctx)
	if err != nil || !ok {
		return false, err
	}

	if !d.bucketReady {
		if err := d.client.CreateBucket(ctx, d.bucket); err != nil {
			instrumentSendError(err)
			return false, err
		}
		d.bucketReady = true
	}

	start := time.Now()
	err = d.client.Heartbeat(ctx, req.Bucket, req.Event, req.Pulse)
	instrumentSendLatency(start)
	if err != nil {
		instrumentSendError(err)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Retryable() {
			return false, err
		}
		// The server will never accept it; drop it so the queue moves on.
		d.logger.Error("heartbeat rejected, dropping", "id", req.ID, "error", err)
	} else {
		heartbeatsSent.Inc()
	}

	if err := d.store.Remove(ctx, req.ID); err != nil {
		return false, err
	}
	d.updateQueueLength(ctx)
	return true, nil
}

func (d *Dispatcher) updateQueueLength(ctx context.Context) {
	if n, err := d.store.Len(ctx); err == nil {
		queueLength.Set(float64(n))
	}
}
