package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/domain"
)

// MessageSource is the slice of a Kafka consumer group reader the worker uses.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ChangeHandler runs the pipeline for one decoded change event.
type ChangeHandler interface {
	HandleChange(ctx context.Context, ce domain.ChangeEvent) (domain.Result, error)
}

// Worker is a single goroutine that pulls change events from the broker,
// hands them to the dispatch pipeline, and commits the offset once the
// event is finished with.
type Worker struct {
	id      int
	src     MessageSource
	handler ChangeHandler
	opts    Options
	logger  *zap.Logger

	onRedelivered func()
	onDropped     func()

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewWorker constructs a worker. Nil hooks are no-ops.
func NewWorker(
	id int,
	src MessageSource,
	handler ChangeHandler,
	opts Options,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	if hooks.OnRedelivered == nil {
		hooks.OnRedelivered = func() {}
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func() {}
	}
	if len(opts.Backoff) == 0 {
		opts.Backoff = []time.Duration{time.Second}
	}
	return &Worker{
		id: id, src: src, handler: handler, opts: opts, logger: logger,
		onRedelivered: hooks.OnRedelivered, onDropped: hooks.OnDropped,
		sleep: sleepCtx,
	}
}

// Run blocks until ctx is cancelled, processing one message per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		msg, err := w.src.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopping", zap.Int("id", w.id))
				return
			}
			w.logger.Error("failed to fetch message", zap.Error(err))
			if !w.sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if !w.process(ctx, msg) {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
	}
}

// process handles one message and commits it. It returns false only when
// ctx was cancelled mid-redelivery; the message is then left uncommitted
// so the group hands it to another member.
func (w *Worker) process(ctx context.Context, msg kafka.Message) bool {
	log := w.logger.With(
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var ce domain.ChangeEvent
	if err := json.Unmarshal(msg.Value, &ce); err != nil {
		log.Error("malformed change event, skipping", zap.Error(err))
		w.commit(ctx, msg, log)
		return true
	}
	log = log.With(zap.String("event_id", ce.ID))

	for attempt := 0; ; attempt++ {
		res, err := w.handler.HandleChange(ctx, ce)
		if err == nil {
			log.Debug("change event processed",
				zap.String("stage", string(res.Stage)),
				zap.String("skipped", string(res.Skipped)),
			)
			break
		}
		if !redeliverable(err) {
			log.Error("change event rejected", zap.Error(err))
			break
		}
		if attempt >= w.opts.MaxRedeliveries {
			log.Error("dropping change event after redeliveries",
				zap.Int("redeliveries", attempt), zap.Error(err))
			w.onDropped()
			break
		}

		delay := w.backoff(attempt)
		log.Warn("change event will be redelivered",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		w.onRedelivered()
		if !w.sleep(ctx, delay) {
			return false
		}
	}

	w.commit(ctx, msg, log)
	return true
}

func (w *Worker) commit(ctx context.Context, msg kafka.Message, log *zap.Logger) {
	if err := w.src.CommitMessages(ctx, msg); err != nil {
		log.Error("failed to commit kafka message", zap.Error(err))
	}
}

// backoff returns the delay before redelivery attempt+1:
//
//	attempt 0 → backoff[0]  (default 5 s)
//	attempt 1 → backoff[1]  (default 30 s)
//	attempt 2 → backoff[2]  (default 120 s)
//	attempt N ≥ len(backoff) → last backoff entry (clamped)
func (w *Worker) backoff(attempt int) time.Duration {
	idx := attempt
	if idx >= len(w.opts.Backoff) {
		idx = len(w.opts.Backoff) - 1
	}
	return w.opts.Backoff[idx]
}

func redeliverable(err error) bool {
	return errors.Is(err, domain.ErrUpstreamUnavailable) ||
		errors.Is(err, domain.ErrBatchInFlight)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
