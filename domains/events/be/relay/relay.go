// Package relay tails the booking event log into a Redis stream so external
// consumers can follow bookings without polling Postgres.
package relay

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atelier-labs/pencilbook/domains/events/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
)

const (
	// DefaultStream is the Redis stream events are published to.
	DefaultStream = "pencilbook:booking-events"
	// DefaultCursorKey stores the id of the last published event, so a restart
	// resumes where the previous run stopped.
	DefaultCursorKey = "pencilbook:booking-events:cursor"

	// DefaultInterval is the poll period when the log is idle.
	DefaultInterval = time.Second
	// DefaultBatchSize caps the events published per poll.
	DefaultBatchSize = 200
)

// Config tunes the relay loop.
type Config struct {
	Stream    string
	CursorKey string
	Interval  time.Duration
	BatchSize int
}

// Relay copies committed events from the log into a Redis stream, in event id
// order, at-least-once. Consumers must deduplicate on the event id.
type Relay struct {
	repo      service.Repository
	client    redis.UniversalClient
	logger    *zap.Logger
	metrics   *metrics.Metrics
	stream    string
	cursorKey string
	interval  time.Duration
	batchSize int
}

// New constructs a Relay instance.
func New(repo service.Repository, client redis.UniversalClient, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Relay {
	if repo == nil {
		panic("events repo is required")
	}
	if client == nil {
		panic("redis client is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if m == nil {
		panic("metrics are required")
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}
	cursorKey := cfg.CursorKey
	if cursorKey == "" {
		cursorKey = DefaultCursorKey
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Relay{
		repo:      repo,
		client:    client,
		logger:    logger,
		metrics:   m,
		stream:    stream,
		cursorKey: cursorKey,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls the log until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("event relay started",
		zap.String("stream", r.stream), zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event relay stopped")
			return
		case <-ticker.C:
			if err := r.Poll(ctx); err != nil {
				r.metrics.RelayErrorsTotal.Inc()
				r.logger.Error("relay poll failed", zap.Error(err))
			}
		}
	}
}

// Poll publishes one batch of unseen events. The cursor is advanced after each
// XADD, so a crash between publish and advance re-publishes at most one event.
func (r *Relay) Poll(ctx context.Context) error {
	cursor, err := r.loadCursor(ctx)
	if err != nil {
		return err
	}

	events, err := r.repo.ListAfterCursor(ctx, cursor, r.batchSize)
	if err != nil {
		return err
	}

	for _, ev := range events {
		err := r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: r.stream,
			Values: map[string]any{
				"event_id":   strconv.FormatInt(ev.ID, 10),
				"booking_id": ev.AggregateID.String(),
				"tenant_id":  ev.TenantID.String(),
				"type":       ev.Type,
				"version":    strconv.FormatInt(ev.Version, 10),
				"data":       string(ev.Data),
			},
		}).Err()
		if err != nil {
			return err
		}

		if err := r.client.Set(ctx, r.cursorKey, strconv.FormatInt(ev.ID, 10), 0).Err(); err != nil {
			return err
		}
		r.metrics.RelayPublished.Inc()
	}
	return nil
}

func (r *Relay) loadCursor(ctx context.Context) (int64, error) {
	raw, err := r.client.Get(ctx, r.cursorKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
