// Package sweeper cancels holds whose expiry deadline has passed.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
)

const (
	// DefaultInterval is how often the sweeper scans for expired holds.
	DefaultInterval = 30 * time.Second
	// DefaultBatchSize caps the holds cancelled per sweep.
	DefaultBatchSize = 100

	sweepActor = "system:sweeper"
)

// Config tunes the sweep loop.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Sweeper periodically expires holds by driving them through the regular
// cancellation transition, so expiry produces the same events and version
// bumps as a client cancellation would.
type Sweeper struct {
	svc       *service.Service
	logger    *zap.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

// New constructs a Sweeper instance.
func New(svc *service.Service, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Sweeper {
	if svc == nil {
		panic("bookings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if m == nil {
		panic("metrics are required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Sweeper{svc: svc, logger: logger, metrics: m, interval: interval, batchSize: batchSize}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("hold sweeper started",
		zap.Duration("interval", s.interval), zap.Int("batch_size", s.batchSize))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass: list expired holds and cancel each through the state
// machine. Races with concurrent client requests are expected; a hold that was
// converted or cancelled between the listing and the transition is skipped.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.metrics.SweepsTotal.Inc()

	holds, err := s.svc.ExpiredHolds(ctx, s.batchSize)
	if err != nil {
		s.metrics.SweepErrors.Inc()
		s.logger.Error("listing expired holds failed", zap.Error(err))
		return
	}
	if len(holds) == 0 {
		return
	}

	actor := sweepActor
	reason := "hold expired"

	expired := 0
	for _, hold := range holds {
		_, err := s.svc.Transition(ctx, service.TransitionInput{
			TenantID:        hold.TenantID,
			BookingID:       hold.ID,
			Target:          service.StatusCancelled,
			ExpectedVersion: hold.Version,
			Actor:           &actor,
			Reason:          &reason,
		})
		switch {
		case err == nil:
			expired++
		case lostRace(err):
			s.logger.Debug("hold changed before sweep, skipping",
				zap.String("booking_id", hold.ID.String()), zap.Error(err))
		default:
			s.metrics.SweepErrors.Inc()
			s.logger.Error("expiring hold failed",
				zap.String("booking_id", hold.ID.String()), zap.Error(err))
		}
	}

	if expired > 0 {
		s.metrics.HoldsExpired.Add(float64(expired))
		s.logger.Info("expired holds cancelled", zap.Int("count", expired))
	}
}

// lostRace reports whether the error means a client beat the sweeper to the
// booking, which is not a failure.
func lostRace(err error) bool {
	return errors.Is(err, service.ErrVersionConflict) ||
		errors.Is(err, service.ErrIllegalTransition) ||
		errors.Is(err, service.ErrNotFound)
}
