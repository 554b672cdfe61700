package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aurea-commerce/aurea-inventory/internal/inventory"
	jobmetrics "github.com/aurea-commerce/aurea-inventory/internal/jobs"
)

const defaultSweepLimit = 500

// ReservationSweepJob releases reservations that outlived their hold TTL.
type ReservationSweepJob struct {
	Service *inventory.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReservationSweepJob initialises the sweep handler.
func NewReservationSweepJob(service *inventory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReservationSweepJob {
	return &ReservationSweepJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes a single sweep run.
func (j *ReservationSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reservation sweep: handler not configured")
	}
	var payload ReservationSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultSweepLimit
	}

	tracker := j.metrics().Track(TaskReservationSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	released, err := j.Service.ReleaseExpired(ctx, j.now(), payload.Limit)
	if err != nil {
		resultErr = err
		j.logger().Error("reservation sweep failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddExpiredReleases(released)
	if released > 0 {
		j.logger().Info("released expired reservations", slog.Int("released", released))
	}
	return nil
}

func (j *ReservationSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *ReservationSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ReservationSweepJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
