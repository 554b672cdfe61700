package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskReservationSweep releases reservations that outlived their hold TTL.
	TaskReservationSweep = "reservation:sweep_expired"
	// TaskIdempotencyCleanup prunes processed idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskLedgerIntegrityScan replays transaction logs against stock records.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
)

// ReservationSweepPayload bounds a single sweep run.
type ReservationSweepPayload struct {
	Limit int `json:"limit"`
}

// NewReservationSweepTask constructs the sweep task.
func NewReservationSweepTask(limit int) (*asynq.Task, error) {
	body, err := json.Marshal(ReservationSweepPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationSweep, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload overrides the retention window when non-zero.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// LedgerIntegrityPayload carries scheduling metadata for the scan.
type LedgerIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, body, asynq.Queue(QueueDefault)), nil
}
