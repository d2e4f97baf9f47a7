package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/queue"
	"github.com/partnerledger/backend/internal/services/commission"
	"go.uber.org/zap"
)

const (
	// CommissionRunJobType is the job type for the monthly commission batch
	CommissionRunJobType queue.JobType = "calculate_monthly_commissions"
)

// CommissionRunPayload represents the payload for a commission batch job.
// An empty MonthReference means the current month; an explicit one is a
// backfill or reprocessing run.
type CommissionRunPayload struct {
	MonthReference string `json:"month_reference,omitempty"`
}

// CommissionJob runs the monthly commission batch
type CommissionJob struct {
	queue  *queue.Queue
	engine *commission.CommissionService
	log    *zap.Logger
}

// NewCommissionJob creates a new commission batch job handler
func NewCommissionJob(q *queue.Queue, engine *commission.CommissionService, log *zap.Logger) *CommissionJob {
	return &CommissionJob{queue: q, engine: engine, log: log}
}

// RegisterCommissionJobHandlers registers the commission batch job handler
func RegisterCommissionJobHandlers(q *queue.Queue, engine *commission.CommissionService, log *zap.Logger) *CommissionJob {
	handler := NewCommissionJob(q, engine, log)
	q.RegisterHandler(CommissionRunJobType, func(ctx context.Context, job queue.Job) (interface{}, error) {
		return handler.Run(ctx, job)
	})
	return handler
}

// EnqueueRun enqueues a commission batch for the given month. The batch is
// idempotent per (referral, month), so retrying a failed run is safe.
func (j *CommissionJob) EnqueueRun(monthReference string) (uuid.UUID, error) {
	payload := CommissionRunPayload{MonthReference: monthReference}
	return j.queue.Enqueue(CommissionRunJobType, payload, 3)
}

// Run executes the monthly batch for the month named in the payload
func (j *CommissionJob) Run(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload CommissionRunPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commission run payload: %w", err)
	}

	result, err := j.engine.CalculateMonthlyCommissions(ctx, payload.MonthReference)
	if err != nil {
		return nil, err
	}

	j.log.Info("commission batch job completed",
		zap.String("job_id", job.ID.String()),
		zap.String("month", result.MonthReference),
		zap.Int("created", result.Created))

	return result, nil
}
