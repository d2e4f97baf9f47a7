// Package queue is a database-backed background job queue. Jobs survive
// restarts; failed jobs are retried with a linear backoff up to MaxRetries.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type" gorm:"type:varchar(60);index"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status" gorm:"type:varchar(20);index"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// Queue represents a job queue
type Queue struct {
	db         *gorm.DB
	log        *zap.Logger
	handlers   map[JobType]JobHandler
	processing bool
	quit       chan struct{}
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB, log *zap.Logger) *Queue {
	return &Queue{
		db:       db,
		log:      log,
		handlers: make(map[JobType]JobHandler),
		quit:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(jobType JobType, payload interface{}, maxRetries int) (uuid.UUID, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := q.db.Create(&job).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.ID, nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(jobID uuid.UUID) (*Job, error) {
	var job Job
	if err := q.db.Where("id = ?", jobID).First(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// StartProcessing starts the polling loop that picks up pending jobs
func (q *Queue) StartProcessing() {
	if q.processing {
		return
	}

	q.processing = true
	go func() {
		for {
			select {
			case <-q.quit:
				return
			default:
			}

			var job Job
			err := q.db.
				Where("status = ? AND (next_retry IS NULL OR next_retry <= ?)", JobStatusPending, time.Now()).
				Order("created_at").
				First(&job).Error
			if err != nil {
				if err != gorm.ErrRecordNotFound {
					q.log.Error("error getting job from queue", zap.Error(err))
				}
				time.Sleep(1 * time.Second)
				continue
			}

			q.processJob(job)
		}
	}()
}

// StopProcessing stops the polling loop
func (q *Queue) StopProcessing() {
	if !q.processing {
		return
	}
	q.processing = false
	close(q.quit)
}

func (q *Queue) processJob(job Job) {
	handler, ok := q.handlers[job.Type]
	if !ok {
		q.log.Warn("no handler registered for job type", zap.String("type", string(job.Type)))
		q.markFailed(job, fmt.Errorf("no handler registered for job type %s", job.Type))
		return
	}

	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusProcessing,
		"updated_at": time.Now(),
	}).Error; err != nil {
		q.log.Error("failed to update job status", zap.Error(err))
		return
	}

	result, err := handler(context.Background(), job)
	if err != nil {
		q.handleFailure(job, err)
		return
	}

	var resultJSON []byte
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			q.log.Error("failed to marshal job result", zap.Error(err))
		}
	}

	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusCompleted,
		"result":     resultJSON,
		"updated_at": time.Now(),
	}).Error; err != nil {
		q.log.Error("failed to update job result", zap.Error(err))
	}
}

// handleFailure retries a failed job with a linear backoff until its retry
// budget is exhausted
func (q *Queue) handleFailure(job Job, jobErr error) {
	if job.RetryCount+1 < job.MaxRetries {
		nextRetry := time.Now().Add(time.Duration(job.RetryCount+1) * time.Minute)
		if err := q.db.Model(&job).Updates(map[string]interface{}{
			"status":      JobStatusPending,
			"retry_count": job.RetryCount + 1,
			"next_retry":  nextRetry,
			"error":       jobErr.Error(),
			"updated_at":  time.Now(),
		}).Error; err != nil {
			q.log.Error("failed to schedule job retry", zap.Error(err))
		}
		q.log.Warn("job failed, scheduled retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry", job.RetryCount+1),
			zap.Error(jobErr))
		return
	}

	q.markFailed(job, jobErr)
}

func (q *Queue) markFailed(job Job, jobErr error) {
	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusFailed,
		"error":      jobErr.Error(),
		"updated_at": time.Now(),
	}).Error; err != nil {
		q.log.Error("failed to mark job as failed", zap.Error(err))
	}
	q.log.Error("job failed permanently",
		zap.String("job_id", job.ID.String()),
		zap.Error(jobErr))
}
