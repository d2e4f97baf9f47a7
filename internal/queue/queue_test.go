package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testJobType JobType = "test_job"

type testPayload struct {
	Message string `json:"message"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Job{}))
	return db
}

func TestEnqueue(t *testing.T) {
	db := setupTestDB(t)
	q := NewQueue(db, zap.NewNop())

	jobID, err := q.Enqueue(testJobType, testPayload{Message: "hello"}, 3)
	require.NoError(t, err)

	job, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, testJobType, job.Type)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)

	var payload testPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "hello", payload.Message)
}

func TestProcessJobCompletes(t *testing.T) {
	db := setupTestDB(t)
	q := NewQueue(db, zap.NewNop())

	handled := make(chan struct{})
	q.RegisterHandler(testJobType, func(ctx context.Context, job Job) (interface{}, error) {
		close(handled)
		return map[string]string{"status": "done"}, nil
	})

	jobID, err := q.Enqueue(testJobType, testPayload{Message: "work"}, 3)
	require.NoError(t, err)

	q.StartProcessing()
	defer q.StopProcessing()

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}

	assert.Eventually(t, func() bool {
		job, err := q.GetJob(jobID)
		return err == nil && job.Status == JobStatusCompleted
	}, 5*time.Second, 50*time.Millisecond)
}

func TestProcessJobSchedulesRetry(t *testing.T) {
	db := setupTestDB(t)
	q := NewQueue(db, zap.NewNop())

	q.RegisterHandler(testJobType, func(ctx context.Context, job Job) (interface{}, error) {
		return nil, errors.New("boom")
	})

	jobID, err := q.Enqueue(testJobType, testPayload{}, 3)
	require.NoError(t, err)

	q.StartProcessing()
	defer q.StopProcessing()

	assert.Eventually(t, func() bool {
		job, err := q.GetJob(jobID)
		return err == nil && job.Status == JobStatusPending && job.RetryCount == 1
	}, 5*time.Second, 50*time.Millisecond)

	job, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, "boom", job.Error)
	require.NotNil(t, job.NextRetry)
	assert.True(t, job.NextRetry.After(time.Now()))
}

func TestProcessJobFailsAfterRetryBudget(t *testing.T) {
	db := setupTestDB(t)
	q := NewQueue(db, zap.NewNop())

	q.RegisterHandler(testJobType, func(ctx context.Context, job Job) (interface{}, error) {
		return nil, errors.New("permanent")
	})

	jobID, err := q.Enqueue(testJobType, testPayload{}, 1)
	require.NoError(t, err)

	q.StartProcessing()
	defer q.StopProcessing()

	assert.Eventually(t, func() bool {
		job, err := q.GetJob(jobID)
		return err == nil && job.Status == JobStatusFailed
	}, 5*time.Second, 50*time.Millisecond)
}

func TestUnknownJobTypeFails(t *testing.T) {
	db := setupTestDB(t)
	q := NewQueue(db, zap.NewNop())

	jobID, err := q.Enqueue(JobType("unregistered"), testPayload{}, 3)
	require.NoError(t, err)

	q.StartProcessing()
	defer q.StopProcessing()

	assert.Eventually(t, func() bool {
		job, err := q.GetJob(jobID)
		return err == nil && job.Status == JobStatusFailed
	}, 5*time.Second, 50*time.Millisecond)
}
