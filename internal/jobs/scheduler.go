package jobs

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// StartScheduler starts the cron scheduler that enqueues the monthly
// commission batch. cronExpr runs against UTC; the default "0 3 1 * *"
// fires at 03:00 on the first day of each month.
func StartScheduler(cronExpr string, commissionJob *CommissionJob, log *zap.Logger) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	_, err := s.Cron(cronExpr).Do(func() {
		jobID, err := commissionJob.EnqueueRun("")
		if err != nil {
			log.Error("failed to enqueue monthly commission run", zap.Error(err))
			return
		}
		log.Info("enqueued monthly commission run", zap.String("job_id", jobID.String()))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule commission batch: %w", err)
	}

	s.StartAsync()
	return s, nil
}
