package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/wyatts97/schedx/internal/queue"
)

// QueuePromoteJob periodically pushes the front of every enabled queue into
// scheduled slots, keeping the scheduler pollers fed without user action.
type QueuePromoteJob struct {
	manager *queue.Manager

	running atomic.Bool
}

func NewQueuePromoteJob(manager *queue.Manager) *QueuePromoteJob {
	return &QueuePromoteJob{manager: manager}
}

func (j *QueuePromoteJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil && err != ErrAlreadyRunning {
		slog.Info(err.Error())
	}
}

func (j *QueuePromoteJob) RunOnce(ctx context.Context) ([]*queue.PromoteResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	return j.manager.PromoteAllDue(ctx)
}
