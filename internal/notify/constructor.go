package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

const TaskTypeNotify = "notify:event"

type EventPayload struct {
	UserID  int64  `json:"user_id"`
	Kind    string `json:"kind"`
	ItemRef string `json:"item_ref"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Dispatcher is the notification collaborator consumed by the scheduler jobs.
// Delivery happens off the publish path through the asynq worker.
type Dispatcher interface {
	Notify(ctx context.Context, event EventPayload) error
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type asynqDispatcher struct {
	client taskEnqueuer
}

func NewDispatcher(client *asynq.Client) Dispatcher {
	return &asynqDispatcher{client: client}
}

func (d *asynqDispatcher) Notify(ctx context.Context, event EventPayload) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeNotify, payload)

	// The task id is derived from the event so a re-enqueued batch item can
	// never notify the same outcome twice.
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.TaskID(fmt.Sprintf("%s:%s", event.Kind, event.ItemRef)))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}

	log.Printf("Notification enqueued: kind=%s user=%d", event.Kind, event.UserID)
	return nil
}
