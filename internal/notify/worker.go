package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/repository"
)

// Worker persists queued notification events, honoring each user's
// preferences for success noise.
type Worker struct {
	ur repository.UserRepository
	nr repository.NotificationRepository
}

func NewWorker(ur repository.UserRepository, nr repository.NotificationRepository) *Worker {
	return &Worker{ur: ur, nr: nr}
}

func (w *Worker) HandleNotifyTask(ctx context.Context, task *asynq.Task) error {
	var event EventPayload
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return err
	}

	user, err := w.ur.GetByID(ctx, event.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		log.Printf("Dropping notification for unknown user %d", event.UserID)
		return nil
	}

	if !w.wanted(user, event.Kind) {
		return nil
	}

	notification := models.Notification{
		UserID:  event.UserID,
		Kind:    event.Kind,
		Subject: event.Subject,
		Message: event.Message,
	}
	if _, err := w.nr.Create(ctx, &notification); err != nil {
		log.Printf("Error saving notification for user %d: %v", event.UserID, err)
		return err
	}

	return nil
}

func (w *Worker) wanted(user *models.User, kind string) bool {
	switch kind {
	case models.NotifyTweetPosted, models.NotifyThreadPosted:
		return user.NotifyOnSuccess
	case models.NotifyTweetFailed, models.NotifyThreadFailed:
		return user.NotifyOnFailure
	default:
		return true
	}
}
