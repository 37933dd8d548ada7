package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/wyatts97/schedx/internal/jobs"
)

type JobsHandler struct {
	tweetJob   *jobs.TweetSchedulerJob
	threadJob  *jobs.ThreadSchedulerJob
	promoteJob *jobs.QueuePromoteJob
	syncJob    *jobs.EngagementSyncJob
	cleanupJob *jobs.RetentionCleanupJob
}

func NewJobsHandler(
	tweetJob *jobs.TweetSchedulerJob,
	threadJob *jobs.ThreadSchedulerJob,
	promoteJob *jobs.QueuePromoteJob,
	syncJob *jobs.EngagementSyncJob,
	cleanupJob *jobs.RetentionCleanupJob,
) *JobsHandler {
	return &JobsHandler{
		tweetJob:   tweetJob,
		threadJob:  threadJob,
		promoteJob: promoteJob,
		syncJob:    syncJob,
		cleanupJob: cleanupJob,
	}
}

func respondRun(c *fiber.Ctx, result any, err error) error {
	if err != nil {
		if errors.Is(err, jobs.ErrAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A run is already in progress",
			})
		}
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Run failed",
		})
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *JobsHandler) RunTweetScheduler(c *fiber.Ctx) error {
	result, err := h.tweetJob.RunOnce(c.Context())
	return respondRun(c, result, err)
}

func (h *JobsHandler) RunThreadScheduler(c *fiber.Ctx) error {
	result, err := h.threadJob.RunOnce(c.Context())
	return respondRun(c, result, err)
}

func (h *JobsHandler) RunQueuePromotion(c *fiber.Ctx) error {
	result, err := h.promoteJob.RunOnce(c.Context())
	return respondRun(c, result, err)
}

func (h *JobsHandler) RunEngagementSync(c *fiber.Ctx) error {
	result, err := h.syncJob.RunOnce(c.Context())
	return respondRun(c, result, err)
}

func (h *JobsHandler) RunRetentionCleanup(c *fiber.Ctx) error {
	result, err := h.cleanupJob.RunOnce(c.Context())
	return respondRun(c, result, err)
}
