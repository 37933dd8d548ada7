package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/queue"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/transfer"
)

type SettingsHandler struct {
	queueSettings repository.QueueSettingsRepository
	retention     repository.RetentionSettingsRepository
	accounts      repository.SocialAccountRepository
}

func NewSettingsHandler(
	queueSettings repository.QueueSettingsRepository,
	retention repository.RetentionSettingsRepository,
	accounts repository.SocialAccountRepository,
) *SettingsHandler {
	return &SettingsHandler{
		queueSettings: queueSettings,
		retention:     retention,
		accounts:      accounts,
	}
}

func (h *SettingsHandler) GetQueueSettings(c *fiber.Ctx) error {
	accountID := int64(c.QueryInt("account_id", 0))

	account, err := h.accounts.GetByID(c.Context(), accountID)
	if err != nil || account == nil || account.UserID != GetUserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	settings, found, err := h.queueSettings.GetByAccountID(c.Context(), accountID)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load queue settings",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No queue settings for given account",
		})
	}

	return c.JSON(settings)
}

func (h *SettingsHandler) UpdateQueueSettings(c *fiber.Ctx) error {
	var req transfer.QueueSettingsUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	account, err := h.accounts.GetByID(c.Context(), req.AccountID)
	if err != nil || account == nil || account.UserID != GetUserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown timezone",
		})
	}

	settings := &models.QueueSettings{
		UserID:             account.UserID,
		AccountID:          account.ID,
		Enabled:            req.Enabled,
		PostingTimes:       req.PostingTimes,
		Timezone:           req.Timezone,
		MinIntervalMinutes: req.MinIntervalMinutes,
		MaxPostsPerDay:     req.MaxPostsPerDay,
		SkipWeekends:       req.SkipWeekends,
	}

	if err := queue.ValidatePostingTimes(settings.PostingTimes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid posting times",
		})
	}

	if err := h.queueSettings.Upsert(c.Context(), settings); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to update queue settings",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *SettingsHandler) GetRetentionSettings(c *fiber.Ctx) error {
	settings, found, err := h.retention.Get(c.Context())
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load retention settings",
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Retention settings not configured",
		})
	}

	return c.JSON(settings)
}

func (h *SettingsHandler) UpdateRetentionSettings(c *fiber.Ctx) error {
	var req transfer.RetentionSettingsUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if req.StatsRetentionDays <= 0 || req.EventsRetentionDays <= 0 || req.SnapshotMinTweetAgeDays < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Retention windows must be positive",
		})
	}

	settings := &models.RetentionSettings{
		Enabled:                 req.Enabled,
		StatsRetentionDays:      req.StatsRetentionDays,
		EventsRetentionDays:     req.EventsRetentionDays,
		SnapshotMinTweetAgeDays: req.SnapshotMinTweetAgeDays,
	}

	if err := h.retention.Update(c.Context(), settings); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to update retention settings",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
