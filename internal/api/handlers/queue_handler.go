package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/queue"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/transfer"
)

type QueueHandler struct {
	manager  *queue.Manager
	tweets   repository.TweetRepository
	accounts repository.SocialAccountRepository
}

func NewQueueHandler(manager *queue.Manager, tweets repository.TweetRepository, accounts repository.SocialAccountRepository) *QueueHandler {
	return &QueueHandler{manager: manager, tweets: tweets, accounts: accounts}
}

func (h *QueueHandler) ownedAccount(c *fiber.Ctx, accountID int64) (*models.SocialAccount, error) {
	account, err := h.accounts.GetByID(c.Context(), accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.UserID != GetUserID(c) {
		return nil, errors.New("account not found")
	}
	return account, nil
}

func (h *QueueHandler) ListQueue(c *fiber.Ctx) error {
	accountID := int64(c.QueryInt("account_id", 0))
	if _, err := h.ownedAccount(c, accountID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	tweets, err := h.tweets.ListQueued(c.Context(), accountID)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list queue",
		})
	}

	return c.Status(fiber.StatusOK).JSON(tweets)
}

func (h *QueueHandler) AddToQueue(c *fiber.Ctx) error {
	var req transfer.QueueAdd
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Tweet body is required",
		})
	}

	account, err := h.ownedAccount(c, req.AccountID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	t := &models.Tweet{
		UserID:             account.UserID,
		AccountID:          account.ID,
		Body:               req.Body,
		RecurrenceType:     req.RecurrenceType,
		RecurrenceInterval: req.RecurrenceInterval,
	}
	if t.RecurrenceType == "" {
		t.RecurrenceType = models.RecurrenceNone
	}
	if req.RecurrenceEndDate != "" {
		endDate, err := time.Parse(time.RFC3339, req.RecurrenceEndDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid recurrence end date",
			})
		}
		t.RecurrenceEndDate.Time = endDate
		t.RecurrenceEndDate.Valid = true
	}

	id, err := h.manager.Enqueue(c.Context(), t)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to add tweet to queue",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      id,
		"message": "Tweet added to queue",
	})
}

func (h *QueueHandler) ReorderQueue(c *fiber.Ctx) error {
	var req transfer.QueueReorder
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if _, err := h.ownedAccount(c, req.AccountID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	err := h.manager.Reorder(c.Context(), req.AccountID, req.OrderedIDs)
	if err != nil {
		if errors.Is(err, queue.ErrQueueMismatch) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Submitted ids do not match the queue",
			})
		}
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to reorder queue",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) MoveInQueue(c *fiber.Ctx) error {
	var req transfer.QueueMove
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if _, err := h.ownedAccount(c, req.AccountID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	err := h.manager.Move(c.Context(), req.AccountID, req.TweetID, req.Position)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to move tweet",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) ShuffleQueue(c *fiber.Ctx) error {
	var req transfer.QueueShuffle
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if _, err := h.ownedAccount(c, req.AccountID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	err := h.manager.Shuffle(c.Context(), req.AccountID)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to shuffle queue",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
