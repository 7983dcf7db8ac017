package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

type QueueHandler struct {
	s service.QueueService
}

func NewQueueHandler(service service.QueueService) *QueueHandler {
	return &QueueHandler{s: service}
}

func (h *QueueHandler) ListPending(c *fiber.Ctx) error {
	items, err := h.s.ListPending(c.Context())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

func (h *QueueHandler) Enqueue(c *fiber.Ctx) error {
	var req transfer.EnqueueRequest
	fields, err := bindJSON(c, &req)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if fields != nil {
		return validationFailed(c, fields)
	}

	item, err := h.s.Enqueue(c.Context(), service.EnqueueRequest{
		PostID:         req.PostID,
		ScheduleTimeID: req.ScheduleTimeID,
		ScheduledAt:    req.ScheduledAt,
	}, time.Now())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *QueueHandler) Remove(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	if err := h.s.Remove(c.Context(), id); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) Reorder(c *fiber.Ctx) error {
	var req transfer.ReorderRequest
	fields, err := bindJSON(c, &req)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if fields != nil {
		return validationFailed(c, fields)
	}

	positions := make(map[int64]int, len(req.Items))
	for _, it := range req.Items {
		positions[it.ID] = it.Position
	}
	if err := h.s.Reorder(c.Context(), positions); err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Queue reordered",
	})
}

func (h *QueueHandler) Retry(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	if err := h.s.Retry(c.Context(), id); err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Item requeued",
	})
}

func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.s.Stats(c.Context(), time.Now())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
