package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	schedule, err := h.s.GetDefault(c.Context())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(schedule)
}

func (h *ScheduleHandler) AddSlot(c *fiber.Ctx) error {
	var req transfer.SlotRequest
	fields, err := bindJSON(c, &req)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if fields != nil {
		return validationFailed(c, fields)
	}

	slot, err := h.s.AddSlot(c.Context(), *req.DayOfWeek, req.Time)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func (h *ScheduleHandler) ToggleSlot(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	slot, err := h.s.ToggleSlot(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(slot)
}

func (h *ScheduleHandler) RemoveSlot(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	if err := h.s.RemoveSlot(c.Context(), id); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
