package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

type RecyclingHandler struct {
	s service.RecyclingService
}

func NewRecyclingHandler(service service.RecyclingService) *RecyclingHandler {
	return &RecyclingHandler{s: service}
}

func (h *RecyclingHandler) List(c *fiber.Ctx) error {
	rules, err := h.s.List(c.Context())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rules)
}

func (h *RecyclingHandler) Create(c *fiber.Ctx) error {
	var req transfer.RecyclingRequest
	fields, err := bindJSON(c, &req)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if fields != nil {
		return validationFailed(c, fields)
	}

	rule, err := h.s.Create(c.Context(), service.RecyclingRequest{
		PostID:        req.PostID,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		MaxRecycles:   req.MaxRecycles,
	}, time.Now())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *RecyclingHandler) Update(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	var req transfer.RecyclingUpdate
	fields, err := bindJSON(c, &req)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if fields != nil {
		return validationFailed(c, fields)
	}

	rule, err := h.s.Update(c.Context(), id, service.RecyclingRequest{
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		MaxRecycles:   req.MaxRecycles,
	}, time.Now())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rule)
}

func (h *RecyclingHandler) Toggle(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	rule, err := h.s.Toggle(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rule)
}

func (h *RecyclingHandler) Remove(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	if err := h.s.Remove(c.Context(), id); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
