package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
)

type WebhookHandler struct {
	s service.WebhookService
}

func NewWebhookHandler(service service.WebhookService) *WebhookHandler {
	return &WebhookHandler{s: service}
}

func (h *WebhookHandler) List(c *fiber.Ctx) error {
	hooks, err := h.s.List(c.Context())
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(hooks)
}

func (h *WebhookHandler) Create(c *fiber.Ctx) error {
	req, ok, err := h.bind(c)
	if !ok {
		return err
	}

	w, err := h.s.Create(c.Context(), req)
	if err != nil {
		return sendError(c, err)
	}
	// The secret is only ever shown on creation and regeneration.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"webhook": w,
		"secret":  w.Secret,
	})
}

func (h *WebhookHandler) Update(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	req, ok, err := h.bind(c)
	if !ok {
		return err
	}

	w, err := h.s.Update(c.Context(), id, req)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(w)
}

func (h *WebhookHandler) bind(c *fiber.Ctx) (service.WebhookRequest, bool, error) {
	var req transfer.WebhookRequest
	fields, err := bindJSON(c, &req)
	if err != nil {
		return service.WebhookRequest{}, false, badRequest(c, "Invalid request body")
	}
	if fields != nil {
		return service.WebhookRequest{}, false, validationFailed(c, fields)
	}
	return service.WebhookRequest{
		Name:       req.Name,
		URL:        req.URL,
		Secret:     req.Secret,
		Events:     req.Events,
		Headers:    req.Headers,
		Timeout:    req.Timeout,
		RetryCount: req.RetryCount,
		IsActive:   req.IsActive,
	}, true, nil
}

func (h *WebhookHandler) Toggle(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	w, err := h.s.Toggle(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(w)
}

func (h *WebhookHandler) Remove(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	if err := h.s.Remove(c.Context(), id); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) RegenerateSecret(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	secret, err := h.s.RegenerateSecret(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"secret": secret,
	})
}

func (h *WebhookHandler) Test(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	d, err := h.s.Test(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(d)
}

func (h *WebhookHandler) Deliveries(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	deliveries, err := h.s.Deliveries(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(deliveries)
}

func (h *WebhookHandler) RetryDelivery(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return badRequest(c, "Missing or invalid id")
	}
	d, err := h.s.Retry(c.Context(), id)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(d)
}
