package handlers

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow-publisher/internal/scheduling"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

var validate = validator.New()

// bindJSON decodes and validates the request body. The returned map is
// non-nil when validation failed.
func bindJSON(c *fiber.Ctx, dst any) (map[string]string, error) {
	if err := c.BodyParser(dst); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if err := validate.Struct(dst); err != nil {
		return ProcessValidationErrors(err), nil
	}
	return nil, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	})
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errorResponse["_"] = err.Error()
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func queryID(c *fiber.Ctx) (int64, bool) {
	id := c.QueryInt("id", 0)
	return int64(id), id > 0
}

// sendError maps service errors onto HTTP statuses.
func sendError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrRuleNotFound),
		errors.Is(err, service.ErrWebhookNotFound),
		errors.Is(err, service.ErrDeliveryNotFound),
		errors.Is(err, service.ErrNoSchedule):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrItemProcessing),
		errors.Is(err, service.ErrNotRetryable),
		errors.Is(err, service.ErrDeliveryNotRetryable),
		errors.Is(err, service.ErrAlreadyRecycling):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrNoAccounts),
		errors.Is(err, service.ErrNoContent),
		errors.Is(err, service.ErrNegativePosition),
		errors.Is(err, service.ErrInvalidDay),
		errors.Is(err, service.ErrInvalidSlotTime),
		errors.Is(err, service.ErrUnknownEvent),
		errors.Is(err, service.ErrWebhookEventsRequired),
		errors.Is(err, scheduling.ErrIntervalType),
		errors.Is(err, scheduling.ErrIntervalValue),
		errors.Is(err, scheduling.ErrMaxRecycles):
		status = fiber.StatusUnprocessableEntity
	}

	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error())
	}
	return c.Status(status).JSON(fiber.Map{
		"error": service.FailureMessage(err),
	})
}
