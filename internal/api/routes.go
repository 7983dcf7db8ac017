package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow-publisher/internal/api/handlers"
)

type Handlers struct {
	Queue     *handlers.QueueHandler
	Schedule  *handlers.ScheduleHandler
	Recycling *handlers.RecyclingHandler
	Webhooks  *handlers.WebhookHandler
}

// RegisterRoutes mounts the operator API under /api behind auth.
func RegisterRoutes(app *fiber.App, auth fiber.Handler, h Handlers) {
	api := app.Group("/api")
	api.Use(auth)

	api.Get("/queue", h.Queue.ListPending)
	api.Post("/queue", h.Queue.Enqueue)
	api.Get("/queue/stats", h.Queue.Stats)
	api.Post("/queue/remove", h.Queue.Remove)
	api.Post("/queue/reorder", h.Queue.Reorder)
	api.Post("/queue/retry", h.Queue.Retry)

	api.Get("/schedule", h.Schedule.GetSchedule)
	api.Post("/schedule/slots", h.Schedule.AddSlot)
	api.Post("/schedule/slots/toggle", h.Schedule.ToggleSlot)
	api.Post("/schedule/slots/remove", h.Schedule.RemoveSlot)

	api.Get("/recycling", h.Recycling.List)
	api.Post("/recycling", h.Recycling.Create)
	api.Post("/recycling/update", h.Recycling.Update)
	api.Post("/recycling/toggle", h.Recycling.Toggle)
	api.Post("/recycling/remove", h.Recycling.Remove)

	api.Get("/webhooks", h.Webhooks.List)
	api.Post("/webhooks", h.Webhooks.Create)
	api.Post("/webhooks/update", h.Webhooks.Update)
	api.Post("/webhooks/toggle", h.Webhooks.Toggle)
	api.Post("/webhooks/remove", h.Webhooks.Remove)
	api.Post("/webhooks/secret", h.Webhooks.RegenerateSecret)
	api.Post("/webhooks/test", h.Webhooks.Test)
	api.Get("/webhooks/deliveries", h.Webhooks.Deliveries)
	api.Post("/webhooks/deliveries/retry", h.Webhooks.RetryDelivery)
}
