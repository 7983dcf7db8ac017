package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow-publisher/internal/models"
)

func (w *Worker) HandleWebhookDispatchTask(ctx context.Context, task *asynq.Task) error {
	var payload WebhookDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode webhook dispatch: %v: %w", err, asynq.SkipRetry)
	}

	deliveries := w.ws.Dispatch(ctx, payload.Event, payload.Data)

	failed := 0
	for _, d := range deliveries {
		if d.Status == models.DeliveryStatusFailed {
			failed++
		}
	}
	slog.Info("webhook event dispatched", "event", payload.Event, "deliveries", len(deliveries), "failed", failed)
	return nil
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeWebhookDispatch, w.HandleWebhookDispatchTask)
}
