package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsyncEmitter turns domain events into webhook dispatch tasks. When the task
// cannot be enqueued the event goes to fallback, if any.
type AsyncEmitter struct {
	client   enqueuer
	fallback service.EventEmitter
}

func NewAsyncEmitter(client *asynq.Client, fallback service.EventEmitter) *AsyncEmitter {
	return &AsyncEmitter{client: client, fallback: fallback}
}

func (e *AsyncEmitter) Emit(ctx context.Context, event string, data any) {
	if err := EnqueueWebhookDispatch(ctx, e.client, event, data); err != nil {
		slog.Warn("enqueue webhook dispatch", "event", event, "error", err)
		if e.fallback != nil {
			e.fallback.Emit(ctx, event, data)
		}
	}
}

// EnqueueWebhookDispatch schedules one fan-out. Deliveries track their own
// attempts, so the task itself is never retried by asynq.
func EnqueueWebhookDispatch(ctx context.Context, client enqueuer, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	taskPayload, err := json.Marshal(WebhookDispatchPayload{Event: event, Data: raw})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeWebhookDispatch, taskPayload)
	info, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Debug("webhook dispatch enqueued", "event", event, "task_id", info.ID)
	return nil
}
