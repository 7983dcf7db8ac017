package queue

import (
	"encoding/json"

	"github.com/maheshrc27/postflow-publisher/internal/service"
)

const TaskTypeWebhookDispatch = "webhook:dispatch"

type WebhookDispatchPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Worker runs webhook fan-out off the request path.
type Worker struct {
	ws service.WebhookService
}

func NewWorker(ws service.WebhookService) *Worker {
	return &Worker{ws: ws}
}
