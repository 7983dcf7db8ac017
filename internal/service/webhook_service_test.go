package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
)

type fakeWebhooks struct {
	hooks map[int64]*models.Webhook
}

func (f *fakeWebhooks) Create(ctx context.Context, w *models.Webhook) (int64, error) {
	w.ID = int64(len(f.hooks) + 1)
	f.hooks[w.ID] = w
	return w.ID, nil
}

func (f *fakeWebhooks) GetByID(ctx context.Context, id int64) (*models.Webhook, error) {
	return f.hooks[id], nil
}

func (f *fakeWebhooks) List(ctx context.Context) ([]*models.Webhook, error) {
	var out []*models.Webhook
	for _, w := range f.hooks {
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeWebhooks) ListForEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	var out []*models.Webhook
	for _, w := range f.hooks {
		if w.Subscribes(event) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWebhooks) Update(ctx context.Context, w *models.Webhook) error { return nil }

func (f *fakeWebhooks) SetActive(ctx context.Context, id int64, active bool) error {
	f.hooks[id].IsActive = active
	return nil
}

func (f *fakeWebhooks) SetSecret(ctx context.Context, id int64, secret string) error {
	f.hooks[id].Secret = secret
	return nil
}

func (f *fakeWebhooks) Remove(ctx context.Context, id int64) error {
	delete(f.hooks, id)
	return nil
}

type fakeDeliveries struct {
	mu   sync.Mutex
	rows map[int64]*models.WebhookDelivery
}

func newFakeDeliveries() *fakeDeliveries {
	return &fakeDeliveries{rows: map[int64]*models.WebhookDelivery{}}
}

func (f *fakeDeliveries) Create(ctx context.Context, d *models.WebhookDelivery) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.rows) + 1)
	cp := *d
	cp.ID = id
	f.rows[id] = &cp
	return id, nil
}

func (f *fakeDeliveries) GetByID(ctx context.Context, id int64) (*models.WebhookDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDeliveries) MarkSuccess(ctx context.Context, id int64, code int, body string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.rows[id]
	d.Status = models.DeliveryStatusSuccess
	d.ResponseCode = &code
	d.DeliveredAt = &at
	return nil
}

func (f *fakeDeliveries) MarkFailed(ctx context.Context, id int64, code *int, body *string, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.rows[id]
	d.Status = models.DeliveryStatusFailed
	d.ResponseCode = code
	d.ErrorMessage = &msg
	return nil
}

func (f *fakeDeliveries) BeginRetry(ctx context.Context, id int64, retryCount int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.rows[id]
	if d.Status != models.DeliveryStatusFailed || d.Attempt >= retryCount {
		return false, nil
	}
	d.Attempt++
	d.Status = models.DeliveryStatusPending
	return true, nil
}

func (f *fakeDeliveries) ListByWebhook(ctx context.Context, webhookID int64, limit int) ([]*models.WebhookDelivery, error) {
	return nil, nil
}

func (f *fakeDeliveries) ListRetryable(ctx context.Context, limit int) ([]*models.WebhookDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.WebhookDelivery
	for _, d := range f.rows {
		if d.Status == models.DeliveryStatusFailed && d.Attempt < models.WebhookDefaultRetryCount {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type capturedRequest struct {
	header http.Header
	body   []byte
}

func newCapturingServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newWebhookFixture(hooks ...*models.Webhook) (WebhookService, *fakeDeliveries) {
	wr := &fakeWebhooks{hooks: map[int64]*models.Webhook{}}
	for _, h := range hooks {
		wr.hooks[h.ID] = h
	}
	dr := newFakeDeliveries()
	fixed := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	svc := NewWebhookService(wr, dr, WebhookOptions{
		Concurrency: 4,
		Now:         func() time.Time { return fixed },
	})
	return svc, dr
}

func TestWebhookSendSignsPayload(t *testing.T) {
	srv, reqs := newCapturingServer(t, http.StatusOK)
	hook := &models.Webhook{
		ID: 1, URL: srv.URL, Secret: "s3cret", IsActive: true, RetryCount: 3,
		Events:  models.StringList{models.EventPostPublished},
		Headers: models.HeaderMap{"X-Team": "growth"},
	}
	svc, _ := newWebhookFixture(hook)

	d, err := svc.Send(context.Background(), hook, models.EventPostPublished, map[string]int{"id": 9})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if d.Status != models.DeliveryStatusSuccess || d.ResponseCode == nil || *d.ResponseCode != 200 {
		t.Errorf("Send() delivery = %+v", d)
	}

	if len(*reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(*reqs))
	}
	got := (*reqs)[0]

	tests := []struct {
		header string
		want   string
	}{
		{"Content-Type", "application/json"},
		{"User-Agent", "Postflow-Webhook/1.0"},
		{"X-Postflow-Event", models.EventPostPublished},
		{"X-Postflow-Delivery", "1"},
		{"X-Postflow-Signature", utils.Sign("s3cret", got.body)},
		{"X-Team", "growth"},
	}
	for _, tt := range tests {
		if v := got.header.Get(tt.header); v != tt.want {
			t.Errorf("header %s = %q, want %q", tt.header, v, tt.want)
		}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload.Event != models.EventPostPublished || payload.Timestamp != "2024-06-03T09:00:00Z" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestWebhookRetryStopsAtCeiling(t *testing.T) {
	srv, reqs := newCapturingServer(t, http.StatusInternalServerError)
	hook := &models.Webhook{ID: 1, URL: srv.URL, IsActive: true, RetryCount: 3, Events: models.StringList{models.EventPostFailed}}
	svc, dr := newWebhookFixture(hook)
	ctx := context.Background()

	d, err := svc.Send(ctx, hook, models.EventPostFailed, nil)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if d.Status != models.DeliveryStatusFailed || d.ErrorMessage == nil || *d.ErrorMessage != "HTTP 500" {
		t.Fatalf("Send() delivery = %+v, want failed with HTTP 500", d)
	}

	for attempt := 2; attempt <= 3; attempt++ {
		d, err = svc.Retry(ctx, d.ID)
		if err != nil {
			t.Fatalf("Retry() attempt %d error = %v", attempt, err)
		}
		if d.Attempt != attempt || d.Status != models.DeliveryStatusFailed {
			t.Errorf("Retry() = attempt %d status %s, want attempt %d failed", d.Attempt, d.Status, attempt)
		}
	}

	if _, err := svc.Retry(ctx, d.ID); !errors.Is(err, ErrDeliveryNotRetryable) {
		t.Errorf("Retry() past ceiling error = %v, want ErrDeliveryNotRetryable", err)
	}

	if len(*reqs) != 3 {
		t.Errorf("requests = %d, want 3", len(*reqs))
	}
	first, last := (*reqs)[0].body, (*reqs)[2].body
	if string(first) != string(last) {
		t.Errorf("retry payload changed: %s vs %s", first, last)
	}
	if row, _ := dr.GetByID(ctx, d.ID); row.Attempt != 3 || len(dr.rows) != 1 {
		t.Errorf("delivery rows = %d, attempt = %d, want one row at attempt 3", len(dr.rows), row.Attempt)
	}
}

func TestWebhookDispatchOnlySubscribed(t *testing.T) {
	ok, okReqs := newCapturingServer(t, http.StatusOK)
	bad, badReqs := newCapturingServer(t, http.StatusBadGateway)
	other, otherReqs := newCapturingServer(t, http.StatusOK)

	svc, _ := newWebhookFixture(
		&models.Webhook{ID: 1, URL: ok.URL, IsActive: true, Events: models.StringList{models.EventPostPublished}},
		&models.Webhook{ID: 2, URL: bad.URL, IsActive: true, Events: models.StringList{models.EventPostPublished}},
		&models.Webhook{ID: 3, URL: other.URL, IsActive: true, Events: models.StringList{models.EventPostFailed}},
		&models.Webhook{ID: 4, URL: other.URL, IsActive: false, Events: models.StringList{models.EventPostPublished}},
	)

	deliveries := svc.Dispatch(context.Background(), models.EventPostPublished, map[string]int{"id": 1})
	if len(deliveries) != 2 {
		t.Fatalf("Dispatch() deliveries = %d, want 2", len(deliveries))
	}
	if len(*okReqs) != 1 || len(*badReqs) != 1 || len(*otherReqs) != 0 {
		t.Errorf("requests ok=%d bad=%d other=%d", len(*okReqs), len(*badReqs), len(*otherReqs))
	}
}

func TestWebhookCreateDefaults(t *testing.T) {
	svc, _ := newWebhookFixture()

	tests := []struct {
		name    string
		req     WebhookRequest
		wantErr error
	}{
		{"defaults applied", WebhookRequest{Name: "crm", URL: "https://example.com/hook", Events: []string{models.EventPostPublished}}, nil},
		{"no events", WebhookRequest{Name: "crm", URL: "https://example.com/hook"}, ErrWebhookEventsRequired},
		{"unknown event", WebhookRequest{Name: "crm", URL: "https://example.com/hook", Events: []string{"post.exploded"}}, ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := svc.Create(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(w.Secret) != 32 || w.Timeout != 30 || w.RetryCount != 3 || !w.IsActive {
				t.Errorf("Create() = %+v", w)
			}
		})
	}
}
