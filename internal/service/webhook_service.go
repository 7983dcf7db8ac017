package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
)

const (
	webhookSecretLength = 32
	deliveryListLimit   = 50
	maxResponseBody     = 64 << 10
)

var (
	ErrWebhookNotFound       = errors.New("webhook not found")
	ErrDeliveryNotFound      = errors.New("webhook delivery not found")
	ErrDeliveryNotRetryable  = errors.New("delivery cannot be retried")
	ErrUnknownEvent          = errors.New("unknown webhook event")
	ErrWebhookEventsRequired = errors.New("at least one event is required")
)

type WebhookRequest struct {
	Name       string
	URL        string
	Secret     string
	Events     []string
	Headers    map[string]string
	Timeout    int
	RetryCount int
	IsActive   *bool
}

type WebhookService interface {
	Emit(ctx context.Context, event string, data any)
	Dispatch(ctx context.Context, event string, data any) []*models.WebhookDelivery
	Send(ctx context.Context, w *models.Webhook, event string, data any) (*models.WebhookDelivery, error)
	Retry(ctx context.Context, deliveryID int64) (*models.WebhookDelivery, error)
	RetryFailed(ctx context.Context, limit int) (int, error)
	Test(ctx context.Context, id int64) (*models.WebhookDelivery, error)

	Create(ctx context.Context, req WebhookRequest) (*models.Webhook, error)
	Update(ctx context.Context, id int64, req WebhookRequest) (*models.Webhook, error)
	Toggle(ctx context.Context, id int64) (*models.Webhook, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.Webhook, error)
	RegenerateSecret(ctx context.Context, id int64) (string, error)
	Deliveries(ctx context.Context, id int64) ([]*models.WebhookDelivery, error)
}

type WebhookOptions struct {
	UserAgent      string
	HeaderPrefix   string
	Concurrency    int
	DefaultTimeout time.Duration
	HTTP           *http.Client
	Now            func() time.Time
}

type webhookService struct {
	wr   repository.WebhookRepository
	dr   repository.WebhookDeliveryRepository
	opts WebhookOptions
}

func NewWebhookService(wr repository.WebhookRepository, dr repository.WebhookDeliveryRepository, opts WebhookOptions) WebhookService {
	if opts.UserAgent == "" {
		opts.UserAgent = "Postflow-Webhook/1.0"
	}
	if opts.HeaderPrefix == "" {
		opts.HeaderPrefix = "X-Postflow"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = models.WebhookDefaultTimeout * time.Second
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &webhookService{
		wr:   wr,
		dr:   dr,
		opts: opts,
	}
}

// Emit dispatches synchronously and only logs failures.
func (s *webhookService) Emit(ctx context.Context, event string, data any) {
	s.Dispatch(ctx, event, data)
}

func (s *webhookService) Dispatch(ctx context.Context, event string, data any) []*models.WebhookDelivery {
	hooks, err := s.wr.ListForEvent(ctx, event)
	if err != nil {
		slog.Error("list webhooks for event", "event", event, "error", err)
		return nil
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		deliveries []*models.WebhookDelivery
		sem        = make(chan struct{}, s.opts.Concurrency)
	)
	for _, w := range hooks {
		if !w.Subscribes(event) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(w *models.Webhook) {
			defer wg.Done()
			defer func() { <-sem }()

			d, err := s.Send(ctx, w, event, data)
			if err != nil {
				slog.Warn("webhook send failed", "webhook_id", w.ID, "event", event, "error", err)
			}
			if d != nil {
				mu.Lock()
				deliveries = append(deliveries, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return deliveries
}

// Send records a pending delivery and performs the first attempt. A failed
// attempt is reported through the delivery, not the error.
func (s *webhookService) Send(ctx context.Context, w *models.Webhook, event string, data any) (*models.WebhookDelivery, error) {
	payload, err := json.Marshal(models.WebhookPayload{
		Event:     event,
		Timestamp: s.opts.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	d := &models.WebhookDelivery{
		WebhookID: w.ID,
		Event:     event,
		Payload:   payload,
		Status:    models.DeliveryStatusPending,
		Attempt:   1,
	}
	id, err := s.dr.Create(ctx, d)
	if err != nil {
		return nil, err
	}
	d.ID = id

	s.deliver(ctx, w, d)
	return d, nil
}

func (s *webhookService) deliver(ctx context.Context, w *models.Webhook, d *models.WebhookDelivery) {
	timeout := s.opts.DefaultTimeout
	if w.Timeout > 0 {
		timeout = time.Duration(w.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	code, body, err := s.post(ctx, w, d)
	if err == nil && code >= 200 && code < 300 {
		at := s.opts.Now()
		if err := s.dr.MarkSuccess(context.WithoutCancel(ctx), d.ID, code, body, at); err != nil {
			slog.Info(err.Error())
		}
		d.Status = models.DeliveryStatusSuccess
		d.ResponseCode = &code
		d.ResponseBody = &body
		d.DeliveredAt = &at
		d.ErrorMessage = nil
		return
	}

	var codePtr *int
	var bodyPtr *string
	msg := ""
	if err != nil {
		msg = err.Error()
	} else {
		codePtr, bodyPtr = &code, &body
		msg = fmt.Sprintf("HTTP %d", code)
	}
	if err := s.dr.MarkFailed(context.WithoutCancel(ctx), d.ID, codePtr, bodyPtr, msg); err != nil {
		slog.Info(err.Error())
	}
	d.Status = models.DeliveryStatusFailed
	d.ResponseCode = codePtr
	d.ResponseBody = bodyPtr
	d.ErrorMessage = &msg
}

func (s *webhookService) post(ctx context.Context, w *models.Webhook, d *models.WebhookDelivery) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set(s.opts.HeaderPrefix+"-Event", d.Event)
	req.Header.Set(s.opts.HeaderPrefix+"-Delivery", strconv.FormatInt(d.ID, 10))
	if w.Secret != "" {
		req.Header.Set(s.opts.HeaderPrefix+"-Signature", utils.Sign(w.Secret, d.Payload))
	}
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.opts.HTTP.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, "", nil
	}
	return resp.StatusCode, string(body), nil
}

// Retry re-sends the stored payload on the same delivery row.
func (s *webhookService) Retry(ctx context.Context, deliveryID int64) (*models.WebhookDelivery, error) {
	d, err := s.dr.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDeliveryNotFound
	}
	w, err := s.wr.GetByID(ctx, d.WebhookID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWebhookNotFound
	}
	if !d.CanRetry(w.RetryCount) {
		return nil, ErrDeliveryNotRetryable
	}

	ok, err := s.dr.BeginRetry(ctx, d.ID, w.RetryCount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeliveryNotRetryable
	}
	d.Attempt++
	d.Status = models.DeliveryStatusPending

	s.deliver(ctx, w, d)
	return d, nil
}

// RetryFailed retries up to limit deliveries that are still under their ceiling.
func (s *webhookService) RetryFailed(ctx context.Context, limit int) (int, error) {
	pending, err := s.dr.ListRetryable(ctx, limit)
	if err != nil {
		return 0, err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
		sem       = make(chan struct{}, s.opts.Concurrency)
	)
	for _, d := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(id int64) {
			defer wg.Done()
			defer func() { <-sem }()

			d, err := s.Retry(ctx, id)
			if err != nil {
				slog.Debug("webhook retry skipped", "delivery_id", id, "error", err)
				return
			}
			if d.Status == models.DeliveryStatusSuccess {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}(d.ID)
	}
	wg.Wait()
	return delivered, nil
}

func (s *webhookService) Test(ctx context.Context, id int64) (*models.WebhookDelivery, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, w, models.EventTestPing, map[string]any{
		"webhook_id": w.ID,
		"message":    "This is a test delivery.",
	})
}

func (s *webhookService) Create(ctx context.Context, req WebhookRequest) (*models.Webhook, error) {
	if err := validateEvents(req.Events); err != nil {
		return nil, err
	}

	secret := req.Secret
	if secret == "" {
		var err error
		if secret, err = utils.GenerateSecret(webhookSecretLength); err != nil {
			return nil, err
		}
	}

	w := &models.Webhook{
		Name:       req.Name,
		URL:        req.URL,
		Secret:     secret,
		Events:     req.Events,
		IsActive:   req.IsActive == nil || *req.IsActive,
		Headers:    req.Headers,
		Timeout:    req.Timeout,
		RetryCount: req.RetryCount,
	}
	if w.Timeout <= 0 {
		w.Timeout = models.WebhookDefaultTimeout
	}
	if w.RetryCount <= 0 {
		w.RetryCount = models.WebhookDefaultRetryCount
	}

	id, err := s.wr.Create(ctx, w)
	if err != nil {
		return nil, err
	}
	w.ID = id
	return w, nil
}

func (s *webhookService) Update(ctx context.Context, id int64, req WebhookRequest) (*models.Webhook, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateEvents(req.Events); err != nil {
		return nil, err
	}

	w.Name = req.Name
	w.URL = req.URL
	w.Events = req.Events
	w.Headers = req.Headers
	if req.Timeout > 0 {
		w.Timeout = req.Timeout
	}
	if req.RetryCount > 0 {
		w.RetryCount = req.RetryCount
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	if req.Secret != "" {
		w.Secret = req.Secret
	}

	if err := s.wr.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *webhookService) Toggle(ctx context.Context, id int64) (*models.Webhook, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	w.IsActive = !w.IsActive
	if err := s.wr.SetActive(ctx, id, w.IsActive); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *webhookService) Remove(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.wr.Remove(ctx, id)
}

func (s *webhookService) List(ctx context.Context) ([]*models.Webhook, error) {
	return s.wr.List(ctx)
}

func (s *webhookService) RegenerateSecret(ctx context.Context, id int64) (string, error) {
	if _, err := s.get(ctx, id); err != nil {
		return "", err
	}
	secret, err := utils.GenerateSecret(webhookSecretLength)
	if err != nil {
		return "", err
	}
	if err := s.wr.SetSecret(ctx, id, secret); err != nil {
		return "", err
	}
	return secret, nil
}

func (s *webhookService) Deliveries(ctx context.Context, id int64) ([]*models.WebhookDelivery, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return s.dr.ListByWebhook(ctx, id, deliveryListLimit)
}

func (s *webhookService) get(ctx context.Context, id int64) (*models.Webhook, error) {
	w, err := s.wr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWebhookNotFound
	}
	return w, nil
}

func validateEvents(events []string) error {
	if len(events) == 0 {
		return ErrWebhookEventsRequired
	}
	for _, e := range events {
		known := false
		for _, k := range models.WebhookEvents {
			if e == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownEvent, e)
		}
	}
	return nil
}
