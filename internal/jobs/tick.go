package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

// Locker guards a tick against concurrent runs on other processes.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// WebhookRetrier re-sends failed webhook deliveries that are under their ceiling.
type WebhookRetrier interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
}

type ItemOutcome struct {
	QueueItemID int64                  `json:"queue_item_id"`
	PostID      int64                  `json:"post_id"`
	Status      string                 `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Result      *service.PublishResult `json:"result,omitempty"`
}

func (o *ItemOutcome) Failed() bool { return o.Status == models.QueueStatusFailed }

type TickReport struct {
	RunID           string                     `json:"run_id"`
	Now             time.Time                  `json:"now"`
	Skipped         bool                       `json:"skipped"`
	Recycled        []service.RecyclingOutcome `json:"recycled"`
	Items           []*ItemOutcome             `json:"items"`
	WebhooksRetried int                        `json:"webhooks_retried"`
}

func (r *TickReport) Counts() (published, failed int) {
	for _, it := range r.Items {
		if it.Failed() {
			failed++
		} else {
			published++
		}
	}
	return published, failed
}

// PostEvent is the data of post.published and post.failed webhooks.
type PostEvent struct {
	Post        *models.Post             `json:"post"`
	QueueItemID int64                    `json:"queue_item_id"`
	Accounts    []service.AccountOutcome `json:"accounts,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

type TickOptions struct {
	AutoRetryWebhooks bool
	RetryBatch        int
}

type TickDriver struct {
	qr   repository.QueueRepository
	pr   repository.PostRepository
	ps   service.PublishService
	rs   service.RecyclingService
	ev   service.EventEmitter
	wr   WebhookRetrier
	lock Locker
	opts TickOptions
}

// NewTickDriver wires one processing pass. lock and wr may be nil.
func NewTickDriver(
	qr repository.QueueRepository,
	pr repository.PostRepository,
	ps service.PublishService,
	rs service.RecyclingService,
	ev service.EventEmitter,
	wr WebhookRetrier,
	lock Locker,
	opts TickOptions) *TickDriver {
	if opts.RetryBatch <= 0 {
		opts.RetryBatch = 50
	}
	if ev == nil {
		ev = noopEmitter{}
	}
	return &TickDriver{
		qr:   qr,
		pr:   pr,
		ps:   ps,
		rs:   rs,
		ev:   ev,
		wr:   wr,
		lock: lock,
		opts: opts,
	}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, any) {}

// Tick runs recycling, then every due queue item in position order, then
// automatic webhook retries. Only a failure to list due items is returned;
// everything else ends up in the report and in row state.
func (d *TickDriver) Tick(ctx context.Context, now time.Time) (*TickReport, error) {
	report := &TickReport{RunID: uuid.NewString(), Now: now}
	log := slog.With("run_id", report.RunID)

	if d.lock != nil {
		release, err := d.lock.Acquire(ctx)
		if errors.Is(err, ErrTickLocked) {
			log.Info("tick skipped, another run holds the lock")
			report.Skipped = true
			return report, nil
		}
		if err != nil {
			return report, err
		}
		defer release()
	}

	if d.rs != nil {
		recycled, err := d.rs.ProcessDue(ctx, now)
		if err != nil {
			log.Error("recycling pass failed", "error", err)
		}
		report.Recycled = recycled
	}

	items, err := d.qr.ListDue(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list due queue items: %w", err)
	}
	log.Info("tick started", "due", len(items), "recycled", len(report.Recycled))

	for _, item := range items {
		if out := d.processItem(ctx, item, now); out != nil {
			report.Items = append(report.Items, out)
		}
	}

	if d.opts.AutoRetryWebhooks && d.wr != nil {
		n, err := d.wr.RetryFailed(ctx, d.opts.RetryBatch)
		if err != nil {
			log.Warn("webhook retry pass failed", "error", err)
		}
		report.WebhooksRetried = n
	}

	published, failed := report.Counts()
	log.Info("tick finished", "published", published, "failed", failed, "webhooks_retried", report.WebhooksRetried)
	return report, nil
}

// processItem returns nil when another run claimed the item first.
func (d *TickDriver) processItem(ctx context.Context, item *models.QueueItem, now time.Time) (out *ItemOutcome) {
	claimed, err := d.qr.Claim(ctx, item.ID)
	if err != nil {
		slog.Warn("claim queue item", "queue_id", item.ID, "error", err)
		return nil
	}
	if !claimed {
		slog.Debug("queue item claimed elsewhere", "queue_id", item.ID)
		return nil
	}

	out = &ItemOutcome{QueueItemID: item.ID, PostID: item.PostID}
	var post *models.Post
	defer func() {
		if p := recover(); p != nil {
			slog.Error("queue item panicked", "queue_id", item.ID, "panic", p)
			d.fail(ctx, out, post, fmt.Sprintf("panic: %v", p))
		}
	}()

	post, err = d.pr.GetByID(ctx, item.PostID)
	if err != nil {
		d.fail(ctx, out, nil, err.Error())
		return out
	}
	if post == nil {
		d.fail(ctx, out, nil, service.FailureMessage(service.ErrPostNotFound))
		return out
	}

	res, err := d.ps.Publish(ctx, post, now)
	out.Result = res
	if err != nil {
		if err := d.pr.UpdatePostStatus(ctx, models.PostStatusFailed, post.ID); err != nil {
			slog.Info(err.Error())
		}
		post.Status = models.PostStatusFailed
		d.fail(ctx, out, post, service.FailureMessage(err))
		return out
	}
	if res.AllFailed() {
		d.fail(ctx, out, post, res.ErrorSummary())
		return out
	}

	out.Status = models.QueueStatusPublished
	if err := d.qr.MarkPublished(ctx, item.ID); err != nil {
		// the post is live, so the item must not become retryable
		slog.Error("queue item published but left processing", "queue_id", item.ID, "post_id", post.ID, "error", err)
		out.Error = fmt.Sprintf("mark published: %v", err)
	}
	d.ev.Emit(ctx, models.EventPostPublished, PostEvent{Post: post, QueueItemID: item.ID, Accounts: res.Accounts})
	return out
}

func (d *TickDriver) fail(ctx context.Context, out *ItemOutcome, post *models.Post, msg string) {
	if err := d.qr.MarkFailed(ctx, out.QueueItemID, msg); err != nil {
		slog.Info(err.Error())
	}
	out.Status = models.QueueStatusFailed
	out.Error = msg
	slog.Warn("queue item failed", "queue_id", out.QueueItemID, "post_id", out.PostID, "error", msg)

	if post == nil {
		return
	}
	event := PostEvent{Post: post, QueueItemID: out.QueueItemID, Error: msg}
	if out.Result != nil {
		event.Accounts = out.Result.Accounts
	}
	d.ev.Emit(ctx, models.EventPostFailed, event)
}
