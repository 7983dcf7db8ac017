package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/scheduling"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrSlotNotFound     = errors.New("schedule slot not found")
	ErrItemNotFound     = errors.New("queue item not found")
	ErrItemProcessing   = errors.New("queue item is being processed")
	ErrNotRetryable     = errors.New("only failed queue items can be retried")
	ErrNegativePosition = errors.New("positions must not be negative")
)

type EnqueueRequest struct {
	PostID         int64
	ScheduleTimeID *int64
	ScheduledAt    *time.Time
}

type QueueService interface {
	Enqueue(ctx context.Context, req EnqueueRequest, now time.Time) (*models.QueueItem, error)
	ListPending(ctx context.Context) ([]*models.QueueItem, error)
	Reorder(ctx context.Context, positions map[int64]int) error
	Retry(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
	Stats(ctx context.Context, now time.Time) (*models.QueueStats, error)
}

type queueService struct {
	db *sql.DB
	qr repository.QueueRepository
	pr repository.PostRepository
	pv repository.PostVersionRepository
	pa repository.PostAccountRepository
	sr repository.ScheduleRepository
	ev EventEmitter
}

func NewQueueService(
	db *sql.DB,
	qr repository.QueueRepository,
	pr repository.PostRepository,
	pv repository.PostVersionRepository,
	pa repository.PostAccountRepository,
	sr repository.ScheduleRepository,
	ev EventEmitter) QueueService {
	return &queueService{
		db: db,
		qr: qr,
		pr: pr,
		pv: pv,
		pa: pa,
		sr: sr,
		ev: emitterOrNoop(ev),
	}
}

func (s *queueService) Enqueue(ctx context.Context, req EnqueueRequest, now time.Time) (*models.QueueItem, error) {
	post, err := s.pr.GetByID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		slog.Info(ErrPostNotFound.Error(), "post_id", req.PostID)
		return nil, ErrPostNotFound
	}
	if err := s.checkPublishable(ctx, post.ID); err != nil {
		return nil, err
	}

	item := &models.QueueItem{
		UUID:           utils.NewUUID(),
		PostID:         post.ID,
		ScheduleTimeID: req.ScheduleTimeID,
		ScheduledAt:    req.ScheduledAt,
	}
	if item.ScheduledAt == nil {
		if err := s.resolveSlot(ctx, item, now); err != nil {
			return nil, err
		}
	}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		id, err := s.qr.Create(ctx, tx, item)
		if err != nil {
			return fmt.Errorf("create queue item: %w", err)
		}
		item.ID = id
		return s.pr.Schedule(ctx, tx, post.ID, item.ScheduledAt)
	})
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatusScheduled
	post.ScheduledAt = item.ScheduledAt
	s.ev.Emit(ctx, models.EventPostScheduled, post)
	slog.Info("post queued", "post_id", post.ID, "queue_id", item.ID, "position", item.Position)
	return item, nil
}

// resolveSlot fills the instant from the chosen slot, or from the default
// schedule's next slot. No slot leaves the item unscheduled.
func (s *queueService) resolveSlot(ctx context.Context, item *models.QueueItem, now time.Time) error {
	if item.ScheduleTimeID != nil {
		slot, err := s.sr.GetSlot(ctx, *item.ScheduleTimeID)
		if err != nil {
			return err
		}
		if slot == nil || !slot.IsActive {
			return ErrSlotNotFound
		}
		at := scheduling.NextPublishInstant(slot, now)
		item.ScheduledAt = &at
		return nil
	}

	schedule, err := s.sr.GetDefault(ctx)
	if err != nil {
		return err
	}
	if schedule == nil {
		return nil
	}
	slot, at := scheduling.NextFromSlots(schedule.Slots, now)
	if slot != nil {
		item.ScheduleTimeID = &slot.ID
		item.ScheduledAt = at
	}
	return nil
}

// checkPublishable requires at least one attached account and one version with content.
func (s *queueService) checkPublishable(ctx context.Context, postID int64) error {
	accounts, err := s.pa.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return ErrNoAccounts
	}

	versions, err := s.pv.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.HasContent() {
			return nil
		}
	}
	return ErrNoContent
}

func (s *queueService) ListPending(ctx context.Context) ([]*models.QueueItem, error) {
	return s.qr.ListPending(ctx)
}

func (s *queueService) Reorder(ctx context.Context, positions map[int64]int) error {
	for id, pos := range positions {
		if pos < 0 {
			slog.Info(ErrNegativePosition.Error(), "queue_id", id, "position", pos)
			return ErrNegativePosition
		}
	}
	if len(positions) == 0 {
		return nil
	}
	return s.qr.UpdatePositions(ctx, positions)
}

func (s *queueService) Retry(ctx context.Context, id int64) error {
	ok, err := s.qr.Requeue(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRetryable
	}
	return nil
}

func (s *queueService) Remove(ctx context.Context, id int64) error {
	ok, err := s.qr.Remove(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	item, err := s.qr.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrItemNotFound
	}
	return ErrItemProcessing
}

func (s *queueService) Stats(ctx context.Context, now time.Time) (*models.QueueStats, error) {
	y, m, d := now.Date()
	return s.qr.Stats(ctx, time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}
