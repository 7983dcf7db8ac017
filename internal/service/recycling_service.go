package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/scheduling"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
)

var (
	ErrAlreadyRecycling = errors.New("post is already set up for recycling")
	ErrRuleNotFound     = errors.New("recycling rule not found")

	errRecycleTaken = errors.New("recycling rule advanced concurrently")
)

type RecyclingRequest struct {
	PostID        int64
	IntervalType  string
	IntervalValue int
	MaxRecycles   *int
}

// RecyclingOutcome reports what one due rule did during a tick.
type RecyclingOutcome struct {
	RuleID       int64      `json:"rule_id"`
	SourcePostID int64      `json:"source_post_id"`
	ClonePostID  int64      `json:"clone_post_id,omitempty"`
	QueueItemID  int64      `json:"queue_item_id,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type RecyclingService interface {
	Create(ctx context.Context, req RecyclingRequest, now time.Time) (*models.RecyclingPost, error)
	Update(ctx context.Context, id int64, req RecyclingRequest, now time.Time) (*models.RecyclingPost, error)
	Toggle(ctx context.Context, id int64) (*models.RecyclingPost, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.RecyclingPost, error)
	ProcessDue(ctx context.Context, now time.Time) ([]RecyclingOutcome, error)
}

// Jitter spreads recycled posts so clones of the same rule batch do not publish at once.
type Jitter func() time.Duration

func DefaultJitter() time.Duration {
	return time.Duration(5+rand.IntN(56)) * time.Minute
}

type recyclingService struct {
	db     *sql.DB
	rr     repository.RecyclingRepository
	pr     repository.PostRepository
	pv     repository.PostVersionRepository
	pa     repository.PostAccountRepository
	qr     repository.QueueRepository
	ev     EventEmitter
	jitter Jitter
}

func NewRecyclingService(
	db *sql.DB,
	rr repository.RecyclingRepository,
	pr repository.PostRepository,
	pv repository.PostVersionRepository,
	pa repository.PostAccountRepository,
	qr repository.QueueRepository,
	ev EventEmitter,
	jitter Jitter) RecyclingService {
	if jitter == nil {
		jitter = DefaultJitter
	}
	return &recyclingService{
		db:     db,
		rr:     rr,
		pr:     pr,
		pv:     pv,
		pa:     pa,
		qr:     qr,
		ev:     emitterOrNoop(ev),
		jitter: jitter,
	}
}

func (s *recyclingService) Create(ctx context.Context, req RecyclingRequest, now time.Time) (*models.RecyclingPost, error) {
	if req.IntervalType == "" {
		req.IntervalType = scheduling.DefaultIntervalType
	}
	if req.IntervalValue == 0 {
		req.IntervalValue = scheduling.DefaultIntervalValue
	}
	if err := scheduling.ValidateInterval(req.IntervalType, req.IntervalValue, req.MaxRecycles); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	existing, err := s.rr.GetByPostID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info(ErrAlreadyRecycling.Error(), "post_id", req.PostID)
		return nil, ErrAlreadyRecycling
	}

	next := scheduling.NextRecycleAt(req.IntervalType, req.IntervalValue, now)
	rule := &models.RecyclingPost{
		UUID:          utils.NewUUID(),
		PostID:        req.PostID,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		MaxRecycles:   req.MaxRecycles,
		IsActive:      true,
		NextRecycleAt: &next,
	}
	id, err := s.rr.Create(ctx, rule)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	return rule, nil
}

func (s *recyclingService) Update(ctx context.Context, id int64, req RecyclingRequest, now time.Time) (*models.RecyclingPost, error) {
	rule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scheduling.ValidateInterval(req.IntervalType, req.IntervalValue, req.MaxRecycles); err != nil {
		return nil, err
	}

	intervalChanged := rule.IntervalType != req.IntervalType || rule.IntervalValue != req.IntervalValue
	rule.IntervalType = req.IntervalType
	rule.IntervalValue = req.IntervalValue
	rule.MaxRecycles = req.MaxRecycles
	if intervalChanged {
		next := scheduling.ComputeNext(rule, now)
		rule.NextRecycleAt = &next
	}

	if err := s.rr.Update(ctx, nil, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *recyclingService) Toggle(ctx context.Context, id int64) (*models.RecyclingPost, error) {
	rule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.IsActive = !rule.IsActive
	if err := s.rr.SetActive(ctx, id, rule.IsActive); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *recyclingService) Remove(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.rr.Remove(ctx, id)
}

func (s *recyclingService) List(ctx context.Context) ([]*models.RecyclingPost, error) {
	return s.rr.List(ctx)
}

func (s *recyclingService) get(ctx context.Context, id int64) (*models.RecyclingPost, error) {
	rule, err := s.rr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// ProcessDue clones the source post of every due rule and queues the clone.
// A failing rule is recorded in its outcome and never stops the others.
func (s *recyclingService) ProcessDue(ctx context.Context, now time.Time) ([]RecyclingOutcome, error) {
	rules, err := s.rr.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due recycling rules: %w", err)
	}

	outcomes := make([]RecyclingOutcome, 0, len(rules))
	for _, rule := range rules {
		if !scheduling.DueNow(rule, now) {
			continue
		}
		if out, ok := s.recycle(ctx, rule, now); ok {
			outcomes = append(outcomes, out)
		}
	}
	return outcomes, nil
}

// recycle reports false when another run already recycled the rule.
func (s *recyclingService) recycle(ctx context.Context, rule *models.RecyclingPost, now time.Time) (out RecyclingOutcome, ok bool) {
	out, ok = RecyclingOutcome{RuleID: rule.ID, SourcePostID: rule.PostID}, true
	defer func() {
		if p := recover(); p != nil {
			out.Error = fmt.Sprintf("panic: %v", p)
			slog.Error("recycling panicked", "rule_id", rule.ID, "panic", p)
		}
	}()

	source, err := s.pr.GetByID(ctx, rule.PostID)
	if err != nil {
		out.Error = err.Error()
		return out, true
	}
	if source == nil {
		slog.Warn("recycling source post is gone, deactivating rule", "rule_id", rule.ID, "post_id", rule.PostID)
		if err := s.rr.SetActive(ctx, rule.ID, false); err != nil {
			slog.Info(err.Error())
		}
		out.Error = FailureMessage(ErrPostNotFound)
		return out, true
	}

	versions, err := s.pv.ListByPostID(ctx, source.ID)
	if err != nil {
		out.Error = err.Error()
		return out, true
	}
	pivots, err := s.pa.ListByPostID(ctx, source.ID)
	if err != nil {
		out.Error = err.Error()
		return out, true
	}

	at := now.Add(s.jitter())
	clone := &models.Post{
		UUID:   utils.NewUUID(),
		UserID: source.UserID,
		Status: models.PostStatusDraft,
	}
	item := &models.QueueItem{UUID: utils.NewUUID(), ScheduledAt: &at}
	updated := *rule
	scheduling.MarkRecycled(&updated, now)

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		advanced, err := s.rr.Advance(ctx, tx, &updated, rule.RecycleCount)
		if err != nil {
			return fmt.Errorf("advance rule: %w", err)
		}
		if !advanced {
			return errRecycleTaken
		}

		id, err := s.pr.Create(ctx, tx, clone)
		if err != nil {
			return fmt.Errorf("clone post: %w", err)
		}
		clone.ID = id

		for _, v := range versions {
			cv := *v
			cv.ID = 0
			cv.PostID = clone.ID
			if _, err := s.pv.Create(ctx, tx, &cv); err != nil {
				return fmt.Errorf("clone version: %w", err)
			}
		}
		for _, p := range pivots {
			if err := s.pa.Create(ctx, tx, &models.PostAccount{PostID: clone.ID, AccountID: p.AccountID}); err != nil {
				return fmt.Errorf("attach account: %w", err)
			}
		}

		if err := s.pr.Schedule(ctx, tx, clone.ID, &at); err != nil {
			return fmt.Errorf("schedule clone: %w", err)
		}
		item.PostID = clone.ID
		if item.ID, err = s.qr.Create(ctx, tx, item); err != nil {
			return fmt.Errorf("queue clone: %w", err)
		}
		return nil
	})
	if errors.Is(err, errRecycleTaken) {
		slog.Info("recycling rule already advanced, skipping", "rule_id", rule.ID)
		return out, false
	}
	if err != nil {
		slog.Warn("recycling failed", "rule_id", rule.ID, "error", err)
		out.Error = err.Error()
		return out, true
	}

	*rule = updated
	clone.Status = models.PostStatusScheduled
	clone.ScheduledAt = &at
	s.ev.Emit(ctx, models.EventPostScheduled, clone)

	out.ClonePostID = clone.ID
	out.QueueItemID = item.ID
	out.ScheduledAt = &at
	slog.Info("post recycled", "rule_id", rule.ID, "source_post_id", source.ID, "clone_post_id", clone.ID, "recycle_count", rule.RecycleCount)
	return out, true
}
