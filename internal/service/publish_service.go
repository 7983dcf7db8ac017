package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/provider"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
)

var (
	ErrNoAccounts = errors.New("no social accounts attached to post")
	ErrNoContent  = errors.New("account version has no content")
)

var failureMessages = map[error]string{
	ErrPostNotFound:     "Post not found",
	ErrNoAccounts:       "No social accounts attached to post",
	ErrNoContent:        "This account version has no content.",
	ErrAlreadyRecycling: "This post is already set up for recycling",
}

// FailureMessage is the text stored on queue items and account pivots when
// err stops a publish.
func FailureMessage(err error) string {
	for sentinel, msg := range failureMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// AdapterFactory builds a platform adapter for a connected account.
type AdapterFactory interface {
	Connect(acc *models.SocialAccount) (provider.Adapter, error)
}

type AccountOutcome struct {
	AccountID      int64  `json:"account_id"`
	Platform       string `json:"platform"`
	ProviderPostID string `json:"provider_post_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (o AccountOutcome) Failed() bool { return o.Error != "" }

// SideEffect records best effort work done after a successful publish.
type SideEffect struct {
	AccountID int64  `json:"account_id"`
	Kind      string `json:"kind"`
	ID        string `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type PublishResult struct {
	PostID      int64            `json:"post_id"`
	Accounts    []AccountOutcome `json:"accounts"`
	SideEffects []SideEffect     `json:"side_effects,omitempty"`
}

func (r *PublishResult) AllFailed() bool {
	for _, o := range r.Accounts {
		if !o.Failed() {
			return false
		}
	}
	return len(r.Accounts) > 0
}

// ErrorSummary joins the per account errors into one message.
func (r *PublishResult) ErrorSummary() string {
	var parts []string
	for _, o := range r.Accounts {
		if o.Failed() {
			parts = append(parts, fmt.Sprintf("%s (%d): %s", o.Platform, o.AccountID, o.Error))
		}
	}
	return strings.Join(parts, "; ")
}

type PublishService interface {
	Publish(ctx context.Context, post *models.Post, now time.Time) (*PublishResult, error)
}

type PublishOptions struct {
	Concurrency    int
	AccountTimeout time.Duration
}

type publishService struct {
	pr   repository.PostRepository
	pv   repository.PostVersionRepository
	pa   repository.PostAccountRepository
	sa   repository.SocialAccountRepository
	af   AdapterFactory
	ms   MediaService
	opts PublishOptions
}

func NewPublishService(
	pr repository.PostRepository,
	pv repository.PostVersionRepository,
	pa repository.PostAccountRepository,
	sa repository.SocialAccountRepository,
	af AdapterFactory,
	ms MediaService,
	opts PublishOptions) PublishService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.AccountTimeout <= 0 {
		opts.AccountTimeout = 120 * time.Second
	}
	return &publishService{
		pr:   pr,
		pv:   pv,
		pa:   pa,
		sa:   sa,
		af:   af,
		ms:   ms,
		opts: opts,
	}
}

type accountJob struct {
	pivot   *models.PostAccount
	version *models.PostVersion
	account *models.SocialAccount
	adapter provider.Adapter
}

func (s *publishService) Publish(ctx context.Context, post *models.Post, now time.Time) (*PublishResult, error) {
	pivots, err := s.pa.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("list post accounts: %w", err)
	}
	if len(pivots) == 0 {
		return nil, ErrNoAccounts
	}

	versions, err := s.pv.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("list post versions: %w", err)
	}

	var original *models.PostVersion
	perAccount := map[int64]*models.PostVersion{}
	for _, v := range versions {
		if v.IsOriginal {
			if original == nil {
				original = v
			}
			continue
		}
		perAccount[v.AccountID] = v
	}

	result := &PublishResult{
		PostID:   post.ID,
		Accounts: make([]AccountOutcome, len(pivots)),
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.opts.Concurrency)
	)

	exclusive := map[string]bool{}
	for i, pivot := range pivots {
		version := perAccount[pivot.AccountID]
		if !version.HasContent() {
			version = original
		}
		job := accountJob{pivot: pivot, version: version}

		outcome, err := s.prepare(ctx, &job)
		if err == nil && !job.adapter.PostConfigs().SimultaneousPosting {
			if exclusive[outcome.Platform] {
				err = &provider.ValidationError{Platform: outcome.Platform, Reason: "only one account per post can be published on this platform"}
			}
			exclusive[outcome.Platform] = true
		}
		if err != nil {
			outcome.Error = FailureMessage(err)
			s.recordFailure(ctx, post.ID, outcome)
			result.Accounts[i] = outcome
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, job accountJob) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, effect := s.publishAccount(ctx, post, job)
			result.Accounts[i] = outcome
			if effect != nil {
				mu.Lock()
				result.SideEffects = append(result.SideEffects, *effect)
				mu.Unlock()
			}
		}(i, job)
	}
	wg.Wait()

	if result.AllFailed() {
		if err := s.pr.UpdatePostStatus(ctx, models.PostStatusFailed, post.ID); err != nil {
			return result, err
		}
		post.Status = models.PostStatusFailed
		slog.Warn("post failed on every account", "post_id", post.ID, "errors", result.ErrorSummary())
		return result, nil
	}

	if err := s.pr.MarkPublished(ctx, post.ID, now); err != nil {
		return result, err
	}
	post.Status = models.PostStatusPublished
	post.PublishedAt = &now
	slog.Info("post published", "post_id", post.ID, "accounts", len(result.Accounts))
	return result, nil
}

// prepare loads the account behind a pivot and connects its adapter.
func (s *publishService) prepare(ctx context.Context, job *accountJob) (outcome AccountOutcome, err error) {
	outcome.AccountID = job.pivot.AccountID
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			slog.Error("connect panicked", "account_id", job.pivot.AccountID, "panic", p)
		}
	}()

	acc, err := s.sa.GetByID(ctx, job.pivot.AccountID)
	if err != nil {
		return outcome, err
	}
	if acc == nil {
		return outcome, errors.New("social account not found")
	}
	outcome.Platform = acc.Platform

	if !job.version.HasContent() {
		return outcome, ErrNoContent
	}

	adapter, err := s.af.Connect(acc)
	if err != nil {
		return outcome, err
	}
	job.account, job.adapter = acc, adapter
	return outcome, nil
}

func (s *publishService) recordFailure(ctx context.Context, postID int64, outcome AccountOutcome) {
	if err := s.pa.SetErrors(ctx, postID, outcome.AccountID, models.ErrorList{outcome.Error}); err != nil {
		slog.Info(err.Error())
	}
}

// publishAccount runs one account in isolation: its own deadline, and a
// panic becomes that account's error.
func (s *publishService) publishAccount(parent context.Context, post *models.Post, job accountJob) (outcome AccountOutcome, effect *SideEffect) {
	acc, adapter := job.account, job.adapter
	outcome.AccountID, outcome.Platform = acc.ID, acc.Platform

	ctx, cancel := context.WithTimeout(parent, s.opts.AccountTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			outcome.ProviderPostID = ""
			outcome.Error = fmt.Sprintf("panic: %v", p)
			effect = nil
			slog.Error("publish panicked", "post_id", post.ID, "account_id", acc.ID, "panic", p)
		}
		if outcome.Failed() {
			s.recordFailure(parent, post.ID, outcome)
		}
	}()

	media, err := s.ms.Resolve(ctx, job.version.Media)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, nil
	}

	if err := adapter.PostConfigs().Validate(acc.Platform, job.version.Body, media); err != nil {
		outcome.Error = err.Error()
		return outcome, nil
	}

	res, err := adapter.PublishPost(ctx, job.version.Body, media, provider.Params(job.version.Options))
	if err != nil {
		outcome.Error = err.Error()
		return outcome, nil
	}
	outcome.ProviderPostID = res.ID

	if err := s.pa.SetPublished(parent, post.ID, acc.ID, res.ID); err != nil {
		slog.Info(err.Error())
	}

	return outcome, s.firstComment(ctx, adapter, acc.ID, res.ID, job.version)
}

func (s *publishService) firstComment(ctx context.Context, adapter provider.Adapter, accountID int64, parentID string, v *models.PostVersion) *SideEffect {
	if v.FirstComment == nil || strings.TrimSpace(*v.FirstComment) == "" {
		return nil
	}
	commenter, ok := adapter.(provider.FirstCommenter)
	if !ok {
		return nil
	}

	effect := &SideEffect{AccountID: accountID, Kind: "first_comment"}
	res, err := commenter.PostFirstComment(ctx, parentID, *v.FirstComment)
	if err != nil {
		effect.Error = err.Error()
		slog.Warn("first comment failed", "account_id", accountID, "error", err)
		return effect
	}
	effect.ID = res.ID
	return effect
}
