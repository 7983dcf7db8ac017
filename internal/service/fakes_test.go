package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/provider"
)

type fakePosts struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{nextID: 100, posts: map[int64]*models.Post{}}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *post
	cp.ID = f.nextID
	f.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakePosts) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[postID].Status = status
	return nil
}

func (f *fakePosts) MarkPublished(ctx context.Context, postID int64, publishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[postID].Status = models.PostStatusPublished
	f.posts[postID].PublishedAt = &publishedAt
	return nil
}

func (f *fakePosts) Schedule(ctx context.Context, tx *sql.Tx, postID int64, scheduledAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[postID].Status = models.PostStatusScheduled
	f.posts[postID].ScheduledAt = scheduledAt
	return nil
}

func (f *fakePosts) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

func (f *fakePosts) status(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[id].Status
}

type fakeVersions struct {
	mu       sync.Mutex
	versions []*models.PostVersion
}

func (f *fakeVersions) Create(ctx context.Context, tx *sql.Tx, v *models.PostVersion) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	cp.ID = int64(len(f.versions) + 1)
	f.versions = append(f.versions, &cp)
	return cp.ID, nil
}

func (f *fakeVersions) ListByPostID(ctx context.Context, postID int64) ([]*models.PostVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PostVersion
	for _, v := range f.versions {
		if v.PostID == postID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakePivots struct {
	mu     sync.Mutex
	pivots map[[2]int64]*models.PostAccount
}

func newFakePivots(pivots ...*models.PostAccount) *fakePivots {
	f := &fakePivots{pivots: map[[2]int64]*models.PostAccount{}}
	for _, p := range pivots {
		f.pivots[[2]int64{p.PostID, p.AccountID}] = p
	}
	return f
}

func (f *fakePivots) Create(ctx context.Context, tx *sql.Tx, pa *models.PostAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *pa
	f.pivots[[2]int64{pa.PostID, pa.AccountID}] = &cp
	return nil
}

func (f *fakePivots) GetByID(ctx context.Context, postID, accountID int64) (*models.PostAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pivots[[2]int64{postID, accountID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePivots) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PostAccount
	for _, p := range f.pivots {
		if p.PostID == postID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (f *fakePivots) SetPublished(ctx context.Context, postID, accountID int64, providerPostID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pivots[[2]int64{postID, accountID}]
	p.ProviderPostID = &providerPostID
	p.Errors = nil
	return nil
}

func (f *fakePivots) SetErrors(ctx context.Context, postID, accountID int64, errs models.ErrorList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pivots[[2]int64{postID, accountID}].Errors = errs
	return nil
}

func (f *fakePivots) Remove(ctx context.Context, postID, accountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pivots, [2]int64{postID, accountID})
	return nil
}

type fakeAccounts map[int64]*models.SocialAccount

func (f fakeAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return f[id], nil
}

func (f fakeAccounts) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f fakeAccounts) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	return nil
}

type fakeQueue struct {
	mu    sync.Mutex
	items map[int64]*models.QueueItem
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{items: map[int64]*models.QueueItem{}}
}

func (f *fakeQueue) Create(ctx context.Context, tx *sql.Tx, item *models.QueueItem) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxPos := 0
	for _, it := range f.items {
		if it.Status == models.QueueStatusPending && it.Position > maxPos {
			maxPos = it.Position
		}
	}
	item.ID = int64(len(f.items) + 1)
	item.Position = maxPos + 1
	item.Status = models.QueueStatusPending
	cp := *item
	f.items[item.ID] = &cp
	return item.ID, nil
}

func (f *fakeQueue) GetByID(ctx context.Context, id int64) (*models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (f *fakeQueue) ListDue(ctx context.Context, now time.Time) ([]*models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.QueueItem
	for _, it := range f.items {
		if it.Status == models.QueueStatusPending && it.ScheduledAt != nil && !it.ScheduledAt.After(now) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeQueue) ListPending(ctx context.Context) ([]*models.QueueItem, error) {
	return f.ListDue(ctx, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
}

func (f *fakeQueue) Claim(ctx context.Context, id int64) (bool, error) {
	return f.transition(id, models.QueueStatusPending, models.QueueStatusProcessing), nil
}

func (f *fakeQueue) MarkPublished(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Status = models.QueueStatusPublished
	return nil
}

func (f *fakeQueue) MarkFailed(ctx context.Context, id int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Status = models.QueueStatusFailed
	f.items[id].ErrorMessage = &message
	return nil
}

func (f *fakeQueue) Requeue(ctx context.Context, id int64) (bool, error) {
	ok := f.transition(id, models.QueueStatusFailed, models.QueueStatusPending)
	if ok {
		f.mu.Lock()
		f.items[id].ErrorMessage = nil
		f.mu.Unlock()
	}
	return ok, nil
}

func (f *fakeQueue) UpdatePositions(ctx context.Context, positions map[int64]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, pos := range positions {
		if it, ok := f.items[id]; ok {
			it.Position = pos
		}
	}
	return nil
}

func (f *fakeQueue) Remove(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.Status == models.QueueStatusProcessing {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

func (f *fakeQueue) Stats(ctx context.Context, since time.Time) (*models.QueueStats, error) {
	return &models.QueueStats{}, nil
}

func (f *fakeQueue) transition(id int64, from, to string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.Status != from {
		return false
	}
	it.Status = to
	return true
}

type fakeSchedules struct {
	schedule *models.PostingSchedule
}

func (f *fakeSchedules) GetDefault(ctx context.Context) (*models.PostingSchedule, error) {
	return f.schedule, nil
}

func (f *fakeSchedules) ListSlots(ctx context.Context, scheduleID int64) ([]*models.ScheduleSlot, error) {
	if f.schedule == nil {
		return nil, nil
	}
	return f.schedule.Slots, nil
}

func (f *fakeSchedules) GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	if f.schedule == nil {
		return nil, nil
	}
	for _, s := range f.schedule.Slots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSchedules) CreateSlot(ctx context.Context, slot *models.ScheduleSlot) (int64, error) {
	slot.ID = int64(len(f.schedule.Slots) + 1)
	f.schedule.Slots = append(f.schedule.Slots, slot)
	return slot.ID, nil
}

func (f *fakeSchedules) SetSlotActive(ctx context.Context, id int64, active bool) error {
	s, _ := f.GetSlot(ctx, id)
	s.IsActive = active
	return nil
}

func (f *fakeSchedules) RemoveSlot(ctx context.Context, id int64) error {
	return nil
}

type recordedEvent struct {
	event string
	data  any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event, data})
}

func (f *fakeEmitter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.event)
	}
	return out
}

// fakeAdapter publishes by calling publish, and records first comments.
type fakeAdapter struct {
	platform string
	configs  provider.PostConfigs
	publish  func(text string, media []provider.Media) (*provider.Result, error)

	mu         sync.Mutex
	comments   []string
	commentErr error
}

func (a *fakeAdapter) Platform() string                  { return a.platform }
func (a *fakeAdapter) PostConfigs() provider.PostConfigs { return a.configs }

func (a *fakeAdapter) PublishPost(ctx context.Context, text string, media []provider.Media, params provider.Params) (*provider.Result, error) {
	return a.publish(text, media)
}

func (a *fakeAdapter) PostFirstComment(ctx context.Context, parentID, text string) (*provider.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.comments = append(a.comments, parentID+":"+text)
	if a.commentErr != nil {
		return nil, a.commentErr
	}
	return &provider.Result{ID: "c-" + parentID}, nil
}

type fakeFactory map[int64]provider.Adapter

func (f fakeFactory) Connect(acc *models.SocialAccount) (provider.Adapter, error) {
	return f[acc.ID], nil
}

type passthroughMedia struct{}

func (passthroughMedia) Resolve(ctx context.Context, refs models.MediaList) ([]provider.Media, error) {
	out := make([]provider.Media, 0, len(refs))
	for _, r := range refs {
		out = append(out, provider.Media{Type: r.Type, URL: "https://cdn.example.com/" + r.Path})
	}
	return out, nil
}

func (passthroughMedia) ResolveURL(ctx context.Context, ref models.MediaRef) (string, error) {
	return "https://cdn.example.com/" + ref.Path, nil
}

func strPtr(s string) *string { return &s }
