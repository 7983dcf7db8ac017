package job

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

type fakeQueue struct {
	repository.QueueRepository

	due     []*models.QueueItem
	dueErr  error
	markErr error
	lost    map[int64]bool
	status  map[int64]string
	message map[int64]string
}

func newFakeQueue(due ...*models.QueueItem) *fakeQueue {
	return &fakeQueue{due: due, lost: map[int64]bool{}, status: map[int64]string{}, message: map[int64]string{}}
}

func (f *fakeQueue) ListDue(ctx context.Context, now time.Time) ([]*models.QueueItem, error) {
	return f.due, f.dueErr
}

func (f *fakeQueue) Claim(ctx context.Context, id int64) (bool, error) {
	if f.lost[id] {
		return false, nil
	}
	f.status[id] = models.QueueStatusProcessing
	return true, nil
}

func (f *fakeQueue) MarkPublished(ctx context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.status[id] = models.QueueStatusPublished
	return nil
}

func (f *fakeQueue) MarkFailed(ctx context.Context, id int64, message string) error {
	f.status[id] = models.QueueStatusFailed
	f.message[id] = message
	return nil
}

type fakePosts struct {
	repository.PostRepository
	posts map[int64]*models.Post
}

func (f *fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	f.posts[postID].Status = status
	return nil
}

type publishFunc func(post *models.Post) (*service.PublishResult, error)

type fakePublisher struct {
	mu      sync.Mutex
	publish publishFunc
	order   []int64
}

func (f *fakePublisher) Publish(ctx context.Context, post *models.Post, now time.Time) (*service.PublishResult, error) {
	f.mu.Lock()
	f.order = append(f.order, post.ID)
	f.mu.Unlock()
	return f.publish(post)
}

type fakeRecycler struct {
	service.RecyclingService
	calls int
}

func (f *fakeRecycler) ProcessDue(ctx context.Context, now time.Time) ([]service.RecyclingOutcome, error) {
	f.calls++
	return []service.RecyclingOutcome{{RuleID: 1, SourcePostID: 1, ClonePostID: 2}}, nil
}

type fakeEmitter struct {
	events []string
}

func (f *fakeEmitter) Emit(ctx context.Context, event string, data any) {
	f.events = append(f.events, event)
}

type fakeRetrier struct {
	limit int
}

func (f *fakeRetrier) RetryFailed(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return 2, nil
}

type fakeLock struct {
	err      error
	released bool
}

func (f *fakeLock) Acquire(ctx context.Context) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	return func() { f.released = true }, nil
}

func published(accountIDs ...int64) *service.PublishResult {
	res := &service.PublishResult{}
	for _, id := range accountIDs {
		res.Accounts = append(res.Accounts, service.AccountOutcome{AccountID: id, Platform: "threads", ProviderPostID: "p"})
	}
	return res
}

var tickNow = time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

func TestTickProcessesDueItems(t *testing.T) {
	queue := newFakeQueue(
		&models.QueueItem{ID: 1, PostID: 10, Position: 1},
		&models.QueueItem{ID: 2, PostID: 20, Position: 2},
		&models.QueueItem{ID: 3, PostID: 404, Position: 3},
		&models.QueueItem{ID: 4, PostID: 40, Position: 4},
		&models.QueueItem{ID: 5, PostID: 50, Position: 5},
		&models.QueueItem{ID: 6, PostID: 60, Position: 6},
	)
	queue.lost[6] = true

	posts := &fakePosts{posts: map[int64]*models.Post{
		10: {ID: 10}, 20: {ID: 20}, 40: {ID: 40}, 50: {ID: 50}, 60: {ID: 60},
	}}
	publisher := &fakePublisher{publish: func(post *models.Post) (*service.PublishResult, error) {
		switch post.ID {
		case 20:
			return &service.PublishResult{Accounts: []service.AccountOutcome{
				{AccountID: 1, Platform: "threads", Error: "token expired"},
				{AccountID: 2, Platform: "pinterest", Error: "no board"},
			}}, nil
		case 40:
			return nil, service.ErrNoAccounts
		case 50:
			panic("adapter bug")
		}
		return published(1, 2), nil
	}}
	recycler := &fakeRecycler{}
	events := &fakeEmitter{}
	retrier := &fakeRetrier{}
	lock := &fakeLock{}

	driver := NewTickDriver(queue, posts, publisher, recycler, events, retrier, lock, TickOptions{AutoRetryWebhooks: true, RetryBatch: 25})
	report, err := driver.Tick(context.Background(), tickNow)
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	tests := []struct {
		queueID    int64
		wantStatus string
		wantMsg    string
	}{
		{1, models.QueueStatusPublished, ""},
		{2, models.QueueStatusFailed, "threads (1): token expired; pinterest (2): no board"},
		{3, models.QueueStatusFailed, "Post not found"},
		{4, models.QueueStatusFailed, "No social accounts attached to post"},
		{5, models.QueueStatusFailed, "panic: adapter bug"},
		{6, "", ""},
	}
	for _, tt := range tests {
		if got := queue.status[tt.queueID]; got != tt.wantStatus {
			t.Errorf("item %d status = %q, want %q", tt.queueID, got, tt.wantStatus)
		}
		if got := queue.message[tt.queueID]; got != tt.wantMsg {
			t.Errorf("item %d message = %q, want %q", tt.queueID, got, tt.wantMsg)
		}
	}

	if len(report.Items) != 5 {
		t.Errorf("report items = %d, want 5", len(report.Items))
	}
	if p, f := report.Counts(); p != 1 || f != 4 {
		t.Errorf("Counts() = %d, %d, want 1, 4", p, f)
	}
	if got := strings.Join(events.events, ","); got != "post.published,post.failed,post.failed,post.failed" {
		t.Errorf("events = %s", got)
	}
	if posts.posts[40].Status != models.PostStatusFailed {
		t.Errorf("post 40 status = %q, want failed", posts.posts[40].Status)
	}
	if recycler.calls != 1 || len(report.Recycled) != 1 {
		t.Errorf("recycling calls = %d, recycled = %d", recycler.calls, len(report.Recycled))
	}
	if retrier.limit != 25 || report.WebhooksRetried != 2 {
		t.Errorf("webhook retry limit = %d, retried = %d", retrier.limit, report.WebhooksRetried)
	}
	if !lock.released {
		t.Errorf("tick lock not released")
	}
	if report.RunID == "" {
		t.Errorf("report has no run id")
	}
}

func TestTickPreservesQueueOrder(t *testing.T) {
	queue := newFakeQueue(
		&models.QueueItem{ID: 7, PostID: 3, Position: 0},
		&models.QueueItem{ID: 2, PostID: 1, Position: 1},
		&models.QueueItem{ID: 5, PostID: 2, Position: 1},
	)
	posts := &fakePosts{posts: map[int64]*models.Post{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}}}
	publisher := &fakePublisher{publish: func(*models.Post) (*service.PublishResult, error) { return published(1), nil }}

	driver := NewTickDriver(queue, posts, publisher, nil, nil, nil, nil, TickOptions{})
	if _, err := driver.Tick(context.Background(), tickNow); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	want := []int64{3, 1, 2}
	if len(publisher.order) != len(want) {
		t.Fatalf("published %v, want %v", publisher.order, want)
	}
	for i := range want {
		if publisher.order[i] != want[i] {
			t.Errorf("published %v, want %v", publisher.order, want)
			break
		}
	}
}

func TestTickDriverErrors(t *testing.T) {
	tests := []struct {
		name        string
		lockErr     error
		dueErr      error
		wantErr     bool
		wantSkipped bool
	}{
		{name: "lock held elsewhere", lockErr: ErrTickLocked, wantSkipped: true},
		{name: "lock backend down", lockErr: errors.New("dial tcp: connection refused"), wantErr: true},
		{name: "due listing fails", dueErr: errors.New("relation queue_items does not exist"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := newFakeQueue(&models.QueueItem{ID: 1, PostID: 1})
			queue.dueErr = tt.dueErr
			publisher := &fakePublisher{publish: func(*models.Post) (*service.PublishResult, error) { return published(1), nil }}
			posts := &fakePosts{posts: map[int64]*models.Post{1: {ID: 1}}}

			driver := NewTickDriver(queue, posts, publisher, nil, nil, nil, &fakeLock{err: tt.lockErr}, TickOptions{})
			report, err := driver.Tick(context.Background(), tickNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Tick() error = %v, wantErr %v", err, tt.wantErr)
			}
			if report.Skipped != tt.wantSkipped {
				t.Errorf("Tick() skipped = %v, want %v", report.Skipped, tt.wantSkipped)
			}
			if len(publisher.order) != 0 {
				t.Errorf("published %v, want nothing", publisher.order)
			}
		})
	}
}

func TestTickKeepsPublishedItemWhenStatusWriteFails(t *testing.T) {
	queue := newFakeQueue(&models.QueueItem{ID: 1, PostID: 10})
	queue.markErr = errors.New("connection reset by peer")
	posts := &fakePosts{posts: map[int64]*models.Post{10: {ID: 10}}}
	publisher := &fakePublisher{publish: func(*models.Post) (*service.PublishResult, error) { return published(1), nil }}
	events := &fakeEmitter{}

	driver := NewTickDriver(queue, posts, publisher, nil, events, nil, nil, TickOptions{})
	report, err := driver.Tick(context.Background(), tickNow)
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(report.Items) != 1 {
		t.Fatalf("report items = %d, want 1", len(report.Items))
	}
	it := report.Items[0]
	if it.Status != models.QueueStatusPublished || !strings.Contains(it.Error, "connection reset") {
		t.Errorf("outcome = %+v, want published with the write error", it)
	}
	if queue.status[1] == models.QueueStatusFailed {
		t.Errorf("item was failed after a successful publish")
	}
	if got := strings.Join(events.events, ","); got != "post.published" {
		t.Errorf("events = %s", got)
	}
}
