package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type queueFixture struct {
	posts  *fakePosts
	queue  *fakeQueue
	events *fakeEmitter
	mock   sqlmock.Sqlmock
	svc    QueueService
}

func newQueueFixture(t *testing.T, schedule *models.PostingSchedule, posts ...*models.Post) *queueFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &queueFixture{
		posts:  newFakePosts(posts...),
		queue:  newFakeQueue(),
		events: &fakeEmitter{},
		mock:   mock,
	}
	versions := &fakeVersions{versions: []*models.PostVersion{
		{PostID: 1, IsOriginal: true, Body: "ready"},
		{PostID: 2, IsOriginal: true},
	}}
	pivots := newFakePivots(
		&models.PostAccount{PostID: 1, AccountID: 10},
		&models.PostAccount{PostID: 2, AccountID: 10},
	)
	f.svc = NewQueueService(db, f.queue, f.posts, versions, pivots, &fakeSchedules{schedule: schedule}, f.events)
	return f
}

func TestEnqueueUsesNextDefaultSlot(t *testing.T) {
	schedule := &models.PostingSchedule{ID: 1, IsActive: true, Slots: []*models.ScheduleSlot{
		{ID: 5, ScheduleID: 1, DayOfWeek: int(time.Monday), Time: "09:30:00", IsActive: true},
		{ID: 6, ScheduleID: 1, DayOfWeek: int(time.Tuesday), Time: "08:00:00", IsActive: true},
	}}
	f := newQueueFixture(t, schedule, &models.Post{ID: 1, Status: models.PostStatusDraft})
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	now := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	item, err := f.svc.Enqueue(context.Background(), EnqueueRequest{PostID: 1}, now)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	want := time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)
	if item.ScheduledAt == nil || !item.ScheduledAt.Equal(want) {
		t.Errorf("Enqueue() scheduled_at = %v, want %v", item.ScheduledAt, want)
	}
	if item.ScheduleTimeID == nil || *item.ScheduleTimeID != 5 {
		t.Errorf("Enqueue() schedule_time_id = %v, want 5", item.ScheduleTimeID)
	}
	if item.Position != 1 {
		t.Errorf("Enqueue() position = %d, want 1", item.Position)
	}
	if got := f.posts.status(1); got != models.PostStatusScheduled {
		t.Errorf("post status = %v, want %v", got, models.PostStatusScheduled)
	}
	if names := f.events.names(); len(names) != 1 || names[0] != models.EventPostScheduled {
		t.Errorf("events = %v, want [%s]", names, models.EventPostScheduled)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestEnqueueRejects(t *testing.T) {
	inactive := int64(9)
	schedule := &models.PostingSchedule{ID: 1, Slots: []*models.ScheduleSlot{
		{ID: 9, DayOfWeek: 1, Time: "10:00:00", IsActive: false},
	}}

	tests := []struct {
		name    string
		req     EnqueueRequest
		wantErr error
	}{
		{"missing post", EnqueueRequest{PostID: 404}, ErrPostNotFound},
		{"no content", EnqueueRequest{PostID: 2}, ErrNoContent},
		{"no accounts", EnqueueRequest{PostID: 3}, ErrNoAccounts},
		{"inactive slot", EnqueueRequest{PostID: 1, ScheduleTimeID: &inactive}, ErrSlotNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQueueFixture(t, schedule,
				&models.Post{ID: 1}, &models.Post{ID: 2}, &models.Post{ID: 3},
			)
			_, err := f.svc.Enqueue(context.Background(), tt.req, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Enqueue() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.queue.items) != 0 {
				t.Errorf("queue items = %d, want 0", len(f.queue.items))
			}
		})
	}
}

func TestEnqueueTransactionFailure(t *testing.T) {
	f := newQueueFixture(t, nil, &models.Post{ID: 1, Status: models.PostStatusDraft})
	f.mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	if _, err := f.svc.Enqueue(context.Background(), EnqueueRequest{PostID: 1}, time.Now()); err == nil {
		t.Fatal("Enqueue() error = nil, want transaction error")
	}
	if got := f.posts.status(1); got != models.PostStatusDraft {
		t.Errorf("post status = %v, want %v", got, models.PostStatusDraft)
	}
	if len(f.events.names()) != 0 {
		t.Errorf("events emitted on failure: %v", f.events.names())
	}
}

func TestQueueItemTransitions(t *testing.T) {
	f := newQueueFixture(t, nil)
	ctx := context.Background()
	f.queue.items = map[int64]*models.QueueItem{
		1: {ID: 1, Status: models.QueueStatusPending, Position: 1},
		2: {ID: 2, Status: models.QueueStatusProcessing, Position: 2},
		3: {ID: 3, Status: models.QueueStatusFailed, Position: 3},
	}

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"retry pending", func() error { return f.svc.Retry(ctx, 1) }, ErrNotRetryable},
		{"retry failed", func() error { return f.svc.Retry(ctx, 3) }, nil},
		{"remove processing", func() error { return f.svc.Remove(ctx, 2) }, ErrItemProcessing},
		{"remove missing", func() error { return f.svc.Remove(ctx, 99) }, ErrItemNotFound},
		{"remove pending", func() error { return f.svc.Remove(ctx, 1) }, nil},
		{"reorder negative", func() error { return f.svc.Reorder(ctx, map[int64]int{3: -1}) }, ErrNegativePosition},
		{"reorder", func() error { return f.svc.Reorder(ctx, map[int64]int{3: 0}) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if it := f.queue.items[3]; it.Status != models.QueueStatusPending || it.Position != 0 {
		t.Errorf("item 3 = %s at %d, want pending at 0", it.Status, it.Position)
	}
	if _, ok := f.queue.items[1]; ok {
		t.Errorf("item 1 still queued after Remove")
	}
}
