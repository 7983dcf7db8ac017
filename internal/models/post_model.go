package models

import "time"

type Post struct {
	ID          int64      `db:"id" json:"id"`
	UUID        string     `db:"uuid" json:"uuid"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Status      string     `db:"status" json:"status"` // draft, scheduled, published, failed
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt *time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// PostVersion is the content of a post. The original version has AccountID 0,
// account specific versions override it for one account.
type PostVersion struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	AccountID    int64     `db:"account_id" json:"account_id"`
	IsOriginal   bool      `db:"is_original" json:"is_original"`
	Body         string    `db:"body" json:"body"`
	FirstComment *string   `db:"first_comment" json:"first_comment"`
	Media        MediaList `db:"media" json:"media"`
	Options      JSONMap   `db:"options" json:"options"`
}

func (v *PostVersion) HasContent() bool {
	return v != nil && (v.Body != "" || len(v.Media) > 0)
}

type MediaRef struct {
	Type    string `json:"type"` // photo, video, gif
	Path    string `json:"path"`
	URL     string `json:"url,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

// PostAccount is the post/account pivot holding the outcome of the last publish attempt.
type PostAccount struct {
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	ProviderPostID *string   `db:"provider_post_id" json:"provider_post_id"`
	Errors         ErrorList `db:"errors" json:"errors"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	MediaTypePhoto = "photo"
	MediaTypeVideo = "video"
	MediaTypeGif   = "gif"
)
