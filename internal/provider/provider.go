package provider

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/oauth2"
)

// Media is a resolved attachment ready to hand to a platform.
type Media struct {
	Type    string
	URL     string
	AltText string
}

// Params carries per-version options such as a Pinterest board or a YouTube title.
type Params map[string]any

func (p Params) String(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p[key].(string)
	return s
}

type Result struct {
	ID string `json:"id"`
}

type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Adapter publishes to one connected account on one platform.
type Adapter interface {
	Platform() string
	PostConfigs() PostConfigs
	PublishPost(ctx context.Context, text string, media []Media, params Params) (*Result, error)
}

type FirstCommenter interface {
	PostFirstComment(ctx context.Context, parentID, text string) (*Result, error)
}

type Deleter interface {
	DeletePost(ctx context.Context, id string) error
}

type EntityLister interface {
	GetEntities(ctx context.Context) ([]Entity, error)
}

type TokenRefresher interface {
	RefreshToken(ctx context.Context) (*oauth2.Token, error)
}

var ErrUnsupported = errors.New("operation not supported by provider")

// Error is a failure reported by a platform API.
type Error struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status code: %d)", e.Platform, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

// PostConfigs declares the content a platform accepts.
type PostConfigs struct {
	SimultaneousPosting   bool
	MinTextChar           int
	MaxTextChar           int
	MinPhotos             int
	MaxPhotos             int
	MinVideos             int
	MaxVideos             int
	MinGifs               int
	MaxGifs               int
	AllowMixingMediaTypes bool
}

type ValidationError struct {
	Platform string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Reason)
}

func (c PostConfigs) Validate(platform, text string, media []Media) error {
	chars := utf8.RuneCountInString(text)
	if chars < c.MinTextChar {
		return &ValidationError{platform, fmt.Sprintf("text must be at least %d characters", c.MinTextChar)}
	}
	if chars > c.MaxTextChar {
		return &ValidationError{platform, fmt.Sprintf("text must be at most %d characters", c.MaxTextChar)}
	}

	counts := map[string]int{}
	for _, m := range media {
		counts[m.Type]++
	}

	limits := []struct {
		kind     string
		min, max int
	}{
		{"photo", c.MinPhotos, c.MaxPhotos},
		{"video", c.MinVideos, c.MaxVideos},
		{"gif", c.MinGifs, c.MaxGifs},
	}
	for _, l := range limits {
		n := counts[l.kind]
		if n < l.min {
			return &ValidationError{platform, fmt.Sprintf("at least %d %s(s) required", l.min, l.kind)}
		}
		if n > l.max {
			return &ValidationError{platform, fmt.Sprintf("at most %d %s(s) allowed", l.max, l.kind)}
		}
		delete(counts, l.kind)
	}
	for kind := range counts {
		return &ValidationError{platform, fmt.Sprintf("unsupported media type %q", kind)}
	}

	if !c.AllowMixingMediaTypes {
		kinds := map[string]bool{}
		for _, m := range media {
			kinds[m.Type] = true
		}
		if len(kinds) > 1 {
			return &ValidationError{platform, "media types cannot be mixed"}
		}
	}
	return nil
}
