package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"golang.org/x/oauth2"
)

const threadsBaseURL = "https://graph.threads.net/v1.0"

type threads struct {
	graph   *graphClient
	refresh *ResourceClient
}

func NewThreads(c Credentials) Adapter {
	api := c.resource(models.PlatformThreads, threadsBaseURL, AuthQuery)
	refresh := *api
	refresh.BaseURL = graphRoot(api.BaseURL)

	return &threads{
		graph: &graphClient{
			api:       api,
			userID:    c.AccountID,
			poll:      c.Poll,
			publish:   "threads_publish",
			statusKey: "status",
		},
		refresh: &refresh,
	}
}

func (t *threads) Platform() string { return models.PlatformThreads }

func (t *threads) PostConfigs() PostConfigs {
	return PostConfigs{
		SimultaneousPosting: true,
		MinTextChar:         1,
		MaxTextChar:         500,
		MaxPhotos:           10,
		MaxVideos:           1,
		MaxGifs:             1,
	}
}

func (t *threads) PublishPost(ctx context.Context, text string, media []Media, params Params) (*Result, error) {
	var containerID string
	var err error

	switch len(media) {
	case 0:
		containerID, err = t.graph.createContainer(ctx, "threads", url.Values{
			"media_type": {"TEXT"},
			"text":       {text},
		})
	case 1:
		fields := t.itemFields(media[0])
		fields.Set("text", text)
		containerID, err = t.graph.createContainer(ctx, "threads", fields)
	default:
		containerID, err = t.carousel(ctx, text, media)
	}
	if err != nil {
		return nil, err
	}

	if hasVideo(media) {
		if err := t.graph.waitForContainer(ctx, containerID); err != nil {
			return nil, err
		}
	}
	return t.graph.publishContainer(ctx, containerID)
}

func (t *threads) carousel(ctx context.Context, text string, media []Media) (string, error) {
	children := make([]string, 0, len(media))
	for _, m := range media {
		fields := t.itemFields(m)
		fields.Set("is_carousel_item", "true")
		id, err := t.graph.createContainer(ctx, "threads", fields)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return t.graph.createContainer(ctx, "threads", url.Values{
		"media_type": {"CAROUSEL"},
		"text":       {text},
		"children":   {strings.Join(children, ",")},
	})
}

func (t *threads) itemFields(m Media) url.Values {
	if m.Type == models.MediaTypeVideo {
		return url.Values{"media_type": {"VIDEO"}, "video_url": {m.URL}}
	}
	return url.Values{"media_type": {"IMAGE"}, "image_url": {m.URL}}
}

// PostFirstComment publishes a reply under the given thread.
func (t *threads) PostFirstComment(ctx context.Context, parentID, text string) (*Result, error) {
	containerID, err := t.graph.createContainer(ctx, "threads", url.Values{
		"media_type":  {"TEXT"},
		"text":        {text},
		"reply_to_id": {parentID},
	})
	if err != nil {
		return nil, err
	}
	return t.graph.publishContainer(ctx, containerID)
}

func (t *threads) DeletePost(ctx context.Context, id string) error {
	return ErrUnsupported
}

func (t *threads) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	return refreshGraphToken(ctx, t.refresh, "th_refresh_token")
}
