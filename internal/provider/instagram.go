package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"golang.org/x/oauth2"
)

const instagramBaseURL = "https://graph.instagram.com/v21.0"

type instagram struct {
	graph   *graphClient
	refresh *ResourceClient
}

func NewInstagram(c Credentials) Adapter {
	api := c.resource(models.PlatformInstagram, instagramBaseURL, AuthQuery)
	refresh := *api
	refresh.BaseURL = graphRoot(api.BaseURL)

	return &instagram{
		graph: &graphClient{
			api:       api,
			userID:    c.AccountID,
			poll:      c.Poll,
			publish:   "media_publish",
			statusKey: "status_code",
		},
		refresh: &refresh,
	}
}

func (ig *instagram) Platform() string { return models.PlatformInstagram }

func (ig *instagram) PostConfigs() PostConfigs {
	return PostConfigs{
		SimultaneousPosting:   true,
		MinTextChar:           0,
		MaxTextChar:           2200,
		MaxPhotos:             10,
		MaxVideos:             10,
		AllowMixingMediaTypes: true,
	}
}

func (ig *instagram) PublishPost(ctx context.Context, text string, media []Media, params Params) (*Result, error) {
	switch {
	case len(media) == 0:
		return nil, mediaError(ig.Platform(), "Instagram requires at least one image or video")
	case len(media) > 10:
		return nil, mediaError(ig.Platform(), "a carousel holds at most 10 items")
	}

	var containerID string
	var err error
	if len(media) == 1 {
		fields := ig.itemFields(media[0])
		fields.Set("caption", text)
		containerID, err = ig.graph.createContainer(ctx, "media", fields)
	} else {
		containerID, err = ig.carousel(ctx, text, media)
	}
	if err != nil {
		return nil, err
	}

	if hasVideo(media) {
		if err := ig.graph.waitForContainer(ctx, containerID); err != nil {
			return nil, err
		}
	}
	return ig.graph.publishContainer(ctx, containerID)
}

func (ig *instagram) carousel(ctx context.Context, text string, media []Media) (string, error) {
	children := make([]string, 0, len(media))
	for _, m := range media {
		fields := ig.itemFields(m)
		fields.Set("is_carousel_item", "true")
		id, err := ig.graph.createContainer(ctx, "media", fields)
		if err != nil {
			return "", err
		}
		if m.Type == models.MediaTypeVideo {
			if err := ig.graph.waitForContainer(ctx, id); err != nil {
				return "", err
			}
		}
		children = append(children, id)
	}

	return ig.graph.createContainer(ctx, "media", url.Values{
		"media_type": {"CAROUSEL"},
		"caption":    {text},
		"children":   {strings.Join(children, ",")},
	})
}

func (ig *instagram) itemFields(m Media) url.Values {
	if m.Type == models.MediaTypeVideo {
		return url.Values{"media_type": {"REELS"}, "video_url": {m.URL}}
	}
	fields := url.Values{"image_url": {m.URL}}
	if m.AltText != "" {
		fields.Set("alt_text", m.AltText)
	}
	return fields
}

func (ig *instagram) PostFirstComment(ctx context.Context, parentID, text string) (*Result, error) {
	var res Result
	q := url.Values{"message": {text}}
	if err := ig.graph.api.Post(ctx, parentID+"/comments", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (ig *instagram) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	return refreshGraphToken(ctx, ig.refresh, "ig_refresh_token")
}
