package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/transfer"
	"golang.org/x/oauth2"
)

// graphClient holds the container flow shared by Instagram and Threads:
// create a container, wait for it when it carries video, then publish it.
type graphClient struct {
	api       *ResourceClient
	userID    string
	poll      PollSettings
	publish   string // publish edge, media_publish or threads_publish
	statusKey string // status field reported for containers
}

func (g *graphClient) createContainer(ctx context.Context, edge string, fields url.Values) (string, error) {
	var obj transfer.GraphObject
	if err := g.api.Post(ctx, g.userID+"/"+edge, fields, nil, &obj); err != nil {
		return "", err
	}
	if obj.ID == "" {
		return "", &Error{Platform: g.api.Platform, Message: "no container ID returned"}
	}
	return obj.ID, nil
}

func (g *graphClient) waitForContainer(ctx context.Context, containerID string) error {
	err := Poll(ctx, g.poll, func(ctx context.Context) (bool, error) {
		var st transfer.GraphContainerStatus
		q := url.Values{"fields": {g.statusKey + ",error_message"}}
		if err := g.api.Get(ctx, containerID, q, &st); err != nil {
			return false, err
		}

		status := st.Status
		if g.statusKey == "status_code" {
			status = st.StatusCode
		}
		switch status {
		case "FINISHED", "PUBLISHED":
			return true, nil
		case "ERROR", "EXPIRED":
			msg := st.ErrorMessage
			if msg == "" {
				msg = "media processing failed"
			}
			return false, &Error{Platform: g.api.Platform, Message: msg}
		}
		return false, nil
	})
	if err == ErrPollTimeout {
		return &Error{Platform: g.api.Platform, Message: "Video processing timed out"}
	}
	return err
}

func (g *graphClient) publishContainer(ctx context.Context, containerID string) (*Result, error) {
	var obj transfer.GraphObject
	q := url.Values{"creation_id": {containerID}}
	if err := g.api.Post(ctx, g.userID+"/"+g.publish, q, nil, &obj); err != nil {
		return nil, err
	}
	if obj.ID == "" {
		return nil, &Error{Platform: g.api.Platform, Message: "no post ID returned"}
	}
	return &Result{ID: obj.ID}, nil
}

// refreshGraphToken exchanges a long lived token for a fresh one. Both Meta
// APIs reuse the access token as the refresh credential.
func refreshGraphToken(ctx context.Context, api *ResourceClient, grantType string) (*oauth2.Token, error) {
	var tr transfer.GraphTokenResponse
	q := url.Values{"grant_type": {grantType}}
	if err := api.Get(ctx, "refresh_access_token", q, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, &Error{Platform: api.Platform, Message: "no access token returned"}
	}
	return &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.AccessToken,
		TokenType:    tr.TokenType,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func hasVideo(media []Media) bool {
	for _, m := range media {
		if m.Type == "video" {
			return true
		}
	}
	return false
}

// graphRoot strips the version segment from a graph API base.
func graphRoot(base string) string {
	base = strings.TrimRight(base, "/")
	if i := strings.LastIndex(base, "/v"); i > len("https://") {
		return base[:i]
	}
	return base
}

func mediaError(platform string, format string, args ...any) error {
	return &Error{Platform: platform, Message: fmt.Sprintf(format, args...)}
}
