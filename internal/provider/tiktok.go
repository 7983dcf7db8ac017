package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	tiktokBaseURL  = "https://open.tiktokapis.com/v2"
	tiktokTokenURL = "https://open.tiktokapis.com/v2/oauth/token/"
)

type tiktok struct {
	api   *ResourceClient
	oauth OAuthClient
	http  *http.Client
	poll  PollSettings
}

func NewTiktok(c Credentials) Adapter {
	return &tiktok{
		api:   c.resource(models.PlatformTiktok, tiktokBaseURL, AuthBearer),
		oauth: c.OAuth,
		http:  c.HTTP,
		poll:  c.Poll,
	}
}

func (t *tiktok) Platform() string { return models.PlatformTiktok }

func (t *tiktok) PostConfigs() PostConfigs {
	return PostConfigs{
		SimultaneousPosting: true,
		MaxTextChar:         2200,
		MinVideos:           1,
		MaxVideos:           1,
	}
}

func (t *tiktok) PublishPost(ctx context.Context, text string, media []Media, params Params) (*Result, error) {
	if len(media) != 1 || media[0].Type != models.MediaTypeVideo {
		return nil, mediaError(t.Platform(), "TikTok requires exactly one video")
	}

	privacy, err := t.privacyLevel(ctx, params.String("privacy_level"))
	if err != nil {
		return nil, err
	}

	req := transfer.VideoUploadRequest{
		PostInfo: transfer.VideoPostInfo{
			Title:        text,
			PrivacyLevel: privacy,
		},
		SourceInfo: transfer.VideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: media[0].URL,
		},
	}

	var started transfer.TikTokUploadResponse
	if err := t.api.Post(ctx, "post/publish/video/init/", nil, req, &started); err != nil {
		return nil, err
	}
	if started.Error.Failed() {
		return nil, &Error{Platform: t.Platform(), Message: started.Error.Message}
	}
	publishID := started.Data.PublishID

	postID := publishID
	err = Poll(ctx, t.poll, func(ctx context.Context) (bool, error) {
		var st transfer.TiktokStatusResponse
		if err := t.api.Post(ctx, "post/publish/status/fetch/", nil, transfer.TiktokStatusRequest{PublishID: publishID}, &st); err != nil {
			return false, err
		}
		if st.Error.Failed() {
			return false, &Error{Platform: t.Platform(), Message: st.Error.Message}
		}

		switch st.Data.Status {
		case "PUBLISH_COMPLETE":
			if len(st.Data.PubliclyAvailablePostID) > 0 {
				postID = st.Data.PubliclyAvailablePostID[0]
			}
			return true, nil
		case "FAILED", "PUBLISH_FAILED":
			reason := st.Data.FailReason
			if reason == "" {
				reason = "publish failed"
			}
			return false, &Error{Platform: t.Platform(), Message: reason}
		}
		return false, nil
	})
	if err == ErrPollTimeout {
		return nil, &Error{Platform: t.Platform(), Message: "Video processing timed out"}
	}
	if err != nil {
		return nil, err
	}
	return &Result{ID: postID}, nil
}

// privacyLevel returns the requested level when the creator allows it, otherwise the first allowed one.
func (t *tiktok) privacyLevel(ctx context.Context, requested string) (string, error) {
	var info transfer.TiktokCreatorInfoResponse
	if err := t.api.Post(ctx, "post/publish/creator_info/query/", nil, nil, &info); err != nil {
		return "", err
	}
	if info.Error.Failed() {
		return "", &Error{Platform: t.Platform(), Message: info.Error.Message}
	}

	options := info.Data.PrivacyLevelOptions
	for _, o := range options {
		if o == requested {
			return o, nil
		}
	}
	if len(options) > 0 {
		return options[0], nil
	}
	return "SELF_ONLY", nil
}

func (t *tiktok) DeletePost(ctx context.Context, id string) error {
	return ErrUnsupported
}

// RefreshToken uses TikTok's form endpoint, which expects client_key rather than client_id.
func (t *tiktok) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	data := url.Values{}
	data.Set("client_key", t.oauth.Config.ClientID)
	data.Set("client_secret", t.oauth.Config.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", t.oauth.RefreshToken())

	tokenURL := t.oauth.Config.Endpoint.TokenURL
	if tokenURL == "" {
		tokenURL = tiktokTokenURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := t.http
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Platform: t.Platform(), StatusCode: resp.StatusCode, Message: "token refresh failed"}
	}

	var tr transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, &Error{Platform: t.Platform(), Message: "no access token returned"}
	}

	return &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
