package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type youtubeAdapter struct {
	creds Credentials
}

func NewYoutube(c Credentials) Adapter {
	return &youtubeAdapter{creds: c}
}

func (y *youtubeAdapter) Platform() string { return models.PlatformYoutube }

func (y *youtubeAdapter) PostConfigs() PostConfigs {
	return PostConfigs{
		SimultaneousPosting: true,
		MaxTextChar:         5000,
		MinVideos:           1,
		MaxVideos:           1,
	}
}

func (y *youtubeAdapter) service(ctx context.Context) (*youtube.Service, error) {
	if y.creds.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, y.creds.HTTP)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: y.creds.OAuth.AccessToken()}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if y.creds.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(y.creds.BaseURL))
	}
	return youtube.NewService(ctx, opts...)
}

func (y *youtubeAdapter) PublishPost(ctx context.Context, text string, media []Media, params Params) (*Result, error) {
	if len(media) != 1 || media[0].Type != models.MediaTypeVideo {
		return nil, mediaError(y.Platform(), "YouTube requires exactly one video")
	}

	svc, err := y.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	title := params.String("title")
	if title == "" {
		title = truncateRunes(text, 100)
	}
	privacy := params.String("privacy_status")
	if privacy == "" {
		privacy = "public"
	}

	src, err := y.openMedia(ctx, media[0].URL)
	if err != nil {
		return nil, err
	}
	defer src.Body.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: text,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}

	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(src.Body).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Platform: y.Platform(), Message: err.Error()}
	}
	return &Result{ID: resp.Id}, nil
}

// openMedia streams the video from storage straight into the upload.
func (y *youtubeAdapter) openMedia(ctx context.Context, mediaURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}

	client := y.creds.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download media: unexpected response status: %d", resp.StatusCode)
	}
	return resp, nil
}

func (y *youtubeAdapter) PostFirstComment(ctx context.Context, parentID, text string) (*Result, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return nil, err
	}

	thread := &youtube.CommentThread{
		Snippet: &youtube.CommentThreadSnippet{
			VideoId: parentID,
			TopLevelComment: &youtube.Comment{
				Snippet: &youtube.CommentSnippet{TextOriginal: text},
			},
		},
	}
	resp, err := svc.CommentThreads.Insert([]string{"snippet"}, thread).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Platform: y.Platform(), Message: err.Error()}
	}
	return &Result{ID: resp.Id}, nil
}

func (y *youtubeAdapter) DeletePost(ctx context.Context, id string) error {
	svc, err := y.service(ctx)
	if err != nil {
		return err
	}
	if err := svc.Videos.Delete(id).Context(ctx).Do(); err != nil {
		return &Error{Platform: y.Platform(), Message: err.Error()}
	}
	return nil
}

func (y *youtubeAdapter) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := y.creds.OAuth.Refresh(ctx, y.creds.HTTP)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = y.creds.OAuth.RefreshToken()
	}
	return token, nil
}
