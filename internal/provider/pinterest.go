package provider

import (
	"context"
	"net/url"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/transfer"
	"golang.org/x/oauth2"
)

const pinterestBaseURL = "https://api.pinterest.com/v5"

type pinterest struct {
	api   *ResourceClient
	oauth OAuthClient
	creds Credentials
}

func NewPinterest(c Credentials) Adapter {
	return &pinterest{
		api:   c.resource(models.PlatformPinterest, pinterestBaseURL, AuthBearer),
		oauth: c.OAuth,
		creds: c,
	}
}

func (p *pinterest) Platform() string { return models.PlatformPinterest }

func (p *pinterest) PostConfigs() PostConfigs {
	return PostConfigs{
		SimultaneousPosting: true,
		MaxTextChar:         500,
		MinPhotos:           1,
		MaxPhotos:           1,
		MaxVideos:           1,
		MaxGifs:             1,
	}
}

func (p *pinterest) PublishPost(ctx context.Context, text string, media []Media, params Params) (*Result, error) {
	var image *Media
	for i := range media {
		if media[i].Type != models.MediaTypeVideo {
			image = &media[i]
			break
		}
	}
	if image == nil {
		return nil, mediaError(p.Platform(), "Pinterest requires an image for pins")
	}

	boardID := params.String("board_id")
	if boardID == "" {
		boards, err := p.GetEntities(ctx)
		if err != nil {
			return nil, err
		}
		if len(boards) == 0 {
			return nil, mediaError(p.Platform(), "No Pinterest board selected")
		}
		boardID = boards[0].ID
	}

	alt := params.String("alt_text")
	if alt == "" {
		alt = image.AltText
	}

	req := transfer.PinterestPinRequest{
		BoardID:     boardID,
		Title:       truncateRunes(text, 100),
		Description: truncateRunes(text, 500),
		Link:        params.String("link"),
		AltText:     alt,
		MediaSource: transfer.PinterestMediaSource{SourceType: "image_url", URL: image.URL},
	}

	var pin transfer.PinterestPin
	if err := p.api.Post(ctx, "pins", nil, req, &pin); err != nil {
		return nil, err
	}
	return &Result{ID: pin.ID}, nil
}

// GetEntities lists the boards a pin can be published to.
func (p *pinterest) GetEntities(ctx context.Context) ([]Entity, error) {
	var list transfer.PinterestBoardList
	if err := p.api.Get(ctx, "boards", url.Values{"page_size": {"100"}}, &list); err != nil {
		return nil, err
	}

	boards := make([]Entity, 0, len(list.Items))
	for _, b := range list.Items {
		boards = append(boards, Entity{ID: b.ID, Name: b.Name})
	}
	return boards, nil
}

func (p *pinterest) DeletePost(ctx context.Context, id string) error {
	return p.api.Delete(ctx, "pins/"+id)
}

func (p *pinterest) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := p.oauth.Refresh(ctx, p.creds.HTTP)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = p.oauth.RefreshToken()
	}
	return token, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
