package provider

import (
	"fmt"
	"net/http"
	"time"

	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Credentials is everything an adapter needs to act for one connected account.
type Credentials struct {
	// AccountID is the platform side user id.
	AccountID string
	OAuth     OAuthClient
	// BaseURL overrides the platform API root.
	BaseURL string
	HTTP    *http.Client
	Poll    PollSettings
}

func (c Credentials) resource(platform, defaultBase string, style AuthStyle) *ResourceClient {
	base := c.BaseURL
	if base == "" {
		base = defaultBase
	}
	return &ResourceClient{
		Platform:  platform,
		BaseURL:   base,
		Token:     c.OAuth.AccessToken(),
		AuthStyle: style,
		HTTP:      c.HTTP,
	}
}

type Factory func(c Credentials) Adapter

type entry struct {
	oauth   oauth2.Config
	factory Factory
}

type Registry struct {
	secretKey string
	http      *http.Client
	poll      PollSettings
	entries   map[string]entry
}

func NewRegistry(secretKey string, hc *http.Client, poll PollSettings) *Registry {
	return &Registry{
		secretKey: secretKey,
		http:      hc,
		poll:      poll,
		entries:   map[string]entry{},
	}
}

func (r *Registry) Register(platform string, oc oauth2.Config, f Factory) {
	r.entries[platform] = entry{oauth: oc, factory: f}
}

func (r *Registry) Supports(platform string) bool {
	_, ok := r.entries[platform]
	return ok
}

// Connect decrypts the account's tokens and builds the adapter for its platform.
func (r *Registry) Connect(acc *models.SocialAccount) (Adapter, error) {
	e, ok := r.entries[acc.Platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform %q", acc.Platform)
	}

	accessToken, err := r.decrypt(acc.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	refreshToken, err := r.decrypt(acc.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}

	return e.factory(Credentials{
		AccountID: acc.AccountID,
		OAuth: OAuthClient{
			Config: e.oauth,
			Token: &oauth2.Token{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				Expiry:       acc.TokenExpiresAt,
			},
		},
		HTTP: r.http,
		Poll: r.poll,
	}), nil
}

func (r *Registry) decrypt(value string) (string, error) {
	if value == "" || r.secretKey == "" {
		return value, nil
	}
	return utils.Decrypt(value, []byte(r.secretKey))
}

// NewDefaultRegistry wires every supported platform with the app credentials from cfg.
func NewDefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry(cfg.SecretKey, &http.Client{Timeout: 60 * time.Second}, PollSettings{
		Interval:    cfg.Publishing.PollInterval,
		MaxAttempts: cfg.Publishing.PollAttempts,
	})

	r.Register(models.PlatformInstagram, oauth2.Config{
		ClientID:     cfg.InstagramClientID,
		ClientSecret: cfg.InstagramClientSecret,
	}, NewInstagram)

	r.Register(models.PlatformThreads, oauth2.Config{
		ClientID:     cfg.ThreadsClientID,
		ClientSecret: cfg.ThreadsClientSecret,
	}, NewThreads)

	r.Register(models.PlatformPinterest, oauth2.Config{
		ClientID:     cfg.PinterestClientID,
		ClientSecret: cfg.PinterestClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://www.pinterest.com/oauth/",
			TokenURL:  "https://api.pinterest.com/v5/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, NewPinterest)

	r.Register(models.PlatformTiktok, oauth2.Config{
		ClientID:     cfg.TiktokClientKey,
		ClientSecret: cfg.TiktokClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: tiktokTokenURL,
		},
	}, NewTiktok)

	r.Register(models.PlatformYoutube, oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload", "https://www.googleapis.com/auth/youtube.force-ssl"},
		Endpoint:     google.Endpoint,
	}, NewYoutube)

	return r
}
