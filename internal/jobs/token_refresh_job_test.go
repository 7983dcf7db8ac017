package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/provider"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
	"golang.org/x/oauth2"
)

type fakeAccounts struct {
	accounts []*models.SocialAccount

	mu      sync.Mutex
	updated map[int64]*models.SocialAccount
	old     map[int64]string
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccounts) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = sa
	f.old[id] = oldAccessToken
	return nil
}

type refreshingAdapter struct {
	provider.Adapter
	token *oauth2.Token
	err   error
}

func (a *refreshingAdapter) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	return a.token, a.err
}

type plainAdapter struct {
	provider.Adapter
}

type adapterMap map[int64]provider.Adapter

func (m adapterMap) Connect(acc *models.SocialAccount) (provider.Adapter, error) {
	return m[acc.ID], nil
}

func TestTokenRefreshJob(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	expiry := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

	accounts := &fakeAccounts{
		accounts: []*models.SocialAccount{
			{ID: 1, Platform: models.PlatformInstagram, AccessToken: "enc-old-1"},
			{ID: 2, Platform: models.PlatformTiktok, AccessToken: "enc-old-2"},
			{ID: 3, Platform: models.PlatformThreads, AccessToken: "enc-old-3"},
		},
		updated: map[int64]*models.SocialAccount{},
		old:     map[int64]string{},
	}
	adapters := adapterMap{
		1: &refreshingAdapter{token: &oauth2.Token{AccessToken: "fresh", RefreshToken: "fresh-r", Expiry: expiry}},
		2: &refreshingAdapter{err: errors.New("invalid_grant")},
		3: &plainAdapter{},
	}

	job := NewTokenRefreshJob(accounts, adapters, key)
	if n := job.Refresh(context.Background(), time.Now()); n != 1 {
		t.Fatalf("Refresh() = %d, want 1", n)
	}

	got, ok := accounts.updated[1]
	if !ok {
		t.Fatalf("account 1 was not updated")
	}
	if accounts.old[1] != "enc-old-1" {
		t.Errorf("SetToken() old token = %q, want the stored value", accounts.old[1])
	}
	if plain, err := utils.Decrypt(got.AccessToken, []byte(key)); err != nil || plain != "fresh" {
		t.Errorf("stored access token decrypts to %q, %v", plain, err)
	}
	if plain, err := utils.Decrypt(got.RefreshToken, []byte(key)); err != nil || plain != "fresh-r" {
		t.Errorf("stored refresh token decrypts to %q, %v", plain, err)
	}
	if !got.TokenExpiresAt.Equal(expiry) {
		t.Errorf("token_expires_at = %v, want %v", got.TokenExpiresAt, expiry)
	}
	if len(accounts.updated) != 1 {
		t.Errorf("updated accounts = %d, want 1", len(accounts.updated))
	}
}
