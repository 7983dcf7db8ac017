package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/provider"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/maheshrc27/postflow-publisher/pkg/utils"
)

const refreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	sr        repository.SocialAccountRepository
	af        service.AdapterFactory
	secretKey string
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, af service.AdapterFactory, secretKey string) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:        sr,
		af:        af,
		secretKey: secretKey,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	c.Refresh(context.Background(), time.Now())
}

// Refresh renews every token expiring within the next 30 minutes and reports
// how many accounts were updated.
func (c *TokenRefreshJob) Refresh(ctx context.Context, now time.Time) int {
	accounts, err := c.sr.ListByTimeInterval(ctx, now, now.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		refreshed atomic.Int32
		semaphore = make(chan struct{}, 10)
	)
	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refreshAccount(ctx, acc); err != nil {
				slog.Info("Unable to refresh tokens", "platform", acc.Platform, "account_id", acc.ID, "error", err)
				return
			}
			refreshed.Add(1)
		}(acc)
	}
	wg.Wait()
	return int(refreshed.Load())
}

func (c *TokenRefreshJob) refreshAccount(ctx context.Context, acc *models.SocialAccount) error {
	adapter, err := c.af.Connect(acc)
	if err != nil {
		return err
	}
	refresher, ok := adapter.(provider.TokenRefresher)
	if !ok {
		return provider.ErrUnsupported
	}

	token, err := refresher.RefreshToken(ctx)
	if err != nil {
		return err
	}

	updated := &models.SocialAccount{TokenExpiresAt: token.Expiry}
	if updated.AccessToken, err = c.seal(token.AccessToken); err != nil {
		return err
	}
	if updated.RefreshToken, err = c.seal(token.RefreshToken); err != nil {
		return err
	}
	return c.sr.SetToken(ctx, acc.ID, acc.AccessToken, updated)
}

func (c *TokenRefreshJob) seal(token string) (string, error) {
	if c.secretKey == "" {
		return token, nil
	}
	return utils.EncryptToken(token, c.secretKey)
}
