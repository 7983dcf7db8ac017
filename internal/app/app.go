package app

import (
	"context"
	"database/sql"

	config "github.com/maheshrc27/postflow-publisher/configs"
	job "github.com/maheshrc27/postflow-publisher/internal/jobs"
	"github.com/maheshrc27/postflow-publisher/internal/provider"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
)

// Services is the wired publisher shared by the server and the CLI.
type Services struct {
	Queue     service.QueueService
	Schedule  service.ScheduleService
	Recycling service.RecyclingService
	Webhooks  service.WebhookService
	Publish   service.PublishService

	Tick         *job.TickDriver
	TokenRefresh *job.TokenRefreshJob
}

// EmitterFunc chooses how domain events reach the webhook service.
type EmitterFunc func(ws service.WebhookService) service.EventEmitter

// New wires repositories, adapters and services. A nil emit sends events
// synchronously through the webhook service. lock may be nil.
func New(ctx context.Context, cfg *config.Config, db *sql.DB, emit EmitterFunc, lock job.Locker) (*Services, error) {
	postRepo := repository.NewPostRepository(db)
	versionRepo := repository.NewPostVersionRepository(db)
	pivotRepo := repository.NewPostAccountRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	recyclingRepo := repository.NewRecyclingRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	deliveryRepo := repository.NewWebhookDeliveryRepository(db)

	mediaService, err := service.NewMediaService(ctx, cfg.R2)
	if err != nil {
		return nil, err
	}
	registry := provider.NewDefaultRegistry(cfg)

	webhookService := service.NewWebhookService(webhookRepo, deliveryRepo, service.WebhookOptions{
		UserAgent:      cfg.Webhooks.UserAgent,
		HeaderPrefix:   cfg.Webhooks.HeaderPrefix,
		Concurrency:    cfg.Webhooks.Concurrency,
		DefaultTimeout: cfg.Webhooks.DefaultTimeout,
	})
	var ev service.EventEmitter = webhookService
	if emit != nil {
		ev = emit(webhookService)
	}

	publishService := service.NewPublishService(postRepo, versionRepo, pivotRepo, socialAccountRepo, registry, mediaService, service.PublishOptions{
		Concurrency:    cfg.Publishing.Concurrency,
		AccountTimeout: cfg.Publishing.AccountTimeout,
	})
	recyclingService := service.NewRecyclingService(db, recyclingRepo, postRepo, versionRepo, pivotRepo, queueRepo, ev, nil)

	return &Services{
		Queue:     service.NewQueueService(db, queueRepo, postRepo, versionRepo, pivotRepo, scheduleRepo, ev),
		Schedule:  service.NewScheduleService(scheduleRepo),
		Recycling: recyclingService,
		Webhooks:  webhookService,
		Publish:   publishService,
		Tick: job.NewTickDriver(queueRepo, postRepo, publishService, recyclingService, ev, webhookService, lock, job.TickOptions{
			AutoRetryWebhooks: cfg.Webhooks.AutoRetry,
			RetryBatch:        cfg.Webhooks.RetryBatch,
		}),
		TokenRefresh: job.NewTokenRefreshJob(socialAccountRepo, registry, cfg.SecretKey),
	}, nil
}
