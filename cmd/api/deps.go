package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-api-magiclink/internal/application/auth"
	"github.com/go-api-magiclink/internal/config"
	"github.com/go-api-magiclink/internal/domain"
	"github.com/go-api-magiclink/internal/infrastructure/dynamo"
	"github.com/go-api-magiclink/internal/infrastructure/memory"
	"github.com/go-api-magiclink/internal/infrastructure/postgres"
	s3infra "github.com/go-api-magiclink/internal/infrastructure/s3"
	"github.com/go-api-magiclink/internal/infrastructure/smtp"
	"github.com/go-api-magiclink/internal/infrastructure/sns"
	"github.com/go-api-magiclink/internal/pkg/id"
	"github.com/go-api-magiclink/internal/transport/http/handler"
)

// backend bundles the datastore-facing collaborators for one STORE_BACKEND.
type backend struct {
	codes auth.VerificationStore
	users auth.UserDirectory
	ping  handler.Pinger
	close func()
}

func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &backend{
			codes: postgres.NewVerificationCodeRepo(pool),
			users: postgres.NewUserRepo(pool),
			ping:  postgres.NewPinger(pool),
			close: pool.Close,
		}, nil
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &backend{
			codes: dynamo.NewVerificationCodeRepo(client, cfg.DynamoTables.VerificationCodes),
			users: dynamo.NewUserRepo(client, cfg.DynamoTables.Users),
			ping:  dynamo.NewPinger(client, cfg.DynamoTables.VerificationCodes),
			close: func() {},
		}, nil
	case config.StoreMemory:
		users, err := parseMemoryUsers(cfg.MemoryUsers)
		if err != nil {
			return nil, err
		}
		store := memory.NewStore(users...)
		return &backend{codes: store, users: store, ping: store, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// parseMemoryUsers turns "email:name" pairs into users with fresh ids.
func parseMemoryUsers(pairs []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(pairs))
	for _, p := range pairs {
		email, name, ok := strings.Cut(strings.TrimSpace(p), ":")
		if !ok || email == "" {
			return nil, fmt.Errorf("MEMORY_USERS entry %q: want email:name", p)
		}
		users = append(users, domain.User{UserID: id.New(), Email: email, UserName: name})
	}
	return users, nil
}

func newNotifier(ctx context.Context, cfg *config.Config) (auth.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierSNS:
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sns.NewPublisher(client, cfg.SNSTopicARN), nil
	case config.NotifierSMTP:
		var source smtp.TemplateSource = smtp.EmbeddedSource{}
		if cfg.TemplateBucket != "" {
			client, err := s3infra.NewClient(ctx, cfg)
			if err != nil {
				return nil, err
			}
			source = smtp.ChainSource{s3infra.NewTemplateStore(client, cfg.TemplateBucket), smtp.EmbeddedSource{}}
			slog.Info("loading email templates from S3", "bucket", cfg.TemplateBucket)
		}
		return smtp.NewMailer(cfg, source), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}

func authOptions(cfg *config.Config) auth.Options {
	return auth.Options{
		BaseURL:        cfg.BaseURL,
		SiteName:       cfg.SiteName,
		TemplateID:     cfg.MagicLinkTemplateID,
		TemplateKey:    cfg.MagicLinkTemplateKey,
		SingleLiveCode: cfg.SingleLiveCode,
		StoreTimeout:   cfg.StoreTimeout,
		NotifyTimeout:  cfg.NotifyTimeout,
	}
}
