package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/extract"
	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/qualify"
	"github.com/sells-group/lead-sms/internal/reply"
	"github.com/sells-group/lead-sms/internal/store"
	anthropicpkg "github.com/sells-group/lead-sms/pkg/anthropic"
	"github.com/sells-group/lead-sms/pkg/telnyx"
)

// appEnv holds the initialized store, clients, and the processor needed by
// the serve/followup/outreach commands.
type appEnv struct {
	Store     store.Store
	Processor *qualify.Processor
	Scheduler *qualify.Scheduler
	Registry  *model.FieldRegistry
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp sets up the store, API clients, and the message processor.
// Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	telnyxOpts := []telnyx.Option{}
	if cfg.Telnyx.BaseURL != "" {
		telnyxOpts = append(telnyxOpts, telnyx.WithBaseURL(cfg.Telnyx.BaseURL))
	}
	if cfg.Telnyx.MessagingProfileID != "" {
		telnyxOpts = append(telnyxOpts, telnyx.WithMessagingProfile(cfg.Telnyx.MessagingProfileID))
	}
	sms := telnyx.NewClient(cfg.Telnyx.Key, cfg.Telnyx.FromNumber, telnyxOpts...)

	registry := model.RegistryFromKeys(cfg.Qualify.RequiredFields, cfg.Qualify.OptionalFields)

	extractor := extract.NewClaude(anthropicClient, cfg.Anthropic.ExtractModel)
	generator := reply.NewClaude(anthropicClient, cfg.Anthropic.GenerateModel, cfg.Anthropic.MaxReplyTokens, registry)

	scheduler := qualify.NewScheduler(st, sms, cfg.FollowUp)
	processor := qualify.NewProcessor(st, extractor, generator, sms, scheduler, registry, cfg.Qualify, cfg.Telnyx.AgentPhone)

	return &appEnv{
		Store:     st,
		Processor: processor,
		Scheduler: scheduler,
		Registry:  registry,
	}, nil
}

// initStore opens the configured backend. SQLite is the default for local
// use; Postgres for deployments.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for the postgres driver")
		}
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using postgres store")
		return st, nil
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using sqlite store", zap.String("path", cfg.Store.SQLitePath))
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
