package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/contentforge/contentforge/internal/entitlement"
	"github.com/contentforge/contentforge/internal/generator"
	"github.com/contentforge/contentforge/internal/keywords"
	"github.com/contentforge/contentforge/internal/session"
	"github.com/contentforge/contentforge/internal/store"
	"github.com/contentforge/contentforge/pkg/trends"
)

// appEnv bundles the wired application components for a command run.
type appEnv struct {
	store    store.Store
	gen      *generator.Generator
	keywords keywords.Source
	resolver *entitlement.Resolver
	sessions *session.Manager
}

// initApp validates config for the given mode and wires the store,
// generator, keyword source, and session manager.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "app: migrate store")
	}

	var genOpts []generator.Option
	if cfg.Generator.SimulateLatency {
		genOpts = append(genOpts, generator.WithSimulatedLatency(
			time.Duration(cfg.Generator.LatencyMinMS)*time.Millisecond,
			time.Duration(cfg.Generator.LatencyMaxMS)*time.Millisecond,
		))
	}
	gen, err := generator.New(genOpts...)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	var src keywords.Source
	switch cfg.Keywords.Provider {
	case "api":
		client := trends.NewClient(cfg.Keywords.Key, trends.WithBaseURL(cfg.Keywords.BaseURL))
		src = keywords.NewAPI(client, cfg.Keywords.Limit)
	default:
		src = keywords.NewStatic()
	}
	src = keywords.NewCached(src, st, time.Duration(cfg.Keywords.CacheTTLMins)*time.Minute)

	resolver := entitlement.NewResolver(st)
	deps := session.Deps{
		Generator: gen,
		Keywords:  src,
		Resolver:  resolver,
		Claims:    st,
	}
	sessions := session.NewManager(deps, time.Duration(cfg.Server.SessionTTLMins)*time.Minute)

	zap.L().Info("app initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("keyword_provider", cfg.Keywords.Provider),
	)

	return &appEnv{
		store:    st,
		gen:      gen,
		keywords: src,
		resolver: resolver,
		sessions: sessions,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("app: unsupported store driver %q", cfg.Store.Driver)
	}
}

// Close releases the env's resources.
func (e *appEnv) Close() {
	if err := e.store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}
