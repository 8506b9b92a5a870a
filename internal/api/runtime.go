package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/microfinder/internal/analysis"
	"github.com/JaimeStill/microfinder/internal/auth"
	"github.com/JaimeStill/microfinder/internal/config"
	"github.com/JaimeStill/microfinder/internal/infrastructure"
	"github.com/JaimeStill/microfinder/internal/session"
)

// Runtime extends Infrastructure with the external clients the API
// depends on.
type Runtime struct {
	*infrastructure.Infrastructure
	Analysis *analysis.Client
	Auth     *auth.Client
	Session  *session.Gate
}

// NewRuntime creates an API runtime with a module-scoped logger. The auth
// refresh loop and session gate are registered with the lifecycle here.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	logger := infra.Logger.With("module", "api")
	ctx := infra.Lifecycle.Context()

	analyzer, err := analysis.New(ctx, &cfg.Analysis, nil, infra.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("analysis client: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Auth.RequestTimeoutDuration()}
	verifier := auth.NewVerifier(ctx, &cfg.Auth, httpClient)
	store := auth.NewStore(cfg.Auth.Store, logger)
	authClient := auth.New(&cfg.Auth, httpClient, verifier, store, logger)
	authClient.Start(infra.Lifecycle)

	gate := session.New(authClient, logger)
	gate.Start(infra.Lifecycle)

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Metrics:   infra.Metrics,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Analysis: analyzer,
		Auth:     authClient,
		Session:  gate,
	}, nil
}
