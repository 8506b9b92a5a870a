// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/microfinder/internal/config"
	"github.com/JaimeStill/microfinder/internal/infrastructure"
	"github.com/JaimeStill/microfinder/pkg/middleware"
	"github.com/JaimeStill/microfinder/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime, err := NewRuntime(cfg, infra)
	if err != nil {
		return nil, err
	}
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	return newModule(cfg, runtime, mux), nil
}

func newModule(cfg *config.Config, runtime *Runtime, mux http.Handler) *module.Module {
	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(runtime.Metrics.Middleware)
	return m
}
