package api

import (
	"github.com/JaimeStill/microfinder/internal/analysis"
	"github.com/JaimeStill/microfinder/internal/config"
	"github.com/JaimeStill/microfinder/internal/discoveries"
	"github.com/JaimeStill/microfinder/internal/profiles"
	"github.com/JaimeStill/microfinder/internal/session"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Discoveries discoveries.System
	Profiles    profiles.System
	Analysis    *analysis.Handler
	Auth        *session.Handler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	maxImageSize := cfg.Analysis.MaxImageBytes()

	discoveriesSystem := discoveries.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Analysis,
		runtime.Session,
		runtime.Metrics,
		runtime.Logger,
		maxImageSize,
	)

	profilesSystem := profiles.New(
		runtime.Database.Connection(),
		runtime.Session,
		runtime.Logger,
	)

	return &Domain{
		Discoveries: discoveriesSystem,
		Profiles:    profilesSystem,
		Analysis:    analysis.NewHandler(runtime.Analysis, runtime.Logger, maxImageSize),
		Auth:        session.NewHandler(runtime.Session, runtime.Logger),
	}
}
