package main

import (
	"time"

	"github.com/JaimeStill/microfinder/internal/config"
	"github.com/JaimeStill/microfinder/internal/infrastructure"
)

// Server owns the process: infrastructure, the mounted modules and the
// HTTP listener, all sharing one lifecycle coordinator.
type Server struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	return &Server{
		cfg:   cfg,
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start registers startup hooks, binds the listener and reports readiness
// once every hook has returned.
func (s *Server) Start() error {
	log := s.infra.Logger
	log.Info("microfinder starting", "version", s.cfg.Version, "env", s.cfg.Env(), "addr", s.cfg.Server.Addr())

	if err := s.infra.Start(s.cfg); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		log.Info("all subsystems ready", "database", s.infra.Database.Ready())
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
