package observability

import (
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/JaimeStill/microfinder/pkg/lifecycle"
)

// InitSentry configures the global Sentry hub. Without a DSN reporting
// stays disabled and every capture call is a no-op. The returned flag
// reports whether reporting is enabled.
func InitSentry(cfg *Config, logger *slog.Logger, transport sentry.Transport) (bool, error) {
	logger = logger.With("system", "observability")
	if cfg.SentryDSN == "" {
		logger.Info("error reporting disabled")
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       1.0,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
		ServerName:       "",
		Transport:        transport,
		BeforeSend:       scrub,
	})
	if err != nil {
		return false, fmt.Errorf("init sentry: %w", err)
	}

	logger.Info("error reporting enabled", "environment", cfg.Environment)
	return true, nil
}

// FlushOnShutdown drains buffered events once the lifecycle ends.
func FlushOnShutdown(lc *lifecycle.Coordinator, cfg *Config) {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		sentry.Flush(cfg.FlushTimeoutDuration())
	})
}

// scrub drops credentials that request capture may have attached.
func scrub(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for _, h := range []string{"Authorization", "Cookie", "Apikey"} {
			delete(event.Request.Headers, h)
		}
		event.Request.Cookies = ""
	}
	if event.User.Email != "" {
		event.User.Email = ""
	}
	return event
}
