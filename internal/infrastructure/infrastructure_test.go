package infrastructure_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/microfinder/internal/config"
	"github.com/JaimeStill/microfinder/internal/infrastructure"
	"github.com/JaimeStill/microfinder/pkg/database"
	"github.com/JaimeStill/microfinder/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "microfinder",
			User:            "microfinder",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "1s",
		},
		Storage: storage.Config{
			ContainerName:    "images",
			ConnectionString: azuriteConnString,
		},
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil || infra.Logger == nil || infra.Metrics == nil {
		t.Fatal("expected lifecycle, logger and metrics")
	}
	if infra.Database.Ready() {
		t.Error("database should not be ready before startup")
	}
	if got := infra.Storage.URL("discoveries/1/a.png"); got == "" {
		t.Error("expected storage URL")
	}

	if err := infra.Lifecycle.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewInvalidStorage(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not a connection string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected storage init error")
	}
}
