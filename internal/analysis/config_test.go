package analysis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microfinder/internal/analysis"
)

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_ANALYSIS_KEY", "secret")

	cfg := analysis.Config{}
	require.NoError(t, cfg.Finalize(&analysis.Env{APIKey: "TEST_ANALYSIS_KEY"}))

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model)
	assert.Equal(t, 60*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, int64(5<<20), cfg.MaxImageBytes())
}

func TestConfigValidation(t *testing.T) {
	assert.ErrorContains(t, (&analysis.Config{}).Finalize(nil), "api_key required")
	assert.ErrorContains(t, (&analysis.Config{APIKey: "k", Timeout: "soon"}).Finalize(nil), "invalid timeout")
	assert.ErrorContains(t, (&analysis.Config{APIKey: "k", MaxImageSize: "huge"}).Finalize(nil), "invalid max_image_size")
}

func TestConfigMerge(t *testing.T) {
	base := analysis.Config{APIKey: "k", Model: "gemini-2.0-flash", Timeout: "60s"}
	base.Merge(&analysis.Config{Timeout: "30s"})

	assert.Equal(t, "k", base.APIKey)
	assert.Equal(t, "30s", base.Timeout)
}
