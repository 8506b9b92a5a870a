package lifecycle_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JaimeStill/microfinder/pkg/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStartupHooks(t *testing.T) {
	lc := lifecycle.New()
	assert.False(t, lc.Ready())

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() { count.Add(1) })
	}
	lc.WaitForStartup()

	assert.True(t, lc.Ready())
	assert.EqualValues(t, 3, count.Load())
	require.NoError(t, lc.Shutdown(time.Second))
}

func TestShutdownDrainsHooksAndBackground(t *testing.T) {
	lc := lifecycle.New()

	var cleaned, stopped atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})
	lc.Background(func(ctx context.Context) {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				stopped.Store(true)
				return
			case <-ticker.C:
			}
		}
	})
	lc.WaitForStartup()

	require.NoError(t, lc.Shutdown(time.Second))
	assert.True(t, cleaned.Load())
	assert.True(t, stopped.Load())
	assert.False(t, lc.Ready())
	assert.ErrorIs(t, lc.Context().Err(), context.Canceled)
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()
	release := make(chan struct{})
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-release
	})

	err := lc.Shutdown(20 * time.Millisecond)
	assert.ErrorIs(t, err, lifecycle.ErrShutdownTimeout)
	close(release)
}
