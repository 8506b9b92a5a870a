package auth

import (
	"context"
	"errors"
	"time"
)

const idleWait = time.Hour

// Run refreshes the session ahead of expiry until ctx is done. Session
// changes wake the loop so the next deadline is recomputed.
func (c *Client) Run(ctx context.Context) {
	timer := time.NewTimer(c.untilRefresh())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			timer.Reset(c.untilRefresh())
		case <-timer.C:
			wait := c.untilRefresh()
			if wait > 0 {
				timer.Reset(wait)
				continue
			}
			_, err := c.Refresh(ctx)
			switch {
			case err == nil, errors.Is(err, ErrNoSession):
				timer.Reset(c.untilRefresh())
			case ctx.Err() != nil:
				return
			default:
				c.logger.Warn("session refresh failed", "error", err, "retry_in", c.retry)
				timer.Reset(c.retry)
			}
		}
	}
}

func (c *Client) untilRefresh() time.Duration {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil || s.RefreshToken == "" {
		return idleWait
	}
	wait := s.Expiry().Add(-c.margin).Sub(c.now())
	if wait < 0 {
		return 0
	}
	return wait
}
