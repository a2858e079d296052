package auth

import (
	"context"
	"time"
)

// RunPurger calls PurgeExpired every interval until ctx is done. A zero or
// negative interval returns immediately.
func (s *Service) RunPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil {
				s.log.Error(ctx, "purge expired refresh tokens", "error", err)
			}
		}
	}
}
