package hub

import (
	"context"
	"time"

	"github.com/danmuck/relayctl/internal/observability"
)

// runReaper sweeps expired registry entries and proposal deadlines missed by
// their own timers. Every sweep is idempotent; the registry and tracker
// serialize it against ordinary message handling.
func (s *Service) runReaper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.reap(now)
		}
	}
}

func (s *Service) reap(now time.Time) {
	removed := s.registry.RemoveExpired(now)
	if len(removed) > 0 {
		observability.RecordEvictions(len(removed))
		observability.SetRegistryEntries(s.registry.Len())
		for _, entry := range removed {
			s.log.Info().Str("address", entry.Address).Msg("binding expired")
		}
	}

	// Proposal expiry is silent toward clients; the tracker's hook records it.
	s.tracker.RemoveExpired(now)
}
