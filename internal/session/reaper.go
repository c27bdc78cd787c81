package session

import (
	"context"
	"time"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
)

// DefaultReapInterval is how often expired sessions are physically removed.
const DefaultReapInterval = 5 * time.Minute

// Reaper deletes sessions whose deadline has passed. Reads already treat
// expired sessions as absent; the reaper only bounds memory.
type Reaper struct {
	store    Store
	interval time.Duration
}

func NewReaper(store Store, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{store: store, interval: interval}
}

// Run sweeps on every tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep deletes every expired session and returns how many were removed.
func (r *Reaper) Sweep() int {
	ids := r.store.ExpiredIDs()
	for _, id := range ids {
		r.store.Delete(id)
	}

	if len(ids) > 0 {
		logger.Info("expired sessions reaped", map[string]any{
			"count":     len(ids),
			"remaining": r.store.Len(),
		})
	}
	return len(ids)
}
