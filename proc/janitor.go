package proc

import (
	"context"
	"time"

	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

const JanitorInterval = 10 * time.Minute

// SweepCooldowns drops cooldown entries that can no longer block anyone.
func SweepCooldowns(tracker *confess.CooldownTracker) int {
	n := tracker.PurgeStale(tracker.Window())
	if n > 0 {
		sys.LogCooldown(sys.MsgCooldownPurged, n)
	}
	return n
}

// StartCooldownJanitor sweeps the tracker on a fixed interval until ctx ends.
func StartCooldownJanitor(ctx context.Context, tracker *confess.CooldownTracker, interval time.Duration) (bool, func(), func()) {
	if tracker == nil || interval <= 0 {
		return false, nil, nil
	}

	return true, func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					SweepCooldowns(tracker)
				case <-ctx.Done():
					return
				}
			}
		}, func() {
			sys.LogCooldown("Shutting down Cooldown Janitor...")
		}
}
