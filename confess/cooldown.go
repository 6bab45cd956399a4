package confess

import (
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// CooldownTracker remembers when each submitter last had a confession go
// live. Only accepted submissions start a cooldown; blocked attempts never
// extend it.
type CooldownTracker struct {
	mu       sync.Mutex
	window   time.Duration
	now      Clock
	last     map[snowflake.ID]time.Time
	inFlight map[snowflake.ID]struct{}
}

func NewCooldownTracker(window time.Duration, now Clock) *CooldownTracker {
	if now == nil {
		now = time.Now
	}
	return &CooldownTracker{
		window:   window,
		now:      now,
		last:     make(map[snowflake.ID]time.Time),
		inFlight: make(map[snowflake.ID]struct{}),
	}
}

func (c *CooldownTracker) Window() time.Duration {
	return c.window
}

// IsBlocked reports whether a prior accepted submission is still inside the window.
func (c *CooldownTracker) IsBlocked(id snowflake.ID) bool {
	return c.Remaining(id) > 0
}

// Remaining returns how long the submitter still has to wait, or zero.
func (c *CooldownTracker) Remaining(id snowflake.ID) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked(id)
}

func (c *CooldownTracker) remainingLocked(id snowflake.ID) time.Duration {
	last, ok := c.last[id]
	if !ok || c.window <= 0 {
		return 0
	}
	elapsed := c.now().Sub(last)
	if elapsed >= c.window {
		return 0
	}
	return c.window - elapsed
}

// RecordSubmission starts a cooldown for the submitter as of now.
func (c *CooldownTracker) RecordSubmission(id snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[id] = c.now()
}

// Acquire checks the window and reserves the submitter in one step, so two
// submissions from the same user racing through I/O cannot both pass. A
// reserved submitter is reported as blocked with zero remaining, since no
// cooldown has started yet. Every successful Acquire must be followed by Commit or Release.
func (c *CooldownTracker) Acquire(id snowflake.ID) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[id]; busy {
		return 0, false
	}
	if remaining := c.remainingLocked(id); remaining > 0 {
		return remaining, false
	}
	c.inFlight[id] = struct{}{}
	return 0, true
}

// Commit ends a reservation and starts the cooldown.
func (c *CooldownTracker) Commit(id snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, id)
	c.last[id] = c.now()
}

// Release ends a reservation without starting a cooldown.
func (c *CooldownTracker) Release(id snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, id)
}

// PurgeStale drops entries whose last submission is older than threshold and
// returns how many were removed. Removing an entry only ever widens eligibility.
func (c *CooldownTracker) PurgeStale(threshold time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-threshold)
	removed := 0
	for id, last := range c.last {
		if last.Before(cutoff) {
			delete(c.last, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked submitters.
func (c *CooldownTracker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}

// FormatRemaining renders a wait in whole minutes. Integer division
// under-reports by up to 59 seconds; the wording has always worked this way.
func FormatRemaining(d time.Duration) string {
	minutes := int(d / time.Minute)
	switch {
	case d <= 0:
		return "no time"
	case minutes == 0:
		return "less than a minute"
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
