package confess

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Clock returns the current instant. Tests swap it for a fixed or stepping clock.
type Clock func() time.Time

// IDGenerator hands out millisecond-derived identifiers. When two calls land
// in the same millisecond (or the wall clock steps backwards) the generator
// issues the next free millisecond, so IDs stay unique and sortable.
type IDGenerator struct {
	mu     sync.Mutex
	now    Clock
	lastMs int64
}

func NewIDGenerator(now Clock) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns the internal ID, the public anonymous ID and the creation time.
func (g *IDGenerator) Next() (int64, string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	createdAt := g.now()
	ms := createdAt.UnixMilli()
	if ms <= g.lastMs {
		ms = g.lastMs + 1
	}
	g.lastMs = ms

	return ms, FormatAnonymousID(ms), createdAt
}

// Seed makes sure the generator never reissues an ID already present in the
// store, e.g. after a restart with a clock that went backwards.
func (g *IDGenerator) Seed(lastInternalID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if lastInternalID > g.lastMs {
		g.lastMs = lastInternalID
	}
}

func FormatAnonymousID(ms int64) string {
	return AnonymousIDPrefix + strings.ToUpper(strconv.FormatInt(ms, 36))
}

// NormalizeAnonymousID accepts user-typed IDs with or without the prefix and
// in any case.
func NormalizeAnonymousID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	if !strings.HasPrefix(id, AnonymousIDPrefix) {
		id = AnonymousIDPrefix + id
	}
	return id
}
