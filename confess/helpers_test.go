package confess

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeTransport records posts and checks that a confession is already
// stored by the time it is shown anywhere.
type fakeTransport struct {
	mu        sync.Mutex
	store     *Store
	publicErr error
	logErr    error
	public    []Confession
	logs      []Confession
	totals    []int
	unstored  []string
	nextMsgID snowflake.ID
}

func (f *fakeTransport) PostPublic(_ context.Context, c Confession) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkStored(c)
	if f.publicErr != nil {
		return MessageRef{}, f.publicErr
	}
	f.public = append(f.public, c)
	f.nextMsgID++
	return MessageRef{ChannelID: 100, MessageID: 1000 + f.nextMsgID}, nil
}

func (f *fakeTransport) PostLog(_ context.Context, c Confession, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkStored(c)
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, c)
	f.totals = append(f.totals, total)
	return nil
}

func (f *fakeTransport) checkStored(c Confession) {
	if f.store == nil {
		return
	}
	if _, ok := f.store.FindByAnonymousID(c.AnonymousID); !ok {
		f.unstored = append(f.unstored, c.AnonymousID)
	}
}

func (f *fakeTransport) publicCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.public)
}

var errTransport = errors.New("discord unavailable")

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "confessions.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(ms int64, submitter snowflake.ID, body string) Confession {
	return Confession{
		InternalID:    ms,
		SubmitterID:   submitter,
		SubmitterName: "user#" + submitter.String(),
		Body:          body,
		AnonymousID:   FormatAnonymousID(ms),
		CreatedAt:     time.UnixMilli(ms).UTC(),
	}
}
