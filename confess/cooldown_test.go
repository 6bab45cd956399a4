package confess

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const testWindow = 5 * time.Minute

type CooldownSuite struct {
	suite.Suite
	clock   *fakeClock
	tracker *CooldownTracker
}

func TestCooldownSuite(t *testing.T) {
	suite.Run(t, new(CooldownSuite))
}

func (s *CooldownSuite) SetupTest() {
	s.clock = newFakeClock(baseTime)
	s.tracker = NewCooldownTracker(testWindow, s.clock.Now)
}

func (s *CooldownSuite) TestUnknownSubmitterIsFree() {
	s.False(s.tracker.IsBlocked(1))
	s.Zero(s.tracker.Remaining(1))
}

func (s *CooldownSuite) TestBlockedInsideWindow() {
	s.tracker.RecordSubmission(1)
	s.clock.Advance(2 * time.Minute)

	s.True(s.tracker.IsBlocked(1))
	s.Equal(3*time.Minute, s.tracker.Remaining(1))
}

func (s *CooldownSuite) TestAcceptedAtExactBoundary() {
	s.tracker.RecordSubmission(1)

	s.clock.Advance(testWindow - time.Millisecond)
	s.True(s.tracker.IsBlocked(1))

	s.clock.Advance(time.Millisecond)
	s.False(s.tracker.IsBlocked(1))
	_, ok := s.tracker.Acquire(1)
	s.True(ok)
}

func (s *CooldownSuite) TestBlockedAttemptDoesNotExtend() {
	_, ok := s.tracker.Acquire(1)
	s.Require().True(ok)
	s.tracker.Commit(1)

	s.clock.Advance(4 * time.Minute)
	remaining, ok := s.tracker.Acquire(1)
	s.False(ok)
	s.Equal(time.Minute, remaining)

	s.clock.Advance(time.Minute)
	_, ok = s.tracker.Acquire(1)
	s.True(ok)
}

func (s *CooldownSuite) TestReservationBlocksSecondAcquire() {
	_, ok := s.tracker.Acquire(1)
	s.Require().True(ok)

	remaining, ok := s.tracker.Acquire(1)
	s.False(ok)
	s.Zero(remaining, "no cooldown has started while the first is in flight")

	_, ok = s.tracker.Acquire(2)
	s.True(ok, "other submitters are unaffected")
}

func (s *CooldownSuite) TestReleaseDoesNotStartCooldown() {
	_, ok := s.tracker.Acquire(1)
	s.Require().True(ok)
	s.tracker.Release(1)

	s.False(s.tracker.IsBlocked(1))
	_, ok = s.tracker.Acquire(1)
	s.True(ok)
}

func (s *CooldownSuite) TestPurgeStaleIsIdempotent() {
	s.tracker.RecordSubmission(1)
	s.clock.Advance(3 * time.Minute)
	s.tracker.RecordSubmission(2)
	s.clock.Advance(3 * time.Minute)

	s.Equal(1, s.tracker.PurgeStale(testWindow))
	s.Equal(1, s.tracker.Len())
	s.True(s.tracker.IsBlocked(2))

	s.Equal(0, s.tracker.PurgeStale(testWindow))
	s.Equal(1, s.tracker.Len())
}

func (s *CooldownSuite) TestPurgeNeverBlocksAnyone() {
	s.tracker.RecordSubmission(1)
	s.clock.Advance(testWindow + time.Second)
	before := s.tracker.IsBlocked(1)

	s.tracker.PurgeStale(testWindow)

	s.False(before)
	s.False(s.tracker.IsBlocked(1))
}

func (s *CooldownSuite) TestZeroWindowNeverBlocks() {
	tracker := NewCooldownTracker(0, s.clock.Now)
	tracker.RecordSubmission(1)
	s.False(tracker.IsBlocked(1))
}

func TestCooldownConcurrentAcquireAdmitsOne(t *testing.T) {
	tracker := NewCooldownTracker(testWindow, newFakeClock(baseTime).Now)
	const user = snowflake.ID(42)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := tracker.Acquire(user); ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "no time"},
		{30 * time.Second, "less than a minute"},
		{time.Minute, "1 minute"},
		{119 * time.Second, "1 minute"},
		{3*time.Minute + 59*time.Second, "3 minutes"},
		{5 * time.Minute, "5 minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.in), tt.in.String())
	}
}
