package confess

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/suite"
)

const submitter = snowflake.ID(123456789012345678)

type PipelineSuite struct {
	suite.Suite
	clock     *fakeClock
	store     *Store
	cooldowns *CooldownTracker
	transport *fakeTransport
	mu        sync.Mutex
	observed  []Result
	pipeline  *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.clock = newFakeClock(baseTime)
	s.store = openTestStore(s.T())
	s.cooldowns = NewCooldownTracker(testWindow, s.clock.Now)
	s.transport = &fakeTransport{store: s.store}
	s.observed = nil
	s.pipeline = NewPipeline(PipelineConfig{
		Store:     s.store,
		Cooldowns: s.cooldowns,
		IDs:       NewIDGenerator(s.clock.Now),
		Transport: s.transport,
		MaxLength: 2000,
		Observers: []Observer{ObserverFunc(func(_ context.Context, res Result) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.observed = append(s.observed, res)
		})},
	})
}

func (s *PipelineSuite) submit(body string) Result {
	return s.pipeline.Submit(context.Background(), Submission{
		SubmitterID: submitter,
		DisplayName: "confessor#0001",
		Body:        body,
	})
}

func (s *PipelineSuite) TestAcknowledged() {
	res := s.submit("  I still sleep with the lights on.  ")

	s.Require().Equal(StateAcknowledged, res.State)
	s.True(res.State.Succeeded())
	s.NoError(res.Err)
	s.NotEmpty(res.TraceID)

	s.Equal("CONF-LOYW3V28", res.Confession.AnonymousID)
	s.Equal("I still sleep with the lights on.", res.Confession.Body)
	s.Equal(submitter, res.Confession.SubmitterID)
	s.Equal("confessor#0001", res.Confession.SubmitterName)
	s.True(res.Confession.CreatedAt.Equal(baseTime))
	s.Equal(snowflake.ID(100), res.PublicRef.ChannelID)
	s.Equal(snowflake.ID(1001), res.PublicRef.MessageID)

	s.Len(s.transport.public, 1)
	s.Len(s.transport.logs, 1)
	s.Equal([]int{1}, s.transport.totals, "log total includes the new record")
	s.Empty(s.transport.unstored)

	stored, ok := s.store.FindByAnonymousID("CONF-LOYW3V28")
	s.True(ok)
	s.Equal(res.Confession.Body, stored.Body)
	s.True(s.cooldowns.IsBlocked(submitter))
}

func (s *PipelineSuite) TestRejectedTouchesNothing() {
	res := s.submit("too short")

	s.Equal(StateRejected, res.State)
	s.ErrorIs(res.Err, ErrBodyTooShort)
	s.Zero(s.store.Count())
	s.Zero(s.transport.publicCount())
	s.False(s.cooldowns.IsBlocked(submitter))
}

func (s *PipelineSuite) TestRejectedTooLong() {
	res := s.submit(strings.Repeat("x", 2001))

	s.Equal(StateRejected, res.State)
	s.ErrorIs(res.Err, ErrBodyTooLong)
	s.Zero(s.store.Count())
}

func (s *PipelineSuite) TestBlockedInsideWindow() {
	s.Require().Equal(StateAcknowledged, s.submit("the first confession of the day").State)

	s.clock.Advance(2 * time.Minute)
	res := s.submit("the second confession of the day")

	s.Equal(StateBlocked, res.State)
	s.Equal(3*time.Minute, res.Remaining)
	s.Equal(1, s.store.Count())
	s.Equal(1, s.transport.publicCount())

	s.clock.Advance(3 * time.Minute)
	s.Equal(StateAcknowledged, s.submit("the second confession, later").State)
}

func (s *PipelineSuite) TestBlockedWhileFirstStillInFlight() {
	_, ok := s.cooldowns.Acquire(submitter)
	s.Require().True(ok)

	res := s.submit("a second try while the first is posting")

	s.Equal(StateBlocked, res.State)
	s.ErrorIs(res.Err, ErrInFlight)
	s.Zero(res.Remaining)
	s.Zero(s.store.Count())

	s.cooldowns.Release(submitter)
	s.Equal(StateAcknowledged, s.submit("a second try once the first is done").State)
}

func (s *PipelineSuite) TestPublicFailureKeepsRecordWithoutCooldown() {
	s.transport.publicErr = errTransport

	res := s.submit("this one will not make it out")

	s.Equal(StateFailedPublic, res.State)
	s.False(res.State.Succeeded())
	s.ErrorIs(res.Err, errTransport)
	s.Empty(s.transport.logs, "admin log is never posted without a public post")
	s.Equal(1, s.store.Count(), "record stays stored")
	s.False(s.cooldowns.IsBlocked(submitter))

	s.transport.publicErr = nil
	retry := s.submit("this one will not make it out")
	s.Equal(StateAcknowledged, retry.State)
	s.NotEqual(res.Confession.AnonymousID, retry.Confession.AnonymousID)
	s.Equal(2, s.store.Count())
}

func (s *PipelineSuite) TestLogFailureStillSucceeds() {
	s.transport.logErr = errTransport

	res := s.submit("the admins will not see this one")

	s.Equal(StateLoggedFailed, res.State)
	s.True(res.State.Succeeded())
	s.ErrorIs(res.Err, errTransport)
	s.Equal(1, s.transport.publicCount())
	s.True(s.cooldowns.IsBlocked(submitter))
}

func (s *PipelineSuite) TestPersistFailurePostsNothing() {
	s.Require().NoError(s.store.file.Close())

	res := s.submit("the disk is not cooperating today")

	s.Equal(StateFailedPersist, res.State)
	s.Error(res.Err)
	s.Zero(s.store.Count())
	s.Zero(s.transport.publicCount())
	s.Empty(s.transport.logs)
	s.False(s.cooldowns.IsBlocked(submitter))
}

func (s *PipelineSuite) TestObserversSeeEveryAttempt() {
	s.submit("short")
	s.submit("a confession long enough to pass")
	s.submit("another one inside the window")

	s.Require().Len(s.observed, 3)
	s.Equal(StateRejected, s.observed[0].State)
	s.Equal(StateAcknowledged, s.observed[1].State)
	s.Equal(StateBlocked, s.observed[2].State)
}

func (s *PipelineSuite) TestLookupNormalizesInput() {
	res := s.submit("something to look up afterwards")
	s.Require().Equal(StateAcknowledged, res.State)

	got, ok := s.pipeline.Lookup("  conf-loyw3v28 ")
	s.True(ok)
	s.Equal(res.Confession.Body, got.Body)

	_, ok = s.pipeline.Lookup("CONF-NOPE")
	s.False(ok)
}

func (s *PipelineSuite) TestSeededFromStore() {
	_, err := s.store.Append(testRecord(baseTime.UnixMilli()+10_000, 7, "restored from an earlier run"))
	s.Require().NoError(err)

	p := NewPipeline(PipelineConfig{
		Store:     s.store,
		Cooldowns: NewCooldownTracker(testWindow, s.clock.Now),
		IDs:       NewIDGenerator(s.clock.Now),
		Transport: s.transport,
	})
	res := p.Submit(context.Background(), Submission{SubmitterID: submitter, Body: "after the restart, a new one"})

	s.Require().Equal(StateAcknowledged, res.State)
	s.Equal(baseTime.UnixMilli()+10_001, res.Confession.InternalID)
	s.Equal(2000, p.MaxLength())
	s.Len(p.ExportAll(), 2)
}

func (s *PipelineSuite) TestConcurrentSubmitsFromOneUser() {
	var wg sync.WaitGroup
	results := make(chan Result, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.pipeline.Submit(context.Background(), Submission{
				SubmitterID: submitter,
				Body:        "racing to confess first",
			})
		}()
	}
	wg.Wait()
	close(results)

	acknowledged := 0
	for res := range results {
		if res.State == StateAcknowledged {
			acknowledged++
		} else {
			s.Equal(StateBlocked, res.State)
		}
	}
	s.Equal(1, acknowledged)
	s.Equal(1, s.store.Count())
}
