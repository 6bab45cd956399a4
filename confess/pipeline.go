package confess

import (
	"context"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/confessor/sys"
)

// State is where a submission attempt ended up.
type State string

const (
	StateRejected      State = "REJECTED"
	StateBlocked       State = "BLOCKED"
	StateFailedPersist State = "FAILED_PERSIST"
	StateFailedPublic  State = "FAILED_PUBLIC"
	StateLoggedFailed  State = "LOGGED_FAILED"
	StateAcknowledged  State = "ACKNOWLEDGED"
)

// Succeeded reports whether the submitter should be told their confession is live.
func (s State) Succeeded() bool {
	return s == StateAcknowledged || s == StateLoggedFailed
}

// MessageRef points at the public post of a confession.
type MessageRef struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// Transport posts rendered confessions. Rendering belongs to the caller.
type Transport interface {
	PostPublic(ctx context.Context, c Confession) (MessageRef, error)
	PostLog(ctx context.Context, c Confession, total int) error
}

// Observer is told about every finished attempt (metrics, post receipts).
type Observer interface {
	Observe(ctx context.Context, res Result)
}

type ObserverFunc func(ctx context.Context, res Result)

func (f ObserverFunc) Observe(ctx context.Context, res Result) { f(ctx, res) }

// Result is the outcome of one Submit call.
type Result struct {
	State      State
	Confession Confession
	PublicRef  MessageRef
	Remaining  time.Duration
	TraceID    string
	Err        error
}

// Pipeline runs the submission sequence: validate, cooldown, persist, post
// publicly, post to the admin log. Persistence always happens before any
// post, so a confession that was shown anywhere is also on disk.
type Pipeline struct {
	store     *Store
	cooldowns *CooldownTracker
	ids       *IDGenerator
	transport Transport
	maxLength int
	observers []Observer
}

type PipelineConfig struct {
	Store     *Store
	Cooldowns *CooldownTracker
	IDs       *IDGenerator
	Transport Transport
	MaxLength int
	Observers []Observer
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	ids := cfg.IDs
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	ids.Seed(cfg.Store.LastInternalID())

	return &Pipeline{
		store:     cfg.Store,
		cooldowns: cfg.Cooldowns,
		ids:       ids,
		transport: cfg.Transport,
		maxLength: cfg.MaxLength,
		observers: cfg.Observers,
	}
}

func (p *Pipeline) Store() *Store {
	return p.store
}

func (p *Pipeline) Cooldowns() *CooldownTracker {
	return p.cooldowns
}

func (p *Pipeline) MaxLength() int {
	if p.maxLength <= 0 {
		return DefaultMaxLength
	}
	return p.maxLength
}

// SetTransport swaps the transport once the gateway client exists.
func (p *Pipeline) SetTransport(t Transport) {
	p.transport = t
}

// Submit runs one attempt to completion. It never panics on transport or
// storage failures; the returned State tells the caller what to say.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (res Result) {
	res.TraceID = uuid.NewString()
	defer func() {
		for _, o := range p.observers {
			o.Observe(ctx, res)
		}
	}()

	if err := ValidateBody(sub.Body, p.MaxLength()); err != nil {
		res.State = StateRejected
		res.Err = err
		return res
	}

	remaining, ok := p.cooldowns.Acquire(sub.SubmitterID)
	if !ok {
		sys.LogCooldown(sys.MsgCooldownBlocked, res.TraceID, remaining.Round(time.Second))
		res.State = StateBlocked
		res.Remaining = remaining
		if remaining == 0 {
			res.Err = ErrInFlight
		}
		return res
	}
	committed := false
	defer func() {
		if !committed {
			p.cooldowns.Release(sub.SubmitterID)
		}
	}()

	internalID, anonymousID, createdAt := p.ids.Next()
	rec := Confession{
		InternalID:    internalID,
		SubmitterID:   sub.SubmitterID,
		SubmitterName: sub.DisplayName,
		Body:          strings.TrimSpace(sub.Body),
		AnonymousID:   anonymousID,
		CreatedAt:     createdAt.UTC().Truncate(time.Millisecond),
	}

	stored, err := p.store.Append(rec)
	if err != nil {
		sys.LogError(sys.MsgConfessionPersistFail, anonymousID, res.TraceID, err)
		res.State = StateFailedPersist
		res.Confession = rec
		res.Err = err
		return res
	}
	res.Confession = stored

	ref, err := p.transport.PostPublic(ctx, stored)
	if err != nil {
		sys.LogError(sys.MsgConfessionPublicFail, stored.AnonymousID, res.TraceID, err)
		res.State = StateFailedPublic
		res.Err = err
		return res
	}
	res.PublicRef = ref

	p.cooldowns.Commit(sub.SubmitterID)
	committed = true

	if err := p.transport.PostLog(ctx, stored, p.store.Count()); err != nil {
		sys.LogError(sys.MsgConfessionLogFail, stored.AnonymousID, res.TraceID, err)
		res.State = StateLoggedFailed
		res.Err = err
		return res
	}

	sys.LogConfession(sys.MsgConfessionPosted, stored.AnonymousID, res.TraceID)
	res.State = StateAcknowledged
	return res
}

// Lookup returns the stored record for a public ID, normalising user input.
func (p *Pipeline) Lookup(anonymousID string) (Confession, bool) {
	return p.store.FindByAnonymousID(NormalizeAnonymousID(anonymousID))
}

// ExportAll returns every record in submission order.
func (p *Pipeline) ExportAll() []Confession {
	return p.store.All()
}
