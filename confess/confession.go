package confess

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disgoorg/snowflake/v2"
)

const (
	MinBodyLength     = 10
	DefaultMaxLength  = 2000
	AnonymousIDPrefix = "CONF-"
)

var (
	ErrBodyTooShort = errors.New("confession is too short")
	ErrBodyTooLong  = errors.New("confession is too long")
	ErrDuplicateID  = errors.New("anonymous id already stored")
	ErrStoreClosed  = errors.New("confession store is closed")
	ErrStoreBroken  = errors.New("confession journal could not be repaired")
	ErrInFlight     = errors.New("previous confession is still being posted")
)

// Confession is a single identity-linked record. The JSON names match the
// file format the bot has always written, so old storage files keep loading.
type Confession struct {
	InternalID    int64        `json:"id"`
	SubmitterID   snowflake.ID `json:"userId"`
	SubmitterName string       `json:"username"`
	Body          string       `json:"confession"`
	AnonymousID   string       `json:"anonymousId"`
	CreatedAt     time.Time    `json:"timestamp"`
	Engagement    *Engagement  `json:"engagement,omitempty"`
}

// Engagement is carried through storage but no write path populates it yet.
type Engagement struct {
	Views     int `json:"views"`
	Reactions int `json:"reactions"`
}

// Submission is the raw input handed to the pipeline by a command handler.
type Submission struct {
	SubmitterID snowflake.ID
	DisplayName string
	Body        string
}

// ValidateBody checks the length bounds shown to users in the modal. Length
// is counted in runes, the way Discord counts text input characters.
func ValidateBody(body string, maxLength int) error {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	n := utf8.RuneCountInString(strings.TrimSpace(body))
	if n < MinBodyLength {
		return fmt.Errorf("%w: %d characters, minimum is %d", ErrBodyTooShort, n, MinBodyLength)
	}
	if n > maxLength {
		return fmt.Errorf("%w: %d characters, maximum is %d", ErrBodyTooLong, n, maxLength)
	}
	return nil
}
