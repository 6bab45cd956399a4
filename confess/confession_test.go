package confess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		max     int
		wantErr error
	}{
		{"exactly minimum", "0123456789", 2000, nil},
		{"one short", "012345678", 2000, ErrBodyTooShort},
		{"whitespace does not count", "   short   ", 2000, ErrBodyTooShort},
		{"empty", "", 2000, ErrBodyTooShort},
		{"exactly maximum", strings.Repeat("a", 50), 50, nil},
		{"one over maximum", strings.Repeat("a", 51), 50, ErrBodyTooLong},
		{"runes not bytes", strings.Repeat("é", 10), 10, nil},
		{"default maximum", strings.Repeat("a", DefaultMaxLength+1), 0, ErrBodyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBody(tt.body, tt.max)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
