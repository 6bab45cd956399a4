package sys

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/stretchr/testify/assert"
)

func TestParseMessageCommand(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"!confess", "confess", "", true},
		{"!Confess   my secret ", "confess", "my secret", true},
		{"!confess\nmulti\nline", "confess", "multi\nline", true},
		{"  !confessionslog", "confessionslog", "", true},
		{"confess", "", "", false},
		{"!", "", "", false},
		{"! confess", "", "", false},
	}

	for _, tt := range tests {
		name, args, ok := ParseMessageCommand(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.wantName, name, tt.in)
		assert.Equal(t, tt.wantArgs, args, tt.in)
	}
}

func TestCalculateCommandHash(t *testing.T) {
	a := []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{Name: "confess", Description: "Submit an anonymous confession"},
	}
	b := []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{Name: "confession", Description: "Confession tools"},
	}

	assert.Len(t, CalculateCommandHash(a), 64)
	assert.Equal(t, CalculateCommandHash(a), CalculateCommandHash(a))
	assert.NotEqual(t, CalculateCommandHash(a), CalculateCommandHash(b))
}
