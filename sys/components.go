package sys

import (
	"strings"

	"github.com/disgoorg/disgo/discord"
)

// NewV2Message wraps components in a single V2 container.
func NewV2Message(ephemeral bool, components ...discord.ContainerSubComponent) discord.MessageCreate {
	return discord.NewMessageCreate().
		WithIsComponentsV2(true).
		WithComponents(discord.NewContainer(components...)).
		WithEphemeral(ephemeral)
}

// NewV2Text builds a V2 message from text blocks, one text display each.
func NewV2Text(ephemeral bool, blocks ...string) discord.MessageCreate {
	components := make([]discord.ContainerSubComponent, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) == "" {
			continue
		}
		components = append(components, discord.NewTextDisplay(b))
	}
	return NewV2Message(ephemeral, components...)
}

// EphemeralText is the usual reply shape for command feedback.
func EphemeralText(content string) discord.MessageCreate {
	return NewV2Text(true, content)
}

// ContentUpdate replaces a deferred reply with plain text.
func ContentUpdate(content string) discord.MessageUpdate {
	return discord.NewMessageUpdate().WithContent(content)
}
