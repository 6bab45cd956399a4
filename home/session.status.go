package home

import (
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/confessor/sys"
)

func handleSessionStatus(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	visible := data.Bool("visible")

	if err := sys.SetBotConfig(sys.AppContext, "status_visible", strconv.FormatBool(visible)); err != nil {
		sys.LogError(sys.MsgSessionStatusFail, err)
		confessRespond(event, sys.ErrConfessionUnavailable)
		return
	}

	content := sys.MsgSessionStatusDisabled
	if visible {
		content = sys.MsgSessionStatusEnabled
	}
	confessRespond(event, content)
}
