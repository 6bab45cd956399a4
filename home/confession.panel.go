package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/confessor/sys"
)

// ConfessionPanel is the public message with the button that opens the form.
func ConfessionPanel() discord.MessageCreate {
	return sys.NewV2Message(false,
		discord.NewTextDisplay(sys.MsgConfessionPanelTitle),
		discord.NewTextDisplay(sys.MsgConfessionPanelBody),
		discord.NewTextDisplay(sys.MsgConfessionPanelRules),
		discord.NewActionRow(
			discord.NewSuccessButton("Make a Confession", ConfessionButtonID),
		),
	)
}

func handleConfessionPanel(event *events.ApplicationCommandInteractionCreate) {
	if !interactionIsAdmin(event) {
		confessRespond(event, sys.ErrConfessionNotAdmin)
		return
	}

	if _, err := event.Client().Rest.CreateMessage(event.Channel().ID(), ConfessionPanel()); err != nil {
		sys.LogError(sys.MsgConfessionPanelFail, err)
		confessRespond(event, sys.ErrConfessionPostFailed)
		return
	}
	confessRespond(event, sys.MsgConfessionPanelPosted)
}
