package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

type deferredInteraction interface {
	messageResponder
	DeferCreateMessage(ephemeral bool, opts ...rest.RequestOpt) error
	ApplicationID() snowflake.ID
	Token() string
	Client() *bot.Client
	User() discord.User
}

func handleConfess(event *events.ApplicationCommandInteractionCreate) {
	if confessions == nil {
		confessRespond(event, sys.ErrConfessionUnavailable)
		return
	}

	data := event.SlashCommandInteractionData()
	if message, ok := data.OptString("message"); ok && strings.TrimSpace(message) != "" {
		submitConfession(event, message)
		return
	}

	if cooldownReply(event, event.User().ID) {
		return
	}
	if err := event.Modal(confessionModal(confessions.MaxLength())); err != nil {
		sys.LogError(sys.MsgConfessionModalFail, err)
	}
}

func handleConfessButton(event *events.ComponentInteractionCreate) {
	if confessions == nil {
		confessRespond(event, sys.ErrConfessionUnavailable)
		return
	}
	if cooldownReply(event, event.User().ID) {
		return
	}
	if err := event.Modal(confessionModal(confessions.MaxLength())); err != nil {
		sys.LogError(sys.MsgConfessionModalFail, err)
	}
}

func handleConfessModal(event *events.ModalSubmitInteractionCreate) {
	if confessions == nil {
		confessRespond(event, sys.ErrConfessionUnavailable)
		return
	}
	submitConfession(event, event.Data.Text(ConfessionInputID))
}

// cooldownReply answers early when the user is still cooling down, so they
// are not asked to type a confession that will be refused.
func cooldownReply(event messageResponder, userID snowflake.ID) bool {
	remaining := confessions.Cooldowns().Remaining(userID)
	if remaining <= 0 {
		return false
	}
	confessRespond(event, fmt.Sprintf(sys.MsgConfessionCooldown, confess.FormatRemaining(remaining)))
	return true
}

func submitConfession(event deferredInteraction, body string) {
	if err := event.DeferCreateMessage(true); err != nil {
		sys.LogDebug(sys.MsgConfessionRespondFail, err)
		return
	}

	user := event.User()
	res := confessions.Submit(sys.AppContext, confess.Submission{
		SubmitterID: user.ID,
		DisplayName: user.Username,
		Body:        body,
	})

	reply := ReplyFor(res, confessions.MaxLength())
	if _, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), sys.ContentUpdate(reply)); err != nil {
		sys.LogDebug(sys.MsgConfessionRespondFail, err)
	}
}

// handleLegacyConfess posts the confession panel for servers still using "!confess".
func handleLegacyConfess(event *events.MessageCreate, _ string) {
	if !legacyLimiter.Allow() {
		return
	}
	if _, err := event.Client().Rest.CreateMessage(event.ChannelID, ConfessionPanel()); err != nil {
		sys.LogError(sys.MsgConfessionLegacyFail, "!confess", err)
	}
}
