package home

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
	"golang.org/x/time/rate"
)

const (
	ConfessionButtonID = "start_confession"
	ConfessionModalID  = "confession_modal"
	ConfessionInputID  = "confession_text"
)

var (
	confessions *confess.Pipeline

	// Shared by every "!" text command so a busy channel cannot flood the REST queue.
	legacyLimiter = rate.NewLimiter(rate.Every(2*time.Second), 3)
)

// Bind hands the submission pipeline to the command handlers. It must be
// called before the gateway opens.
func Bind(p *confess.Pipeline) {
	confessions = p
}

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "confess",
		Description: "Submit an anonymous confession",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "message",
				Description: "Your confession (leave empty to open the form)",
				Required:    false,
			},
		},
	}, handleConfess)

	sys.RegisterComponentHandler(ConfessionButtonID, handleConfessButton)
	sys.RegisterModalHandler(ConfessionModalID, handleConfessModal)
	sys.RegisterMessageCommand("confess", handleLegacyConfess)
}

// ReplyFor turns a pipeline outcome into what the submitter sees.
func ReplyFor(res confess.Result, maxLength int) string {
	switch res.State {
	case confess.StateAcknowledged, confess.StateLoggedFailed:
		return fmt.Sprintf(sys.MsgConfessionSuccess, res.Confession.AnonymousID)
	case confess.StateRejected:
		if errors.Is(res.Err, confess.ErrBodyTooLong) {
			return fmt.Sprintf(sys.ErrConfessionTooLong, maxLength)
		}
		return fmt.Sprintf(sys.ErrConfessionTooShort, confess.MinBodyLength)
	case confess.StateBlocked:
		if errors.Is(res.Err, confess.ErrInFlight) {
			return sys.MsgConfessionInFlight
		}
		return fmt.Sprintf(sys.MsgConfessionCooldown, confess.FormatRemaining(res.Remaining))
	case confess.StateFailedPersist:
		return sys.ErrConfessionSaveFailed
	default:
		return sys.ErrConfessionPostFailed
	}
}

func confessionModal(maxLength int) discord.ModalCreate {
	return discord.ModalCreate{
		CustomID: ConfessionModalID,
		Title:    "Anonymous Confession",
		Components: []discord.LayoutComponent{
			discord.NewLabel("Your confession",
				discord.NewParagraphTextInput(ConfessionInputID).
					WithPlaceholder("Type your confession here...").
					WithMinLength(confess.MinBodyLength).
					WithMaxLength(maxLength).
					WithRequired(true),
			),
		},
	}
}

// messageResponder is satisfied by every interaction event that can reply.
type messageResponder interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
}

func confessRespond(event messageResponder, content string) {
	if err := event.CreateMessage(sys.EphemeralText(content)); err != nil {
		sys.LogDebug(sys.MsgConfessionRespondFail, err)
	}
}
