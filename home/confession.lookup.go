package home

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

func messageLink(guildID *snowflake.ID, post *sys.ConfessionPost) string {
	if post == nil {
		return sys.MsgConfessionLookupNoPost
	}
	guild := "@me"
	if guildID != nil {
		guild = guildID.String()
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, post.ChannelID, post.MessageID)
}

// FormatLookup renders the identity-linked view of one confession.
func FormatLookup(c confess.Confession, link string) string {
	return fmt.Sprintf(sys.MsgConfessionLookupBody,
		c.AnonymousID,
		c.SubmitterName,
		c.SubmitterID,
		c.CreatedAt.Unix(),
		link,
		c.Body,
	)
}

func handleConfessionLookup(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !interactionIsAdmin(event) {
		confessRespond(event, sys.ErrConfessionNotAdmin)
		return
	}

	id := data.String("id")
	c, ok := confessions.Lookup(id)
	if !ok {
		confessRespond(event, fmt.Sprintf(sys.ErrConfessionNotFound, confess.NormalizeAnonymousID(id)))
		return
	}

	var post *sys.ConfessionPost
	if sys.DB != nil {
		ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
		defer cancel()
		p, err := sys.GetConfessionPost(ctx, c.AnonymousID)
		if err != nil {
			sys.LogWarn(sys.MsgGenericError, err)
		}
		post = p
	}

	if err := event.CreateMessage(sys.EphemeralText(FormatLookup(c, messageLink(event.GuildID(), post)))); err != nil {
		sys.LogDebug(sys.MsgConfessionRespondFail, err)
	}
}
