package home

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
	"golang.org/x/time/rate"
)

const (
	publicAccentColor = 0xE91E63
	logAccentColor    = 0x2B2D31
)

// MessageSender is the slice of the REST client the transport needs.
type MessageSender interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// DiscordTransport posts confessions to the public and admin log channels.
type DiscordTransport struct {
	sender        MessageSender
	publicChannel snowflake.ID
	logChannel    snowflake.ID
	limiter       *rate.Limiter
	timeout       time.Duration
}

func NewDiscordTransport(sender MessageSender, cfg *sys.Config) *DiscordTransport {
	return &DiscordTransport{
		sender:        sender,
		publicChannel: cfg.ConfessionChannelID,
		logChannel:    cfg.LogChannelID,
		limiter:       rate.NewLimiter(rate.Limit(4), 10),
		timeout:       15 * time.Second,
	}
}

func (t *DiscordTransport) PostPublic(ctx context.Context, c confess.Confession) (confess.MessageRef, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return confess.MessageRef{}, err
	}
	msg, err := t.sender.CreateMessage(t.publicChannel, RenderPublic(c), rest.WithCtx(ctx))
	if err != nil {
		return confess.MessageRef{}, err
	}
	return confess.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (t *DiscordTransport) PostLog(ctx context.Context, c confess.Confession, total int) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.sender.CreateMessage(t.logChannel, RenderLog(c, total), rest.WithCtx(ctx))
	return err
}

// RenderPublic shows only the confession text. Mentions are disabled so a
// confession cannot ping anyone.
func RenderPublic(c confess.Confession) discord.MessageCreate {
	return renderContainer(publicTexts(c), publicAccentColor)
}

func RenderLog(c confess.Confession, total int) discord.MessageCreate {
	return renderContainer(logTexts(c, total), logAccentColor)
}

func publicTexts(c confess.Confession) []string {
	return []string{
		fmt.Sprintf("\"%s\"", c.Body),
		sys.MsgConfessionPublicFooter,
	}
}

func logTexts(c confess.Confession, total int) []string {
	return []string{
		sys.MsgConfessionLogTitle,
		fmt.Sprintf(sys.MsgConfessionLogBody,
			c.AnonymousID,
			c.SubmitterName,
			c.SubmitterID,
			c.Body,
			c.CreatedAt.Unix(),
			total,
		),
	}
}

func renderContainer(texts []string, accent int) discord.MessageCreate {
	components := make([]discord.ContainerSubComponent, 0, len(texts))
	for _, text := range texts {
		components = append(components, discord.NewTextDisplay(text))
	}
	return discord.NewMessageCreate().
		WithIsComponentsV2(true).
		WithComponents(discord.NewContainer(components...).WithAccentColor(accent)).
		WithAllowedMentions(&discord.AllowedMentions{})
}
