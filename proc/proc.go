package proc

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

// Register queues the background daemons; they start once the gateway is ready.
func Register(p *confess.Pipeline) {
	sys.RegisterDaemon(sys.LogCooldown, func(ctx context.Context) (bool, func(), func()) {
		return StartCooldownJanitor(ctx, p.Cooldowns(), JanitorInterval)
	})

	sys.OnClientReady(func(_ context.Context, client *bot.Client) {
		sys.RegisterDaemon(sys.LogStatusRotator, func(ctx context.Context) (bool, func(), func()) {
			return StartStatusRotator(ctx, client, p.Store())
		})
	})
}
