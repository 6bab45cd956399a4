package home

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/confessor/sys"
)

func collectSessionMetrics(event *events.ApplicationCommandInteractionCreate) StatsHealthMetrics {
	metrics := StatsHealthMetrics{}

	if gw := event.Client().Gateway; gw != nil {
		metrics.GatewayPing = gw.Latency().Milliseconds()
	}

	if sys.DB != nil {
		start := time.Now().UTC()
		_, _ = sys.GetBotConfig(sys.AppContext, "ping_test")
		metrics.DBLatency = fmt.Sprintf("%.2f", float64(time.Since(start).Microseconds())/1000.0)
	}

	if confessions != nil {
		metrics.Confessions = confessions.Store().Count()
		metrics.Cooldowns = confessions.Cooldowns().Len()
		metrics.StorePath = confessions.Store().Path()
	}
	return metrics
}

func handleSessionStats(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	ephemeral := true
	if eph, ok := data.OptBool("ephemeral"); ok {
		ephemeral = eph
	}

	// Immediate response with loading indicator
	if err := event.CreateMessage(sys.NewV2Text(ephemeral, sys.MsgSessionStatsLoading)); err != nil {
		sys.LogDebug(sys.MsgSessionStatsFail, err)
		return
	}

	go func() {
		interTime := snowflake.ID(event.ID()).Time()
		metrics := collectSessionMetrics(event)
		metrics.Ping = time.Since(interTime).Milliseconds()

		update := discord.NewMessageUpdate().
			WithIsComponentsV2(true).
			WithComponents(discord.NewContainer(discord.NewTextDisplay(renderStatsContent(metrics))))
		if _, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), update); err != nil {
			sys.LogDebug(sys.MsgSessionStatsFail, err)
		}
	}()
}
