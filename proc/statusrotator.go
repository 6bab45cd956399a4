package proc

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

const configKeyStatus = "status_visible"

var (
	StartTime      = time.Now().UTC()
	lastStatusText string
	statusMu       sync.Mutex
)

type statusGenerator func(ctx context.Context, client *bot.Client) string

func GetRotationInterval() time.Duration {
	return time.Duration(15+rand.Intn(46)) * time.Second
}

// StartStatusRotator rotates the presence between the confess hint, the
// confession count and uptime.
func StartStatusRotator(ctx context.Context, client *bot.Client, store *confess.Store) (bool, func(), func()) {
	statusList := []statusGenerator{
		GetConfessHintStatus,
		confessionCountStatus(store),
		GetUptimeStatus,
		GetLatencyStatus,
	}

	return true, func() {
			next := GetRotationInterval()
			updateStatus(ctx, client, statusList, next)
			for {
				select {
				case <-time.After(next):
					next = GetRotationInterval()
					updateStatus(ctx, client, statusList, next)
				case <-ctx.Done():
					return
				}
			}
		}, func() {
			sys.LogStatusRotator("Shutting down Status Rotator...")
		}
}

func updateStatus(ctx context.Context, client *bot.Client, statusList []statusGenerator, nextInterval time.Duration) {
	if client == nil {
		return
	}

	if sys.DB != nil {
		visibleStr, err := sys.GetBotConfig(ctx, configKeyStatus)
		if err == nil && visibleStr == "false" {
			_ = client.SetPresence(ctx, gateway.WithOnlineStatus(discord.OnlineStatusOnline))
			return
		}
	}

	statusMu.Lock()
	selected := pickStatus(ctx, client, statusList, lastStatusText)
	lastStatusText = selected
	statusMu.Unlock()

	err := client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithPlayingActivity(selected),
	)
	if err != nil {
		sys.LogStatusRotator(sys.MsgStatusUpdateFail, err)
		return
	}
	sys.LogStatusRotator(sys.MsgStatusRotated, selected, nextInterval)
}

// pickStatus chooses a random non-empty status, avoiding an immediate repeat
// when there is any alternative.
func pickStatus(ctx context.Context, client *bot.Client, statusList []statusGenerator, last string) string {
	var available []string
	for _, gen := range statusList {
		if text := gen(ctx, client); text != "" {
			available = append(available, text)
		}
	}
	if len(available) == 0 {
		return GetConfessHintStatus(ctx, client)
	}

	var choices []string
	for _, s := range available {
		if s != last {
			choices = append(choices, s)
		}
	}
	if len(choices) == 0 {
		return available[0]
	}
	return choices[rand.Intn(len(choices))]
}

// Generators

func GetConfessHintStatus(ctx context.Context, client *bot.Client) string {
	return "/confess to confess"
}

func confessionCountStatus(store *confess.Store) statusGenerator {
	return func(ctx context.Context, client *bot.Client) string {
		n := store.Count()
		if n == 0 {
			return ""
		}
		if n == 1 {
			return "1 confession"
		}
		return fmt.Sprintf("%d confessions", n)
	}
}

func GetUptimeStatus(ctx context.Context, client *bot.Client) string {
	uptime := time.Since(StartTime)
	return fmt.Sprintf("Uptime: %dh %dm %ds", int(uptime.Hours()), int(uptime.Minutes())%60, int(uptime.Seconds())%60)
}

func GetLatencyStatus(ctx context.Context, client *bot.Client) string {
	if client == nil || client.Gateway == nil {
		return ""
	}
	ping := client.Gateway.Latency()
	if ping == 0 {
		return ""
	}
	return fmt.Sprintf("Ping: %dms", ping.Milliseconds())
}
