package home

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/confessor/sys"
)

const (
	StatsAnsiReset    = "\u001b[0m"
	StatsAnsiPink     = "\u001b[35m"
	StatsAnsiPinkBold = "\u001b[35;1m"
	StatsCacheTTL     = 5000 * time.Millisecond
)

var (
	statsStartTime = time.Now().UTC()

	// Cache
	statsCacheMu sync.RWMutex
	statsCache   StatsCachedData
)

type StatsCachedData struct {
	Data      string
	Timestamp time.Time
}

type StatsHealthMetrics struct {
	Ping        int64
	GatewayPing int64
	DBLatency   string
	Confessions int
	Cooldowns   int
	StorePath   string
}

func statsTitle(text string) string {
	return fmt.Sprintf("%s%s%s", StatsAnsiPink, text, StatsAnsiReset)
}

func statsKey(text string) string {
	return fmt.Sprintf("%s> %s:%s", StatsAnsiPink, text, StatsAnsiReset)
}

func statsVal(text string) string {
	return fmt.Sprintf("%s%s%s", StatsAnsiPinkBold, text, StatsAnsiReset)
}

func renderStatsContent(metrics StatsHealthMetrics) string {
	output := getSystemStats() + "\n\n" + getAppStats(metrics)
	return fmt.Sprintf("```ansi\n%s\n```", output)
}

func getSystemStats() string {
	statsCacheMu.RLock()
	if time.Since(statsCache.Timestamp) < StatsCacheTTL && statsCache.Data != "" {
		defer statsCacheMu.RUnlock()
		return statsCache.Data
	}
	statsCacheMu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usedMem := float64(m.HeapAlloc) / 1024 / 1024
	totalMem := float64(m.Sys) / 1024 / 1024

	lines := []string{
		statsTitle("System"),
		fmt.Sprintf("%s %s", statsKey("Platform"), statsVal(fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH))),
		fmt.Sprintf("%s %s", statsKey("Go Version"), statsVal(runtime.Version())),
		fmt.Sprintf("%s %s", statsKey("Memory"), statsVal(fmt.Sprintf("%.2f MB / %.2f MB (Sys)", usedMem, totalMem))),
		fmt.Sprintf("%s %s", statsKey("Goroutines"), statsVal(fmt.Sprintf("%d", runtime.NumGoroutine()))),
	}
	data := strings.Join(lines, "\n")

	statsCacheMu.Lock()
	statsCache = StatsCachedData{Data: data, Timestamp: time.Now().UTC()}
	statsCacheMu.Unlock()
	return data
}

func getAppStats(metrics StatsHealthMetrics) string {
	uptime := time.Since(statsStartTime)
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	uptimeStr := fmt.Sprintf("%dd %dh %dm", days, hours, minutes)

	lines := []string{
		statsTitle("App"),
		fmt.Sprintf("%s %s", statsKey("Library"), statsVal("Disgo")),
		fmt.Sprintf("%s %s", statsKey("Uptime"), statsVal(uptimeStr)),
		fmt.Sprintf("%s %s", statsKey("Confessions"), statsVal(fmt.Sprintf("%d", metrics.Confessions))),
		fmt.Sprintf("%s %s", statsKey("Cooldowns"), statsVal(fmt.Sprintf("%d", metrics.Cooldowns))),
	}

	if metrics.StorePath != "" {
		lines = append(lines, fmt.Sprintf("%s %s", statsKey("Storage"), statsVal(metrics.StorePath)))
	}
	if metrics.GatewayPing > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", statsKey("Gateway"), statsVal(fmt.Sprintf("%dms", metrics.GatewayPing))))
	}
	if metrics.Ping > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", statsKey("API Latency"), statsVal(fmt.Sprintf("%dms", metrics.Ping))))
	}
	if metrics.DBLatency != "" {
		lines = append(lines, fmt.Sprintf("%s %s", statsKey("Database"), statsVal(metrics.DBLatency+"ms")))
	}

	return strings.Join(lines, "\n")
}

func init() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "session",
		Description:              "Session management utilities (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stats",
				Description: "Display system and application statistics",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "ephemeral",
						Description: "Whether the message should be ephemeral (default: true)",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "status",
				Description: "Configure bot status visibility",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "visible",
						Description: "Enable or disable status rotation",
						Required:    true,
					},
				},
			},
		},
	}, handleSession)
}

func handleSession(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}

	switch *data.SubCommandName {
	case "stats":
		handleSessionStats(event, data)
	case "status":
		handleSessionStatus(event, data)
	}
}
