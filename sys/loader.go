package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// SafeGo runs a function in a new goroutine with panic recovery
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Printf("%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// --- Global State & Setup ---

var AppContext = context.Background()
var daemonsOnce sync.Once
var StartupTime = time.Now()

var (
	registryMu           sync.RWMutex
	commands             = []discord.ApplicationCommandCreate{}
	commandHandlers      = map[string]func(event *events.ApplicationCommandInteractionCreate){}
	autocompleteHandlers = map[string]func(event *events.AutocompleteInteractionCreate){}
	componentHandlers    = map[string]func(event *events.ComponentInteractionCreate){}
	modalHandlers        = map[string]func(event *events.ModalSubmitInteractionCreate){}
	messageHandlers      = map[string]func(event *events.MessageCreate, args string){}
)

var onClientReadyCallbacks []func(ctx context.Context, client *bot.Client)

func SetAppContext(ctx context.Context) {
	AppContext = ctx
}

// --- Bot Initialization ---

// CreateClient creates and configures a disgo client
func CreateClient(ctx context.Context, cfg *Config) (*bot.Client, error) {
	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMembers,
				gateway.IntentMessageContent,
			),
			gateway.WithPresenceOpts(
				gateway.WithPlayingActivity("Loading..."),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagRoles, cache.FlagChannels),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onAutocompleteInteraction),
		bot.WithEventListenerFunc(onComponentInteraction),
		bot.WithEventListenerFunc(onModalSubmit),
		bot.WithEventListenerFunc(onMessageCreate),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 50,
					IdleConnTimeout:     90 * time.Second,
				},
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf(MsgBotClientFail, err)
	}

	return client, nil
}

// --- Command & Handler Registration ---

func RegisterCommand(cmd discord.ApplicationCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	commands = append(commands, cmd)
	commandHandlers[cmd.CommandName()] = handler
}

func RegisterAutocompleteHandler(cmdName string, handler func(event *events.AutocompleteInteractionCreate)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	autocompleteHandlers[cmdName] = handler
}

// RegisterComponentHandler matches customID exactly, or as a prefix when it ends in ":".
func RegisterComponentHandler(customID string, handler func(event *events.ComponentInteractionCreate)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	componentHandlers[customID] = handler
}

func RegisterModalHandler(customID string, handler func(event *events.ModalSubmitInteractionCreate)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	modalHandlers[customID] = handler
}

// RegisterMessageCommand registers a "!name" text command. The handler gets
// everything after the command word, trimmed.
func RegisterMessageCommand(name string, handler func(event *events.MessageCreate, args string)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	messageHandlers[strings.ToLower(name)] = handler
}

func OnClientReady(cb func(ctx context.Context, client *bot.Client)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	onClientReadyCallbacks = append(onClientReadyCallbacks, cb)
}

// Commands returns a copy of the registered application commands.
func Commands() []discord.ApplicationCommandCreate {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]discord.ApplicationCommandCreate(nil), commands...)
}

// --- Command Syncing Logic ---

// CalculateCommandHash generates a SHA256 hash of the commands slice
func CalculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func RegisterCommands(ctx context.Context, client *bot.Client, guildIDStr string, force bool) error {
	lastGuildID, _ := GetBotConfig(ctx, "last_guild_id")
	lastMode, _ := GetBotConfig(ctx, "last_reg_mode")
	lastHash, _ := GetBotConfig(ctx, "last_cmd_hash")

	isProduction := guildIDStr == ""
	currentMode := "guild"
	if isProduction {
		currentMode = "global"
	}

	LogInfo(MsgLoaderSyncCommands, strings.ToUpper(currentMode))

	cmds := Commands()
	currentHash := CalculateCommandHash(cmds)

	shouldRegister := true
	if currentHash != "" && currentHash == lastHash && currentMode == lastMode && lastGuildID == guildIDStr && !force {
		shouldRegister = false
		LogInfo(MsgLoaderUpToDate, currentHash[:8])
	}

	if isProduction {
		if shouldRegister {
			LogInfo(MsgLoaderProdStarting)
			created, err := client.Rest.SetGlobalCommands(client.ApplicationID, cmds, rest.WithCtx(ctx))
			if err != nil {
				return fmt.Errorf(MsgLoaderProdFail, err)
			}
			for _, cmd := range created {
				LogInfo(MsgLoaderProdRegistered, cmd.Name())
			}
		}

		if lastGuildID != "" {
			clearGuildCommands(ctx, client, lastGuildID)
		}
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return fmt.Errorf(MsgLoaderInvalidGuildID, err)
		}

		if shouldRegister {
			LogInfo(MsgLoaderDevStarting, guildIDStr)
			created, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, cmds, rest.WithCtx(ctx))
			if err != nil {
				LogWarn(MsgLoaderDevFail, err)
			} else {
				for _, cmd := range created {
					LogInfo(MsgLoaderDevRegistered, cmd.Name())
				}
			}
		}

		if lastMode != currentMode || force {
			if existing, err := client.Rest.GetGlobalCommands(client.ApplicationID, false, rest.WithCtx(ctx)); err == nil && len(existing) > 0 {
				LogInfo(MsgLoaderDevGlobalClear)
				if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx)); err != nil {
					LogWarn(MsgLoaderDevGlobalClearErr, err)
				}
			}
		}

		if lastGuildID != "" && lastGuildID != guildIDStr {
			clearGuildCommands(ctx, client, lastGuildID)
		}
	}

	_ = SetBotConfig(ctx, "last_reg_mode", currentMode)
	_ = SetBotConfig(ctx, "last_guild_id", guildIDStr)
	if currentHash != "" {
		_ = SetBotConfig(ctx, "last_cmd_hash", currentHash)
	}

	return nil
}

func clearGuildCommands(ctx context.Context, client *bot.Client, guildIDStr string) {
	id, err := snowflake.Parse(guildIDStr)
	if err != nil {
		return
	}
	if cmds, err := client.Rest.GetGuildCommands(client.ApplicationID, id, false, rest.WithCtx(ctx)); err == nil && len(cmds) > 0 {
		LogInfo(MsgLoaderCleanup, guildIDStr)
		_, _ = client.Rest.SetGuildCommands(client.ApplicationID, id, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx))
	}
}

// --- Event Handlers ---

func onReady(event *events.Ready) {
	client := event.Client()
	botUser := event.User

	duration := time.Since(StartupTime)
	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), duration.Milliseconds())

	TriggerClientReady(AppContext, client)
	StartDaemons(AppContext)
}

func TriggerClientReady(ctx context.Context, client *bot.Client) {
	registryMu.RLock()
	cbs := append([]func(context.Context, *bot.Client){}, onClientReadyCallbacks...)
	registryMu.RUnlock()
	for _, cb := range cbs {
		cb(ctx, client)
	}
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	registryMu.RLock()
	h, ok := commandHandlers[event.Data.CommandName()]
	registryMu.RUnlock()
	if ok {
		SafeGo(func() { h(event) })
	}
}

func onAutocompleteInteraction(event *events.AutocompleteInteractionCreate) {
	registryMu.RLock()
	h, ok := autocompleteHandlers[event.Data.CommandName]
	registryMu.RUnlock()
	if ok {
		SafeGo(func() { h(event) })
	}
}

func onComponentInteraction(event *events.ComponentInteractionCreate) {
	customID := event.Data.CustomID()

	registryMu.RLock()
	defer registryMu.RUnlock()

	// 1. Try exact match
	if h, ok := componentHandlers[customID]; ok {
		SafeGo(func() { h(event) })
		return
	}

	// 2. Try prefix match
	for prefix, h := range componentHandlers {
		if strings.HasSuffix(prefix, ":") && strings.HasPrefix(customID, prefix) {
			SafeGo(func() { h(event) })
			return
		}
	}
}

func onModalSubmit(event *events.ModalSubmitInteractionCreate) {
	registryMu.RLock()
	h, ok := modalHandlers[event.Data.CustomID]
	registryMu.RUnlock()
	if ok {
		SafeGo(func() { h(event) })
	}
}

func onMessageCreate(event *events.MessageCreate) {
	if event.Message.Author.Bot {
		return
	}
	name, args, ok := ParseMessageCommand(event.Message.Content)
	if !ok {
		return
	}
	registryMu.RLock()
	h, found := messageHandlers[name]
	registryMu.RUnlock()
	if found {
		SafeGo(func() { h(event, args) })
	}
}

// ParseMessageCommand splits "!name rest of text" into its lowercased name and
// trimmed arguments.
func ParseMessageCommand(content string) (name, args string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "!") {
		return "", "", false
	}
	content = content[1:]
	name, args, _ = strings.Cut(content, " ")
	if i := strings.IndexAny(name, "\n\t"); i >= 0 {
		args = name[i:] + " " + args
		name = name[:i]
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// --- Daemon System ---

type daemonEntry struct {
	starter func(ctx context.Context) (bool, func(), func())
	logger  func(format string, v ...any)
}

var registeredDaemons []daemonEntry
var activeShutdownHooks []func()
var activeShutdownMu sync.Mutex

// RegisterDaemon registers a background daemon with a logger and start function
func RegisterDaemon(logger func(format string, v ...any), starter func(ctx context.Context) (bool, func(), func())) {
	registeredDaemons = append(registeredDaemons, daemonEntry{starter: starter, logger: logger})
}

// StartDaemons starts all registered daemons with their individual colored logging
func StartDaemons(ctx context.Context) {
	daemonsOnce.Do(func() {
		type activeDaemon struct {
			entry daemonEntry
			run   func()
		}
		var active []activeDaemon

		for _, daemon := range registeredDaemons {
			if ok, run, shutdown := daemon.starter(ctx); ok && run != nil {
				if shutdown != nil {
					activeShutdownMu.Lock()
					activeShutdownHooks = append(activeShutdownHooks, shutdown)
					activeShutdownMu.Unlock()
				}
				active = append(active, activeDaemon{daemon, run})
			}
		}

		for _, ad := range active {
			ad.entry.logger(MsgDaemonStarting)
		}

		for _, ad := range active {
			SafeGo(ad.run)
		}
	})
}

// ShutdownDaemons gracefully stops all active daemons
func ShutdownDaemons(ctx context.Context) {
	activeShutdownMu.Lock()
	defer activeShutdownMu.Unlock()

	var wg sync.WaitGroup
	for _, shutdown := range activeShutdownHooks {
		if shutdown != nil {
			wg.Add(1)
			go func(s func()) {
				defer wg.Done()
				s()
			}(shutdown)
		}
	}
	wg.Wait()
}
