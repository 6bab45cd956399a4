package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)

	// Component colors
	databaseColor   = color.New()
	confessionColor = color.New(color.FgMagenta)
	cooldownColor   = color.New(color.FgCyan)
	storeColor      = color.New(color.FgBlue)
	sessionColor    = color.New(color.FgMagenta)
	healthColor     = color.New(color.FgGreen)

	// Global state
	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	// Internal state
	logFile *os.File
	logMu   sync.Mutex
)

// --- Initialization ---

func init() {
	InitLogger(false, false)
}

// InitLogger initializes the global structured logger
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	var err error

	if LogToFile {
		logName := GetProjectName() + ".log"
		logFile, err = os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	color.NoColor = false

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

// LogFatal logs and panics; main recovers the panic so deferred cleanup runs
// before the process exits non-zero.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), slog.LevelError+4, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogConfession(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "confession"))
}

func LogCooldown(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "cooldown"))
}

func LogStore(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "store"))
}

func LogStatusRotator(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "session"))
}

func LogHealth(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "health"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

// BotLogHandler prints `15:04:05 [LEVEL] [COMPONENT] message` lines.
type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	timeStr := time.Now().Format(DefaultTimeFormat)
	levelStr := "DEBUG"
	levelColor := infoColor

	switch {
	case r.Level >= slog.LevelError+4:
		levelStr = "FATAL"
		levelColor = fatalColor
	case r.Level >= slog.LevelError:
		levelStr = "ERROR"
		levelColor = errorColor
	case r.Level >= slog.LevelWarn:
		levelStr = "WARN"
		levelColor = warnColor
	case r.Level >= slog.LevelInfo:
		levelStr = "INFO"
		levelColor = infoColor
	}

	component := ""
	var extra []string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return true
		}
		// disgo logs with key/value attributes; keep them readable.
		extra = append(extra, a.Key+"="+a.Value.String())
		return true
	})

	msg := r.Message
	if len(extra) > 0 {
		msg += " " + strings.Join(extra, " ")
	}

	fmt.Fprintf(h.w, "%s", timeStr)

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		compColor := getComponentColor(component)
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(compColor, fmt.Sprintf("[%s] %s", component, msg)))
	} else {
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, fmt.Sprintf("[%s] %s", levelStr, msg)))
	}

	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(name string) slog.Handler       { return h }

// --- Formatting Helpers ---

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "CONFESSION":
		return confessionColor
	case "COOLDOWN":
		return cooldownColor
	case "STORE":
		return storeColor
	case "SESSION":
		return sessionColor
	case "HEALTH":
		return healthColor
	default:
		return color.New(color.FgCyan)
	}
}

// colorizeWithResets re-applies the outer color after every reset code in
// text so nested coloring does not bleed the rest of the line back to default.
func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	modifiedText := strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq)
	return c.Sprint(modifiedText)
}

func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{
		w:  w,
		re: regexp.MustCompile(`\x1b\[[0-9;]*m`),
	}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	clean := s.re.ReplaceAll(p, []byte(""))
	_, err = s.w.Write(clean)
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad      = "Failed to load config: %v"
	MsgConfigMissingToken      = "DISCORD_TOKEN is not set in .env file"
	MsgConfigMissingChannel    = "%s is not set in .env file"
	MsgConfigInvalidSnowflake  = "invalid %s: must be a valid Snowflake"
	MsgConfigInvalidNumber     = "invalid %s: %v"
	MsgDatabaseInitSuccess     = "Database initialized successfully"
	MsgDatabaseTableError      = "Failed to create table: %w"
	MsgDatabasePragmaError     = "Failed to set pragma %s: %w"
	MsgDaemonStarting          = "Starting..."
	MsgBotStarting             = "Starting %s..."
	MsgBotReady                = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown             = "Shutting down %s..."
	MsgBotRegisterFail         = "Command registration failed: %v"
	MsgBotRegisterSkipped      = "Skipping command registration as requested."
	MsgBotGatewayFail          = "failed to open gateway: %w"
	MsgBotClientFail           = "failed to create Discord client: %w"
	MsgGenericError            = "%v"
	MsgLoaderPanicRecovered    = "Panic recovered in handler: %v"
	MsgLoaderSyncCommands      = "Syncing %s commands..."
	MsgLoaderUpToDate          = "[LOADER] Commands are up to date. (Hash: %s)"
	MsgLoaderInvalidGuildID    = "invalid GUILD_ID: %w"
	MsgLoaderDevStarting       = "[DEV] Registering commands to guild: %s"
	MsgLoaderDevRegistered     = "[DEV] Registered: %s"
	MsgLoaderDevFail           = "[DEV] Registration failed: %v"
	MsgLoaderDevGlobalClear    = "[DEV] Verifying global commands are cleared..."
	MsgLoaderDevGlobalClearErr = "[DEV] Global clear skipped (likely rate limited): %v"
	MsgLoaderProdStarting      = "[PROD] Registering commands globally..."
	MsgLoaderProdRegistered    = "[PROD] Registered: %s"
	MsgLoaderProdFail          = "[PROD] Global registration failed: %w"
	MsgLoaderCleanup           = "[CLEANUP] Removing commands from previous dev guild: %s"

	// --- Confession Store ---
	MsgStoreLoaded          = "Loaded %d confessions from %s"
	MsgStoreCreated         = "Created new confession storage file: %s"
	MsgStoreMigrated        = "Migrated %d confessions from the legacy array format"
	MsgStoreTornTail        = "Dropped a partial record at the end of %s"
	MsgStoreCorrupt         = "Storage file %s is unreadable, starting empty: %v"
	MsgStoreQuarantined     = "Kept the unreadable storage file as %s"
	MsgStoreDuplicateOnLoad = "Skipped duplicate confession %s while loading"
	MsgStoreOpenFail        = "Failed to open confession store: %v"
	MsgStoreRollbackFail    = "Could not cut %s back after a failed write, refusing further writes: %v"

	// --- Confession Pipeline ---
	MsgConfessionPosted      = "Posted %s (trace %s)"
	MsgConfessionPersistFail = "Failed to persist %s (trace %s): %v"
	MsgConfessionPublicFail  = "Failed to post %s publicly (trace %s): %v"
	MsgConfessionLogFail     = "Failed to send %s to the log channel (trace %s): %v"
	MsgConfessionReceiptFail = "Failed to record public post of %s: %v"
	MsgConfessionRespondFail = "Failed to respond to interaction: %v"
	MsgConfessionModalFail   = "Failed to open confession modal: %v"
	MsgConfessionPanelFail   = "Failed to post confession panel: %v"
	MsgConfessionExportFail  = "Failed to export confessions: %v"
	MsgConfessionLegacyFail  = "Failed to reply to %s: %v"

	// --- Cooldown ---
	MsgCooldownBlocked = "Blocked submission (trace %s), %v remaining"
	MsgCooldownPurged  = "Purged %d stale cooldown entries"

	// --- Session / Status ---
	MsgStatusUpdateFail  = "Update failed: %v"
	MsgStatusRotated     = "Status rotated to: \"%s\" (Next rotate in %v)"
	MsgSessionStatsFail  = "Failed to send session stats: %v"
	MsgSessionStatusFail = "Failed to update status visibility: %v"

	// --- Health ---
	MsgHealthListening = "Health server listening on %s"
	MsgHealthFail      = "Health server failed: %v"
	MsgHealthShutdown  = "Health server stopped"

	// --- User-facing ---
	MsgConfessionSuccess       = "✅ Your confession has been posted anonymously!\n-# Confession ID: `%s`"
	MsgConfessionCooldown      = "⏳ Please wait **%s** before submitting another confession."
	MsgConfessionInFlight      = "⏳ Your previous confession is still being posted."
	MsgConfessionNoConfessions = "📭 No confessions have been made yet."
	MsgConfessionExportHeader  = "📊 **All Confessions Log**\n**Total:** %d\nDownload the CSV file below:"
	MsgSessionStatsLoading     = "⏳ Gathering stats..."
	MsgSessionStatusEnabled    = "✅ Status rotation enabled!"
	MsgSessionStatusDisabled   = "✅ Status rotation disabled!"
	MsgConfessionPanelPosted   = "✅ Confession panel posted."
	MsgConfessionPanelTitle    = "## 📝 Anonymous Confession"
	MsgConfessionPanelBody     = "Click the button below to make an anonymous confession.\n\n**Your identity will be completely hidden from everyone.**"
	MsgConfessionPanelRules    = "**📋 Rules**\n• Be respectful\n• No personal information\n• No harassment\n• No spam"
	MsgConfessionPublicFooter  = "-# Anonymous Confession"
	MsgConfessionLogTitle      = "## 📋 New Confession Log"
	MsgConfessionLogBody       = "**Confession ID**\n%s\n\n**User**\n%s\nID: `%s`\n\n**Confession**\n%s\n\n**Timestamp**\n<t:%d:F>\n\n-# Total Confessions: %d"
	MsgConfessionStatsHeader   = "## 📊 Confession Stats"
	MsgConfessionStatsBody     = "**Total:** %d\n**Today:** %d\n**Unique submitters:** %d\n**Never posted:** %d"
	MsgConfessionStatsSince    = "\n**Since %s:** %d"
	MsgConfessionStatsFirst    = "\n**First:** `%s` <t:%d:R>"
	MsgConfessionStatsLatest   = "\n**Latest:** `%s` <t:%d:R>"
	MsgConfessionStatsOwn      = "You have submitted **%d** confession(s)."
	MsgConfessionLookupBody    = "## 🔎 %s\n**User:** %s (`%s`)\n**Submitted:** <t:%d:F>\n**Public post:** %s\n\n%s"
	MsgConfessionLookupNoPost  = "never posted"

	ErrConfessionTooShort    = "❌ Your confession must be at least %d characters."
	ErrConfessionTooLong     = "❌ Your confession must be at most %d characters."
	ErrConfessionPostFailed  = "❌ Error: Could not post confession."
	ErrConfessionSaveFailed  = "❌ Error: Could not save your confession. Please try again."
	ErrConfessionNotAdmin    = "❌ You need the confession admin role to use that command."
	ErrConfessionNotFound    = "❌ No confession found with ID `%s`."
	ErrConfessionBadSince    = "❌ Could not understand `%s`. Try 'yesterday' or 'last monday'."
	ErrConfessionExport      = "❌ Could not build the confession log."
	ErrConfessionUnavailable = "❌ Confessions are not available right now."
)
