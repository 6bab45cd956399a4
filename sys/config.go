package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

const (
	DefaultCooldownMinutes = 5
	DefaultMaxLength       = 2000
	MinMaxLength           = 10
	MaxMaxLength           = 2000
	DefaultStoragePath     = "./confessions.jsonl"
)

type Config struct {
	Token               string
	GuildID             string
	ConfessionChannelID snowflake.ID
	LogChannelID        snowflake.ID
	AdminRoleID         snowflake.ID
	CooldownMinutes     int
	MaxLength           int
	StoragePath         string
	DatabasePath        string
	HealthAddr          string
	OwnerIDs            []string
	Silent              bool
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) (*Config, error) {
	dbPath := getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	storagePath := getenv("STORAGE_PATH")
	if storagePath == "" {
		storagePath = DefaultStoragePath
	}

	silent, _ := strconv.ParseBool(getenv("SILENT"))

	var ownerIDs []string
	if ownerIDsStr := getenv("OWNER_IDS"); ownerIDsStr != "" {
		for _, id := range strings.Split(ownerIDsStr, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ownerIDs = append(ownerIDs, id)
			}
		}
	}

	cfg := &Config{
		Token:        getenv("DISCORD_TOKEN"),
		GuildID:      getenv("GUILD_ID"),
		StoragePath:  storagePath,
		DatabasePath: dbPath,
		HealthAddr:   getenv("HEALTH_ADDR"),
		OwnerIDs:     ownerIDs,
		Silent:       silent,
	}

	var err error
	if cfg.ConfessionChannelID, err = parseSnowflakeEnv(getenv, "CONFESSION_CHANNEL_ID"); err != nil {
		return nil, err
	}
	if cfg.LogChannelID, err = parseSnowflakeEnv(getenv, "LOG_CHANNEL_ID"); err != nil {
		return nil, err
	}
	if cfg.AdminRoleID, err = parseSnowflakeEnv(getenv, "ADMIN_ROLE_ID"); err != nil {
		return nil, err
	}
	if cfg.CooldownMinutes, err = parseIntEnv(getenv, "COOLDOWN_MINUTES", DefaultCooldownMinutes); err != nil {
		return nil, err
	}
	if cfg.MaxLength, err = parseIntEnv(getenv, "MAX_LENGTH", DefaultMaxLength); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf(MsgConfigInvalidSnowflake, "GUILD_ID")
	}
	if c.ConfessionChannelID == 0 {
		return fmt.Errorf(MsgConfigMissingChannel, "CONFESSION_CHANNEL_ID")
	}
	if c.LogChannelID == 0 {
		return fmt.Errorf(MsgConfigMissingChannel, "LOG_CHANNEL_ID")
	}
	if c.CooldownMinutes < 0 {
		return fmt.Errorf(MsgConfigInvalidNumber, "COOLDOWN_MINUTES", "must not be negative")
	}
	if c.MaxLength < MinMaxLength || c.MaxLength > MaxMaxLength {
		return fmt.Errorf(MsgConfigInvalidNumber, "MAX_LENGTH", fmt.Sprintf("must be between %d and %d", MinMaxLength, MaxMaxLength))
	}
	return nil
}

func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

func (c *Config) IsOwner(userID snowflake.ID) bool {
	id := userID.String()
	for _, owner := range c.OwnerIDs {
		if owner == id {
			return true
		}
	}
	return false
}

func parseSnowflakeEnv(getenv func(string) string, key string) (snowflake.ID, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return 0, nil
	}
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf(MsgConfigInvalidSnowflake, key)
	}
	return id, nil
}

func parseIntEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf(MsgConfigInvalidNumber, key, err)
	}
	return n, nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "confessor"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "confessor"
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
