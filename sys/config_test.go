package sys

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"DISCORD_TOKEN":         "token",
		"CONFESSION_CHANNEL_ID": "111111111111111111",
		"LOG_CHANNEL_ID":        "222222222222222222",
		"DATABASE_PATH":         "test.db",
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := configFromEnv(envOf(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, snowflake.ID(111111111111111111), cfg.ConfessionChannelID)
	assert.Equal(t, snowflake.ID(222222222222222222), cfg.LogChannelID)
	assert.Zero(t, cfg.AdminRoleID)
	assert.Equal(t, DefaultCooldownMinutes, cfg.CooldownMinutes)
	assert.Equal(t, 5*time.Minute, cfg.CooldownWindow())
	assert.Equal(t, DefaultMaxLength, cfg.MaxLength)
	assert.Equal(t, DefaultStoragePath, cfg.StoragePath)
	assert.Equal(t, "test.db", cfg.DatabasePath)
	assert.Empty(t, cfg.HealthAddr)
	assert.Same(t, cfg, GlobalConfig)
}

func TestConfigOverrides(t *testing.T) {
	env := baseEnv()
	env["ADMIN_ROLE_ID"] = "333333333333333333"
	env["COOLDOWN_MINUTES"] = "0"
	env["MAX_LENGTH"] = "500"
	env["STORAGE_PATH"] = "/var/lib/confessor/confessions.jsonl"
	env["OWNER_IDS"] = " 444444444444444444 , ,555555555555555555"
	env["HEALTH_ADDR"] = ":9090"

	cfg, err := configFromEnv(envOf(env))
	require.NoError(t, err)

	assert.Equal(t, snowflake.ID(333333333333333333), cfg.AdminRoleID)
	assert.Zero(t, cfg.CooldownWindow())
	assert.Equal(t, 500, cfg.MaxLength)
	assert.Equal(t, "/var/lib/confessor/confessions.jsonl", cfg.StoragePath)
	assert.Equal(t, []string{"444444444444444444", "555555555555555555"}, cfg.OwnerIDs)
	assert.True(t, cfg.IsOwner(444444444444444444))
	assert.False(t, cfg.IsOwner(666666666666666666))
	assert.Equal(t, ":9090", cfg.HealthAddr)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		change func(map[string]string)
		want   string
	}{
		{"missing token", func(m map[string]string) { delete(m, "DISCORD_TOKEN") }, "DISCORD_TOKEN"},
		{"missing confession channel", func(m map[string]string) { delete(m, "CONFESSION_CHANNEL_ID") }, "CONFESSION_CHANNEL_ID"},
		{"missing log channel", func(m map[string]string) { delete(m, "LOG_CHANNEL_ID") }, "LOG_CHANNEL_ID"},
		{"bad channel", func(m map[string]string) { m["LOG_CHANNEL_ID"] = "not-a-number" }, "LOG_CHANNEL_ID"},
		{"bad role", func(m map[string]string) { m["ADMIN_ROLE_ID"] = "role" }, "ADMIN_ROLE_ID"},
		{"short guild", func(m map[string]string) { m["GUILD_ID"] = "1234" }, "GUILD_ID"},
		{"negative cooldown", func(m map[string]string) { m["COOLDOWN_MINUTES"] = "-1" }, "COOLDOWN_MINUTES"},
		{"cooldown not a number", func(m map[string]string) { m["COOLDOWN_MINUTES"] = "five" }, "COOLDOWN_MINUTES"},
		{"max length too small", func(m map[string]string) { m["MAX_LENGTH"] = "9" }, "MAX_LENGTH"},
		{"max length too large", func(m map[string]string) { m["MAX_LENGTH"] = "2001" }, "MAX_LENGTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			tt.change(env)

			_, err := configFromEnv(envOf(env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
