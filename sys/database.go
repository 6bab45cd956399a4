package sys

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

// --- Connection & Lifecycle ---

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// Explicitly reference sqlite3 driver to avoid blank identifier
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS confession_posts (
			anonymous_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			posted_at DATETIME NOT NULL
		)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Bot State ---

// GetBotConfig returns "" when the key has never been set.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Confession Post Receipts ---

type ConfessionPost struct {
	AnonymousID string
	ChannelID   snowflake.ID
	MessageID   snowflake.ID
	PostedAt    time.Time
}

func SaveConfessionPost(ctx context.Context, p *ConfessionPost) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO confession_posts (anonymous_id, channel_id, message_id, posted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(anonymous_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			message_id = excluded.message_id,
			posted_at = excluded.posted_at
	`, p.AnonymousID, p.ChannelID.String(), p.MessageID.String(), p.PostedAt.UTC())
	return err
}

// GetConfessionPost returns nil when the confession was never posted.
func GetConfessionPost(ctx context.Context, anonymousID string) (*ConfessionPost, error) {
	p := &ConfessionPost{}
	var cid, mid string
	err := DB.QueryRowContext(ctx, `
		SELECT anonymous_id, channel_id, message_id, posted_at
		FROM confession_posts WHERE anonymous_id = ?
	`, anonymousID).Scan(&p.AnonymousID, &cid, &mid, &p.PostedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ChannelID, _ = snowflake.Parse(cid)
	p.MessageID, _ = snowflake.Parse(mid)
	return p, nil
}

func GetConfessionPostsCount(ctx context.Context) (int, error) {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM confession_posts").Scan(&count)
	return count, err
}
