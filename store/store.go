// Package store persists the one configuration document each guild has: its
// pinboard channel mapping. Documents live in a single sqlite table and are
// fronted by a short-lived advisory cache; writers always re-read and
// re-save, so staleness is bounded by the cache TTL, not by invalidation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"fortio.org/log"
	_ "modernc.org/sqlite"

	"github.com/AstreaTSS/Cherub/expiremap"
)

// GlobalPinboard is the sentinel source key for the guild-wide default
// destination.
const GlobalPinboard = "0"

const (
	cacheTTL      = 10 * time.Second
	cacheCapacity = 5

	lockRetries = 5
	lockBackoff = 100 * time.Millisecond
)

// PinboardConfig maps source channel ids (or GlobalPinboard) to destination
// channel ids for one guild.
type PinboardConfig struct {
	GuildID   string
	Pinboards map[string]string
}

type Store struct {
	db    *sql.DB
	cache *expiremap.Map[string, *PinboardConfig]
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer keeps the locked-database retries rare.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pinboard_configs (
		guild_id TEXT PRIMARY KEY,
		pinboards TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating pinboard table: %w", err)
	}
	return &Store{
		db:    db,
		cache: expiremap.New[string, *PinboardConfig](cacheCapacity, cacheTTL),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Fetch returns the guild's config, creating an empty document on first
// access. The returned value is the caller's own copy.
func (s *Store) Fetch(ctx context.Context, guildID string) (*PinboardConfig, error) {
	if cfg, found := s.cache.Get(guildID); found {
		return cfg.clone(), nil
	}
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT pinboards FROM pinboard_configs WHERE guild_id = ?", guildID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cfg := &PinboardConfig{GuildID: guildID, Pinboards: map[string]string{}}
		if err := s.write(ctx, cfg); err != nil {
			return nil, err
		}
		log.S(log.Verbose, "created empty guild config", log.Any("guild", guildID))
		return cfg, nil
	case err != nil:
		return nil, err
	}
	cfg := &PinboardConfig{GuildID: guildID, Pinboards: map[string]string{}}
	if err := json.Unmarshal([]byte(raw), &cfg.Pinboards); err != nil {
		return nil, fmt.Errorf("corrupt config for guild %s: %w", guildID, err)
	}
	s.cache.Put(guildID, cfg.clone())
	return cfg, nil
}

// Save rewrites the guild's document. Last write wins; there is no
// cross-process coordination beyond sqlite's per-row atomicity.
func (s *Store) Save(ctx context.Context, cfg *PinboardConfig) error {
	return s.write(ctx, cfg)
}

func (s *Store) write(ctx context.Context, cfg *PinboardConfig) error {
	raw, err := json.Marshal(cfg.Pinboards)
	if err != nil {
		return err
	}
	var lastErr error
	for range lockRetries {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO pinboard_configs (guild_id, pinboards) VALUES (?, ?)",
			cfg.GuildID, string(raw))
		if err == nil {
			s.cache.Put(cfg.GuildID, cfg.clone())
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(lockBackoff)
	}
	return lastErr
}

func (c *PinboardConfig) clone() *PinboardConfig {
	return &PinboardConfig{
		GuildID:   c.GuildID,
		Pinboards: maps.Clone(c.Pinboards),
	}
}

// Destination resolves where pins from sourceChannel go: the per-channel
// entry if set, else the guild-wide default, else "".
func (c *PinboardConfig) Destination(sourceChannel string) string {
	if dest, ok := c.Pinboards[sourceChannel]; ok {
		return dest
	}
	return c.Pinboards[GlobalPinboard]
}
