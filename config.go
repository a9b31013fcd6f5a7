package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// EvalConfig bounds the owner console interpreter.
type EvalConfig struct {
	MaxDepth    int
	MaxValueLen int
	MaxDuration time.Duration
	PanicOK     bool
}

// Config is read once at process start and never mutated afterwards.
type Config struct {
	Token          string
	OwnerID        string // user allowed to use the console
	OwnerChannelID string // where internal faults and login notices go
	Color          int    // accent color for embeds
	DBPath         string

	SelectionTimeout time.Duration
	Eval             EvalConfig
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Token:          os.Getenv("DISCORD_BOT_TOKEN"),
		OwnerID:        os.Getenv("BOT_OWNER"),
		OwnerChannelID: os.Getenv("OWNER_CHANNEL_ID"),
		DBPath:         os.Getenv("DB_PATH"),
	}
	if cfg.Token == "" {
		return cfg, errors.New("DISCORD_BOT_TOKEN must be set")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "cherub.db"
	}
	if c := os.Getenv("BOT_COLOR"); c != "" {
		color, err := strconv.Atoi(c)
		if err != nil {
			return cfg, fmt.Errorf("invalid BOT_COLOR %q: %w", c, err)
		}
		cfg.Color = color
	}
	return cfg, nil
}

func timestampStr(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
