package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"muuzah/internal/engine"
)

type rawConfig struct {
	Server *struct {
		Address string `json:"address"`
	} `json:"server"`
	Database *struct {
		Path string `json:"path"`
	} `json:"database"`
	Log *struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
	// Match rules. Omitted fields keep the default rules.
	Rules *struct {
		GridSize *int `json:"grid_size"`
		Tokens   *int `json:"tokens"`
		Bombs    *int `json:"bombs"`
		Lives    *int `json:"lives"`
	} `json:"rules"`
	Leaderboard *struct {
		Limit int `json:"limit"`
	} `json:"leaderboard"`
}

// LoadedConfig is the validated server configuration.
type LoadedConfig struct {
	ServerAddress    string
	DatabasePath     string
	LogLevel         string
	LogFormat        string
	Rules            engine.MatchConfig
	LeaderboardLimit int
}

// Default returns the configuration used when no file is given.
func Default() *LoadedConfig {
	return &LoadedConfig{
		ServerAddress:    ":8080",
		DatabasePath:     "./data/muuzah.db",
		LogLevel:         "info",
		LogFormat:        "text",
		Rules:            engine.DefaultConfig(),
		LeaderboardLimit: 10,
	}
}

// LoadConfig reads the JSON configuration file at path. Keys that are absent
// keep their defaults; an empty path returns the defaults.
func LoadConfig(path string) (*LoadedConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if rc.Server != nil && rc.Server.Address != "" {
		cfg.ServerAddress = rc.Server.Address
	}
	if rc.Database != nil && rc.Database.Path != "" {
		cfg.DatabasePath = rc.Database.Path
	}
	if rc.Log != nil {
		if rc.Log.Level != "" {
			cfg.LogLevel = strings.ToLower(strings.TrimSpace(rc.Log.Level))
		}
		if rc.Log.Format != "" {
			cfg.LogFormat = strings.ToLower(strings.TrimSpace(rc.Log.Format))
		}
	}
	if r := rc.Rules; r != nil {
		if r.GridSize != nil {
			cfg.Rules.GridSize = *r.GridSize
		}
		if r.Tokens != nil {
			cfg.Rules.RequiredTokens = *r.Tokens
		}
		if r.Bombs != nil {
			cfg.Rules.RequiredBombs = *r.Bombs
		}
		if r.Lives != nil {
			cfg.Rules.StartingLives = *r.Lives
		}
	}
	if rc.Leaderboard != nil && rc.Leaderboard.Limit != 0 {
		cfg.LeaderboardLimit = rc.Leaderboard.Limit
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// MaxGridSize caps rules.grid_size so a full setup stays one modest frame.
const MaxGridSize = 32

// Validate checks every field that has a restricted range.
func (c *LoadedConfig) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if c.Rules.GridSize > MaxGridSize {
		return fmt.Errorf("rules: grid size %d above %d: %w", c.Rules.GridSize, MaxGridSize, engine.ErrInvalidGridSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log.format %q: want text or json", c.LogFormat)
	}
	if c.LeaderboardLimit < 1 || c.LeaderboardLimit > 100 {
		return fmt.Errorf("leaderboard.limit %d: want 1..100", c.LeaderboardLimit)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is empty")
	}
	return nil
}
