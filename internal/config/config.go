// Package config loads the immutable game configuration consumed at
// startup.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PlayerConfig describes one participant.
type PlayerConfig struct {
	Name  string `mapstructure:"name"`
	Human bool   `mapstructure:"human"`
}

// GameConfig holds the board dimensions and every timing knob.
type GameConfig struct {
	Rows          int           `mapstructure:"rows"`
	Columns       int           `mapstructure:"columns"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"`
	WarnThreshold time.Duration `mapstructure:"warn_threshold"`
	PointFreeze   time.Duration `mapstructure:"point_freeze"`
	PenaltyFreeze time.Duration `mapstructure:"penalty_freeze"`
	Tick          time.Duration `mapstructure:"tick"`
	BotPressDelay time.Duration `mapstructure:"bot_press_delay"`
	// Seed makes shuffles and bot presses deterministic when non-zero.
	Seed int64 `mapstructure:"seed"`
}

// TableSize returns the number of board slots.
func (g GameConfig) TableSize() int { return g.Rows * g.Columns }

// Config is the full configuration tree.
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging"`
	Game    GameConfig     `mapstructure:"game"`
	Players []PlayerConfig `mapstructure:"players"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.rows", 3)
	v.SetDefault("game.columns", 4)
	v.SetDefault("game.turn_timeout", "60s")
	v.SetDefault("game.warn_threshold", "10s")
	v.SetDefault("game.point_freeze", "1s")
	v.SetDefault("game.penalty_freeze", "3s")
	v.SetDefault("game.tick", "100ms")
	v.SetDefault("game.bot_press_delay", "10ms")
	v.SetDefault("game.seed", 0)
}

// Load reads the configuration from the given YAML file, filling in
// defaults. An empty path yields the default configuration.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Players) == 0 {
		cfg.Players = []PlayerConfig{
			{Name: "bot-0"},
			{Name: "bot-1"},
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Game.Rows < 1 || c.Game.Columns < 1 {
		return fmt.Errorf("board must have at least one slot, got %dx%d", c.Game.Rows, c.Game.Columns)
	}
	if c.Game.TableSize() < 3 {
		return fmt.Errorf("board of %d slots cannot hold a set", c.Game.TableSize())
	}
	if c.Game.TurnTimeout <= 0 {
		return fmt.Errorf("turn_timeout must be positive, got %s", c.Game.TurnTimeout)
	}
	if c.Game.WarnThreshold < 0 || c.Game.WarnThreshold > c.Game.TurnTimeout {
		return fmt.Errorf("warn_threshold %s must be within the turn timeout %s", c.Game.WarnThreshold, c.Game.TurnTimeout)
	}
	if c.Game.PointFreeze < 0 || c.Game.PenaltyFreeze < 0 {
		return fmt.Errorf("freeze durations must not be negative")
	}
	if c.Game.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Game.Tick)
	}
	if c.Game.BotPressDelay < 0 {
		return fmt.Errorf("bot_press_delay must not be negative")
	}
	if len(c.Players) == 0 {
		return fmt.Errorf("at least one player is required")
	}
	for i, p := range c.Players {
		if p.Name == "" {
			return fmt.Errorf("player %d has no name", i)
		}
	}
	return nil
}
