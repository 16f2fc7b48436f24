package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configName = "squadron"

// SimConfig holds the static tuning of the simulation.
// Speeds are in pixels per second, cooldowns in seconds.
// TurnRate is applied once per tick regardless of the delta.
type SimConfig struct {
	WorldWidth         float64 `mapstructure:"worldWidth"`
	WorldHeight        float64 `mapstructure:"worldHeight"`
	SafeAreaWidth      float64 `mapstructure:"safeAreaWidth"`
	ShipRadius         float64 `mapstructure:"shipRadius"`
	ProjectileRadius   float64 `mapstructure:"projectileRadius"`
	PlayerShipSpeed    float64 `mapstructure:"playerShipSpeed"`
	EnemyShipSpeed     float64 `mapstructure:"enemyShipSpeed"`
	ProjectileSpeed    float64 `mapstructure:"projectileSpeed"`
	TurnRate           float64 `mapstructure:"turnRate"`
	PlayerFireCooldown float64 `mapstructure:"playerFireCooldown"`
	EnemyFireCooldown  float64 `mapstructure:"enemyFireCooldown"`
	EnemySpawnCooldown float64 `mapstructure:"enemySpawnCooldown"`
	StartLives         int     `mapstructure:"startLives"`
	SpawnX             float64 `mapstructure:"spawnX"`
	SpawnY             float64 `mapstructure:"spawnY"`
}

// DefaultSimConfig returns the stock tuning
func DefaultSimConfig() SimConfig {
	return SimConfig{
		WorldWidth:         1600,
		WorldHeight:        1000,
		SafeAreaWidth:      800,
		ShipRadius:         20,
		ProjectileRadius:   2,
		PlayerShipSpeed:    150,
		EnemyShipSpeed:     50,
		ProjectileSpeed:    400,
		TurnRate:           0.1,
		PlayerFireCooldown: 1,
		EnemyFireCooldown:  2,
		EnemySpawnCooldown: 15,
		StartLives:         3,
		SpawnX:             100,
		SpawnY:             100,
	}
}

// SpawnPoint is where newly joined ships appear
func (c SimConfig) SpawnPoint() Point2D {
	return Point2D{X: c.SpawnX, Y: c.SpawnY}
}

// OutOfBounds reports whether p lies outside the world rectangle
func (c SimConfig) OutOfBounds(p Point2D) bool {
	return p.X < 0 || p.X > c.WorldWidth || p.Y < 0 || p.Y > c.WorldHeight
}

// Validate rejects tunings the tick engine cannot run with
func (c SimConfig) Validate() error {
	switch {
	case c.WorldWidth <= 0 || c.WorldHeight <= 0:
		return fmt.Errorf("world size must be positive, got %vx%v", c.WorldWidth, c.WorldHeight)
	case c.PlayerFireCooldown <= 0 || c.EnemyFireCooldown <= 0 || c.EnemySpawnCooldown <= 0:
		return errors.New("cooldown periods must be positive")
	case c.StartLives <= 0:
		return fmt.Errorf("startLives must be positive, got %d", c.StartLives)
	case c.TurnRate <= 0:
		return fmt.Errorf("turnRate must be positive, got %v", c.TurnRate)
	}
	return nil
}

// Config is the full server configuration
type Config struct {
	Addr          string    `mapstructure:"addr"`
	ClientDir     string    `mapstructure:"clientDir"`
	PublicURL     string    `mapstructure:"publicURL"`
	DBPath        string    `mapstructure:"dbPath"`
	LogLevel      string    `mapstructure:"logLevel"`
	LogPretty     bool      `mapstructure:"logPretty"`
	TickRate      int       `mapstructure:"tickRate"`
	BroadcastRate int       `mapstructure:"broadcastRate"`
	Seed          int64     `mapstructure:"seed"`
	Sim           SimConfig `mapstructure:"sim"`
}

// NewFlagSet declares the command line overrides
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config-dir", ".", "directory containing squadron.json")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("client", "../client", "path to client directory")
	fs.String("db", "squadron.db", "SQLite database path, empty to disable")
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	fs.Bool("log-pretty", false, "human readable console logs")
	fs.Int64("seed", 0, "simulation seed, 0 picks one per session")
	return fs
}

var flagKeys = map[string]string{
	"addr":       "addr",
	"client":     "clientDir",
	"db":         "dbPath",
	"log-level":  "logLevel",
	"log-pretty": "logPretty",
	"seed":       "seed",
}

// LoadConfig reads squadron.json from configDir if present, then applies
// SQUADRON_* environment variables and any flags that were set.
func LoadConfig(configDir string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	def := DefaultSimConfig()
	v.SetDefault("addr", ":8080")
	v.SetDefault("clientDir", "../client")
	v.SetDefault("publicURL", "http://localhost:8080")
	v.SetDefault("dbPath", "squadron.db")
	v.SetDefault("logLevel", "info")
	v.SetDefault("logPretty", false)
	v.SetDefault("tickRate", 60)
	v.SetDefault("broadcastRate", 20)
	v.SetDefault("seed", 0)

	v.SetDefault("sim.worldWidth", def.WorldWidth)
	v.SetDefault("sim.worldHeight", def.WorldHeight)
	v.SetDefault("sim.safeAreaWidth", def.SafeAreaWidth)
	v.SetDefault("sim.shipRadius", def.ShipRadius)
	v.SetDefault("sim.projectileRadius", def.ProjectileRadius)
	v.SetDefault("sim.playerShipSpeed", def.PlayerShipSpeed)
	v.SetDefault("sim.enemyShipSpeed", def.EnemyShipSpeed)
	v.SetDefault("sim.projectileSpeed", def.ProjectileSpeed)
	v.SetDefault("sim.turnRate", def.TurnRate)
	v.SetDefault("sim.playerFireCooldown", def.PlayerFireCooldown)
	v.SetDefault("sim.enemyFireCooldown", def.EnemyFireCooldown)
	v.SetDefault("sim.enemySpawnCooldown", def.EnemySpawnCooldown)
	v.SetDefault("sim.startLives", def.StartLives)
	v.SetDefault("sim.spawnX", def.SpawnX)
	v.SetDefault("sim.spawnY", def.SpawnY)

	v.SetConfigName(configName)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SQUADRON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.TickRate <= 0 {
		return Config{}, fmt.Errorf("tickRate must be positive, got %d", cfg.TickRate)
	}
	if cfg.BroadcastRate <= 0 || cfg.BroadcastRate > cfg.TickRate {
		cfg.BroadcastRate = cfg.TickRate
	}
	if err := cfg.Sim.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
