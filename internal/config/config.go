package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "REACTIONDUEL_"
	envConfig  = "REACTIONDUEL_CONFIG"
	defaultTTL = 30
)

type Config struct {
	Port          string `koanf:"port"`
	DatabaseURL   string `koanf:"database_url"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`
	RedisAddr     string `koanf:"redis_addr"`
	LogLevel      string `koanf:"log_level"`

	MaxRounds         int `koanf:"max_rounds"`
	CountdownFrom     int `koanf:"countdown_from"`
	CountdownTickMS   int `koanf:"countdown_tick_ms"`
	ScoreCutoffMS     int `koanf:"score_cutoff_ms"`
	HighscoreSamples  int `koanf:"highscore_samples"`
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// AllowedOrigins is a comma-separated list of websocket origin patterns.
	AllowedOrigins string `koanf:"allowed_origins"`
}

func defaults() Config {
	return Config{
		Port:              "8080",
		MongoDatabase:     "reactionduel",
		LogLevel:          "info",
		MaxRounds:         10,
		CountdownFrom:     3,
		CountdownTickMS:   1000,
		ScoreCutoffMS:     30000,
		HighscoreSamples:  10,
		SessionTTLMinutes: defaultTTL,
	}
}

// Load layers defaults, the YAML file named by REACTIONDUEL_CONFIG, and
// REACTIONDUEL_* environment variables. The bare PORT, DATABASE_URL,
// MONGO_URI and REDIS_ADDR variables are honored when the prefixed ones are
// unset.
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("loading env: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	for key, target := range map[string]*string{
		"port":         &cfg.Port,
		"database_url": &cfg.DatabaseURL,
		"mongo_uri":    &cfg.MongoURI,
		"redis_addr":   &cfg.RedisAddr,
	} {
		if k.Exists(key) {
			continue
		}
		*target = getEnv(strings.ToUpper(key), *target)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds))
	}
	if c.CountdownFrom < 0 {
		errs = append(errs, fmt.Errorf("countdown_from must not be negative, got %d", c.CountdownFrom))
	}
	if c.CountdownTickMS <= 0 {
		errs = append(errs, fmt.Errorf("countdown_tick_ms must be positive, got %d", c.CountdownTickMS))
	}
	if c.ScoreCutoffMS <= 0 {
		errs = append(errs, fmt.Errorf("score_cutoff_ms must be positive, got %d", c.ScoreCutoffMS))
	}
	if c.HighscoreSamples <= 0 {
		errs = append(errs, fmt.Errorf("highscore_samples must be positive, got %d", c.HighscoreSamples))
	}
	return errors.Join(errs...)
}

func (c Config) CountdownTick() time.Duration {
	return time.Duration(c.CountdownTickMS) * time.Millisecond
}

// SessionTTL is how long finished sessions stay in memory.
func (c Config) SessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return defaultTTL * time.Minute
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level maps LogLevel onto slog, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
