// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment. The cmd
// mains load a .env file first, so either source works.
type Config struct {
	Port            string
	DefaultRoomID   string
	DefaultHandSize int
	IncludeWilds    bool
	AllowedOrigins  []string
	SendQueueSize   int

	LogLevel string
	LogFile  string // empty logs to stdout only

	RedisAddr string // empty disables the action log
	RedisDB   int
	QueueName string

	DatabaseURL          string
	HistorianBatchSize   int
	HistorianFlushDelay  time.Duration
	RoomInactivityPeriod time.Duration
}

// Load reads the configuration. Unset variables take their defaults; set but
// malformed ones are an error.
func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DefaultRoomID: getEnv("DEFAULT_ROOM_ID", "lobby"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		QueueName:     getEnv("HISTORIAN_QUEUE_NAME", "uno_actions"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
	}

	var err error
	if cfg.DefaultHandSize, err = getEnvInt("DEFAULT_HAND_SIZE", 7); err != nil {
		return Config{}, err
	}
	if cfg.DefaultHandSize < 1 {
		return Config{}, fmt.Errorf("config: DEFAULT_HAND_SIZE must be at least 1, got %d", cfg.DefaultHandSize)
	}
	if cfg.IncludeWilds, err = getEnvBool("INCLUDE_WILD_CARDS", false); err != nil {
		return Config{}, err
	}
	if cfg.SendQueueSize, err = getEnvInt("SEND_QUEUE_SIZE", 256); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.HistorianBatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		return Config{}, err
	}
	flushMs, err := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	if err != nil {
		return Config{}, err
	}
	cfg.HistorianFlushDelay = time.Duration(flushMs) * time.Millisecond
	inactivitySec, err := getEnvInt("ROOM_INACTIVITY_TIMEOUT_SEC", 600)
	if err != nil {
		return Config{}, err
	}
	cfg.RoomInactivityPeriod = time.Duration(inactivitySec) * time.Second

	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", key, s, err)
	}
	return v, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q: %w", key, s, err)
	}
	return v, nil
}
