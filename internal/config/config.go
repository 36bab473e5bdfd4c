// Package config loads the storefront settings from an optional TOML file
// and STOREFRONT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	RemoteMemory   = "memory"
	RemoteMongo    = "mongo"
	RemotePostgres = "postgres"

	LocalMemory = "memory"
	LocalSQLite = "sqlite"
	LocalRedis  = "redis"

	NotifierHub   = "hub"
	NotifierRedis = "redis"
	NotifierKafka = "kafka"
)

type Postgres struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"db_name"`
}

type Config struct {
	HTTPAddr string `toml:"http_addr"`

	RemoteBackend string   `toml:"remote_backend"`
	MongoURI      string   `toml:"mongo_uri"`
	MongoDB       string   `toml:"mongo_db"`
	Postgres      Postgres `toml:"postgres"`

	LocalBackend  string        `toml:"local_backend"`
	SQLitePath    string        `toml:"sqlite_path"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	SnapshotTTL   time.Duration `toml:"-"`

	Notifier     string   `toml:"notifier"`
	KafkaBrokers []string `toml:"kafka_brokers"`

	RemoteTimeout  time.Duration `toml:"-"`
	GuestFavorites bool          `toml:"guest_favorites"`
}

func Default() Config {
	return Config{
		HTTPAddr:      ":8080",
		RemoteBackend: RemoteMemory,
		MongoURI:      "mongodb://localhost:27017",
		MongoDB:       "storefront",
		Postgres: Postgres{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "storefront",
		},
		LocalBackend:   LocalSQLite,
		SQLitePath:     "storefront.db",
		RedisAddr:      "localhost:6379",
		SnapshotTTL:    30 * 24 * time.Hour,
		Notifier:       NotifierHub,
		KafkaBrokers:   []string{"localhost:9092"},
		RemoteTimeout:  10 * time.Second,
		GuestFavorites: true,
	}
}

// Load reads path on top of the defaults, falling back to the defaults when
// the file is missing, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	var raw struct {
		RemoteTimeout string `toml:"remote_timeout"`
		SnapshotTTL   string `toml:"snapshot_ttl"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if cfg.RemoteTimeout, err = parseDuration("remote_timeout", raw.RemoteTimeout, cfg.RemoteTimeout); err != nil {
		return err
	}
	if cfg.SnapshotTTL, err = parseDuration("snapshot_ttl", raw.SnapshotTTL, cfg.SnapshotTTL); err != nil {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getEnv("STOREFRONT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.RemoteBackend = getEnv("STOREFRONT_REMOTE_BACKEND", cfg.RemoteBackend)
	cfg.MongoURI = getEnv("STOREFRONT_MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = getEnv("STOREFRONT_MONGO_DB", cfg.MongoDB)
	cfg.Postgres.Host = getEnv("STOREFRONT_POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.User = getEnv("STOREFRONT_POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("STOREFRONT_POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("STOREFRONT_POSTGRES_DB", cfg.Postgres.DBName)
	cfg.LocalBackend = getEnv("STOREFRONT_LOCAL_BACKEND", cfg.LocalBackend)
	cfg.SQLitePath = getEnv("STOREFRONT_SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisAddr = getEnv("STOREFRONT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("STOREFRONT_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.Notifier = getEnv("STOREFRONT_NOTIFIER", cfg.Notifier)

	if brokers := getEnv("STOREFRONT_KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if v := getEnv("STOREFRONT_POSTGRES_PORT", ""); v != "" {
		if cfg.Postgres.Port, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("STOREFRONT_POSTGRES_PORT: %w", err)
		}
	}
	if cfg.RemoteTimeout, err = getDuration("STOREFRONT_REMOTE_TIMEOUT", cfg.RemoteTimeout); err != nil {
		return err
	}
	if cfg.SnapshotTTL, err = getDuration("STOREFRONT_SNAPSHOT_TTL", cfg.SnapshotTTL); err != nil {
		return err
	}
	if v := getEnv("STOREFRONT_GUEST_FAVORITES", ""); v != "" {
		cfg.GuestFavorites, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOREFRONT_GUEST_FAVORITES: %w", err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch c.RemoteBackend {
	case RemoteMemory, RemoteMongo, RemotePostgres:
	default:
		return fmt.Errorf("unknown remote backend %q", c.RemoteBackend)
	}
	switch c.LocalBackend {
	case LocalMemory, LocalSQLite, LocalRedis:
	default:
		return fmt.Errorf("unknown local backend %q", c.LocalBackend)
	}
	switch c.Notifier {
	case NotifierHub, NotifierRedis, NotifierKafka:
	default:
		return fmt.Errorf("unknown notifier %q", c.Notifier)
	}
	if c.Notifier == NotifierKafka && len(c.KafkaBrokers) == 0 {
		return errors.New("kafka notifier needs at least one broker")
	}
	if c.RemoteTimeout <= 0 {
		return errors.New("remote timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	return parseDuration(key, os.Getenv(key), defaultValue)
}

func parseDuration(name, value string, defaultValue time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
