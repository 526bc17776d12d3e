package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
)

type StorageConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type RedisConfig struct {
	Prefix string `koanf:"prefix" mapstructure:"prefix"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Storage     StorageConfig `koanf:"storage" mapstructure:"storage"`
	Cache       CacheConfig   `koanf:"cache" mapstructure:"cache"`
	Redis       RedisConfig   `koanf:"redis" mapstructure:"redis"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "peers",
		Storage: StorageConfig{
			Driver: StorageDriverMemory,
		},
		Cache: CacheConfig{
			TTL: time.Minute,
		},
		Redis: RedisConfig{
			Prefix: "peers",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", StorageDriverMemory, StorageDriverRedis:
	case StorageDriverSQLite, "sqlite3", StorageDriverPostgres, "postgresql", "pgx":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("core: storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("core: unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("core: cache.ttl must not be negative")
	}
	return nil
}
