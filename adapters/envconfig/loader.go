package envconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-peers/core"
	"github.com/kelseyhightower/envconfig"
)

const DefaultPrefix = "PEERS"

// Environment lists the variables read by Loader. Unset variables stay nil
// so they do not override lower config layers.
type Environment struct {
	ServiceName   *string        `envconfig:"SERVICE_NAME"`
	StorageDriver *string        `envconfig:"STORAGE_DRIVER"`
	StorageDSN    *string        `envconfig:"STORAGE_DSN"`
	CacheEnabled  *bool          `envconfig:"CACHE_ENABLED"`
	CacheTTL      *time.Duration `envconfig:"CACHE_TTL"`
	RedisPrefix   *string        `envconfig:"REDIS_PREFIX"`
}

// Loader implements core.RawConfigLoader over environment variables such as
// PEERS_STORAGE_DRIVER.
type Loader struct {
	Prefix string
}

func NewLoader(prefix string) Loader {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Loader{Prefix: prefix}
}

func (l Loader) Process() (Environment, error) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	var env Environment
	if err := envconfig.Process(prefix, &env); err != nil {
		return Environment{}, fmt.Errorf("envconfig: failed to load config: %w", err)
	}
	return env, nil
}

func (l Loader) LoadRaw(context.Context) (map[string]any, error) {
	env, err := l.Process()
	if err != nil {
		return nil, err
	}
	return env.Raw(), nil
}

// Raw shapes the set variables like core.Config's koanf keys.
func (e Environment) Raw() map[string]any {
	raw := map[string]any{}
	if e.ServiceName != nil {
		raw["service_name"] = *e.ServiceName
	}

	storage := map[string]any{}
	if e.StorageDriver != nil {
		storage["driver"] = *e.StorageDriver
	}
	if e.StorageDSN != nil {
		storage["dsn"] = *e.StorageDSN
	}
	if len(storage) > 0 {
		raw["storage"] = storage
	}

	cache := map[string]any{}
	if e.CacheEnabled != nil {
		cache["enabled"] = *e.CacheEnabled
	}
	if e.CacheTTL != nil {
		cache["ttl"] = *e.CacheTTL
	}
	if len(cache) > 0 {
		raw["cache"] = cache
	}

	if e.RedisPrefix != nil {
		raw["redis"] = map[string]any{"prefix": *e.RedisPrefix}
	}
	return raw
}

// ConfigProvider is a cfgx-backed provider reading from the environment.
func ConfigProvider(prefix string) *core.CfgxConfigProvider {
	return core.NewCfgxConfigProvider(NewLoader(prefix))
}

var _ core.RawConfigLoader = Loader{}
