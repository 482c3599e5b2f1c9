package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Storage   *StorageConfig   `mapstructure:"storage"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Cache     *CacheConfig     `mapstructure:"cache"`
	Broadcast *BroadcastConfig `mapstructure:"broadcast"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	PublicURL          string   `mapstructure:"public_url"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Backend   string                   `mapstructure:"backend"`
	Namespace string                   `mapstructure:"namespace"`
	TTLs      map[string]time.Duration `mapstructure:"ttls"`
}

type BroadcastConfig struct {
	SendTimeout       time.Duration `mapstructure:"send_timeout"`
	BufferSize        int           `mapstructure:"buffer_size"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	StreamTimeout     time.Duration `mapstructure:"stream_timeout"`
}

func Load(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return unmarshal(v)
}

// Watch reloads the file on every change and hands the new config to onChange.
// It returns after the first read; reloads happen on viper's watcher goroutine.
func Watch(path string, onChange func(conf *AppConfig, e fsnotify.Event)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		conf, err := unmarshal(v)
		if err != nil {
			return
		}
		onChange(conf, e)
	})
	v.WatchConfig()

	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("gin.mode", "release")
	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.namespace", "eventhub")
	v.SetDefault("broadcast.send_timeout", 2*time.Second)
	v.SetDefault("broadcast.buffer_size", 16)
	v.SetDefault("broadcast.heartbeat_interval", 15*time.Second)
	v.SetDefault("broadcast.stream_timeout", 30*time.Minute)

	return v
}

func unmarshal(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if conf.API == nil || conf.API.Port == "" {
		return nil, fmt.Errorf("api.port is required")
	}
	if conf.Storage.Driver != StorageDriverPostgres && conf.Storage.Driver != StorageDriverMemory {
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
	if conf.Cache.Backend != CacheBackendMemory && conf.Cache.Backend != CacheBackendRedis {
		return nil, fmt.Errorf("unknown cache backend %q", conf.Cache.Backend)
	}

	return conf, nil
}
