package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/acksell/foosball/api"
	"github.com/acksell/foosball/cache"
	"gopkg.in/yaml.v3"
)

const configFilename = "foosball.yaml"

type Config struct {
	// Deployment prefixes the table names.
	Deployment string      `yaml:"deployment"`
	Store      StoreConfig `yaml:"store"`
	Cache      CacheConfig `yaml:"cache"`
	HTTP       HTTPConfig  `yaml:"http"`
	Auth       AuthConfig  `yaml:"auth"`
	Log        LogConfig   `yaml:"log"`
}

type StoreConfig struct {
	// Backend is "dynamodb" or "badger".
	Backend string `yaml:"backend"`
	// DataDir holds the badger files. Empty keeps everything in memory.
	DataDir              string `yaml:"dataDir"`
	Region               string `yaml:"region"`
	Endpoint             string `yaml:"endpoint"`
	EventuallyConsistent bool   `yaml:"eventuallyConsistent"`
}

type CacheConfig struct {
	// Kind is "none", "local" or "redis".
	Kind     string        `yaml:"kind"`
	TTL      time.Duration `yaml:"ttl"`
	MaxItems int64         `yaml:"maxItems"`
	RedisURL string        `yaml:"redisURL"`
}

type HTTPConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// Timezone decides where midnight is for stats_days.
	Timezone string `yaml:"timezone"`
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func DefaultConfig() Config {
	return Config{
		Deployment: "dev",
		Store: StoreConfig{
			Backend: "badger",
		},
		Cache: CacheConfig{
			Kind:     "none",
			TTL:      cache.DefaultLocalConfig().TTL,
			MaxItems: cache.DefaultLocalConfig().MaxItems,
			RedisURL: cache.DefaultRedisConfig().URL,
		},
		HTTP: HTTPConfig{
			Port:           api.DefaultServerConfig().Port,
			AllowedOrigins: api.DefaultAllowedOrigins,
			Timezone:       "Local",
		},
		Auth: AuthConfig{
			TokenTTL: 365 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads path, or the nearest foosball.yaml above the working
// directory when path is empty, over the defaults and applies FOOSBALL_*
// environment overrides.
func LoadConfig(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// findConfigFile walks up from the working directory. Empty when none exists.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, configFilename)
		if _, err := os.Stat(path); err == nil {
			return path
		} else if !errors.Is(err, fs.ErrNotExist) {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookupEnv("FOOSBALL_" + name); ok {
			*dst = v
		}
	}
	var errs []error
	parse := func(name string, fn func(string) error) {
		if v, ok := lookupEnv("FOOSBALL_" + name); ok {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("FOOSBALL_%s: %w", name, err))
			}
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) (err error) {
			*dst, err = time.ParseDuration(v)
			return err
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) (err error) {
			*dst, err = strconv.ParseBool(v)
			return err
		}
	}

	str("DEPLOYMENT", &cfg.Deployment)
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("DATA_DIR", &cfg.Store.DataDir)
	str("AWS_REGION", &cfg.Store.Region)
	str("DYNAMODB_ENDPOINT", &cfg.Store.Endpoint)
	parse("EVENTUALLY_CONSISTENT", boolean(&cfg.Store.EventuallyConsistent))
	str("CACHE", &cfg.Cache.Kind)
	parse("CACHE_TTL", duration(&cfg.Cache.TTL))
	parse("CACHE_MAX_ITEMS", func(v string) (err error) {
		cfg.Cache.MaxItems, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	str("REDIS_URL", &cfg.Cache.RedisURL)
	str("HOST", &cfg.HTTP.Host)
	parse("PORT", func(v string) (err error) {
		cfg.HTTP.Port, err = strconv.Atoi(v)
		return err
	})
	parse("ALLOWED_ORIGINS", func(v string) error {
		cfg.HTTP.AllowedOrigins = strings.Split(v, ",")
		return nil
	})
	str("TIMEZONE", &cfg.HTTP.Timezone)
	parse("TOKEN_TTL", duration(&cfg.Auth.TokenTTL))
	str("LOG_LEVEL", &cfg.Log.Level)
	parse("LOG_PRETTY", boolean(&cfg.Log.Pretty))

	return errors.Join(errs...)
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "dynamodb", "badger":
	default:
		return fmt.Errorf("store.backend must be dynamodb or badger, got %q", c.Store.Backend)
	}
	switch c.Cache.Kind {
	case "none", "local", "redis":
	default:
		return fmt.Errorf("cache.kind must be none, local or redis, got %q", c.Cache.Kind)
	}
	if c.Cache.Kind != "none" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if _, err := time.LoadLocation(c.HTTP.Timezone); err != nil {
		return fmt.Errorf("http.timezone: %w", err)
	}
	return nil
}
