package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/acksell/foosball/auth"
	"github.com/acksell/foosball/cache"
	"github.com/acksell/foosball/dynamodb/ddbsdk"
	"github.com/acksell/foosball/dynamodb/ddbstore"
	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/acksell/foosball/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
)

// app holds the components shared by every command.
type app struct {
	cfg    Config
	log    zerolog.Logger
	tables table.Tables
	store  kv.Store

	closers []func() error
}

func newLogger(cfg LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log.level: %w", err)
	}
	var l zerolog.Logger
	if cfg.Pretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		l = zerolog.New(os.Stdout)
	}
	return l.Level(level).With().Timestamp().Logger(), nil
}

func newApp(ctx context.Context, cfg Config, log zerolog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		log:    log,
		tables: table.ForDeployment(cfg.Deployment),
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	c, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = kv.Cached(store, c, kv.WithCacheLogger(log.With().Str("component", "cache").Logger()))
	return a, nil
}

func (a *app) openStore(ctx context.Context) (kv.Store, error) {
	log := a.log.With().Str("component", "store").Logger()
	switch a.cfg.Store.Backend {
	case "badger":
		s, err := ddbstore.New(ddbstore.StoreOptions{
			Path:     a.cfg.Store.DataDir,
			InMemory: a.cfg.Store.DataDir == "",
			Logger:   ddbstore.NewLogger(log),
		}, a.tables.All()...)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		log.Info().Str("dir", a.cfg.Store.DataDir).Msg("using badger store")
		return s, nil

	case "dynamodb":
		var opts []func(*awsconfig.LoadOptions) error
		if a.cfg.Store.Region != "" {
			opts = append(opts, awsconfig.WithRegion(a.cfg.Store.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if a.cfg.Store.Endpoint != "" {
				o.BaseEndpoint = aws.String(a.cfg.Store.Endpoint)
			}
		})
		clientOpts := []ddbsdk.Option{ddbsdk.WithLogger(log)}
		if a.cfg.Store.EventuallyConsistent {
			clientOpts = append(clientOpts, ddbsdk.WithEventualConsistency())
		}
		log.Info().Str("region", awsCfg.Region).Str("endpoint", a.cfg.Store.Endpoint).Msg("using dynamodb store")
		return ddbsdk.New(client, clientOpts...), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
}

// openCache returns nil when caching is off.
func (a *app) openCache(ctx context.Context) (kv.Cache, error) {
	switch a.cfg.Cache.Kind {
	case "local":
		c, err := cache.NewLocal(cache.LocalConfig{TTL: a.cfg.Cache.TTL, MaxItems: a.cfg.Cache.MaxItems})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			c.Close()
			return nil
		})
		return c, nil
	case "redis":
		cfg := cache.DefaultRedisConfig()
		cfg.URL = a.cfg.Cache.RedisURL
		cfg.TTL = a.cfg.Cache.TTL
		cfg.Prefix = "foosball:" + a.cfg.Deployment + ":"
		c, err := cache.NewRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	}
	return nil, nil
}

func (a *app) models() *model.Models {
	return model.New(a.store, a.tables, model.WithLogger(a.log.With().Str("component", "model").Logger()))
}

func (a *app) auth() *auth.Service {
	return auth.New(a.store, a.tables.Models, auth.Config{TokenTTL: a.cfg.Auth.TokenTTL},
		auth.WithLogger(a.log.With().Str("component", "auth").Logger()))
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
