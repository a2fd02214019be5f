package main

import (
	"log/slog"

	"github.com/aretw0/restx"
	"github.com/aretw0/restx/internal/config"
	"github.com/aretw0/restx/pkg/adapters/redis"
	"github.com/aretw0/restx/pkg/metrics"
	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/signature"
)

// newMainRouter wires the configuration into a MainRouter.
// The returned close function releases the Redis client, if any.
func newMainRouter(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*restx.MainRouter, func() error, error) {
	mode, err := registry.ParseLoadMode(cfg.LoadMode)
	if err != nil {
		return nil, nil, err
	}

	opts := []restx.Option{
		restx.WithLoadMode(mode),
		restx.WithBaseURI(cfg.BaseURI),
		restx.WithContextName(cfg.ContextName),
		restx.WithLogger(logger),
		restx.WithMetrics(m),
		restx.WithMaxBufferedBody(cfg.MaxBody),
	}

	closeFn := func() error { return nil }
	switch {
	case cfg.SignatureKey != "":
		opts = append(opts, restx.WithSignatureKey(signature.NewKey([]byte(cfg.SignatureKey))))
	case cfg.RedisAddr != "":
		store := newKeyStore(cfg)
		opts = append(opts, restx.WithMachine(redis.ComponentName, store.Machine()))
		closeFn = store.Close
	}

	mr, err := restx.New(opts...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return mr, closeFn, nil
}

func newKeyStore(cfg config.Config) *redis.KeyStore {
	return redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithKey(cfg.RedisKey))
}
