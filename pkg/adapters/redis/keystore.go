package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/signature"
	backend "github.com/redis/go-redis/v9"
)

// ComponentName is the registry name of the key provided by KeyStore.Machine.
const ComponentName = "restx.signature-key.redis"

// ErrKeyNotFound is returned when no signature key has been published.
var ErrKeyNotFound = errors.New("signature key not found in redis")

// KeyStore shares the session signature key between replicas through Redis.
// The key is stored base64 encoded under a single Redis key.
type KeyStore struct {
	client *backend.Client
	key    string
}

// Option configures a KeyStore.
type Option func(*KeyStore)

// WithKey sets the Redis key holding the signature key.
func WithKey(key string) Option {
	return func(s *KeyStore) {
		s.key = key
	}
}

// New creates a KeyStore with its own client.
func New(address, password string, db int, opts ...Option) *KeyStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a KeyStore from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *KeyStore {
	s := &KeyStore{
		client: client,
		key:    "restx:signature-key",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the published key.
func (s *KeyStore) Load(ctx context.Context) (signature.Key, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return signature.Key{}, ErrKeyNotFound
		}
		return signature.Key{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return signature.Key{}, fmt.Errorf("failed to decode signature key: %w", err)
	}
	if len(raw) == 0 {
		return signature.Key{}, ErrKeyNotFound
	}
	return signature.NewKey(raw), nil
}

// Publish stores key, replacing any previous one.
func (s *KeyStore) Publish(ctx context.Context, key signature.Key) error {
	if key.IsZero() {
		return signature.ErrEmptyKey
	}
	val := base64.StdEncoding.EncodeToString(key.Bytes())
	if err := s.client.Set(ctx, s.key, val, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Generate publishes a new random key of size bytes.
// When onlyIfAbsent is set an existing key is kept and returned instead.
func (s *KeyStore) Generate(ctx context.Context, size int, onlyIfAbsent bool) (signature.Key, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return signature.Key{}, fmt.Errorf("failed to generate key: %w", err)
	}
	key := signature.NewKey(buf)

	if !onlyIfAbsent {
		return key, s.Publish(ctx, key)
	}

	val := base64.StdEncoding.EncodeToString(buf)
	set, err := s.client.SetNX(ctx, s.key, val, 0).Result()
	if err != nil {
		return signature.Key{}, fmt.Errorf("failed to save to redis: %w", err)
	}
	if !set {
		return s.Load(ctx)
	}
	return key, nil
}

// Machine provides the published key as a registry component.
// A missing key or an unreachable Redis fails the registry build.
func (s *KeyStore) Machine() registry.Machine {
	return registry.MachineFunc(func(ctx context.Context) ([]registry.Component, error) {
		key, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		return []registry.Component{{Name: ComponentName, Value: key}}, nil
	})
}

// Close closes the redis client.
func (s *KeyStore) Close() error {
	return s.client.Close()
}
