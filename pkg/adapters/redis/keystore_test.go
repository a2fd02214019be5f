package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/restx/pkg/adapters/redis"
	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/signature"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.KeyStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestKeyStore_PublishLoad(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, redis.ErrKeyNotFound)

	require.NoError(t, store.Publish(ctx, signature.NewKey([]byte("shared secret"))))

	key, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shared secret", string(key.Bytes()))
}

func TestKeyStore_PublishEmpty(t *testing.T) {
	_, store := setup(t)
	assert.ErrorIs(t, store.Publish(context.Background(), signature.Key{}), signature.ErrEmptyKey)
}

func TestKeyStore_CustomKey(t *testing.T) {
	mr, store := setup(t, redis.WithKey("custom:key"))
	require.NoError(t, store.Publish(context.Background(), signature.NewKey([]byte("k"))))
	assert.True(t, mr.Exists("custom:key"))
}

func TestKeyStore_Generate(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()

	first, err := store.Generate(ctx, 32, true)
	require.NoError(t, err)
	assert.Len(t, first.Bytes(), 32)

	kept, err := store.Generate(ctx, 32, true)
	require.NoError(t, err)
	assert.Equal(t, first.Bytes(), kept.Bytes())

	rotated, err := store.Generate(ctx, 32, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Bytes(), rotated.Bytes())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.Bytes(), loaded.Bytes())
}

func TestKeyStore_Machine(t *testing.T) {
	mr, store := setup(t)
	ctx := context.Background()

	_, err := registry.NewBuilder().AddMachine("redis", store.Machine()).Build(ctx)
	var be *registry.BuildError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, redis.ErrKeyNotFound)

	require.NoError(t, store.Publish(ctx, signature.NewKey([]byte("from redis"))))
	reg, err := registry.NewBuilder().AddMachine("redis", store.Machine()).Build(ctx)
	require.NoError(t, err)

	keys := registry.Components[signature.Key](reg)
	require.Len(t, keys, 1)
	assert.Equal(t, "from redis", string(keys[0].Bytes()))

	mr.Close()
	_, err = registry.NewBuilder().AddMachine("redis", store.Machine()).Build(ctx)
	assert.Error(t, err)
}
