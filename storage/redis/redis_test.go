package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ggoodman/mcp-stdio-go/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s, err := New(Config{Client: client})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSetAndGet(t *testing.T) {
	s, mr := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("value")))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"default:k"))

	item, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "value", string(item.Data))
	assert.Nil(t, item.ExpiresAt)
}

func TestGetNonExistent(t *testing.T) {
	s, _ := newStorage(t)
	item, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestTTL(t *testing.T) {
	s, mr := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), storage.WithTTL(time.Minute)))
	assert.Equal(t, time.Minute, mr.TTL(DefaultKeyPrefix+"default:k"))

	item, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, item)
	require.NotNil(t, item.ExpiresAt)

	mr.FastForward(2 * time.Minute)
	item, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestNamespaces(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("a"), storage.WithNamespace("alpha")))
	require.NoError(t, s.Set(ctx, "k", []byte("b"), storage.WithNamespace("beta")))

	a, err := s.Get(ctx, "k", storage.WithNamespace("alpha"))
	require.NoError(t, err)
	b, err := s.Get(ctx, "k", storage.WithNamespace("beta"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(a.Data))
	assert.Equal(t, "b", string(b.Data))

	d, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDelete(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), storage.WithNamespace("ns")))
	deleted, err := s.Delete(ctx, "k", storage.WithNamespace("ns"))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "k", storage.WithNamespace("ns"))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestKeys(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c:d"} {
		require.NoError(t, s.Set(ctx, k, []byte("v"), storage.WithNamespace("app")))
	}
	require.NoError(t, s.Set(ctx, "x", []byte("v"), storage.WithNamespace("apple")))
	require.NoError(t, s.Set(ctx, "y", []byte("v"), storage.WithNamespace("a*")))

	keys, err := s.Keys(ctx, storage.WithNamespace("app"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c:d"}, keys)

	keys, err = s.Keys(ctx, storage.WithNamespace("a*"))
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, keys, "glob characters in namespaces must match literally")
}

func TestValidation(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()
	assert.ErrorIs(t, s.Set(ctx, "", nil), storage.ErrInvalidKey)
	assert.ErrorIs(t, s.Set(ctx, "k", nil, storage.WithTTL(-time.Second)), storage.ErrInvalidTTL)
}

func TestClosed(t *testing.T) {
	s, _ := newStorage(t)
	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	s, err := Dial(context.Background(), addr, 0, "test:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	assert.True(t, mr.Exists("test:default:k"))

	mr.Close()
	_, err = Dial(context.Background(), addr, 0, "")
	assert.Error(t, err)
}
