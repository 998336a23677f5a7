package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/config"
	"studentdesk/internal/storage"
)

// StartTestServer starts an in-memory NATS server with JetStream enabled.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

// exerciseBackend checks the contract every backend shares.
func exerciseBackend(t *testing.T, backend storage.Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := backend.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, backend.Put(ctx, "student/voice_enabled", []byte(`true`)))
	require.NoError(t, backend.Put(ctx, "student/voice_enabled", []byte(`false`)))
	require.NoError(t, backend.Put(ctx, "tour.step", []byte(`3`)))

	got, err := backend.Get(ctx, "student/voice_enabled")
	require.NoError(t, err)
	assert.JSONEq(t, `false`, string(got))

	got, err = backend.Get(ctx, "tour.step")
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(got))

	store := storage.New(backend)
	require.NoError(t, storage.SetItem(store, "voice_language", "hi").Wait(ctx))
	lang, err := storage.GetItem[string](ctx, store, "voice_language")
	require.NoError(t, err)
	assert.Equal(t, "hi", *lang)
}

func TestMemoryBackend(t *testing.T) {
	t.Parallel()
	exerciseBackend(t, storage.NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs", "prefs.json")
	backend, err := storage.NewFileBackend(path)
	require.NoError(t, err)
	exerciseBackend(t, backend)

	reopened, err := storage.NewFileBackend(path)
	require.NoError(t, err)
	got, err := reopened.Get(context.Background(), "tour.step")
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(got))
}

func TestFileBackendCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	backend, err := storage.NewFileBackend(path)
	require.NoError(t, err)

	_, err = storage.GetItem[bool](context.Background(), storage.New(backend), "voice_enabled")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}

func TestSQLiteBackend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.db")
	backend, err := storage.NewSQLiteBackend(path)
	require.NoError(t, err)
	exerciseBackend(t, backend)
	require.NoError(t, backend.Close())

	reopened, err := storage.NewSQLiteBackend(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "student/voice_enabled")
	require.NoError(t, err)
	assert.JSONEq(t, `false`, string(got))
}

func TestNatsKVBackend(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	backend, err := storage.NewNatsKVBackend(jetstreamContext, "test_prefs")
	require.NoError(t, err)
	exerciseBackend(t, backend)

	// binding again reuses the existing bucket
	again, err := storage.NewNatsKVBackend(jetstreamContext, "test_prefs")
	require.NoError(t, err)
	got, err := again.Get(context.Background(), "tour.step")
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(got))
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	backend, err := storage.NewBackend(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryBackend{}, backend)

	backend, err = storage.NewBackend(config.StorageConfig{Type: "file", Path: filepath.Join(t.TempDir(), "p.json")})
	require.NoError(t, err)
	assert.IsType(t, &storage.FileBackend{}, backend)

	_, err = storage.NewBackend(config.StorageConfig{Type: "redis"})
	assert.Error(t, err)

	_, err = storage.NewBackend(config.StorageConfig{
		Type: "nats",
		NATS: config.NATSConfig{URL: "nats://127.0.0.1:1", Bucket: "b"},
	})
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}
