package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NatsKVBackend stores values in a JetStream key/value bucket so preferences
// follow the user across devices.
type NatsKVBackend struct {
	conn   *nats.Conn
	bucket string
	kv     nats.KeyValue
	owned  bool
}

// NewNatsKVBackend binds to bucket, creating it when it does not exist yet.
func NewNatsKVBackend(js nats.JetStreamContext, bucket string) (*NatsKVBackend, error) {
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: fmt.Sprintf("Preferences stored in the %s bucket.", bucket),
			History:     1,
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to bind key/value bucket '%s': %v", ErrStorageUnavailable, bucket, err)
	}

	return &NatsKVBackend{bucket: bucket, kv: kv}, nil
}

// DialNatsKV connects to url and binds the bucket. The connection is closed
// together with the backend.
func DialNatsKV(url, bucket string) (*NatsKVBackend, error) {
	conn, err := nats.Connect(url, nats.Name("studentdesk"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", ErrStorageUnavailable, url, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: jetstream unavailable: %v", ErrStorageUnavailable, err)
	}

	backend, err := NewNatsKVBackend(js, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}

	backend.conn = conn
	backend.owned = true
	return backend, nil
}

func (n *NatsKVBackend) Get(_ context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(encodeKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get '%s' from bucket '%s': %w", key, n.bucket, err)
	}
	return entry.Value(), nil
}

func (n *NatsKVBackend) Put(_ context.Context, key string, data []byte) error {
	if _, err := n.kv.Put(encodeKey(key), data); err != nil {
		return fmt.Errorf("failed to put '%s' to bucket '%s': %w", key, n.bucket, err)
	}
	return nil
}

func (n *NatsKVBackend) Close() error {
	if n.owned && n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// encodeKey maps arbitrary keys onto the subject-safe alphabet KV allows.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
