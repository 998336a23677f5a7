// Package storage persists small typed values (preferences, toggles) under
// string keys on top of a pluggable backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrStorageUnavailable wraps every failure of the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned by a Backend for keys that were never written.
	// GetItem translates it into an absent value.
	ErrNotFound = errors.New("key not found")
)

// Backend is the platform storage a Store writes through to.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Store is safe for concurrent use. Writes to the same key are applied in
// the order SetItem was called; there is no ordering across keys.
type Store struct {
	backend Backend
	log     logrus.FieldLogger

	mu    sync.Mutex
	tails map[string]*Write
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for absorbed write failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a store over backend. A nil backend means in-memory storage.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}

	s := &Store{
		backend: backend,
		log:     logrus.StandardLogger(),
		tails:   make(map[string]*Write),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write tracks one pending SetItem.
type Write struct {
	key  string
	done chan struct{}
	err  error
}

// Done is closed once the write has been applied or has failed.
func (w *Write) Done() <-chan struct{} {
	return w.done
}

// Err returns the write's outcome. It is nil until Done is closed.
func (w *Write) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Wait blocks until the write resolves or ctx is done.
func (w *Write) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func failedWrite(key string, err error) *Write {
	w := &Write{key: key, done: make(chan struct{}), err: err}
	close(w.done)
	return w
}

// GetItem returns the value stored under key, or nil if the key was never
// set. Pending writes to key are waited for first.
func GetItem[T any](ctx context.Context, s *Store, key string) (*T, error) {
	if tail := s.tail(key); tail != nil {
		select {
		case <-tail.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", key, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, unavailable("decode", key, err)
	}
	return &value, nil
}

// SetItem encodes value immediately and persists it in the background. The
// returned Write may be ignored.
func SetItem[T any](s *Store, key string, value T) *Write {
	data, err := json.Marshal(value)
	if err != nil {
		return failedWrite(key, fmt.Errorf("failed to encode value for %q: %w", key, err))
	}
	return s.put(key, data)
}

func (s *Store) put(key string, data []byte) *Write {
	w := &Write{key: key, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.tails[key]
	s.tails[key] = w
	s.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev.done
		}

		if err := s.backend.Put(context.Background(), key, data); err != nil {
			w.err = unavailable("put", key, err)
			s.log.WithError(w.err).WithField("key", key).Warn("Failed to persist value")
		}

		s.mu.Lock()
		if s.tails[key] == w {
			delete(s.tails, key)
		}
		s.mu.Unlock()
		close(w.done)
	}()

	return w
}

func (s *Store) tail(key string) *Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tails[key]
}

// Flush waits for every write issued so far. Waiting on the tail of each
// key covers the writes chained before it.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := make([]*Write, 0, len(s.tails))
	for _, w := range s.tails {
		pending = append(pending, w)
	}
	s.mu.Unlock()

	for _, w := range pending {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close flushes pending writes and closes the backend.
func (s *Store) Close() error {
	_ = s.Flush(context.Background())
	return s.backend.Close()
}

func unavailable(op, key string, err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return fmt.Errorf("%s %q: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %q: %v", ErrStorageUnavailable, op, key, err)
}
