// Package prefs binds in-memory values to keys of a storage.Store so view
// code can read and set them synchronously while persistence happens in the
// background.
package prefs

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"studentdesk/internal/storage"
)

// Cell mirrors one persisted key. It starts with the initial value and
// Loading() == true, then picks up the stored value once the load resolves.
//
// Each activation gets a generation number. A load only applies its result
// if the cell is still on that generation and nothing was Set in between,
// so a slow load never overwrites a newer local value or touches a
// deactivated cell.
type Cell[T any] struct {
	store   *storage.Store
	initial T
	log     logrus.FieldLogger

	mu      sync.Mutex
	key     string
	value   T
	loading bool
	active  bool
	gen     uint64
	dirty   bool
	loaded  chan struct{}
	subs    map[int]func(T, bool)
	nextSub int

	inflight sync.WaitGroup
}

// Option configures a Cell.
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger sets the logger used for absorbed load failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Bind creates an active cell for key and starts loading it.
func Bind[T any](store *storage.Store, key string, initial T, opts ...Option) *Cell[T] {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cell[T]{
		store:   store,
		initial: initial,
		log:     o.log,
		subs:    make(map[int]func(T, bool)),
	}
	c.Activate(key)
	return c
}

// Value returns the current value.
func (c *Cell[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Loading reports whether the initial load for the current key is pending.
func (c *Cell[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Key returns the key the cell is bound to.
func (c *Cell[T]) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Loaded is closed once loading turns false for the current activation.
func (c *Cell[T]) Loaded() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Set updates the value immediately and persists it in the background. It
// never waits for the initial load. Set on a deactivated cell is ignored
// and returns nil.
func (c *Cell[T]) Set(value T) *storage.Write {
	c.mu.Lock()
	if !c.active {
		key := c.key
		c.mu.Unlock()
		c.log.WithField("key", key).Debug("Ignoring set on inactive preference")
		return nil
	}

	c.value = value
	c.dirty = true
	key, loading := c.key, c.loading
	subs := c.subscribers()
	c.mu.Unlock()

	notify(subs, value, loading)
	return storage.SetItem(c.store, key, value)
}

// Subscribe registers fn to be called after every change of value or
// loading state. The returned func removes the subscription.
func (c *Cell[T]) Subscribe(fn func(value T, loading bool)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Activate binds the cell to key. Re-activating an active cell with the same
// key does nothing; any other activation resets the value to the initial one
// and starts a fresh load.
func (c *Cell[T]) Activate(key string) {
	c.mu.Lock()
	if c.active && c.key == key {
		c.mu.Unlock()
		return
	}

	c.gen++
	c.key = key
	c.value = c.initial
	c.loading = true
	c.active = true
	c.dirty = false
	c.loaded = make(chan struct{})
	gen := c.gen
	subs := c.subscribers()
	c.inflight.Add(1)
	c.mu.Unlock()

	notify(subs, c.initial, true)
	go c.load(gen, key)
}

// Deactivate detaches the cell. A load still in flight is discarded.
func (c *Cell[T]) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.active = false
	c.gen++
}

func (c *Cell[T]) load(gen uint64, key string) {
	defer c.inflight.Done()

	stored, err := storage.GetItem[T](context.Background(), c.store, key)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to load persistent state")
	} else if stored != nil && !c.dirty {
		c.value = *stored
	}

	c.loading = false
	loaded := c.loaded
	value := c.value
	subs := c.subscribers()
	c.mu.Unlock()

	notify(subs, value, false)
	close(loaded)
}

func (c *Cell[T]) subscribers() []func(T, bool) {
	subs := make([]func(T, bool), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify[T any](subs []func(T, bool), value T, loading bool) {
	for _, fn := range subs {
		fn(value, loading)
	}
}
