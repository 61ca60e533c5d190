// Package cart holds the ordered selection of rooms the user intends to book.
package cart

import (
	"context"
	"fmt"
	"sync"

	"byronhub/internal/events"
	"byronhub/internal/metrics"
	"byronhub/internal/storage"

	"github.com/rs/zerolog"
)

// Change is the payload of an events.CartChanged event.
type Change struct {
	Op   string `json:"op"`
	Size int    `json:"size"`
}

// Cart is the selection cart. Until Load has completed, mutations only
// change memory so the stored state cannot be overwritten by defaults.
// Afterwards every mutation is written back before the call returns.
type Cart struct {
	store  storage.Store
	bus    *events.EventBus
	logger *zerolog.Logger

	mu      sync.Mutex
	entries []Entry
	initial InitialTime
	loaded  bool
}

// New creates an empty, unloaded cart. bus may be nil.
func New(store storage.Store, bus *events.EventBus, logger *zerolog.Logger) *Cart {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "cart").Logger()
	return &Cart{store: store, bus: bus, logger: &l}
}

// Load reads the stored cart and initial time. Values found in the store
// replace the in-memory state. A failed read leaves the cart unloaded, so
// later mutations still do not reach the store. Load is a no-op once it
// has succeeded.
func (c *Cart) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	var entries []Entry
	found, err := c.store.Get(ctx, storage.KeySelectedRooms, &entries)
	if err != nil {
		return fmt.Errorf("load %s: %w", storage.KeySelectedRooms, err)
	}
	var initial InitialTime
	foundInitial, err := c.store.Get(ctx, storage.KeyInitialTime, &initial)
	if err != nil {
		return fmt.Errorf("load %s: %w", storage.KeyInitialTime, err)
	}

	if found {
		c.entries = entries
	}
	if foundInitial {
		c.initial = initial
	}
	c.loaded = true
	c.logger.Debug().Int("entries", len(c.entries)).Msg("cart loaded")
	return nil
}

// Loaded reports whether Load has completed.
func (c *Cart) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Add appends e. Identical entries are kept.
func (c *Cart) Add(ctx context.Context, e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.persistEntries(ctx)
	size := len(c.entries)
	c.mu.Unlock()

	c.changed("add", size)
}

// Remove deletes the first entry equal to e and reports whether one was found.
func (c *Cart) Remove(ctx context.Context, e Entry) bool {
	c.mu.Lock()
	idx := -1
	for i := range c.entries {
		if c.entries[i].Equal(e) {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.entries = append(c.entries[:idx:idx], c.entries[idx+1:]...)
	c.persistEntries(ctx)
	size := len(c.entries)
	c.mu.Unlock()

	c.changed("remove", size)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = nil
	if c.loaded {
		if err := c.store.Remove(ctx, storage.KeySelectedRooms); err != nil {
			c.logger.Warn().Err(err).Msg("failed to clear stored cart")
		}
	}
	c.mu.Unlock()

	c.changed("clear", 0)
}

// SetInitialTime records the most recent calendar click.
func (c *Cart) SetInitialTime(ctx context.Context, at InitialTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initial = at
	c.persist(ctx, storage.KeyInitialTime, at)
}

// InitialTime returns the most recent calendar click.
func (c *Cart) InitialTime() InitialTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initial
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cart) persistEntries(ctx context.Context) {
	entries := c.entries
	if entries == nil {
		entries = []Entry{}
	}
	c.persist(ctx, storage.KeySelectedRooms, entries)
}

// persist must be called with c.mu held.
func (c *Cart) persist(ctx context.Context, key string, value any) {
	if !c.loaded {
		return
	}
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to persist cart")
	}
}

func (c *Cart) changed(op string, size int) {
	metrics.IncCartMutation(op)
	if c.bus == nil {
		return
	}
	if err := c.bus.PublishJSON(events.CartChanged, Change{Op: op, Size: size}); err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("cart change handler failed")
	}
}
