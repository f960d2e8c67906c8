package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ticketing/internal/clock"
	"ticketing/internal/metrics"
	"ticketing/internal/models"

	"golang.org/x/sync/singleflight"
)

// DefaultLocationTTL is the absolute lifetime of a cached country entry
const DefaultLocationTTL = 24 * time.Hour

// DefaultLoadTimeout bounds one shared load from the store
const DefaultLoadTimeout = 10 * time.Second

const (
	kindIDs  = "ids"
	kindList = "list"
)

// StateSource loads the states of one country from the store
type StateSource interface {
	ListByCountry(ctx context.Context, countryID int64, inc models.StateIncludes) ([]models.State, error)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// LocationCache is a read-through cache of valid state ids and state views
// per country. Entries expire lazily after a fixed TTL and are evicted
// explicitly by InvalidateCountry once a state write has committed.
type LocationCache struct {
	source  StateSource
	clock   clock.Clock
	ttl     time.Duration
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	// generation per country, bumped on every invalidation
	generations map[int64]uint64

	group singleflight.Group
}

type Option func(*LocationCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *LocationCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds a load shared by concurrent misses. The load does
// not inherit the cancellation of the caller that started it.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *LocationCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *LocationCache) { c.clock = clk }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *LocationCache) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *LocationCache) { c.logger = l }
}

func NewLocationCache(source StateSource, opts ...Option) *LocationCache {
	c := &LocationCache{
		source:      source,
		clock:       clock.NewSystem(),
		ttl:         DefaultLocationTTL,
		timeout:     DefaultLoadTimeout,
		metrics:     metrics.Nop(),
		logger:      slog.Default(),
		entries:     make(map[string]entry),
		generations: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func idsKey(countryID int64) string {
	return fmt.Sprintf("states_by_country_ids_%d", countryID)
}

func listKey(countryID int64) string {
	return fmt.Sprintf("states_by_country_list_%d", countryID)
}

// IsValidState reports whether stateID belongs to countryID. An unknown
// country has no states, so every check against it is false.
func (c *LocationCache) IsValidState(ctx context.Context, countryID, stateID int64) (bool, error) {
	v, err := c.get(ctx, countryID, idsKey(countryID), kindIDs, func(states []models.State) any {
		ids := make(map[int64]struct{}, len(states))
		for _, s := range states {
			ids[s.ID] = struct{}{}
		}
		return ids
	})
	if err != nil {
		return false, err
	}
	_, ok := v.(map[int64]struct{})[stateID]
	return ok, nil
}

// ListStatesByCountry returns the country's states with the country name
// filled in. The returned slice is a copy.
func (c *LocationCache) ListStatesByCountry(ctx context.Context, countryID int64) ([]models.StateView, error) {
	v, err := c.get(ctx, countryID, listKey(countryID), kindList, func(states []models.State) any {
		return models.NewStateViews(states)
	})
	if err != nil {
		return nil, err
	}
	views := v.([]models.StateView)
	out := make([]models.StateView, len(views))
	copy(out, views)
	return out, nil
}

// InvalidateCountry evicts both entries of every given country.
// Absent keys are ignored.
func (c *LocationCache) InvalidateCountry(countryIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range countryIDs {
		c.generations[id]++
		for _, key := range []string{idsKey(id), listKey(id)} {
			if _, ok := c.entries[key]; ok {
				delete(c.entries, key)
				c.metrics.CacheEvictions.WithLabelValues("invalidated").Inc()
			}
		}
	}
	c.logger.Info("Location cache invalidated", "country_ids", countryIDs)
}

// Len returns the number of stored entries, expired ones included
func (c *LocationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *LocationCache) get(ctx context.Context, countryID int64, key, kind string, build func([]models.State) any) (any, error) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	gen := c.generations[countryID]
	c.mu.RUnlock()

	if ok && now.Before(e.expiresAt) {
		c.metrics.CacheHits.WithLabelValues(kind).Inc()
		return e.value, nil
	}
	if ok {
		c.expire(key, e)
	}
	c.metrics.CacheMisses.WithLabelValues(kind).Inc()

	// Callers that observed the same generation share one load. Each caller
	// stops waiting when its own ctx ends; the load keeps running for the rest.
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		states, err := c.source.ListByCountry(loadCtx, countryID, models.StateIncludes{Country: true})
		if err != nil {
			return nil, err
		}
		value := build(states)
		c.store(countryID, gen, key, value)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Error("Failed to load states", "country_id", countryID, "error", res.Err)
			return nil, res.Err
		}
		return res.Val, nil
	}
}

// store keeps value only if no invalidation happened since the load began
func (c *LocationCache) store(countryID int64, gen uint64, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[countryID] != gen {
		c.logger.Debug("Discarding stale location load", "key", key)
		return
	}
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.logger.Debug("Location cache populated", "key", key)
}

func (c *LocationCache) expire(key string, seen entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed it already
	if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(seen.expiresAt) {
		delete(c.entries, key)
		c.metrics.CacheEvictions.WithLabelValues("expired").Inc()
	}
}
