package occupancy

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

var cacheTracer = otel.Tracer("clinic.internal.occupancy.cache")

// Lookup is the outcome of resolving one date's occupied slots. Err is set
// when the remote lookup failed; Slots is then empty.
type Lookup struct {
	Slots  []slots.TimeSlot
	Err    error
	Cached bool
}

// Cache memoizes occupied slots per ISO date. Entries are never refreshed on
// their own; they go away only through Invalidate or Clear.
type Cache struct {
	source  Source
	store   Store
	logger  *logging.Logger
	metrics *metrics.AvailabilityMetrics
	group   singleflight.Group

	// writeMu orders fetch writes against Invalidate and Clear. A fetch only
	// stores its result if the date's generation is unchanged since it began.
	writeMu sync.Mutex
	epoch   uint64
	gens    map[string]uint64
}

type generation struct {
	epoch uint64
	gen   uint64
}

// NewCache wires a cache over source. A nil store uses a MemoryStore.
func NewCache(source Source, store Store, logger *logging.Logger, m *metrics.AvailabilityMetrics) *Cache {
	if source == nil {
		panic("occupancy: source cannot be nil")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{
		source:  source,
		store:   store,
		logger:  logger.Component("occupancy"),
		metrics: m,
		gens:    map[string]uint64{},
	}
}

// Lookup returns the occupied slots for date, querying the source at most once
// per date until the entry is invalidated. Concurrent misses for the same date
// share one remote call.
func (c *Cache) Lookup(ctx context.Context, date calendar.Date) Lookup {
	key := date.String()
	ctx, span := cacheTracer.Start(ctx, "occupancy.lookup")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.date", key))

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("occupancy store read failed, treating as miss", "date", key, "error", err)
	}
	if ok {
		c.metrics.ObserveLookup("hit")
		span.SetAttributes(attribute.Bool("clinic.cache_hit", true))
		return Lookup{Slots: cached, Cached: true}
	}

	// The shared fetch outlives any single caller; the webhook timeout bounds it.
	flight := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), date), nil
	})
	var res Lookup
	select {
	case r := <-flight:
		res = r.Val.(Lookup)
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return Lookup{Slots: []slots.TimeSlot{}, Err: ctx.Err()}
	}
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	span.SetAttributes(attribute.Bool("clinic.cache_hit", false), attribute.Int("clinic.occupied", len(res.Slots)))
	return Lookup{Slots: append([]slots.TimeSlot{}, res.Slots...), Err: res.Err}
}

// Get is Lookup with the fail-open policy applied.
func (c *Cache) Get(ctx context.Context, date calendar.Date) []slots.TimeSlot {
	return FailOpen(c.Lookup(ctx, date))
}

func (c *Cache) fetch(ctx context.Context, date calendar.Date) Lookup {
	key := date.String()
	gen := c.generation(key)
	start := time.Now()
	raw, err := c.source.OccupiedSlots(ctx, date)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		kind := failureKind(err)
		c.metrics.ObserveLookup(kind)
		c.metrics.ObserveRemoteLatency("error", elapsed)
		c.logger.Error("occupied slots lookup failed, assuming none booked", "date", key, "kind", kind, "error", err)
		if !errors.Is(err, context.Canceled) {
			c.put(ctx, key, gen, []slots.TimeSlot{})
		}
		return Lookup{Slots: []slots.TimeSlot{}, Err: err}
	}
	c.metrics.ObserveLookup("miss")
	c.metrics.ObserveRemoteLatency("ok", elapsed)

	normalized := c.normalize(key, raw)
	c.put(ctx, key, gen, normalized)
	c.logger.Debug("occupied slots cached", "date", key, "count", len(normalized))
	return Lookup{Slots: normalized}
}

// normalize coerces each value to HH:MM, dropping unparseable ones and duplicates.
func (c *Cache) normalize(key string, raw []string) []slots.TimeSlot {
	out := make([]slots.TimeSlot, 0, len(raw))
	seen := slots.NewSet()
	for _, r := range raw {
		s, err := slots.Normalize(r)
		if err != nil {
			c.logger.Warn("dropping unparseable occupied slot", "date", key, "value", r)
			continue
		}
		if seen.Has(s) {
			continue
		}
		seen.Add(s)
		out = append(out, s)
	}
	return out
}

func (c *Cache) generation(key string) generation {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return generation{epoch: c.epoch, gen: c.gens[key]}
}

// put stores value unless key was invalidated or the cache cleared after gen
// was taken.
func (c *Cache) put(ctx context.Context, key string, gen generation, value []slots.TimeSlot) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if gen != (generation{epoch: c.epoch, gen: c.gens[key]}) {
		c.logger.Debug("discarding occupied slots fetched before invalidation", "date", key)
		return
	}
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.Warn("occupancy store write failed", "date", key, "error", err)
	}
}

// Invalidate drops the entry for date so the next lookup refetches it.
func (c *Cache) Invalidate(ctx context.Context, date calendar.Date) error {
	key := date.String()
	c.writeMu.Lock()
	c.gens[key]++
	c.group.Forget(key)
	err := c.store.Delete(ctx, key)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Error("occupancy invalidate failed", "date", date.String(), "error", err)
		return err
	}
	c.logger.Info("occupancy entry invalidated", "date", date.String())
	return nil
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.writeMu.Lock()
	c.epoch++
	clear(c.gens)
	err := c.store.Clear(ctx)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Error("occupancy clear failed", "error", err)
		return err
	}
	c.logger.Info("occupancy cache cleared")
	return nil
}

// Size is the number of cached dates.
func (c *Cache) Size(ctx context.Context) (int, error) {
	return c.store.Len(ctx)
}
