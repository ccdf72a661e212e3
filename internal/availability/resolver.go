package availability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/occupancy"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

var resolverTracer = otel.Tracer("clinic.internal.availability")

// DefaultLookahead is the window the date picker precomputes.
const DefaultLookahead = 14

// OccupiedLookup is the part of occupancy.Cache the resolver needs.
type OccupiedLookup interface {
	Lookup(ctx context.Context, date calendar.Date) occupancy.Lookup
}

// Config holds the resolver's static inputs.
type Config struct {
	Rules    *calendar.Rules
	Catalog  *slots.Catalog
	Location *time.Location
	// MaxConcurrent caps in-flight lookups during window resolution.
	// Zero means one goroutine per date.
	MaxConcurrent int
}

// Resolver answers "what can be booked on this date" and "which dates in this
// range cannot be booked at all".
type Resolver struct {
	rules         *calendar.Rules
	catalog       *slots.Catalog
	loc           *time.Location
	maxConcurrent int
	occupied      OccupiedLookup
	logger        *logging.Logger
	metrics       *metrics.AvailabilityMetrics
}

func NewResolver(cfg Config, occupied OccupiedLookup, logger *logging.Logger, m *metrics.AvailabilityMetrics) *Resolver {
	if occupied == nil {
		panic("availability: occupied lookup cannot be nil")
	}
	if cfg.Rules == nil {
		cfg.Rules = calendar.NewRules(nil, 0)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = slots.MustCatalog(slots.DefaultCatalog)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		rules:         cfg.Rules,
		catalog:       cfg.Catalog,
		loc:           cfg.Location,
		maxConcurrent: cfg.MaxConcurrent,
		occupied:      occupied,
		logger:        logger.Component("availability"),
		metrics:       m,
	}
}

func (r *Resolver) Rules() *calendar.Rules   { return r.rules }
func (r *Resolver) Catalog() *slots.Catalog  { return r.catalog }
func (r *Resolver) Location() *time.Location { return r.loc }

// Today is the clinic-local date at now.
func (r *Resolver) Today(now time.Time) calendar.Date {
	return calendar.Today(now, r.loc)
}

// ResolveDay classifies date and, when it is open, annotates every catalog slot.
func (r *Resolver) ResolveDay(ctx context.Context, date calendar.Date, now time.Time) DayAvailability {
	ctx, span := resolverTracer.Start(ctx, "availability.resolve_day")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.date", date.String()))

	today := r.Today(now)
	class := r.rules.Classify(date, today)
	if !class.Open() {
		r.metrics.ObserveDay(string(DayBlocked))
		span.SetAttributes(attribute.String("clinic.day_status", string(DayBlocked)))
		return DayAvailability{
			Date:        date,
			Status:      DayBlocked,
			Reason:      class.Reason,
			HolidayName: class.HolidayName,
			Message:     class.Message(),
			Slots:       []SlotAvailability{},
		}
	}

	lookup := r.occupied.Lookup(ctx, date)
	occupied := slots.NewSet(occupancy.FailOpen(lookup)...)
	day := DayAvailability{
		Date:     date,
		Status:   DayOpen,
		Slots:    r.annotate(occupied, date.Equal(today), r.minuteNow(now)),
		Degraded: lookup.Err != nil,
	}
	if len(day.Available()) == 0 {
		day.Status = DayFullyBooked
	}
	r.metrics.ObserveDay(string(day.Status))
	span.SetAttributes(attribute.String("clinic.day_status", string(day.Status)))
	return day
}

func (r *Resolver) annotate(occupied slots.Set, isToday bool, nowMinute int) []SlotAvailability {
	catalog := r.catalog.Slots()
	out := make([]SlotAvailability, len(catalog))
	for i, s := range catalog {
		status := SlotAvailable
		switch {
		case isToday && s.MinuteOfDay() <= nowMinute:
			status = SlotPast
		case occupied.Has(s):
			status = SlotOccupied
		}
		out[i] = SlotAvailability{Time: s, Status: status}
	}
	return out
}

func (r *Resolver) minuteNow(now time.Time) int {
	local := now.In(r.loc)
	return local.Hour()*60 + local.Minute()
}

type windowOutcome struct {
	unavailable bool
	degraded    bool
}

// ResolveWindow finds every date in [start, start+days) that has nothing to
// offer. Blocked dates are decided without a lookup; the rest are looked up
// concurrently. A failed lookup never fails the window: the date is reported
// as degraded and treated as not fully booked.
func (r *Resolver) ResolveWindow(ctx context.Context, start calendar.Date, days int, now time.Time) WindowAvailability {
	ctx, span := resolverTracer.Start(ctx, "availability.resolve_window")
	defer span.End()
	began := time.Now()

	result := WindowAvailability{Start: start, Days: days, Unavailable: []UnavailableDate{}}
	if days <= 0 {
		return result
	}

	today := r.Today(now)
	nowMinute := r.minuteNow(now)
	dates := calendar.Range(start, days)
	classes := make([]calendar.Classification, len(dates))
	outcomes := make([]windowOutcome, len(dates))

	var g errgroup.Group
	if r.maxConcurrent > 0 {
		g.SetLimit(r.maxConcurrent)
	}
	for i, d := range dates {
		classes[i] = r.rules.Classify(d, today)
		if !classes[i].Open() {
			continue
		}
		g.Go(func() error {
			lookup := r.occupied.Lookup(ctx, d)
			if lookup.Err != nil {
				outcomes[i] = windowOutcome{degraded: true}
				return nil
			}
			taken := slots.NewSet(lookup.Slots...)
			if d.Equal(today) {
				for _, s := range r.catalog.Slots() {
					if s.MinuteOfDay() <= nowMinute {
						taken.Add(s)
					}
				}
			}
			outcomes[i] = windowOutcome{unavailable: r.catalog.AllIn(taken)}
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range dates {
		switch {
		case !classes[i].Open():
			result.Unavailable = append(result.Unavailable, UnavailableDate{
				Date:        d,
				Reason:      string(classes[i].Reason),
				HolidayName: classes[i].HolidayName,
			})
		case outcomes[i].degraded:
			result.Degraded = append(result.Degraded, d)
		case outcomes[i].unavailable:
			result.Unavailable = append(result.Unavailable, UnavailableDate{Date: d, Reason: ReasonFullyBooked})
		}
	}

	if len(result.Degraded) > 0 {
		r.logger.Warn("window resolved with failed lookups", "start", start.String(), "days", days, "degraded", len(result.Degraded))
	}
	r.metrics.ObserveWindow(time.Since(began).Seconds())
	span.SetAttributes(
		attribute.Int("clinic.window_days", days),
		attribute.Int("clinic.unavailable", len(result.Unavailable)),
		attribute.Int("clinic.degraded", len(result.Degraded)),
	)
	return result
}
