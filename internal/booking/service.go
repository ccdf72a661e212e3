package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking/internal/availability"
	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

var serviceTracer = otel.Tracer("clinic.internal.booking")

// ErrSlotUnavailable means the chosen slot is occupied or already past.
var ErrSlotUnavailable = errors.New("booking: slot unavailable")

// SuccessMessage is returned to the patient after the webhook accepts a booking.
const SuccessMessage = "Agendamento realizado com sucesso"

// Submitter is the outbound side of the booking webhook.
type Submitter interface {
	Submit(ctx context.Context, p Payload) (json.RawMessage, error)
	Find(ctx context.Context, q Query) (json.RawMessage, error)
}

// Invalidator drops a cached date after a booking changes it.
type Invalidator interface {
	Invalidate(ctx context.Context, date calendar.Date) error
}

// Confirmation is what a successful Book returns.
type Confirmation struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Service validates, re-checks availability and submits bookings.
type Service struct {
	resolver    *availability.Resolver
	validator   *Validator
	submitter   Submitter
	invalidator Invalidator
	logger      *logging.Logger
	metrics     *metrics.BookingMetrics
	now         func() time.Time
}

func NewService(resolver *availability.Resolver, submitter Submitter, invalidator Invalidator, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if resolver == nil || submitter == nil {
		panic("booking: resolver and submitter are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		resolver:    resolver,
		validator:   NewValidator(resolver.Rules(), resolver.Catalog()),
		submitter:   submitter,
		invalidator: invalidator,
		logger:      logger.Component("booking"),
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock replaces the wall clock used to decide today and past slots.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Book validates req, confirms the slot is still free and submits it. On
// success the cached occupancy for that date is dropped.
func (s *Service) Book(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, span := serviceTracer.Start(ctx, "booking.book")
	defer span.End()

	now := s.now()
	today := s.resolver.Today(now)
	if err := s.validator.Validate(req, today); err != nil {
		s.metrics.ObserveSubmission("invalid")
		span.RecordError(err)
		return nil, err
	}

	payload := BuildPayload(req, now)
	date := calendar.MustParseDate(payload.DataPreferida)
	slot := slots.TimeSlot(payload.HorarioPreferido)
	span.SetAttributes(attribute.String("clinic.date", date.String()), attribute.String("clinic.slot", slot.String()))

	day := s.resolver.ResolveDay(ctx, date, now)
	if annotated, ok := day.Slot(slot); !ok || annotated.Status != availability.SlotAvailable {
		s.metrics.ObserveSubmission("conflict")
		s.logger.Info("booking rejected, slot not available", "date", date.String(), "slot", slot.String(), "day_status", day.Status)
		return nil, fmt.Errorf("%w: %s %s", ErrSlotUnavailable, date, slot)
	}

	data, err := s.submitter.Submit(ctx, payload)
	if err != nil {
		s.metrics.ObserveSubmission("upstream_error")
		span.RecordError(err)
		return nil, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, date); err != nil {
			s.logger.Warn("booking accepted but cache invalidation failed", "date", date.String(), "error", err)
		}
	}
	s.metrics.ObserveSubmission("accepted")
	s.logger.Info("booking submitted", "date", date.String(), "slot", slot.String())
	return &Confirmation{Success: true, Message: SuccessMessage, Data: data}, nil
}

// Find validates q and relays it to the lookup webhook.
func (s *Service) Find(ctx context.Context, q Query) (json.RawMessage, error) {
	ctx, span := serviceTracer.Start(ctx, "booking.find")
	defer span.End()

	clean, err := ValidateQuery(q)
	if err != nil {
		return nil, err
	}
	data, err := s.submitter.Find(ctx, clean)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return data, nil
}
