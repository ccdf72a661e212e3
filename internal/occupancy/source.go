// Package occupancy fetches already-booked slots per date from the remote
// workflow webhook and caches them for the life of the process.
package occupancy

import (
	"context"
	"errors"

	"github.com/wolfman30/clinic-booking/internal/calendar"
)

var (
	// ErrNetworkFailure covers transport errors, timeouts and non-2xx responses.
	ErrNetworkFailure = errors.New("occupancy: network failure")
	// ErrMalformedResponse means the body was not one of the accepted JSON shapes.
	ErrMalformedResponse = errors.New("occupancy: malformed response")
)

// Source returns the raw occupied slot values for a date. Values are returned
// as the remote sent them; the cache normalizes them.
type Source interface {
	OccupiedSlots(ctx context.Context, date calendar.Date) ([]string, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, date calendar.Date) ([]string, error)

func (f SourceFunc) OccupiedSlots(ctx context.Context, date calendar.Date) ([]string, error) {
	return f(ctx, date)
}

// failureKind labels an error for metrics and logs.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	default:
		return "network_failure"
	}
}
