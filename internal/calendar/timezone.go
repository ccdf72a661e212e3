package calendar

import (
	"os"
	"strings"
	"time"
)

// DefaultTimezoneFallback is used when neither an override nor the host zone
// can be resolved.
const DefaultTimezoneFallback = "America/Campo_Grande"

// ResolveLocation picks the clinic timezone: the explicit override when it
// loads, otherwise the host zone from TZ, otherwise the fallback, otherwise UTC.
// The returned name is the zone actually used.
func ResolveLocation(override, fallback string) (*time.Location, string) {
	if loc, ok := loadZone(override); ok {
		return loc, loc.String()
	}
	if loc, ok := loadZone(os.Getenv("TZ")); ok {
		return loc, loc.String()
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultTimezoneFallback
	}
	if loc, ok := loadZone(fallback); ok {
		return loc, loc.String()
	}
	return time.UTC, time.UTC.String()
}

func loadZone(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}
