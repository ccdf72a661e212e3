package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// CacheAdmin is the operator view of the occupied-slots cache.
type CacheAdmin interface {
	Invalidate(ctx context.Context, date calendar.Date) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// AdminHandler exposes cache maintenance and a metrics summary.
type AdminHandler struct {
	cache    CacheAdmin
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewAdminHandler(cache CacheAdmin, gatherer prometheus.Gatherer, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &AdminHandler{cache: cache, gatherer: gatherer, logger: logger}
}

// ClearCache handles DELETE /admin/cache. With ?data=YYYY-MM-DD only that
// date is dropped.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("data"))
	if raw == "" {
		if err := h.cache.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "cache clear failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"cleared": "all"})
		return
	}

	date, err := calendar.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Data inválida")
		return
	}
	if err := h.cache.Invalidate(r.Context(), date); err != nil {
		writeError(w, http.StatusInternalServerError, "cache invalidate failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cleared": date.String()})
}

type statsResponse struct {
	CachedDates    int                `json:"cached_dates"`
	Lookups        map[string]float64 `json:"lookups"`
	DayResolutions map[string]float64 `json:"day_resolutions"`
	Bookings       map[string]float64 `json:"bookings"`
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	size, err := h.cache.Size(r.Context())
	if err != nil {
		h.logger.Warn("cache size unavailable", "error", err)
		size = -1
	}
	writeJSON(w, http.StatusOK, statsResponse{
		CachedDates:    size,
		Lookups:        metrics.CountersByLabel(h.gatherer, metrics.OccupiedLookupsName, "result"),
		DayResolutions: metrics.CountersByLabel(h.gatherer, metrics.DayResolutionsName, "status"),
		Bookings:       metrics.CountersByLabel(h.gatherer, metrics.BookingsName, "status"),
	})
}
