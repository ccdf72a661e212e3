package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking/internal/availability"
	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const msgOutOfWindow = "Data fora do período de agendamento"

// AvailabilityHandler serves per-day slots and the date-picker window.
type AvailabilityHandler struct {
	resolver  *availability.Resolver
	lookahead int
	logger    *logging.Logger
	now       func() time.Time
}

func NewAvailabilityHandler(resolver *availability.Resolver, lookahead int, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if lookahead <= 0 {
		lookahead = availability.DefaultLookahead
	}
	return &AvailabilityHandler{resolver: resolver, lookahead: lookahead, logger: logger, now: time.Now}
}

// GetDay handles GET /api/availability/{date}.
func (h *AvailabilityHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Data inválida")
		return
	}
	now := h.now()
	if !h.resolver.Rules().InWindow(date, h.resolver.Today(now)) {
		writeError(w, http.StatusBadRequest, msgOutOfWindow)
		return
	}
	writeJSON(w, http.StatusOK, h.resolver.ResolveDay(r.Context(), date, now))
}

// GetWindow handles GET /api/availability?start=YYYY-MM-DD&days=N. Both
// parameters are optional: start defaults to today, days to the lookahead.
func (h *AvailabilityHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	today := h.resolver.Today(now)
	rules := h.resolver.Rules()

	start := today
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		parsed, err := calendar.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Data inválida")
			return
		}
		start = parsed
	}
	if !rules.InWindow(start, today) {
		writeError(w, http.StatusBadRequest, msgOutOfWindow)
		return
	}

	days := h.lookahead
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > rules.WindowDays()+1 {
			writeError(w, http.StatusBadRequest, "Quantidade de dias inválida")
			return
		}
		days = n
	}
	// Never resolve past the last bookable day.
	_, last := rules.Window(today)
	if remaining := start.DaysUntil(last) + 1; days > remaining {
		days = remaining
	}

	writeJSON(w, http.StatusOK, h.resolver.ResolveWindow(r.Context(), start, days, now))
}
