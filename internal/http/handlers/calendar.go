package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking/internal/availability"
	"github.com/wolfman30/clinic-booking/internal/calendar"
)

// CalendarHandler serves static scheduling configuration and holiday lists.
type CalendarHandler struct {
	resolver       *availability.Resolver
	clinicName     string
	timezone       string
	lookahead      int
	insurancePlans []string
	now            func() time.Time
}

// ClinicInfo is static metadata for the booking page.
type ClinicInfo struct {
	Name           string
	Timezone       string
	LookaheadDays  int
	InsurancePlans []string
}

func NewCalendarHandler(resolver *availability.Resolver, info ClinicInfo) *CalendarHandler {
	return &CalendarHandler{
		resolver:       resolver,
		clinicName:     info.Name,
		timezone:       info.Timezone,
		lookahead:      info.LookaheadDays,
		insurancePlans: info.InsurancePlans,
		now:            time.Now,
	}
}

type configResponse struct {
	ClinicName     string        `json:"clinic_name"`
	Timezone       string        `json:"timezone"`
	Today          calendar.Date `json:"today"`
	Slots          []string      `json:"slots"`
	MinDate        calendar.Date `json:"min_date"`
	MaxDate        calendar.Date `json:"max_date"`
	LookaheadDays  int           `json:"lookahead_days"`
	InsurancePlans []string      `json:"insurance_plans"`
}

// GetConfig handles GET /api/config.
func (h *CalendarHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	today := h.resolver.Today(h.now())
	first, last := h.resolver.Rules().Window(today)
	plans := h.insurancePlans
	if plans == nil {
		plans = []string{}
	}
	writeJSON(w, http.StatusOK, configResponse{
		ClinicName:     h.clinicName,
		Timezone:       h.timezone,
		Today:          today,
		Slots:          h.resolver.Catalog().Strings(),
		MinDate:        first,
		MaxDate:        last,
		LookaheadDays:  h.lookahead,
		InsurancePlans: plans,
	})
}

type holidaysResponse struct {
	Year     int                     `json:"year"`
	Holidays []calendar.DatedHoliday `json:"holidays"`
}

// GetHolidays handles GET /api/holidays/{year}.
func (h *CalendarHandler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1583 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Ano inválido")
		return
	}
	writeJSON(w, http.StatusOK, holidaysResponse{
		Year:     year,
		Holidays: h.resolver.Rules().Holidays().HolidaysIn(year),
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
