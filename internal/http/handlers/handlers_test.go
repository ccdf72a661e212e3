package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking/internal/availability"
	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/occupancy"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

type stubWebhook struct {
	err error
}

func (s *stubWebhook) Submit(context.Context, booking.Payload) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"protocolo":"123"}`), nil
}

func (s *stubWebhook) Find(context.Context, booking.Query) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`[{"nome":"Maria"}]`), nil
}

type testServer struct {
	router  http.Handler
	cache   *occupancy.Cache
	webhook *stubWebhook
}

func newTestServer(t *testing.T, occupied map[string][]string) testServer {
	t.Helper()
	loc, err := time.LoadLocation("America/Campo_Grande")
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, loc) }

	src := occupancy.SourceFunc(func(_ context.Context, d calendar.Date) ([]string, error) {
		return occupied[d.String()], nil
	})
	reg := prometheus.NewRegistry()
	cache := occupancy.NewCache(src, nil, logging.Discard(), metrics.NewAvailabilityMetrics(reg))
	resolver := availability.NewResolver(availability.Config{
		Rules:    calendar.NewRules(nil, 90),
		Catalog:  slots.MustCatalog(slots.DefaultCatalog),
		Location: loc,
	}, cache, logging.Discard(), nil)
	webhook := &stubWebhook{}
	svc := booking.NewService(resolver, webhook, cache, logging.Discard(), metrics.NewBookingMetrics(reg)).WithClock(now)

	avail := NewAvailabilityHandler(resolver, 14, logging.Discard())
	avail.now = now
	cal := NewCalendarHandler(resolver, ClinicInfo{Name: "Clínica Teste", Timezone: loc.String(), LookaheadDays: 14})
	cal.now = now
	books := NewBookingHandler(svc, logging.Discard())
	admin := NewAdminHandler(cache, reg, logging.Discard())

	r := chi.NewRouter()
	r.Get("/health", Health)
	r.Get("/api/config", cal.GetConfig)
	r.Get("/api/holidays/{year}", cal.GetHolidays)
	r.Get("/api/availability", avail.GetWindow)
	r.Get("/api/availability/{date}", avail.GetDay)
	r.Post("/api/bookings", books.Create)
	r.Get("/api/bookings", books.Find)
	r.Delete("/admin/cache", admin.ClearCache)
	r.Get("/admin/stats", admin.Stats)
	return testServer{router: r, cache: cache, webhook: webhook}
}

func (s testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestGetDay(t *testing.T) {
	s := newTestServer(t, map[string][]string{"2026-10-20": {"08:00", "09:00"}})

	rec, body := s.do(t, http.MethodGet, "/api/availability/2026-10-20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open", body["status"])
	slotsOut := body["slots"].([]any)
	require.Len(t, slotsOut, 8)
	assert.Equal(t, "occupied", slotsOut[0].(map[string]any)["status"])
	assert.Equal(t, "available", slotsOut[2].(map[string]any)["status"])

	rec, body = s.do(t, http.MethodGet, "/api/availability/2026-10-24", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blocked", body["status"])
	assert.Equal(t, "weekend", body["reason"])
}

func TestGetDayRejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/api/availability/20-10-2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Data inválida", body["error"])

	rec, body = s.do(t, http.MethodGet, "/api/availability/2027-03-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgOutOfWindow, body["error"])
}

func TestGetWindow(t *testing.T) {
	s := newTestServer(t, map[string][]string{"2026-10-21": {"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}})

	rec, body := s.do(t, http.MethodGet, "/api/availability?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-19", body["start"])
	assert.Equal(t, float64(7), body["days"])

	var dates []string
	for _, u := range body["unavailable"].([]any) {
		dates = append(dates, u.(map[string]any)["date"].(string))
	}
	assert.Equal(t, []string{"2026-10-21", "2026-10-24", "2026-10-25"}, dates)

	rec, _ = s.do(t, http.MethodGet, "/api/availability?days=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Clamped to the last bookable day (2027-01-17).
	rec, body = s.do(t, http.MethodGet, "/api/availability?start=2027-01-15&days=14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["days"])
}

func TestGetConfigAndHolidays(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-19", body["min_date"])
	assert.Equal(t, "2027-01-17", body["max_date"])
	assert.Len(t, body["slots"], 8)

	rec, body = s.do(t, http.MethodGet, "/api/holidays/2026", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["holidays"], 12)

	rec, _ = s.do(t, http.MethodGet, "/api/holidays/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const validBooking = `{"nome":"Maria da Silva","telefone":"(67) 99999-1234","email":"maria@example.com","dataPreferida":"2026-10-20","horarioPreferido":"14:00","sintomas":"Dor de cabeça há três dias"}`

func TestCreateBooking(t *testing.T) {
	s := newTestServer(t, map[string][]string{"2026-10-20": {"08:00"}})

	rec, body := s.do(t, http.MethodPost, "/api/bookings", validBooking)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, booking.SuccessMessage, body["message"])

	rec, body = s.do(t, http.MethodPost, "/api/bookings", `{"nome":"Al"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "Nome inválido")

	rec, _ = s.do(t, http.MethodPost, "/api/bookings", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingConflictAndUpstream(t *testing.T) {
	s := newTestServer(t, map[string][]string{"2026-10-20": {"14:00"}})

	rec, body := s.do(t, http.MethodPost, "/api/bookings", validBooking)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, msgSlotUnavailable, body["error"])

	s = newTestServer(t, nil)
	s.webhook.err = booking.ErrUpstream
	rec, body = s.do(t, http.MethodPost, "/api/bookings", validBooking)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, msgBookingFailed, body["error"])
}

func TestFindBooking(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/api/bookings?telefone=67999991234", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	rec, _ = s.do(t, http.MethodGet, "/api/bookings", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCacheAndStats(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	s.do(t, http.MethodGet, "/api/availability/2026-10-20", "")
	s.do(t, http.MethodGet, "/api/availability/2026-10-20", "")
	s.do(t, http.MethodGet, "/api/availability/2026-10-21", "")

	rec, body := s.do(t, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["cached_dates"])
	lookups := body["lookups"].(map[string]any)
	assert.Equal(t, float64(1), lookups["hit"])
	assert.Equal(t, float64(2), lookups["miss"])

	rec, body = s.do(t, http.MethodDelete, "/admin/cache?data=2026-10-20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-20", body["cleared"])
	n, _ := s.cache.Size(ctx)
	assert.Equal(t, 1, n)

	rec, _ = s.do(t, http.MethodDelete, "/admin/cache?data=ontem", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/admin/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	n, _ = s.cache.Size(ctx)
	assert.Equal(t, 0, n)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec, body := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
