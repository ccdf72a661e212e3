package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking/internal/availability"
	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/occupancy"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

type fakeWebhook struct {
	submitted []Payload
	queries   []Query
	err       error
}

func (f *fakeWebhook) Submit(_ context.Context, p Payload) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, p)
	return json.RawMessage(`{"id":"abc"}`), nil
}

func (f *fakeWebhook) Find(_ context.Context, q Query) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, q)
	return json.RawMessage(`[]`), nil
}

type fixture struct {
	service *Service
	webhook *fakeWebhook
	lookups *int32
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, occupied map[string][]string) fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Campo_Grande")
	require.NoError(t, err)

	var lookups int32
	src := occupancy.SourceFunc(func(_ context.Context, d calendar.Date) ([]string, error) {
		atomic.AddInt32(&lookups, 1)
		return occupied[d.String()], nil
	})
	cache := occupancy.NewCache(src, nil, logging.Discard(), nil)
	resolver := availability.NewResolver(availability.Config{
		Rules:    calendar.NewRules(nil, 90),
		Catalog:  slots.MustCatalog(slots.DefaultCatalog),
		Location: loc,
	}, cache, logging.Discard(), nil)

	reg := prometheus.NewRegistry()
	webhook := &fakeWebhook{}
	svc := NewService(resolver, webhook, cache, logging.Discard(), metrics.NewBookingMetrics(reg))
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, loc) }
	return fixture{service: svc, webhook: webhook, lookups: &lookups, reg: reg}
}

func TestBookSubmitsAndInvalidatesDate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	conf, err := f.service.Book(ctx, validRequest())
	require.NoError(t, err)
	assert.True(t, conf.Success)
	assert.Equal(t, SuccessMessage, conf.Message)
	assert.JSONEq(t, `{"id":"abc"}`, string(conf.Data))

	require.Len(t, f.webhook.submitted, 1)
	p := f.webhook.submitted[0]
	assert.Equal(t, "2026-10-20", p.DataPreferida)
	assert.Equal(t, "10:00", p.HorarioPreferido)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(f.lookups))

	// The date was invalidated, so the next resolution refetches.
	f.service.resolver.ResolveDay(ctx, calendar.MustParseDate("2026-10-20"), f.service.now())
	assert.Equal(t, int32(2), atomic.LoadInt32(f.lookups))

	assert.Equal(t, float64(1), counterValue(t, f.reg, "accepted"))
}

func TestBookRejectsOccupiedSlot(t *testing.T) {
	f := newFixture(t, map[string][]string{"2026-10-20": {"10:00:00"}})

	_, err := f.service.Book(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Empty(t, f.webhook.submitted)
}

func TestBookRejectsPastSlotToday(t *testing.T) {
	f := newFixture(t, nil)
	req := validRequest()
	req.DataPreferida = "2026-10-19"
	req.HorarioPreferido = "09:00"

	_, err := f.service.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookValidationNeverReachesNetwork(t *testing.T) {
	f := newFixture(t, nil)
	req := validRequest()
	req.Sintomas = "dor"

	_, err := f.service.Book(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.webhook.submitted)
	assert.Equal(t, int32(0), atomic.LoadInt32(f.lookups))
}

func TestBookUpstreamFailureKeepsCache(t *testing.T) {
	f := newFixture(t, nil)
	f.webhook.err = ErrUpstream
	ctx := context.Background()

	_, err := f.service.Book(ctx, validRequest())
	assert.ErrorIs(t, err, ErrUpstream)

	f.service.resolver.ResolveDay(ctx, calendar.MustParseDate("2026-10-20"), f.service.now())
	assert.Equal(t, int32(1), atomic.LoadInt32(f.lookups), "failed submissions must not invalidate")
}

func TestFindValidatesAndRelays(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.Find(context.Background(), Query{Nome: "Al"})
	assert.True(t, IsValidation(err))

	data, err := f.service.Find(context.Background(), Query{Telefone: "67 99999-1234"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
	assert.Equal(t, []Query{{Telefone: "67999991234"}}, f.webhook.queries)
}

func counterValue(t *testing.T, reg *prometheus.Registry, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != metrics.BookingsName {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "status" && lp.GetValue() == status {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestWebhookClientSubmitAndFind(t *testing.T) {
	var gotPayload Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		switch r.URL.Path {
		case "/webhook/agendar-consulta":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &gotPayload))
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/webhook/consultar-agendamento":
			assert.Equal(t, "67999991234", r.URL.Query().Get("telefone"))
			_, _ = w.Write([]byte(`agendamento encontrado`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL+"/webhook/", logging.Discard())
	data, err := client.Submit(context.Background(), BuildPayload(validRequest(), time.Now()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, "Maria da Silva", gotPayload.Nome)

	data, err = client.Find(context.Background(), Query{Telefone: "67999991234"})
	require.NoError(t, err)
	assert.JSONEq(t, `"agendamento encontrado"`, string(data))
}

func TestWebhookClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, logging.Discard(), WithPaths("/custom-book", ""))
	_, err := client.Submit(context.Background(), Payload{})
	assert.True(t, errors.Is(err, ErrUpstream))

	_, err = client.Find(context.Background(), Query{Nome: "Maria"})
	assert.ErrorIs(t, err, ErrUpstream)
}
