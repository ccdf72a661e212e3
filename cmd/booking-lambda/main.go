package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/internal/calendar"
	appconfig "github.com/wolfman30/clinic-booking/internal/config"
	"github.com/wolfman30/clinic-booking/internal/occupancy"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const (
	msgMethodNotAllowed = "Método não permitido"
	msgInvalidRequest   = "Requisição inválida"
	msgBookingFailed    = "Erro ao processar agendamento"
	msgLookupFailed     = "Erro ao consultar"
	msgOccupiedFailed   = "Erro ao consultar horários"
)

// proxy validates browser requests and relays them to the automation webhooks.
type proxy struct {
	validator *booking.Validator
	client    *booking.WebhookClient
	source    *occupancy.WebhookSource
	location  *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

func newProxy(cfg *appconfig.Config, logger *logging.Logger) (*proxy, error) {
	catalog, err := slots.NewCatalog(cfg.SlotCatalog)
	if err != nil {
		return nil, err
	}
	loc, _ := calendar.ResolveLocation(cfg.ClinicTimezone, cfg.ClinicTimezoneFallback)
	return &proxy{
		validator: booking.NewValidator(calendar.NewRules(nil, cfg.BookingWindowDays), catalog),
		client: booking.NewWebhookClient(cfg.WebhookBaseURL, logger,
			booking.WithTimeout(cfg.WebhookTimeout),
			booking.WithPaths(cfg.WebhookBookingPath, cfg.WebhookLookupPath),
		),
		source: occupancy.NewWebhookSource(cfg.WebhookBaseURL, logger,
			occupancy.WithTimeout(cfg.WebhookTimeout),
			occupancy.WithOccupiedPath(cfg.WebhookOccupiedPath),
		),
		location: loc,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	p, err := newProxy(cfg, logger)
	if err != nil {
		panic(err)
	}
	lambda.Start(p.handle)
}

func (p *proxy) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	path = strings.TrimRight(path, "/")

	if method == http.MethodOptions {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusNoContent,
			Headers: map[string]string{
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Headers": "Content-Type, X-Requested-With",
				"Access-Control-Allow-Methods": allowedMethods(path),
			},
		}, nil
	}

	switch path {
	case "/health", "/_health":
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	case "/agendar":
		if method != http.MethodPost {
			return jsonError(http.StatusMethodNotAllowed, msgMethodNotAllowed), nil
		}
		return p.book(ctx, evt), nil
	case "/consultar":
		if method != http.MethodGet {
			return jsonError(http.StatusMethodNotAllowed, msgMethodNotAllowed), nil
		}
		return p.lookup(ctx, evt), nil
	case "/ocupados":
		if method != http.MethodGet {
			return jsonError(http.StatusMethodNotAllowed, msgMethodNotAllowed), nil
		}
		return p.occupied(ctx, evt), nil
	default:
		return jsonError(http.StatusNotFound, "Rota não encontrada"), nil
	}
}

func (p *proxy) book(ctx context.Context, evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	body, err := decodeBody(evt)
	if err != nil {
		return jsonError(http.StatusBadRequest, msgInvalidRequest)
	}
	var req booking.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return jsonError(http.StatusBadRequest, msgInvalidRequest)
	}

	now := p.now()
	if err := p.validator.Validate(req, calendar.Today(now, p.location)); err != nil {
		return jsonError(http.StatusBadRequest, err.Error())
	}

	data, err := p.client.Submit(ctx, booking.BuildPayload(req, now))
	if err != nil {
		p.logger.Error("booking relay failed", "error", err)
		return jsonError(http.StatusInternalServerError, msgBookingFailed)
	}
	return jsonResponse(http.StatusOK, booking.Confirmation{
		Success: true,
		Message: booking.SuccessMessage,
		Data:    data,
	})
}

func (p *proxy) lookup(ctx context.Context, evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	q, err := booking.ValidateQuery(booking.Query{
		Telefone: evt.QueryStringParameters["telefone"],
		Nome:     evt.QueryStringParameters["nome"],
	})
	if err != nil {
		return jsonError(http.StatusBadRequest, err.Error())
	}

	data, err := p.client.Find(ctx, q)
	if err != nil {
		p.logger.Error("appointment lookup relay failed", "error", err)
		return jsonError(http.StatusInternalServerError, msgLookupFailed)
	}
	return jsonResponse(http.StatusOK, map[string]any{
		"success":      true,
		"agendamentos": appointments(data),
	})
}

func (p *proxy) occupied(ctx context.Context, evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	date, err := calendar.ParseDate(evt.QueryStringParameters["data"])
	if err != nil {
		return jsonError(http.StatusBadRequest, "Data inválida")
	}
	raw, err := p.source.OccupiedSlots(ctx, date)
	if err != nil {
		p.logger.Error("occupied lookup relay failed", "date", date.String(), "error", err)
		return jsonError(http.StatusInternalServerError, msgOccupiedFailed)
	}

	horarios := make([]string, 0, len(raw))
	seen := slots.NewSet()
	for _, r := range raw {
		slot, err := slots.Normalize(r)
		if err != nil || seen.Has(slot) {
			continue
		}
		seen.Add(slot)
		horarios = append(horarios, slot.String())
	}
	return jsonResponse(http.StatusOK, map[string]any{"data": date, "horarios": horarios})
}

// appointments unwraps {"agendamentos": [...]} and passes bare arrays through.
// Anything else becomes an empty list.
func appointments(data json.RawMessage) json.RawMessage {
	empty := json.RawMessage("[]")
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "["):
		return data
	case strings.HasPrefix(trimmed, "{"):
		var wrapped struct {
			Agendamentos json.RawMessage `json:"agendamentos"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil || len(wrapped.Agendamentos) == 0 || string(wrapped.Agendamentos) == "null" {
			return empty
		}
		return wrapped.Agendamentos
	default:
		return empty
	}
}

func allowedMethods(path string) string {
	switch path {
	case "/agendar":
		return "POST, OPTIONS"
	case "/consultar", "/ocupados":
		return "GET, OPTIONS"
	default:
		return "GET, POST, OPTIONS"
	}
}

func jsonResponse(status int, v any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgBookingFailed + `"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Access-Control-Allow-Origin": "*",
			"Content-Type":                "application/json",
		},
		Body: string(body),
	}
}

func jsonError(status int, message string) events.APIGatewayV2HTTPResponse {
	return jsonResponse(status, map[string]string{"error": message})
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, errors.New("invalid base64 body")
	}
	return decoded, nil
}
