package occupancy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const (
	defaultOccupiedPath = "/consultar-horarios-ocupados"
	defaultTimeout      = 10 * time.Second
	maxBodyBytes        = 1 << 20
)

// WebhookSource queries the automation webhook for booked times on a date.
type WebhookSource struct {
	baseURL    string
	path       string
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

// WebhookOption configures a WebhookSource.
type WebhookOption func(*WebhookSource)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(s *WebhookSource) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(d time.Duration) WebhookOption {
	return func(s *WebhookSource) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithOccupiedPath overrides the path appended to the base URL.
func WithOccupiedPath(path string) WebhookOption {
	return func(s *WebhookSource) {
		if strings.TrimSpace(path) != "" {
			s.path = strings.TrimSpace(path)
		}
	}
}

// NewWebhookSource builds a source for baseURL, e.g. https://n8n.example.com/webhook.
func NewWebhookSource(baseURL string, logger *logging.Logger, opts ...WebhookOption) *WebhookSource {
	if logger == nil {
		logger = logging.Default()
	}
	s := &WebhookSource{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		path:       defaultOccupiedPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		tracer:     otel.Tracer("clinic.internal.occupancy.webhook"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoint = joinURL(s.baseURL, s.path)
	return s
}

// Endpoint is the full URL queried, without the date parameter.
func (s *WebhookSource) Endpoint() string {
	return s.endpoint
}

// OccupiedSlots performs GET <endpoint>?data=<ISO>.
func (s *WebhookSource) OccupiedSlots(ctx context.Context, date calendar.Date) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "occupancy.webhook_get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("clinic.date", date.String())),
	)
	defer span.End()

	u := s.endpoint + "?data=" + url.QueryEscape(date.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("querying occupied slots", "date", date.String(), "endpoint", s.endpoint)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetworkFailure, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNetworkFailure, resp.StatusCode)
	}
	values, skipped, err := parseOccupied(body)
	if len(skipped) > 0 {
		s.logger.Warn("skipping unreadable occupied items", "date", date.String(), "items", skipped)
	}
	return values, err
}

// ParseOccupiedResponse accepts {"horarios": [...]} or {"ocupados": [...]}.
// "horarios" wins when non-empty. Items of "ocupados" may be strings or
// objects with a "horario" field; any other item is skipped. An empty body
// is an empty result.
func ParseOccupiedResponse(body []byte) ([]string, error) {
	values, _, err := parseOccupied(body)
	return values, err
}

// parseOccupied also returns the raw "ocupados" items it could not read.
func parseOccupied(body []byte) ([]string, []string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []string{}, nil, nil
	}

	var payload struct {
		Horarios []string          `json:"horarios"`
		Ocupados []json.RawMessage `json:"ocupados"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(payload.Horarios) > 0 {
		return payload.Horarios, nil, nil
	}

	out := make([]string, 0, len(payload.Ocupados))
	var skipped []string
	for _, raw := range payload.Ocupados {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Horario string `json:"horario"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Horario == "" {
			skipped = append(skipped, string(raw))
			continue
		}
		out = append(out, obj.Horario)
	}
	return out, skipped, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
