package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// ErrUpstream means the webhook could not be reached or rejected the call.
var ErrUpstream = errors.New("booking: upstream webhook failed")

const (
	defaultTimeout     = 10 * time.Second
	defaultBookingPath = "/agendar-consulta"
	defaultLookupPath  = "/consultar-agendamento"
	maxResponseBytes   = 1 << 20
)

// WebhookClient talks to the booking and lookup webhooks.
type WebhookClient struct {
	baseURL     string
	bookingPath string
	lookupPath  string
	httpClient  *http.Client
	logger      *logging.Logger
}

// ClientOption configures a WebhookClient.
type ClientOption func(*WebhookClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(w *WebhookClient) {
		if c != nil {
			w.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(w *WebhookClient) {
		if d > 0 {
			w.httpClient.Timeout = d
		}
	}
}

// WithPaths overrides the booking and lookup paths. Empty values keep the defaults.
func WithPaths(booking, lookup string) ClientOption {
	return func(w *WebhookClient) {
		if strings.TrimSpace(booking) != "" {
			w.bookingPath = strings.TrimSpace(booking)
		}
		if strings.TrimSpace(lookup) != "" {
			w.lookupPath = strings.TrimSpace(lookup)
		}
	}
}

func NewWebhookClient(baseURL string, logger *logging.Logger, opts ...ClientOption) *WebhookClient {
	if logger == nil {
		logger = logging.Default()
	}
	c := &WebhookClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		bookingPath: defaultBookingPath,
		lookupPath:  defaultLookupPath,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *WebhookClient) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Submit posts a booking and returns the webhook's response body.
func (c *WebhookClient) Submit(ctx context.Context, p Payload) (json.RawMessage, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("booking: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.bookingPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Find relays an appointment lookup by phone or name.
func (c *WebhookClient) Find(ctx context.Context, q Query) (json.RawMessage, error) {
	params := url.Values{}
	if q.Telefone != "" {
		params.Set("telefone", q.Telefone)
	} else {
		params.Set("nome", q.Nome)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.lookupPath)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	return c.do(req)
}

func (c *WebhookClient) do(req *http.Request) (json.RawMessage, error) {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("webhook request failed", "path", req.URL.Path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("webhook returned error status", "path", req.URL.Path, "request_id", requestID, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return asJSON(data), nil
}

// asJSON passes JSON through and wraps anything else as a JSON string.
func asJSON(data []byte) json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	quoted, _ := json.Marshal(string(data))
	return json.RawMessage(quoted)
}
