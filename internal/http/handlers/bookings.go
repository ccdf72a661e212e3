package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const (
	msgBookingFailed   = "Erro ao processar agendamento"
	msgLookupFailed    = "Erro ao consultar agendamento"
	msgSlotUnavailable = "Horário indisponível, escolha outro horário"
)

// BookingHandler accepts booking submissions and appointment lookups.
type BookingHandler struct {
	service *booking.Service
	logger  *logging.Logger
}

func NewBookingHandler(service *booking.Service, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{service: service, logger: logger}
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	conf, err := h.service.Book(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, conf)
	case booking.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, msgSlotUnavailable)
	case errors.Is(err, booking.ErrUpstream):
		writeError(w, http.StatusBadGateway, msgBookingFailed)
	default:
		h.logger.Error("booking failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgBookingFailed)
	}
}

// Find handles GET /api/bookings?telefone=...|nome=....
func (h *BookingHandler) Find(w http.ResponseWriter, r *http.Request) {
	q := booking.Query{
		Telefone: r.URL.Query().Get("telefone"),
		Nome:     r.URL.Query().Get("nome"),
	}
	data, err := h.service.Find(r.Context(), q)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": data})
	case booking.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("appointment lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, msgLookupFailed)
	}
}
