// Package booking validates appointment requests and relays them to the
// automation webhook, which owns persistence and notifications.
package booking

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// StatusPending is the status every new booking is submitted with.
	StatusPending = "pendente"
	// DefaultConvenio is used when the patient leaves insurance blank.
	DefaultConvenio = "Particular"

	maxFieldRunes = 500
	maxQueryRunes = 100
)

// Request is what the booking form posts. Field names match the webhook.
type Request struct {
	Nome             string `json:"nome" validate:"required,min=3"`
	Telefone         string `json:"telefone" validate:"required,telefone_br"`
	Email            string `json:"email" validate:"required,email"`
	Convenio         string `json:"convenio"`
	DataPreferida    string `json:"dataPreferida" validate:"required"`
	HorarioPreferido string `json:"horarioPreferido" validate:"required"`
	Sintomas         string `json:"sintomas" validate:"required,min=10"`
}

// trimmed returns a copy with surrounding whitespace removed from every field.
func (r Request) trimmed() Request {
	return Request{
		Nome:             strings.TrimSpace(r.Nome),
		Telefone:         strings.TrimSpace(r.Telefone),
		Email:            strings.TrimSpace(r.Email),
		Convenio:         strings.TrimSpace(r.Convenio),
		DataPreferida:    strings.TrimSpace(r.DataPreferida),
		HorarioPreferido: strings.TrimSpace(r.HorarioPreferido),
		Sintomas:         strings.TrimSpace(r.Sintomas),
	}
}

// Payload is the body posted to the booking webhook.
type Payload struct {
	Nome             string `json:"nome"`
	Telefone         string `json:"telefone"`
	Email            string `json:"email"`
	Convenio         string `json:"convenio"`
	DataPreferida    string `json:"dataPreferida"`
	HorarioPreferido string `json:"horarioPreferido"`
	Sintomas         string `json:"sintomas"`
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
}

// BuildPayload sanitizes a validated request for submission.
func BuildPayload(req Request, now time.Time) Payload {
	req = req.trimmed()
	convenio := Sanitize(req.Convenio, maxFieldRunes)
	if convenio == "" {
		convenio = DefaultConvenio
	}
	return Payload{
		Nome:             Sanitize(req.Nome, maxFieldRunes),
		Telefone:         Digits(req.Telefone),
		Email:            Sanitize(strings.ToLower(req.Email), maxFieldRunes),
		Convenio:         convenio,
		DataPreferida:    req.DataPreferida,
		HorarioPreferido: req.HorarioPreferido,
		Sintomas:         Sanitize(req.Sintomas, maxFieldRunes),
		Status:           StatusPending,
		Timestamp:        now.UTC().Format(time.RFC3339),
	}
}

// Query looks up existing appointments by phone or name. Phone wins when both
// are set.
type Query struct {
	Telefone string `json:"telefone,omitempty"`
	Nome     string `json:"nome,omitempty"`
}

// Sanitize drops HTML markup, trims and truncates to max runes.
func Sanitize(s string, max int) string {
	s = strings.TrimSpace(stripTags(s))
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}

func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			// Raw keeps entities escaped so "&lt;b&gt;" never turns into markup.
			b.Write(z.Raw())
		}
	}
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
