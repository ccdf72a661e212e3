package booking

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/slots"
)

// ValidationError lists every problem found in a request. It is returned
// before anything reaches the network.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// fieldMessages maps struct fields to the message shown to patients.
var fieldMessages = map[string]string{
	"Nome":             "Nome inválido",
	"Telefone":         "Telefone inválido",
	"Email":            "Email inválido",
	"DataPreferida":    "Data inválida",
	"HorarioPreferido": "Horário inválido",
	"Sintomas":         "Sintomas inválidos",
}

// fieldOrder keeps problem lists stable.
var fieldOrder = []string{"Nome", "Telefone", "Email", "DataPreferida", "HorarioPreferido", "Sintomas"}

// Validator checks booking requests against field rules, the calendar and
// the slot catalog.
type Validator struct {
	validate *validator.Validate
	rules    *calendar.Rules
	catalog  *slots.Catalog
}

func NewValidator(rules *calendar.Rules, catalog *slots.Catalog) *Validator {
	if rules == nil {
		rules = calendar.NewRules(nil, 0)
	}
	if catalog == nil {
		catalog = slots.MustCatalog(slots.DefaultCatalog)
	}
	v := validator.New()
	_ = v.RegisterValidation("telefone_br", func(fl validator.FieldLevel) bool {
		n := len(Digits(fl.Field().String()))
		return n == 10 || n == 11
	})
	return &Validator{validate: v, rules: rules, catalog: catalog}
}

// Validate returns a *ValidationError when req cannot be booked as of today.
func (v *Validator) Validate(req Request, today calendar.Date) error {
	req = req.trimmed()
	failed := map[string]string{}

	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Problems: []string{err.Error()}}
		}
		for _, fe := range verrs {
			failed[fe.StructField()] = fieldMessages[fe.StructField()]
		}
	}

	if _, done := failed["DataPreferida"]; !done {
		if msg := v.dateProblem(req.DataPreferida, today); msg != "" {
			failed["DataPreferida"] = msg
		}
	}
	if _, done := failed["HorarioPreferido"]; !done {
		slot, err := slots.Parse(req.HorarioPreferido)
		if err != nil || !v.catalog.Contains(slot) {
			failed["HorarioPreferido"] = fieldMessages["HorarioPreferido"]
		}
	}

	if len(failed) == 0 {
		return nil
	}
	out := &ValidationError{}
	for _, f := range fieldOrder {
		if msg, ok := failed[f]; ok {
			out.Problems = append(out.Problems, msg)
		}
	}
	return out
}

func (v *Validator) dateProblem(raw string, today calendar.Date) string {
	date, err := calendar.ParseDate(raw)
	if err != nil {
		return fieldMessages["DataPreferida"]
	}
	if date.Before(today) {
		return fieldMessages["DataPreferida"]
	}
	if !v.rules.InWindow(date, today) {
		return "Data fora do período de agendamento"
	}
	if class := v.rules.Classify(date, today); !class.Open() {
		return class.Message()
	}
	return ""
}

// ValidateQuery requires a phone with at least 10 digits or a name with at
// least 3 characters.
func ValidateQuery(q Query) (Query, error) {
	if tel := Digits(q.Telefone); tel != "" {
		if len(tel) < 10 {
			return Query{}, &ValidationError{Problems: []string{"Telefone inválido"}}
		}
		return Query{Telefone: tel}, nil
	}
	nome := Sanitize(q.Nome, maxQueryRunes)
	if len([]rune(nome)) < 3 {
		return Query{}, &ValidationError{Problems: []string{"Nome inválido"}}
	}
	return Query{Nome: nome}, nil
}
