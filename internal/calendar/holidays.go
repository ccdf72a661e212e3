package calendar

import (
	"sort"
	"time"
)

// Holiday is a fixed-date holiday that repeats every year.
type Holiday struct {
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
	Name  string     `json:"name"`
}

// MoveableHoliday is a holiday whose date depends on Easter for a given year.
type MoveableHoliday struct {
	Date Date   `json:"date"`
	Name string `json:"name"`
}

// DatedHoliday is a holiday resolved to a concrete day.
type DatedHoliday struct {
	Date     Date   `json:"date"`
	Name     string `json:"name"`
	Moveable bool   `json:"moveable"`
}

// HolidayCheck is the answer to "is this day a holiday".
type HolidayCheck struct {
	IsHoliday bool   `json:"is_holiday"`
	Name      string `json:"name,omitempty"`
}

// BrazilianFixedHolidays are the national holidays observed by the clinic.
var BrazilianFixedHolidays = []Holiday{
	{Month: time.January, Day: 1, Name: "Ano Novo"},
	{Month: time.April, Day: 21, Name: "Tiradentes"},
	{Month: time.May, Day: 1, Name: "Dia do Trabalho"},
	{Month: time.September, Day: 7, Name: "Independência do Brasil"},
	{Month: time.October, Day: 12, Name: "N. Sra. Aparecida"},
	{Month: time.November, Day: 2, Name: "Finados"},
	{Month: time.November, Day: 15, Name: "Proclamação da República"},
	{Month: time.November, Day: 20, Name: "Consciência Negra"},
	{Month: time.December, Day: 25, Name: "Natal"},
}

// Offsets from Easter Sunday, in days.
const (
	carnivalOffset      = -47
	goodFridayOffset    = -2
	corpusChristiOffset = 60
)

// Easter returns Easter Sunday of the Gregorian calendar for year
// (Meeus/Jones/Butcher). The result is always a valid March or April date.
func Easter(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return NewDate(year, time.Month(month), day)
}

// MoveableHolidays returns Carnaval, Sexta-feira Santa and Corpus Christi for year.
func MoveableHolidays(year int) []MoveableHoliday {
	easter := Easter(year)
	return []MoveableHoliday{
		{Date: easter.AddDays(carnivalOffset), Name: "Carnaval"},
		{Date: easter.AddDays(goodFridayOffset), Name: "Sexta-feira Santa"},
		{Date: easter.AddDays(corpusChristiOffset), Name: "Corpus Christi"},
	}
}

// HolidayCalendar answers holiday questions against a fixed-holiday table plus
// the Easter-relative set.
type HolidayCalendar struct {
	fixed []Holiday
}

// NewHolidayCalendar builds a calendar over the given fixed table. A nil table
// means BrazilianFixedHolidays.
func NewHolidayCalendar(fixed []Holiday) *HolidayCalendar {
	if fixed == nil {
		fixed = BrazilianFixedHolidays
	}
	table := make([]Holiday, len(fixed))
	copy(table, fixed)
	return &HolidayCalendar{fixed: table}
}

// Fixed returns a copy of the fixed-holiday table.
func (c *HolidayCalendar) Fixed() []Holiday {
	out := make([]Holiday, len(c.fixed))
	copy(out, c.fixed)
	return out
}

// IsHoliday checks the fixed table first, then the moveable holidays of d's
// own year. Fixed holidays win when both match.
func (c *HolidayCalendar) IsHoliday(d Date) HolidayCheck {
	for _, h := range c.fixed {
		if h.Month == d.Month() && h.Day == d.Day() {
			return HolidayCheck{IsHoliday: true, Name: h.Name}
		}
	}
	for _, h := range MoveableHolidays(d.Year()) {
		if h.Date.Month() == d.Month() && h.Date.Day() == d.Day() {
			return HolidayCheck{IsHoliday: true, Name: h.Name}
		}
	}
	return HolidayCheck{}
}

// HolidaysIn lists every holiday of year in date order. A day matched by both
// tables is listed once, under the fixed name.
func (c *HolidayCalendar) HolidaysIn(year int) []DatedHoliday {
	seen := make(map[string]struct{}, len(c.fixed)+3)
	out := make([]DatedHoliday, 0, len(c.fixed)+3)
	for _, h := range c.fixed {
		d := NewDate(year, h.Month, h.Day)
		// Feb 29 in a non-leap year normalizes into March; skip it.
		if d.Month() != h.Month {
			continue
		}
		seen[d.String()] = struct{}{}
		out = append(out, DatedHoliday{Date: d, Name: h.Name})
	}
	for _, h := range MoveableHolidays(year) {
		if _, dup := seen[h.Date.String()]; dup {
			continue
		}
		out = append(out, DatedHoliday{Date: h.Date, Name: h.Name, Moveable: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
