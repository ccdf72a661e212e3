package calendar

// BlockReason says why a day cannot be booked. Empty means open.
type BlockReason string

const (
	ReasonNone     BlockReason = ""
	ReasonPastDate BlockReason = "past_date"
	ReasonWeekend  BlockReason = "weekend"
	ReasonHoliday  BlockReason = "holiday"
)

// DefaultBookingWindowDays is how far ahead patients may book.
const DefaultBookingWindowDays = 90

// Classification is the outcome of running a day through the rules.
type Classification struct {
	Reason      BlockReason `json:"reason,omitempty"`
	HolidayName string      `json:"holiday_name,omitempty"`
}

// Open reports whether no rule blocked the day.
func (c Classification) Open() bool {
	return c.Reason == ReasonNone
}

// Message is the patient-facing explanation for a blocked day.
func (c Classification) Message() string {
	switch c.Reason {
	case ReasonPastDate:
		return "Data já passou"
	case ReasonWeekend:
		return "Não atendemos aos finais de semana"
	case ReasonHoliday:
		return "Feriado: " + c.HolidayName
	default:
		return ""
	}
}

// Rules classifies days as bookable or not.
type Rules struct {
	holidays   *HolidayCalendar
	windowDays int
}

// NewRules builds the rule engine. A nil calendar uses the Brazilian table and a
// non-positive window uses DefaultBookingWindowDays.
func NewRules(holidays *HolidayCalendar, windowDays int) *Rules {
	if holidays == nil {
		holidays = NewHolidayCalendar(nil)
	}
	if windowDays <= 0 {
		windowDays = DefaultBookingWindowDays
	}
	return &Rules{holidays: holidays, windowDays: windowDays}
}

// Holidays exposes the underlying holiday calendar.
func (r *Rules) Holidays() *HolidayCalendar {
	return r.holidays
}

// WindowDays is the configured booking window length.
func (r *Rules) WindowDays() int {
	return r.windowDays
}

// Classify checks past, then weekend, then holiday. The first match wins.
func (r *Rules) Classify(date, today Date) Classification {
	if date.Before(today) {
		return Classification{Reason: ReasonPastDate}
	}
	if date.IsWeekend() {
		return Classification{Reason: ReasonWeekend}
	}
	if h := r.holidays.IsHoliday(date); h.IsHoliday {
		return Classification{Reason: ReasonHoliday, HolidayName: h.Name}
	}
	return Classification{}
}

// Window returns the first and last bookable day, inclusive.
func (r *Rules) Window(today Date) (Date, Date) {
	return today, today.AddDays(r.windowDays)
}

// InWindow reports whether date falls in [today, today+windowDays].
func (r *Rules) InWindow(date, today Date) bool {
	first, last := r.Window(today)
	return !date.Before(first) && !date.After(last)
}
