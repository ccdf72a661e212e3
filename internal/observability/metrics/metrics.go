package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metric family names read back by the admin stats endpoint.
const (
	OccupiedLookupsName = "clinic_availability_occupied_lookups_total"
	DayResolutionsName  = "clinic_availability_day_resolutions_total"
	BookingsName        = "clinic_booking_submissions_total"
)

// AvailabilityMetrics exposes counters/histograms for slot lookups and resolution.
type AvailabilityMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	lookupLatency  *prometheus.HistogramVec
	dayResolutions *prometheus.CounterVec
	windowLatency  prometheus.Histogram
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "occupied_lookups_total",
			Help:      "Occupied-slot lookups by outcome (hit, miss, network_failure, malformed_response)",
		}, []string{"result"}),
		lookupLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "remote_lookup_seconds",
			Help:      "Latency of remote occupied-slot lookups",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		dayResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "day_resolutions_total",
			Help:      "Resolved days by status",
		}, []string{"status"}),
		windowLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "window_resolution_seconds",
			Help:      "Latency of unavailable-date window resolution",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.lookupsTotal, m.lookupLatency, m.dayResolutions, m.windowLatency)
	return m
}

func (m *AvailabilityMetrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *AvailabilityMetrics) ObserveRemoteLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.lookupLatency.WithLabelValues(status).Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveDay(status string) {
	if m == nil {
		return
	}
	m.dayResolutions.WithLabelValues(status).Inc()
}

func (m *AvailabilityMetrics) ObserveWindow(seconds float64) {
	if m == nil {
		return
	}
	m.windowLatency.Observe(seconds)
}

// BookingMetrics counts booking submissions by outcome.
type BookingMetrics struct {
	submissions *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions)
	return m
}

func (m *BookingMetrics) ObserveSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}
