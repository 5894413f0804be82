package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "krunchbot"

// Result labels
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the bot's prometheus collectors
type Metrics struct {
	Commands        *prometheus.CounterVec
	Announcements   *prometheus.CounterVec
	StoreOperations *prometheus.CounterVec
	WeatherFetches  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands handled, by command and result.",
		}, []string{"command", "result"}),
		Announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Meeting announcements computed, by trigger and result.",
		}, []string{"trigger", "result"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Event store loads and saves, by store, operation and result.",
		}, []string{"store", "op", "result"}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetches_total",
			Help:      "Forecast API requests, by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.Commands, m.Announcements, m.StoreOperations, m.WeatherFetches)
	}
	return m
}

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
