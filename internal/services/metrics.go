package services

import "github.com/prometheus/client_golang/prometheus"

// authEvents counts authentication outcomes by event name (login,
// login_failed, logout, refresh, register, password_changed).
var authEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Authentication events by outcome.",
	},
	[]string{"event"},
)

func init() {
	prometheus.MustRegister(authEvents)
}

func authEvent(name string) { authEvents.WithLabelValues(name).Inc() }
