// Package metrics defines the custom Prometheus metrics of the user service.
// All metrics are registered with the default registry on package init and
// exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_service"

// Result label values shared by the counters below.
const (
	ResultSuccess            = "success"
	ResultInvalid            = "invalid"
	ResultExists             = "exists"
	ResultInvalidCredentials = "invalid_credentials"
	ResultThrottled          = "throttled"
	ResultExpired            = "expired"
	ResultError              = "error"
)

// RegistrationsTotal counts account creation attempts.
// Label:
//   - result: success, invalid, exists or error
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of user registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts credential exchanges for tokens.
// Label:
//   - result: success, invalid_credentials, throttled or error
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of token requests, by result.",
	},
	[]string{"result"},
)

// TokenRefreshesTotal counts refresh attempts.
var TokenRefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of token refresh attempts, by result.",
	},
	[]string{"result"},
)

// PasswordHashDuration measures bcrypt hashing and verification time.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)
