package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPRequests records OTP issuance requests by flow and result
	// (sent|throttled|error).
	OTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_otp_requests_total",
			Help: "Total number of OTP issuance requests",
		},
		[]string{"flow", "result"},
	)

	// OTPVerifications records verification attempts by flow and result
	// (success|invalid|expired|exhausted|error).
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_otp_verifications_total",
			Help: "Total number of OTP verification attempts",
		},
		[]string{"flow", "result"},
	)

	// AuthAttempts records password authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
