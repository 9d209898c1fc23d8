package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the onboarding funnel. Registered on the default registry
// and served from /metrics.
var (
	SignupStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mandi_signup_started_total",
		Help: "Signup attempts that issued an OTP challenge.",
	})

	SignupCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mandi_signup_completed_total",
		Help: "Signups that verified an OTP and created an account.",
	})

	OtpResent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mandi_otp_resent_total",
		Help: "OTP resend requests that issued a fresh challenge.",
	})

	OtpFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mandi_otp_failures_total",
		Help: "OTP verification failures by kind.",
	}, []string{"kind"})

	KycSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mandi_kyc_submissions_total",
		Help: "KYC submissions accepted for review.",
	})

	KycReviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mandi_kyc_reviews_total",
		Help: "KYC review decisions by outcome.",
	}, []string{"outcome"})
)
