package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes.
const (
	loginSent        = "sent"
	loginUnknownUser = "unknown_user"
	loginStoreError  = "store_error"
	loginNotifyError = "notify_error"
)

// Verify outcomes.
const (
	verifySuccess  = "success"
	verifyNotFound = "not_found"
	verifyExpired  = "expired"
	verifyBackend  = "backend_error"
	verifySigning  = "signing_error"
)

var (
	loginRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magiclink",
		Name:      "login_requests_total",
		Help:      "Magic-link login requests by outcome.",
	}, []string{"outcome"})

	verifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magiclink",
		Name:      "verify_requests_total",
		Help:      "Magic-link code redemptions by outcome.",
	}, []string{"outcome"})
)
