// Package metrics exposes Prometheus counters for the auth flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChallengesIssued counts issued sign-in challenges.
	ChallengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_challenges_issued_total",
		Help: "Number of sign-in challenges issued.",
	})

	// LoginAttempts counts login verifications by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_login_attempts_total",
		Help: "Number of login attempts by result.",
	}, []string{"result"})

	// SessionsRevoked counts explicit sign-outs.
	SessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_sessions_revoked_total",
		Help: "Number of sessions revoked via logout.",
	})
)

// Login attempt result labels.
const (
	ResultSuccess         = "success"
	ResultMalformed       = "malformed_message"
	ResultDomainMismatch  = "domain_mismatch"
	ResultInvalidNonce    = "invalid_nonce"
	ResultExpired         = "expired_challenge"
	ResultBadSignature    = "invalid_signature"
	ResultAddressMismatch = "address_mismatch"
	ResultError           = "internal_error"
)
