package core

import "errors"

// Challenge and verification failures. All of these are terminal for the
// current login attempt; the client restarts from a fresh challenge.
var (
	ErrMalformedMessage = errors.New("malformed challenge message")
	ErrDomainMismatch   = errors.New("challenge domain mismatch")
	ErrInvalidNonce     = errors.New("invalid or replayed nonce")
	ErrExpiredChallenge = errors.New("challenge has expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrAddressMismatch  = errors.New("recovered address does not match claimed address")
	ErrInvalidAddress   = errors.New("invalid ethereum address")
)

// Session token failures.
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenBadSignature = errors.New("token signature verification failed")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalidated  = errors.New("token has been invalidated")
)
