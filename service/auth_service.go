// Package service implements the wallet sign-in protocol: challenge
// issuance, signed-message verification, session issuance, refresh
// rotation, and logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/onchain-guard/gatekeeper/core"
	"github.com/onchain-guard/gatekeeper/internal/eth"
	"github.com/onchain-guard/gatekeeper/internal/metrics"
	"github.com/onchain-guard/gatekeeper/internal/siwe"
	"github.com/onchain-guard/gatekeeper/ports"
)

// DefaultStatement is the human-readable intent line embedded in challenges.
const DefaultStatement = "Sign in to On-Chain Guard to view wallet risk scores."

// AuthService sequences the login protocol. Each login attempt is
// single-shot: any verification failure is terminal and the client must
// request a fresh challenge.
type AuthService struct {
	tokenizer   ports.Tokenizer
	nonces      ports.NonceStore
	revocations ports.RevocationList
	events      ports.EventPublisher
	logger      *slog.Logger

	domain    string
	uri       string
	statement string

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration

	now func() time.Time
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithTTLs overrides the default challenge, access, and refresh lifetimes.
func WithTTLs(challenge, access, refresh time.Duration) Option {
	return func(s *AuthService) {
		s.challengeTTL = challenge
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithEventPublisher enables session lifecycle event publishing.
func WithEventPublisher(pub ports.EventPublisher) Option {
	return func(s *AuthService) { s.events = pub }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

// WithStatement overrides the challenge statement line.
func WithStatement(statement string) Option {
	return func(s *AuthService) { s.statement = statement }
}

// WithClock fixes the service clock. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service. domain is the host
// signed messages must be bound to; uri is the origin embedded in them.
func NewAuthService(
	domain, uri string,
	tokenizer ports.Tokenizer,
	nonces ports.NonceStore,
	revocations ports.RevocationList,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		nonces:       nonces,
		revocations:  revocations,
		logger:       slog.Default(),
		domain:       domain,
		uri:          uri,
		statement:    DefaultStatement,
		challengeTTL: 5 * time.Minute,
		accessTTL:    5 * time.Minute,
		refreshTTL:   120 * time.Hour, // 5 days
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChallenge issues a nonce and composes the message the wallet must
// sign. chainID of zero means the client did not report one; the challenge
// then defaults to mainnet.
func (s *AuthService) CreateChallenge(ctx context.Context, address string, chainID uint64) (*core.Challenge, error) {
	if !common.IsHexAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	if chainID == 0 {
		chainID = 1
	}

	nonce, err := s.nonces.Issue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to issue nonce: %w", err)
	}

	now := s.now()
	msg := &siwe.Message{
		Domain:         s.domain,
		Address:        common.HexToAddress(address).Hex(),
		Statement:      s.statement,
		URI:            s.uri,
		ChainID:        chainID,
		Nonce:          nonce,
		IssuedAt:       now,
		ExpirationTime: now.Add(s.challengeTTL),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	metrics.ChallengesIssued.Inc()

	return &core.Challenge{
		Message:   msg.String(),
		Nonce:     nonce,
		Address:   msg.Address,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: msg.ExpirationTime,
	}, nil
}

// Login verifies a signed challenge and mints a session token pair.
func (s *AuthService) Login(ctx context.Context, rawMessage, signature string) (access, refresh string, err error) {
	identity, err := s.verify(ctx, rawMessage, signature)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(loginResult(err)).Inc()
		return "", "", err
	}

	now := s.now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       identity.Address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	access, err = s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.ResultError).Inc()
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, err = s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.ResultError).Inc()
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("wallet signed in", "address", identity.Address, "session_id", session.ID)

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, identity.Address, session.ID); err != nil {
			s.logger.Warn("failed to publish login event", "error", err)
		}
	}

	return access, refresh, nil
}

// verify runs the verification steps in a fixed order. The nonce is
// consumed before the signature is even inspected, so two concurrent
// submissions of the same signed message resolve to exactly one winner.
func (s *AuthService) verify(ctx context.Context, rawMessage, signature string) (*core.Identity, error) {
	msg, err := siwe.Parse(rawMessage)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(msg.Domain, s.domain) {
		return nil, core.ErrDomainMismatch
	}

	consumed, err := s.nonces.Consume(ctx, msg.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce store failure: %w", err)
	}
	if !consumed {
		return nil, core.ErrInvalidNonce
	}

	if !msg.ExpirationTime.IsZero() && s.now().After(msg.ExpirationTime) {
		return nil, core.ErrExpiredChallenge
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: not a hex signature", core.ErrInvalidSignature)
	}
	recovered, err := eth.RecoverAddress([]byte(rawMessage), sig)
	if err != nil {
		return nil, err
	}

	if recovered != common.HexToAddress(msg.Address) {
		return nil, core.ErrAddressMismatch
	}

	return &core.Identity{Address: recovered.Hex()}, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", err
	}

	// The tokenizer already rejects expired tokens; recheck against the
	// injectable clock so tests can move time.
	if s.now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	revoked, err := s.revocations.IsRevoked(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return "", "", core.ErrTokenInvalidated
	}

	// Retire the presented refresh token for its remaining lifetime.
	if err := s.revocations.Revoke(ctx, session.RefreshID, time.Until(session.RefreshExpiry)); err != nil {
		return "", "", fmt.Errorf("failed to retire old token: %w", err)
	}

	now := s.now()
	next := &core.Session{
		ID:            uuid.New().String(),
		Address:       session.Address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	access, err := s.tokenizer.SessionToAccessToken(next)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}
	refresh, err := s.tokenizer.SessionToRefreshToken(next)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	return access, refresh, nil
}

// Logout invalidates a refresh token server-side and notifies other
// instances. Purely client-local sign-out is also valid; a client that
// never calls this simply discards its tokens.
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			// Already unusable; nothing to revoke.
			return nil
		}
		return err
	}

	remaining := time.Until(session.RefreshExpiry)
	if remaining <= 0 {
		remaining = time.Hour
	}

	if err := s.revocations.Revoke(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	metrics.SessionsRevoked.Inc()
	s.logger.Info("wallet signed out", "address", session.Address)

	if s.events != nil {
		if err := s.events.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
			s.logger.Warn("failed to publish logout event", "error", err)
		}
	}

	return nil
}

// ValidateAccessToken checks an access token's signature, expiry, and the
// revocation state of its parent refresh token.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Revoking a refresh token cuts off the access tokens minted with it.
	if session.RefreshID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, core.ErrMalformedMessage):
		return metrics.ResultMalformed
	case errors.Is(err, core.ErrDomainMismatch):
		return metrics.ResultDomainMismatch
	case errors.Is(err, core.ErrInvalidNonce):
		return metrics.ResultInvalidNonce
	case errors.Is(err, core.ErrExpiredChallenge):
		return metrics.ResultExpired
	case errors.Is(err, core.ErrAddressMismatch):
		return metrics.ResultAddressMismatch
	case errors.Is(err, core.ErrInvalidSignature):
		return metrics.ResultBadSignature
	default:
		return metrics.ResultError
	}
}
