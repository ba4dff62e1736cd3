package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/infrastructure/metrics"
	"avena-triage-core/internal/ports"

	"github.com/rs/zerolog"
)

// OAuthService drives the authorization flow for one store at a time: it
// opens sessions, verifies callbacks and persists the resulting credential.
type OAuthService struct {
	registry       ports.StoreRegistry
	sessions       ports.SessionStore
	tokens         ports.TokenStore
	client         ports.StorefrontClient
	requiredScopes []string
	redirectURI    string
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewOAuthService creates a new OAuth flow controller.
func NewOAuthService(
	registry ports.StoreRegistry,
	sessions ports.SessionStore,
	tokens ports.TokenStore,
	client ports.StorefrontClient,
	requiredScopes []string,
	redirectURI string,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		registry:       registry,
		sessions:       sessions,
		tokens:         tokens,
		client:         client,
		requiredScopes: requiredScopes,
		redirectURI:    redirectURI,
		metrics:        m,
		logger:         logger,
	}
}

// Begin opens an authorization flow for a store and returns the URL the
// merchant must be redirected to. A second Begin while a session is live
// fails with domain.ErrAlreadyPending.
func (s *OAuthService) Begin(ctx context.Context, shop, organizationID string) (string, error) {
	storeID := domain.NormalizeStoreID(shop)

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	now := time.Now()
	session := &domain.OAuthSession{
		StoreID:   storeID,
		Nonce:     nonce,
		Scopes:    s.requiredScopes,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}

	// The registry record is created on first contact so the dashboard can
	// show the store while authorization is still in flight.
	store, err := s.registry.Get(ctx, storeID)
	if err == domain.ErrStoreNotFound {
		store = &domain.Store{
			ID:             storeID,
			OrganizationID: organizationID,
			Domain:         domain.ShopDomain(storeID),
			Scopes:         s.requiredScopes,
			Status:         domain.StatusPendingAuth,
		}
		if err := s.registry.Register(ctx, store); err != nil {
			s.discardSession(ctx, storeID)
			return "", fmt.Errorf("failed to register store: %w", err)
		}
	} else if err != nil {
		s.discardSession(ctx, storeID)
		return "", fmt.Errorf("failed to look up store: %w", err)
	} else if err := s.registry.UpdateStatus(ctx, storeID, domain.StatusPendingAuth); err != nil {
		s.discardSession(ctx, storeID)
		return "", fmt.Errorf("failed to mark store pending: %w", err)
	}

	s.logger.Info().
		Str("store_id", storeID).
		Msg("Opened OAuth authorization flow")

	return s.client.AuthorizeURL(storeID, s.requiredScopes, s.redirectURI, nonce), nil
}

// discardSession drops the session Begin opened when a later step fails, so
// the merchant can retry immediately instead of waiting out the TTL.
func (s *OAuthService) discardSession(ctx context.Context, storeID string) {
	if _, err := s.sessions.Consume(ctx, storeID); err != nil {
		s.logger.Error().Err(err).
			Str("store_id", storeID).
			Msg("Failed to discard session after aborted authorization")
	}
}

// Complete handles the platform callback. The session nonce is checked before
// any network call; a stale or replayed callback never reaches the token
// endpoint.
func (s *OAuthService) Complete(ctx context.Context, shop, code, state string) error {
	storeID := domain.NormalizeStoreID(shop)

	session, err := s.sessions.Consume(ctx, storeID)
	if err != nil {
		return err
	}

	if session.Nonce != state {
		s.logger.Warn().
			Str("store_id", storeID).
			Msg("OAuth callback rejected: state nonce mismatch")
		return domain.ErrNonceMismatch
	}

	exchange, err := s.client.ExchangeToken(ctx, storeID, code)
	if err != nil {
		s.metrics.OAuthExchanges.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).
			Str("store_id", storeID).
			Msg("Token exchange failed")
		if statusErr := s.registry.UpdateStatus(ctx, storeID, domain.StatusInvalid); statusErr != nil {
			s.logger.Error().Err(statusErr).
				Str("store_id", storeID).
				Msg("Failed to mark store invalid after exchange failure")
		}
		return fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
	}

	now := time.Now()
	cred := &domain.Credential{
		StoreID:       storeID,
		AccessToken:   exchange.AccessToken,
		Scopes:        exchange.GrantedScopes,
		IssuedAt:      now,
		LastValidated: now,
	}

	// The merchant may approve fewer scopes than requested. A credential
	// that cannot serve the resolver is never persisted.
	if !cred.HasScopes(s.requiredScopes) {
		s.metrics.OAuthExchanges.WithLabelValues("insufficient_scope").Inc()
		s.logger.Warn().
			Str("store_id", storeID).
			Strs("granted", exchange.GrantedScopes).
			Strs("required", s.requiredScopes).
			Msg("Granted scopes are insufficient, discarding token")
		if statusErr := s.registry.UpdateStatus(ctx, storeID, domain.StatusInvalid); statusErr != nil {
			s.logger.Error().Err(statusErr).
				Str("store_id", storeID).
				Msg("Failed to mark store invalid after scope check")
		}
		return domain.ErrInsufficientScope
	}

	if err := s.tokens.Put(storeID, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if err := s.registry.UpdateStatus(ctx, storeID, domain.StatusConnected); err != nil {
		return fmt.Errorf("failed to mark store connected: %w", err)
	}

	s.metrics.OAuthExchanges.WithLabelValues("success").Inc()
	s.logger.Info().
		Str("store_id", storeID).
		Strs("scopes", exchange.GrantedScopes).
		Msg("Store connected")

	return nil
}

// TestConnection makes a live call with the store's credential. A rejected
// token invalidates the credential and flips the store to invalid so the
// resolver stops consulting it.
func (s *OAuthService) TestConnection(ctx context.Context, shop string) (bool, error) {
	storeID := domain.NormalizeStoreID(shop)

	cred, err := s.tokens.Get(storeID)
	if err != nil {
		return false, err
	}

	valid, err := s.client.ValidateToken(ctx, storeID, cred.AccessToken)
	if err != nil {
		return false, fmt.Errorf("connection test failed: %w", err)
	}
	if !valid {
		if invErr := s.tokens.Invalidate(storeID); invErr != nil {
			s.logger.Error().Err(invErr).
				Str("store_id", storeID).
				Msg("Failed to invalidate rejected credential")
		}
		if statusErr := s.registry.UpdateStatus(ctx, storeID, domain.StatusInvalid); statusErr != nil {
			s.logger.Error().Err(statusErr).
				Str("store_id", storeID).
				Msg("Failed to mark store invalid after rejected credential")
		}
		s.logger.Warn().
			Str("store_id", storeID).
			Msg("Credential rejected by platform, store disconnected")
		return false, nil
	}

	return true, nil
}
