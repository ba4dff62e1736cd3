package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/infrastructure/metrics"
	"avena-triage-core/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const emailMatchLimit = 5

// ResolverConfig bounds one resolution pass.
type ResolverConfig struct {
	StoreLookupTimeout time.Duration
	ResolutionTimeout  time.Duration
	MaxConcurrent      int
	RateLimitBackoff   time.Duration
}

// ResolverService fans a candidate out across every connected store and
// reduces the answers into one ResolvedOrder. Store failures are isolated:
// a store that times out, loses auth or gets throttled is recorded as
// skipped and never aborts the others.
type ResolverService struct {
	registry ports.StoreRegistry
	tokens   ports.TokenStore
	client   ports.StorefrontClient
	cfg      ResolverConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewResolverService creates a new cross-store order resolver.
func NewResolverService(
	registry ports.StoreRegistry,
	tokens ports.TokenStore,
	client ports.StorefrontClient,
	cfg ResolverConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ResolverService {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &ResolverService{
		registry: registry,
		tokens:   tokens,
		client:   client,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// storeResult is what one store contributed to a resolution.
type storeResult struct {
	exact *domain.Order
	email *domain.Order // newest order matching the customer email
	skip  *domain.SkippedStore
}

// Resolve queries every connected store for the candidate. Ambiguity and
// no-match are outcomes carried in the ResolvedOrder, not errors.
func (s *ResolverService) Resolve(ctx context.Context, candidate domain.OrderCandidate) (*domain.ResolvedOrder, error) {
	started := time.Now()
	defer func() {
		s.metrics.ResolutionDuration.Observe(time.Since(started).Seconds())
	}()

	if candidate.Empty() {
		return &domain.ResolvedOrder{Confidence: domain.ConfidenceNone}, nil
	}

	stores, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	lookupCtx, cancelLookups := context.WithTimeout(ctx, s.cfg.ResolutionTimeout)
	defer cancelLookups()

	var (
		mu      sync.Mutex
		results = make(map[string]*storeResult)
	)
	record := func(storeID string, r *storeResult) {
		mu.Lock()
		results[storeID] = r
		mu.Unlock()
	}

	// The token store is the source of truth for usability. A store the
	// registry calls connected but whose credential is gone, invalid or
	// expired is skipped for this pass.
	live := make(map[string]bool)
	for _, id := range s.tokens.ListConnected() {
		live[id] = true
	}

	g := &errgroup.Group{}
	g.SetLimit(s.cfg.MaxConcurrent)

	for _, store := range stores {
		if store.Status != domain.StatusConnected {
			continue
		}
		store := store

		if !live[store.ID] {
			record(store.ID, &storeResult{skip: &domain.SkippedStore{
				StoreID: store.ID,
				Reason:  "not_connected",
			}})
			s.metrics.StoreLookups.WithLabelValues(store.ID, "not_connected").Inc()
			continue
		}

		cred, err := s.tokens.Get(store.ID)
		if err != nil {
			// Invalidated between the snapshot and now.
			record(store.ID, &storeResult{skip: &domain.SkippedStore{
				StoreID: store.ID,
				Reason:  "not_connected",
			}})
			s.metrics.StoreLookups.WithLabelValues(store.ID, "not_connected").Inc()
			continue
		}

		g.Go(func() error {
			storeCtx, cancelStore := context.WithTimeout(lookupCtx, s.cfg.StoreLookupTimeout)
			defer cancelStore()

			result := s.lookupStore(storeCtx, store, cred, candidate)
			if result == nil {
				// Lookup cancelled after resolution already succeeded.
				return nil
			}
			record(store.ID, result)

			switch {
			case result.exact != nil:
				s.metrics.StoreLookups.WithLabelValues(store.ID, "exact").Inc()
				// First exact match stops the search early. Cancellation is
				// advisory: lookups that already finished keep their results
				// so a collision among completed stores is still detected.
				cancelLookups()
			case result.skip != nil:
				s.metrics.StoreLookups.WithLabelValues(store.ID, result.skip.Reason).Inc()
			case result.email != nil:
				s.metrics.StoreLookups.WithLabelValues(store.ID, "email").Inc()
			default:
				s.metrics.StoreLookups.WithLabelValues(store.ID, "no_match").Inc()
			}
			return nil
		})
	}

	_ = g.Wait()

	return s.reduce(results), nil
}

// lookupStore consults one store. A nil return means the lookup was
// cancelled by an earlier exact match and contributes nothing.
func (s *ResolverService) lookupStore(ctx context.Context, store *domain.Store, cred *domain.Credential, candidate domain.OrderCandidate) *storeResult {
	if number := strings.TrimPrefix(candidate.Number, "#"); number != "" {
		var order *domain.Order
		err := s.retryRateLimited(ctx, store.ID, func() error {
			var lookupErr error
			order, lookupErr = s.client.FindOrderByNumber(ctx, store.ID, cred.AccessToken, number)
			return lookupErr
		})
		if err != nil {
			return s.skipFor(ctx, store.ID, err)
		}
		if order != nil {
			return &storeResult{exact: order}
		}
	}

	if candidate.Email != "" {
		var orders []domain.Order
		err := s.retryRateLimited(ctx, store.ID, func() error {
			var lookupErr error
			orders, lookupErr = s.client.FindOrdersByEmail(ctx, store.ID, cred.AccessToken, candidate.Email, emailMatchLimit)
			return lookupErr
		})
		if err != nil {
			return s.skipFor(ctx, store.ID, err)
		}
		if len(orders) > 0 {
			newest := orders[0]
			return &storeResult{email: &newest}
		}
	}

	return &storeResult{}
}

// retryRateLimited runs fn, and when the platform throttles, waits out a
// bounded backoff and tries exactly once more.
func (s *ResolverService) retryRateLimited(ctx context.Context, storeID string, fn func() error) error {
	err := fn()
	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) {
		return err
	}

	backoff := s.cfg.RateLimitBackoff
	if rl.RetryAfter > 0 {
		if hinted := time.Duration(rl.RetryAfter * float64(time.Second)); hinted < backoff {
			backoff = hinted
		}
	}

	s.logger.Debug().
		Str("store_id", storeID).
		Dur("backoff", backoff).
		Msg("Store lookup rate limited, retrying once")

	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

func (s *ResolverService) skipFor(ctx context.Context, storeID string, err error) *storeResult {
	var rl *domain.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return &storeResult{skip: &domain.SkippedStore{StoreID: storeID, Reason: "rate_limited"}}
	case errors.Is(err, context.DeadlineExceeded):
		return &storeResult{skip: &domain.SkippedStore{StoreID: storeID, Reason: "timeout"}}
	case errors.Is(err, context.Canceled):
		if ctx.Err() == context.Canceled {
			// Advisory cancellation from an earlier exact match.
			return nil
		}
		return &storeResult{skip: &domain.SkippedStore{StoreID: storeID, Reason: "timeout"}}
	default:
		s.logger.Warn().Err(err).
			Str("store_id", storeID).
			Msg("Store lookup failed")
		return &storeResult{skip: &domain.SkippedStore{StoreID: storeID, Reason: "unavailable"}}
	}
}

// reduce applies the matching policy over the per-store answers.
func (s *ResolverService) reduce(results map[string]*storeResult) *domain.ResolvedOrder {
	var (
		exact   []domain.Order
		byEmail []domain.Order
		skipped []domain.SkippedStore
	)
	for _, r := range results {
		switch {
		case r.exact != nil:
			exact = append(exact, *r.exact)
		case r.email != nil:
			byEmail = append(byEmail, *r.email)
		case r.skip != nil:
			skipped = append(skipped, *r.skip)
		}
	}

	switch {
	case len(exact) == 1:
		return &domain.ResolvedOrder{
			Confidence: domain.ConfidenceExactID,
			Order:      &exact[0],
			Skipped:    skipped,
		}
	case len(exact) > 1:
		// The same human-readable id exists in several tenants. No priority
		// ordering among stores is assumed; the collision goes to review.
		return &domain.ResolvedOrder{
			Confidence: domain.ConfidenceExactID,
			Competing:  exact,
			Skipped:    skipped,
		}
	case len(byEmail) == 1:
		return &domain.ResolvedOrder{
			Confidence: domain.ConfidenceEmailOnly,
			Order:      &byEmail[0],
			Skipped:    skipped,
		}
	case len(byEmail) > 1:
		return &domain.ResolvedOrder{
			Confidence: domain.ConfidenceEmailOnly,
			Competing:  byEmail,
			Skipped:    skipped,
		}
	default:
		return &domain.ResolvedOrder{
			Confidence: domain.ConfidenceNone,
			Skipped:    skipped,
		}
	}
}
