package application

import (
	"context"
	"sync"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/infrastructure/metrics"
	"avena-triage-core/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
)

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// fakeRegistry is an in-memory StoreRegistry.
type fakeRegistry struct {
	mu          sync.Mutex
	stores      map[string]*domain.Store
	registerErr error
}

func newFakeRegistry(stores ...*domain.Store) *fakeRegistry {
	r := &fakeRegistry{stores: make(map[string]*domain.Store)}
	for _, s := range stores {
		r.stores[s.ID] = s
	}
	return r
}

func (r *fakeRegistry) Register(_ context.Context, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		return r.registerErr
	}
	copied := *store
	r.stores[store.ID] = &copied
	return nil
}

func (r *fakeRegistry) Get(_ context.Context, storeID string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[storeID]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	copied := *store
	return &copied, nil
}

func (r *fakeRegistry) List(_ context.Context) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Store, 0, len(r.stores))
	for _, s := range r.stores {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeRegistry) UpdateStatus(_ context.Context, storeID string, status domain.ConnectionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[storeID]
	if !ok {
		return domain.ErrStoreNotFound
	}
	store.Status = status
	return nil
}

func (r *fakeRegistry) Delete(_ context.Context, storeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[storeID]; !ok {
		return domain.ErrStoreNotFound
	}
	delete(r.stores, storeID)
	return nil
}

func (r *fakeRegistry) status(storeID string) domain.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[storeID]; ok {
		return s.Status
	}
	return ""
}

// fakeTokenStore is an in-memory TokenStore.
type fakeTokenStore struct {
	mu    sync.Mutex
	creds map[string]*domain.Credential
}

func newFakeTokenStore(creds ...*domain.Credential) *fakeTokenStore {
	ts := &fakeTokenStore{creds: make(map[string]*domain.Credential)}
	for _, c := range creds {
		ts.creds[c.StoreID] = c
	}
	return ts
}

func (ts *fakeTokenStore) Get(storeID string) (*domain.Credential, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	cred, ok := ts.creds[storeID]
	if !ok {
		return nil, domain.ErrNotConnected
	}
	copied := *cred
	return &copied, nil
}

func (ts *fakeTokenStore) Put(storeID string, cred *domain.Credential) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	copied := *cred
	ts.creds[storeID] = &copied
	return nil
}

func (ts *fakeTokenStore) Invalidate(storeID string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.creds, storeID)
	return nil
}

func (ts *fakeTokenStore) ListConnected() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]string, 0, len(ts.creds))
	for id := range ts.creds {
		out = append(out, id)
	}
	return out
}

// storeBehavior scripts one store's responses inside fakeStorefront.
type storeBehavior struct {
	orders       []domain.Order // matched by number or email
	failuresLeft int            // lookups failing with err before success; -1 fails forever
	err          error
	delay        time.Duration
}

// fakeStorefront is a scriptable StorefrontClient shared by the OAuth and
// resolver tests.
type fakeStorefront struct {
	mu            sync.Mutex
	behaviors     map[string]*storeBehavior
	exchange      *ports.TokenExchange
	exchangeErr   error
	exchangeCalls int
	validateOK    bool
	lookupCalls   map[string]int
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		behaviors:   make(map[string]*storeBehavior),
		lookupCalls: make(map[string]int),
		validateOK:  true,
	}
}

func (f *fakeStorefront) AuthorizeURL(shop string, _ []string, _ string, state string) string {
	return "https://" + domain.ShopDomain(shop) + "/admin/oauth/authorize?state=" + state
}

func (f *fakeStorefront) ExchangeToken(_ context.Context, _, _ string) (*ports.TokenExchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchange, nil
}

func (f *fakeStorefront) ValidateToken(_ context.Context, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateOK, nil
}

func (f *fakeStorefront) lookup(ctx context.Context, shop string) (*storeBehavior, error) {
	f.mu.Lock()
	storeID := domain.NormalizeStoreID(shop)
	f.lookupCalls[storeID]++
	b := f.behaviors[storeID]
	f.mu.Unlock()

	if b == nil {
		return &storeBehavior{}, nil
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if b.failuresLeft < 0 {
		return nil, b.err
	}
	if b.failuresLeft > 0 {
		b.failuresLeft--
		return nil, b.err
	}
	return b, nil
}

func (f *fakeStorefront) FindOrderByNumber(ctx context.Context, shop, _ string, number string) (*domain.Order, error) {
	b, err := f.lookup(ctx, shop)
	if err != nil {
		return nil, err
	}
	for i := range b.orders {
		if b.orders[i].Number == number {
			order := b.orders[i]
			return &order, nil
		}
	}
	return nil, nil
}

func (f *fakeStorefront) FindOrdersByEmail(ctx context.Context, shop, _ string, email string, limit int) ([]domain.Order, error) {
	b, err := f.lookup(ctx, shop)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	for i := range b.orders {
		if b.orders[i].Email == email {
			out = append(out, b.orders[i])
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStorefront) calls(storeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupCalls[storeID]
}

func connectedStore(id string) *domain.Store {
	return &domain.Store{
		ID:     id,
		Domain: domain.ShopDomain(id),
		Status: domain.StatusConnected,
	}
}

func liveCredential(storeID string) *domain.Credential {
	return &domain.Credential{
		StoreID:     storeID,
		AccessToken: "shpat_" + storeID,
		Scopes:      []string{"read_orders", "read_customers"},
		IssuedAt:    time.Now(),
	}
}
