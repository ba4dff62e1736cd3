package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"avena-triage-core/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport points every request at the test server regardless of the
// shop domain baked into the request URL.
type rewriteTransport struct {
	srv *httptest.Server
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(t.srv.URL)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(srv *httptest.Server) *client {
	return &client{
		apiKey:    "key-123",
		apiSecret: "secret-456",
		httpc:     &http.Client{Transport: rewriteTransport{srv}, Timeout: 2 * time.Second},
		logger:    zerolog.Nop(),
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := &client{apiKey: "key-123"}

	got := c.AuthorizeURL("avena-paris", []string{"read_orders", "read_customers"}, "https://app.example/auth/callback", "abc123")

	assert.Contains(t, got, "https://avena-paris.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, got, "client_id=key-123")
	assert.Contains(t, got, "scope=read_orders%2Cread_customers")
	assert.Contains(t, got, "redirect_uri=https%3A%2F%2Fapp.example%2Fauth%2Fcallback")
	assert.Contains(t, got, "state=abc123")
}

func TestExchangeTokenPreservesGrantedScopes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key-123", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-456", r.PostForm.Get("client_secret"))
		assert.Equal(t, "code-789", r.PostForm.Get("code"))

		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "shpat_fresh",
			"scope":        "read_orders, read_customers,",
		})
	}))
	defer srv.Close()

	exchange, err := newTestClient(srv).ExchangeToken(context.Background(), "avena-paris", "code-789")
	require.NoError(t, err)
	assert.Equal(t, "shpat_fresh", exchange.AccessToken)
	assert.Equal(t, []string{"read_orders", "read_customers"}, exchange.GrantedScopes)
}

func TestExchangeTokenRejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ExchangeToken(context.Background(), "avena-paris", "stale-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestValidateToken(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/"+apiVersion+"/shop.json", r.URL.Path)
		assert.Equal(t, "shpat_x", r.Header.Get("X-Shopify-Access-Token"))
		w.WriteHeader(status)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	valid, err := c.ValidateToken(context.Background(), "avena-paris", "shpat_x")
	require.NoError(t, err)
	assert.True(t, valid)

	for _, rejected := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		status = rejected
		valid, err = c.ValidateToken(context.Background(), "avena-paris", "shpat_x")
		require.NoError(t, err, "a revoked token is an answer, not a failure")
		assert.False(t, valid)
	}

	status = http.StatusInternalServerError
	_, err = c.ValidateToken(context.Background(), "avena-paris", "shpat_x")
	assert.Error(t, err, "a transient failure must not read as invalid")
}

func TestValidateTokenEmpty(t *testing.T) {
	c := &client{httpc: http.DefaultClient}
	_, err := c.ValidateToken(context.Background(), "avena-paris", "")
	assert.Error(t, err)
}

func TestTranslateAPIErrorRateLimited(t *testing.T) {
	throttled := goshopify.RateLimitError{
		ResponseError: goshopify.ResponseError{Status: http.StatusTooManyRequests},
		RetryAfter:    7,
	}

	var rl *domain.RateLimitedError
	require.ErrorAs(t, translateAPIError(throttled), &rl)
	assert.Equal(t, 7.0, rl.RetryAfter)

	// The throttle survives wrapping by intermediate layers.
	require.ErrorAs(t, translateAPIError(fmt.Errorf("listing orders: %w", throttled)), &rl)
}

func TestTranslateAPIErrorPassthrough(t *testing.T) {
	err := translateAPIError(errors.New("connection reset"))
	var rl *domain.RateLimitedError
	assert.False(t, errors.As(err, &rl))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMatchOrderByName(t *testing.T) {
	orders := []goshopify.Order{{Name: "#1001"}, {Name: "#1002"}}

	require.NotNil(t, matchOrderByName(orders, "1001"))
	assert.Equal(t, "#1001", matchOrderByName(orders, "1001").Name)
	assert.Equal(t, "#1002", matchOrderByName(orders, "#1002").Name)
	assert.Nil(t, matchOrderByName(orders, "1003"))

	// The name filter can return loose matches; only equality counts.
	assert.Nil(t, matchOrderByName([]goshopify.Order{{Name: "#10011"}}, "1001"))
}

func TestToDomainOrder(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	price := decimal.New(4999, -2)
	src := goshopify.Order{
		Id:                11,
		Name:              "#1001",
		Email:             "claire@example.com",
		FinancialStatus:   "paid",
		FulfillmentStatus: "fulfilled",
		Currency:          "EUR",
		CreatedAt:         &created,
		TotalPrice:        &price,
		Fulfillments: []goshopify.Fulfillment{
			{TrackingNumber: "COL1", TrackingUrl: "https://track.example/COL1"},
			{},
			{TrackingNumber: "COL2", TrackingUrl: "https://track.example/COL2"},
		},
	}

	order := toDomainOrder("avena-paris.myshopify.com", &src)
	assert.Equal(t, "avena-paris", order.StoreID)
	assert.Equal(t, int64(11), order.ID)
	assert.Equal(t, "1001", order.Number, "the # prefix never leaks out")
	assert.Equal(t, "49.99", order.TotalPrice)
	assert.Equal(t, "COL2", order.TrackingNumber, "the newest fulfillment with tracking wins")
	assert.Equal(t, "https://track.example/COL2", order.TrackingURL)
}

func TestToDomainOrderWithoutPriceOrTracking(t *testing.T) {
	order := toDomainOrder("avena-paris", &goshopify.Order{Id: 12, Name: "1002"})
	assert.Empty(t, order.TotalPrice)
	assert.Empty(t, order.TrackingNumber)
}
