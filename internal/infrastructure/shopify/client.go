package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const apiVersion = "2024-01"

type client struct {
	apiKey    string
	apiSecret string
	app       goshopify.App
	httpc     *http.Client
	logger    zerolog.Logger
}

// NewClient creates a Shopify admin API adapter. The client is stateless:
// shop domain and access token are passed per call so one instance serves
// every store.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.StorefrontClient {
	return &client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpc:  &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (c *client) createClient(shopDomain, accessToken string) (*goshopify.Client, error) {
	sc, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return sc, nil
}

func (c *client) AuthorizeURL(shop string, scopes []string, redirectURI, state string) string {
	// Shopify expects scopes comma-separated, no spaces.
	scopesStr := strings.Join(scopes, ",")

	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		domain.ShopDomain(shop),
		c.apiKey,
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
}

func (c *client) ExchangeToken(ctx context.Context, shop, code string) (*ports.TokenExchange, error) {
	// The go-shopify helper discards the granted scope string, which the
	// caller needs to verify the merchant approved everything requested,
	// so the token endpoint is called directly.
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", domain.ShopDomain(shop))

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	var granted []string
	for _, s := range strings.Split(tokenResponse.Scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}

	return &ports.TokenExchange{
		AccessToken:   tokenResponse.AccessToken,
		GrantedScopes: granted,
	}, nil
}

// ValidateToken hits the shop.json endpoint, the cheapest authenticated call.
// A 401 or 403 means the token was revoked; transient failures are reported
// as errors rather than treated as invalid so a network blip never tears
// down a working connection.
func (c *client) ValidateToken(ctx context.Context, shop, accessToken string) (bool, error) {
	if accessToken == "" {
		return false, fmt.Errorf("token is empty")
	}

	endpoint := fmt.Sprintf("https://%s/admin/api/%s/shop.json", domain.ShopDomain(shop), apiVersion)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("token validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("shop", shop).
			Msg("Token validation failed: token is invalid or revoked")
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("token validation returned status %d", resp.StatusCode)
	}

	return true, nil
}

// orderSearchOptions is encoded into the orders.json query string by the
// go-shopify client via go-querystring.
type orderSearchOptions struct {
	Name   string `url:"name,omitempty"`
	Email  string `url:"email,omitempty"`
	Status string `url:"status,omitempty"`
	Limit  int    `url:"limit,omitempty"`
}

func (c *client) FindOrderByNumber(ctx context.Context, shop, accessToken, number string) (*domain.Order, error) {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}

	// Customers write order numbers with or without the "#" Shopify puts in
	// the order name. Try the raw form first, then the prefixed one.
	attempts := []string{number}
	if !strings.HasPrefix(number, "#") {
		attempts = append(attempts, "#"+number)
	}

	for _, name := range attempts {
		orders, err := sc.Order.List(ctx, orderSearchOptions{
			Name:   name,
			Status: "any",
			Limit:  5,
		})
		if err != nil {
			return nil, translateAPIError(err)
		}
		if match := matchOrderByName(orders, name); match != nil {
			order := toDomainOrder(shop, match)
			return &order, nil
		}
	}

	return nil, nil
}

func (c *client) FindOrdersByEmail(ctx context.Context, shop, accessToken, email string, limit int) ([]domain.Order, error) {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}

	orders, err := sc.Order.List(ctx, orderSearchOptions{
		Email:  email,
		Status: "any",
		Limit:  limit,
	})
	if err != nil {
		return nil, translateAPIError(err)
	}

	result := make([]domain.Order, 0, len(orders))
	for i := range orders {
		result = append(result, toDomainOrder(shop, &orders[i]))
	}
	return result, nil
}

// matchOrderByName finds the order whose name equals the requested one. The
// "#" prefix is ignored on both sides because the orders.json name filter can
// return loose matches.
func matchOrderByName(orders []goshopify.Order, name string) *goshopify.Order {
	want := strings.TrimPrefix(name, "#")
	for i := range orders {
		if strings.TrimPrefix(orders[i].Name, "#") == want {
			return &orders[i]
		}
	}
	return nil
}

// translateAPIError maps go-shopify throttling responses onto the domain
// rate-limit error so the resolver can schedule a retry.
func translateAPIError(err error) error {
	var rle goshopify.RateLimitError
	if errors.As(err, &rle) {
		return &domain.RateLimitedError{RetryAfter: float64(rle.RetryAfter)}
	}
	return fmt.Errorf("failed to list orders: %w", err)
}

func toDomainOrder(shop string, o *goshopify.Order) domain.Order {
	order := domain.Order{
		StoreID:           domain.NormalizeStoreID(shop),
		ID:                int64(o.Id),
		Number:            strings.TrimPrefix(o.Name, "#"),
		Email:             o.Email,
		FinancialStatus:   string(o.FinancialStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		Currency:          o.Currency,
		CreatedAt:         o.CreatedAt,
	}

	if o.TotalPrice != nil {
		order.TotalPrice = o.TotalPrice.String()
	}

	// The newest fulfillment carries the tracking details customers ask about.
	for i := len(o.Fulfillments) - 1; i >= 0; i-- {
		f := o.Fulfillments[i]
		if f.TrackingNumber != "" {
			order.TrackingNumber = f.TrackingNumber
			order.TrackingURL = f.TrackingUrl
			break
		}
	}

	return order
}
