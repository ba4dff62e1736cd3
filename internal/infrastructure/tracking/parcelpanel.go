package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/ports"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.parcelpanel.com/api/v3"

// ParcelpanelClient queries the Parcelpanel tracking API. Each store has its
// own API key; stores without a key simply get no enrichment.
type ParcelpanelClient struct {
	baseURL string
	keys    map[string]string // store id -> API key
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewParcelpanelClient creates a tracking provider over the given per-store
// key map.
func NewParcelpanelClient(keys map[string]string, logger zerolog.Logger) ports.TrackingProvider {
	return &ParcelpanelClient{
		baseURL: defaultBaseURL,
		keys:    keys,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// NewParcelpanelClientWithBaseURL is used by tests to point at a stub server.
func NewParcelpanelClientWithBaseURL(baseURL string, keys map[string]string, logger zerolog.Logger) ports.TrackingProvider {
	c := NewParcelpanelClient(keys, logger).(*ParcelpanelClient)
	c.baseURL = baseURL
	return c
}

type parcelDoc struct {
	TrackingNumber        string `json:"tracking_number"`
	OrderNumber           string `json:"order_number"`
	CourierName           string `json:"courier_name"`
	Carrier               string `json:"carrier"`
	Status                string `json:"status"`
	TrackingURL           string `json:"tracking_url"`
	EstimatedDeliveryDate string `json:"estimated_delivery_date"`
}

// TrackingByOrder implements ports.TrackingProvider.
func (c *ParcelpanelClient) TrackingByOrder(ctx context.Context, storeID, orderNumber string) (*domain.TrackingInfo, error) {
	apiKey, ok := c.keys[storeID]
	if !ok || apiKey == "" {
		c.logger.Debug().
			Str("store_id", storeID).
			Msg("No Parcelpanel key configured for store, skipping enrichment")
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/parcels?order_number=%s", c.baseURL, url.QueryEscape(orderNumber))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracking request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracking request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracking api returned status %d", resp.StatusCode)
	}

	var body struct {
		Data []parcelDoc `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}
	if len(body.Data) == 0 {
		return nil, nil
	}

	parcel := body.Data[0]
	carrier := parcel.CourierName
	if carrier == "" {
		carrier = parcel.Carrier
	}

	return &domain.TrackingInfo{
		TrackingNumber:    parcel.TrackingNumber,
		OrderNumber:       parcel.OrderNumber,
		Carrier:           carrier,
		Status:            parcel.Status,
		TrackingURL:       parcel.TrackingURL,
		EstimatedDelivery: parcel.EstimatedDeliveryDate,
	}, nil
}
