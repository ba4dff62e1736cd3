package domain

// TrackingInfo is live parcel state from the tracking provider, used to
// enrich a resolved order whose storefront record has no tracking yet.
type TrackingInfo struct {
	TrackingNumber    string `json:"tracking_number"`
	OrderNumber       string `json:"order_number,omitempty"`
	Carrier           string `json:"carrier,omitempty"`
	Status            string `json:"status,omitempty"`
	TrackingURL       string `json:"tracking_url,omitempty"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}
