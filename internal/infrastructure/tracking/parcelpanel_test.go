package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingByOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pp_paris_key", r.Header.Get("Authorization"))
		assert.Equal(t, "1001", r.URL.Query().Get("order_number"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{
			"tracking_number": "COL123456789FR",
			"order_number": "1001",
			"courier_name": "Colissimo",
			"status": "in_transit",
			"tracking_url": "https://track.example/COL123456789FR",
			"estimated_delivery_date": "2026-09-02"
		}]}`))
	}))
	defer server.Close()

	client := NewParcelpanelClientWithBaseURL(server.URL, map[string]string{
		"avena-paris": "pp_paris_key",
	}, zerolog.Nop())

	info, err := client.TrackingByOrder(context.Background(), "avena-paris", "1001")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "COL123456789FR", info.TrackingNumber)
	assert.Equal(t, "Colissimo", info.Carrier)
	assert.Equal(t, "in_transit", info.Status)
	assert.Equal(t, "2026-09-02", info.EstimatedDelivery)
}

func TestTrackingByOrderNoKeyForStore(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewParcelpanelClientWithBaseURL(server.URL, map[string]string{
		"avena-paris": "pp_paris_key",
	}, zerolog.Nop())

	info, err := client.TrackingByOrder(context.Background(), "avena-berlin", "1001")
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.False(t, called, "no request should be made without an API key")
}

func TestTrackingByOrderEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewParcelpanelClientWithBaseURL(server.URL, map[string]string{
		"avena-paris": "pp_paris_key",
	}, zerolog.Nop())

	info, err := client.TrackingByOrder(context.Background(), "avena-paris", "9999")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestTrackingByOrderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewParcelpanelClientWithBaseURL(server.URL, map[string]string{
		"avena-paris": "bad_key",
	}, zerolog.Nop())

	_, err := client.TrackingByOrder(context.Background(), "avena-paris", "1001")
	assert.Error(t, err)
}
