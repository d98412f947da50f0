package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/config"
)

// HTTPGeocoder queries a Nominatim-compatible reverse geocoding endpoint
// and condenses the result to a short street+city string.
type HTTPGeocoder struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGeocoder builds a geocoder from config; returns nil when reverse
// geocoding is disabled so the provider falls back to raw coordinates.
func NewHTTPGeocoder(cfg config.GeocodeConfig) *HTTPGeocoder {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGeocoder{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
	} `json:"address"`
}

// ReverseGeocode implements Geocoder.
func (g *HTTPGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return shortAddress(out), nil
}

func shortAddress(r geocodeResponse) string {
	street := strings.TrimSpace(strings.TrimSpace(r.Address.Road + " " + r.Address.HouseNumber))
	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}

	switch {
	case street != "" && city != "":
		return street + ", " + city
	case street != "":
		return street
	case city != "":
		return city
	default:
		return r.DisplayName
	}
}
