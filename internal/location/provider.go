// Package location resolves device coordinates and a best-effort display
// address.
package location

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

// Sentinel display states when no coordinates are available.
const (
	AddressNoPermission = "location permission denied"
	AddressUnavailable  = "location unavailable"
)

// CoordinateSource is the external positioning collaborator (GPS hardware,
// platform location service). Permission denial is signalled with
// errors wrapping appErrors.ErrPermissionDenied.
type CoordinateSource interface {
	Coordinates(ctx context.Context) (lat, lng float64, err error)
}

// Geocoder turns coordinates into a short human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// Provider combines a coordinate source with best-effort reverse geocoding.
// Resolve never fails: every degradation path yields a displayable state.
type Provider struct {
	source   CoordinateSource
	geocoder Geocoder
	logger   *zap.Logger
}

// NewProvider constructs a Provider. geocoder may be nil when reverse
// geocoding is disabled; coordinates are then displayed raw.
func NewProvider(source CoordinateSource, geocoder Geocoder, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{source: source, geocoder: geocoder, logger: logger}
}

// Resolve returns the current location. On permission denial the sentinel
// "no permission" state is returned with nil coordinates so submissions can
// proceed rather than block. Geocoding failures fall back to raw
// coordinates and never fail the resolution.
func (p *Provider) Resolve(ctx context.Context) models.Location {
	lat, lng, err := p.source.Coordinates(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrPermissionDenied) {
			return models.Location{Address: AddressNoPermission}
		}
		p.logger.Warn("coordinate resolution failed", zap.Error(err))
		return models.Location{Address: AddressUnavailable}
	}

	loc := models.Location{
		Latitude:  &lat,
		Longitude: &lng,
		Address:   FormatCoordinates(lat, lng),
	}

	if p.geocoder == nil {
		return loc
	}
	address, err := p.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil || address == "" {
		if err != nil {
			p.logger.Debug("reverse geocoding failed", zap.Error(err))
		}
		return loc
	}
	loc.Address = address
	return loc
}

// FormatCoordinates renders the raw-coordinate fallback display.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}
