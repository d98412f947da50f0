package location

import (
	"context"

	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/config"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

// StaticSource serves the fixed coordinates of the capture point the agent
// is installed at. When location access is not granted it reports permission
// denial so submissions degrade to the sentinel address.
type StaticSource struct {
	granted bool
	lat     float64
	lng     float64
}

// NewStaticSource builds the source from device configuration.
func NewStaticSource(cfg config.DeviceConfig) *StaticSource {
	return &StaticSource{
		granted: cfg.LocationGranted,
		lat:     cfg.Latitude,
		lng:     cfg.Longitude,
	}
}

func (s *StaticSource) Coordinates(ctx context.Context) (float64, float64, error) {
	if !s.granted {
		return 0, 0, appErrors.ErrPermissionDenied
	}
	return s.lat, s.lng, nil
}
