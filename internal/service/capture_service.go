package service

import (
	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

type photoNormalizer interface {
	Normalize(raw []byte) (string, error)
}

// CaptureProgress reports the session state after each shot.
type CaptureProgress struct {
	Captured  int
	Required  int
	Guidance  string
	Done      bool
	Photos    []string
	Mode      models.CaptureMode
	EventType models.EventType
}

// CaptureService drives one photo session at a time: exactly
// photosRequired ordered shots for enrollment flows, exactly one for
// verification. Cancelling discards everything accumulated so far.
type CaptureService struct {
	normalizer     photoNormalizer
	photosRequired int
	logger         *zap.Logger

	mode      models.CaptureMode
	eventType models.EventType
	photos    []string
}

// NewCaptureService builds a CaptureService. photosRequired <= 0 falls
// back to the enrollment default.
func NewCaptureService(normalizer photoNormalizer, photosRequired int, logger *zap.Logger) *CaptureService {
	if photosRequired <= 0 {
		photosRequired = models.PhotosRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureService{
		normalizer:     normalizer,
		photosRequired: photosRequired,
		logger:         logger,
		mode:           models.CaptureIdle,
	}
}

// Begin opens a session. Verify mode requires a valid pending event type;
// a session already in progress must be cancelled first.
func (s *CaptureService) Begin(mode models.CaptureMode, eventType models.EventType) error {
	if s.mode != models.CaptureIdle {
		return appErrors.Clone(appErrors.ErrPrecondition, "a capture session is already active")
	}
	switch mode {
	case models.CaptureRegisterExisting, models.CaptureRegisterNew:
	case models.CaptureVerify:
		if !eventType.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "verify capture requires an event type")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported capture mode")
	}

	s.mode = mode
	s.eventType = eventType
	s.photos = nil
	return nil
}

// AddPhoto normalizes and appends one captured frame. When the session
// target is reached the session closes automatically and the full ordered
// photo list is handed back with Done set.
func (s *CaptureService) AddPhoto(raw []byte) (CaptureProgress, error) {
	if s.mode == models.CaptureIdle {
		return CaptureProgress{}, appErrors.Clone(appErrors.ErrPrecondition, "no capture session active")
	}

	normalized, err := s.normalizer.Normalize(raw)
	if err != nil {
		return CaptureProgress{}, err
	}
	s.photos = append(s.photos, normalized)

	progress := CaptureProgress{
		Captured:  len(s.photos),
		Required:  s.required(),
		Mode:      s.mode,
		EventType: s.eventType,
	}

	if len(s.photos) >= s.required() {
		progress.Done = true
		progress.Photos = s.photos
		s.reset()
		return progress, nil
	}

	progress.Guidance = s.guidance(len(s.photos))
	return progress, nil
}

// Cancel discards the session and all accumulated photos; partial attempts
// leave no residue.
func (s *CaptureService) Cancel() {
	if s.mode != models.CaptureIdle {
		s.logger.Debug("capture session cancelled",
			zap.String("mode", string(s.mode)),
			zap.Int("discarded", len(s.photos)))
	}
	s.reset()
}

// Mode reports the active session mode.
func (s *CaptureService) Mode() models.CaptureMode {
	return s.mode
}

// Guidance returns the prompt for the next required pose.
func (s *CaptureService) Guidance() string {
	if s.mode == models.CaptureIdle {
		return ""
	}
	return s.guidance(len(s.photos))
}

func (s *CaptureService) required() int {
	if s.mode == models.CaptureVerify {
		return 1
	}
	return s.photosRequired
}

func (s *CaptureService) guidance(captured int) string {
	if s.mode == models.CaptureVerify {
		return models.PoseGuidance[0]
	}
	if captured >= len(models.PoseGuidance) {
		return ""
	}
	return models.PoseGuidance[captured]
}

func (s *CaptureService) reset() {
	s.mode = models.CaptureIdle
	s.eventType = ""
	s.photos = nil
}
