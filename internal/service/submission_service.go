package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/dto"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

// SubmissionStatus enumerates the terminal states of one attendance action.
type SubmissionStatus string

const (
	SubmissionQueued           SubmissionStatus = "queued"
	SubmissionConfirmed        SubmissionStatus = "confirmed"
	SubmissionRejected         SubmissionStatus = "rejected"
	SubmissionTimedOut         SubmissionStatus = "timed_out"
	SubmissionConnectionFailed SubmissionStatus = "connection_failed"
)

// TimeoutGuidance is the actionable advice surfaced on verification
// timeouts instead of a raw error.
const TimeoutGuidance = "verification took too long: improve the lighting, hold the device closer to your face, and try again"

// SubmissionResult is what a triggered action reports back to the UI.
// Terminal failures (rejected, timed out, connection failed) are encoded
// here, not as errors: they are expected pipeline outcomes and the action
// is dropped rather than retried.
type SubmissionResult struct {
	Status   SubmissionStatus         `json:"status"`
	Record   *models.AttendanceRecord `json:"record,omitempty"`
	Message  string                   `json:"message,omitempty"`
	Guidance string                   `json:"guidance,omitempty"`
}

type submissionStateRepo interface {
	History(ctx context.Context) ([]models.AttendanceRecord, error)
	PrependHistory(ctx context.Context, rec models.AttendanceRecord) error
	AppendQueue(ctx context.Context, rec models.PendingRecord) error
	QueueLength(ctx context.Context) (int, error)
	SelectedWorker(ctx context.Context) (*models.Worker, error)
	SaveSelectedWorker(ctx context.Context, w models.Worker) error
}

type attendanceClient interface {
	MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error)
	RegisterFace(ctx context.Context, employeeID string, photos []string) error
	CreateEmployee(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.CreateEmployeeResponse, error)
}

type faceVerifier interface {
	Verify(ctx context.Context, photoURI string, eventType models.EventType, loc models.Location) VerificationOutcome
}

type locationResolver interface {
	Resolve(ctx context.Context) models.Location
}

type workerCache interface {
	MarkFaceRegistered(id string)
	Refresh(ctx context.Context) error
}

type queueSyncer interface {
	Sync(ctx context.Context) (SyncResult, error)
	LastSync() *time.Time
}

// CreateWorkerRequest carries the combined worker-creation + enrollment
// payload.
type CreateWorkerRequest struct {
	Name       string   `validate:"required"`
	Department string   `validate:"required"`
	Photos     []string `validate:"required"`
}

// SubmissionService is the pipeline orchestrator: it decides the online
// vs. offline path for every attendance event, owns all mutation of
// persisted state, and triggers queue reconciliation when connectivity
// returns.
type SubmissionService struct {
	repo         submissionStateRepo
	remote       attendanceClient
	verifier     faceVerifier
	connectivity onlineChecker
	location     locationResolver
	workers      workerCache
	syncer       queueSyncer
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger

	photosRequired int
	clock          func() time.Time
	localSeq       uint64
}

// NewSubmissionService wires the coordinator. photosRequired <= 0 falls
// back to the enrollment default.
func NewSubmissionService(
	repo submissionStateRepo,
	remote attendanceClient,
	verifier faceVerifier,
	connectivity onlineChecker,
	location locationResolver,
	workers workerCache,
	syncer queueSyncer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	photosRequired int,
) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if photosRequired <= 0 {
		photosRequired = models.PhotosRequired
	}
	return &SubmissionService{
		repo:           repo,
		remote:         remote,
		verifier:       verifier,
		connectivity:   connectivity,
		location:       location,
		workers:        workers,
		syncer:         syncer,
		metrics:        metrics,
		validator:      validate,
		logger:         logger,
		photosRequired: photosRequired,
		clock:          time.Now,
	}
}

// SubmitManual records a tap-evidenced event for the selected worker.
// Offline: the intent is queued. Online: the remote call either confirms
// (history is updated) or fails terminally without mutating anything;
// there is no retry and no late queuing.
func (s *SubmissionService) SubmitManual(ctx context.Context, eventType models.EventType) (SubmissionResult, error) {
	if !eventType.Valid() {
		return SubmissionResult{}, appErrors.Clone(appErrors.ErrValidation, "unsupported event type")
	}
	worker, err := s.repo.SelectedWorker(ctx)
	if err != nil {
		return SubmissionResult{}, err
	}
	if worker == nil {
		return SubmissionResult{}, appErrors.Clone(appErrors.ErrPrecondition, "no worker selected")
	}

	loc := s.location.Resolve(ctx)
	now := s.clock()

	if !s.connectivity.Online() {
		pending := models.PendingRecord{
			LocalID:      s.nextLocalID(now),
			EventType:    eventType,
			Timestamp:    now.Format(time.RFC3339),
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Address:      loc.Address,
			EmployeeID:   worker.ID,
			EmployeeName: worker.Name,
		}
		if err := s.enqueue(ctx, pending, eventType); err != nil {
			return SubmissionResult{}, err
		}
		return SubmissionResult{
			Status:  SubmissionQueued,
			Message: "saved locally, will sync when connection returns",
		}, nil
	}

	resp, err := s.remote.MarkAttendance(ctx, dto.MarkAttendanceRequest{
		EmployeeName: worker.Name,
		EmployeeID:   worker.ID,
		Type:         string(eventType),
		Timestamp:    now.Format(time.RFC3339),
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Address:      loc.Address,
	})
	if err != nil {
		// Dropped, not queued: automatic retry after a nominally online
		// failure has different idempotency characteristics than the
		// explicit offline branch.
		return s.terminalFailure(err), nil
	}

	record := models.AttendanceRecord{
		ID:                 resp.Record.ID,
		WorkerName:         worker.Name,
		EventType:          eventType,
		Timestamp:          now.Format(models.DisplayTimeLayout),
		Latitude:           loc.Latitude,
		Longitude:          loc.Longitude,
		Address:            loc.Address,
		VerificationMethod: models.MethodManual,
	}
	if err := s.repo.PrependHistory(ctx, record); err != nil {
		return SubmissionResult{}, err
	}
	s.metrics.ObserveSubmission("online", eventType)

	return SubmissionResult{Status: SubmissionConfirmed, Record: &record}, nil
}

// SubmitFacial records a photo-evidenced event. Offline: the photo is
// queued for deferred verification; no worker identity is needed because
// resolution happens by face match at sync time. Online: the verification
// gateway decides, and only a confirmed match mutates history.
func (s *SubmissionService) SubmitFacial(ctx context.Context, photoURI string, eventType models.EventType) (SubmissionResult, error) {
	if !eventType.Valid() {
		return SubmissionResult{}, appErrors.Clone(appErrors.ErrValidation, "unsupported event type")
	}
	if photoURI == "" {
		return SubmissionResult{}, appErrors.Clone(appErrors.ErrValidation, "photo is required")
	}

	loc := s.location.Resolve(ctx)
	now := s.clock()

	if !s.connectivity.Online() {
		pending := models.PendingRecord{
			LocalID:   s.nextLocalID(now),
			EventType: eventType,
			Timestamp: now.Format(time.RFC3339),
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Address:   loc.Address,
			Photo:     photoURI,
		}
		if err := s.enqueue(ctx, pending, eventType); err != nil {
			return SubmissionResult{}, err
		}
		return SubmissionResult{
			Status:  SubmissionQueued,
			Message: "saved locally, will be verified when connection returns",
		}, nil
	}

	outcome := s.verifier.Verify(ctx, photoURI, eventType, loc)
	switch outcome.Status {
	case OutcomeConfirmed:
		confidence := outcome.Confidence
		record := models.AttendanceRecord{
			ID:                 outcome.RecordID,
			WorkerName:         outcome.WorkerName,
			EventType:          eventType,
			Timestamp:          now.Format(models.DisplayTimeLayout),
			Latitude:           loc.Latitude,
			Longitude:          loc.Longitude,
			Address:            loc.Address,
			FaceConfidence:     &confidence,
			VerificationMethod: models.MethodFacial,
		}
		if err := s.repo.PrependHistory(ctx, record); err != nil {
			return SubmissionResult{}, err
		}
		s.metrics.ObserveSubmission("online", eventType)
		return SubmissionResult{Status: SubmissionConfirmed, Record: &record}, nil

	case OutcomeRejected:
		message := outcome.Reason
		if message == "" {
			message = "face not recognized"
		}
		return SubmissionResult{Status: SubmissionRejected, Message: message}, nil

	case OutcomeTimedOut:
		return SubmissionResult{
			Status:   SubmissionTimedOut,
			Guidance: TimeoutGuidance,
		}, nil

	default:
		return SubmissionResult{
			Status:  SubmissionConnectionFailed,
			Message: outcome.Reason,
		}, nil
	}
}

// RegisterFace enrolls the selected worker with exactly the required
// number of photos. Enrollment needs an immediate server round trip; there
// is no offline path.
func (s *SubmissionService) RegisterFace(ctx context.Context, photos []string) error {
	worker, err := s.repo.SelectedWorker(ctx)
	if err != nil {
		return err
	}
	if worker == nil {
		return appErrors.Clone(appErrors.ErrPrecondition, "no worker selected")
	}
	if len(photos) != s.photosRequired {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("enrollment requires exactly %d photos, got %d", s.photosRequired, len(photos)))
	}
	if !s.connectivity.Online() {
		return appErrors.Clone(appErrors.ErrConnectivityUnavailable, "face registration requires a connection")
	}

	if err := s.remote.RegisterFace(ctx, worker.ID, photos); err != nil {
		return err
	}

	worker.HasFaceRegistered = true
	if err := s.repo.SaveSelectedWorker(ctx, *worker); err != nil {
		return err
	}
	s.workers.MarkFaceRegistered(worker.ID)
	s.logger.Info("face registered", zap.String("worker", worker.Name))
	return nil
}

// CreateWorkerWithPhotos creates a worker and enrolls its face in one
// combined call, then refreshes the cached roster.
func (s *SubmissionService) CreateWorkerWithPhotos(ctx context.Context, req CreateWorkerRequest) (*models.Worker, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid worker request")
	}
	if len(req.Photos) != s.photosRequired {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("enrollment requires exactly %d photos, got %d", s.photosRequired, len(req.Photos)))
	}
	if !s.connectivity.Online() {
		return nil, appErrors.Clone(appErrors.ErrConnectivityUnavailable, "worker creation requires a connection")
	}

	resp, err := s.remote.CreateEmployee(ctx, dto.CreateEmployeeRequest{
		Name:       req.Name,
		Department: req.Department,
		Photos:     req.Photos,
	})
	if err != nil {
		return nil, err
	}

	if err := s.workers.Refresh(ctx); err != nil {
		s.logger.Warn("roster refresh after creation failed", zap.Error(err))
	}

	return &models.Worker{
		ID:                resp.Employee.ID,
		Name:              resp.Employee.Name,
		Department:        req.Department,
		HasFaceRegistered: true,
		IsActive:          true,
	}, nil
}

// OnConnectivityChange is the monitor subscription target. A transition to
// online with a non-empty backlog kicks reconciliation in the background.
func (s *SubmissionService) OnConnectivityChange(online bool) {
	if !online {
		return
	}
	go func() {
		ctx := context.Background()
		depth, err := s.repo.QueueLength(ctx)
		if err != nil || depth == 0 {
			return
		}
		result, err := s.syncer.Sync(ctx)
		if err != nil {
			if !errors.Is(err, appErrors.ErrConnectivityUnavailable) {
				s.logger.Warn("auto sync failed", zap.Error(err))
			}
			return
		}
		s.logger.Info("auto sync complete", zap.Int("synced", result.Synced))
	}()
}

// Status assembles the one-shot agent state.
func (s *SubmissionService) Status(ctx context.Context) (models.StatusSnapshot, error) {
	depth, err := s.repo.QueueLength(ctx)
	if err != nil {
		return models.StatusSnapshot{}, err
	}
	worker, err := s.repo.SelectedWorker(ctx)
	if err != nil {
		return models.StatusSnapshot{}, err
	}
	history, err := s.repo.History(ctx)
	if err != nil {
		return models.StatusSnapshot{}, err
	}
	return models.StatusSnapshot{
		Online:         s.connectivity.Online(),
		QueueDepth:     depth,
		SelectedWorker: worker,
		HistoryCount:   len(history),
		LastSync:       s.syncer.LastSync(),
	}, nil
}

// History exposes the locally retained confirmed records, newest first.
func (s *SubmissionService) History(ctx context.Context) ([]models.AttendanceRecord, error) {
	return s.repo.History(ctx)
}

func (s *SubmissionService) enqueue(ctx context.Context, pending models.PendingRecord, eventType models.EventType) error {
	if err := s.repo.AppendQueue(ctx, pending); err != nil {
		return err
	}
	s.metrics.ObserveSubmission("offline", eventType)
	if depth, err := s.repo.QueueLength(ctx); err == nil {
		s.metrics.SetQueueDepth(depth)
	}
	s.logger.Info("attendance queued offline",
		zap.String("local_id", pending.LocalID),
		zap.String("type", string(eventType)))
	return nil
}

func (s *SubmissionService) terminalFailure(err error) SubmissionResult {
	appErr := appErrors.FromError(err)
	if errors.Is(err, appErrors.ErrApplicationRejection) {
		return SubmissionResult{Status: SubmissionRejected, Message: appErr.Message}
	}
	return SubmissionResult{Status: SubmissionConnectionFailed, Message: appErr.Message}
}

// nextLocalID generates the client-local handle for a queued record. Never
// sent to the server as an identity.
func (s *SubmissionService) nextLocalID(now time.Time) string {
	seq := atomic.AddUint64(&s.localSeq, 1)
	return fmt.Sprintf("offline-%d-%d", now.UnixMilli(), seq)
}
