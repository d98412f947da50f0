package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/dto"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

type stateRepoStub struct {
	mu       sync.Mutex
	history  []models.AttendanceRecord
	queue    []models.PendingRecord
	selected *models.Worker

	historyErr error
	queueErr   error
}

func (r *stateRepoStub) History(ctx context.Context) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history, r.historyErr
}

func (r *stateRepoStub) PrependHistory(ctx context.Context, rec models.AttendanceRecord) error {
	if r.historyErr != nil {
		return r.historyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append([]models.AttendanceRecord{rec}, r.history...)
	if len(r.history) > models.HistoryLimit {
		r.history = r.history[:models.HistoryLimit]
	}
	return nil
}

func (r *stateRepoStub) Queue(ctx context.Context) ([]models.PendingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue, r.queueErr
}

func (r *stateRepoStub) AppendQueue(ctx context.Context, rec models.PendingRecord) error {
	if r.queueErr != nil {
		return r.queueErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, rec)
	return nil
}

func (r *stateRepoStub) ClearQueue(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = nil
	return nil
}

func (r *stateRepoStub) QueueLength(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue), r.queueErr
}

func (r *stateRepoStub) SelectedWorker(ctx context.Context) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, nil
}

func (r *stateRepoStub) SaveSelectedWorker(ctx context.Context, w models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = &w
	return nil
}

func (r *stateRepoStub) ClearSelectedWorker(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = nil
	return nil
}

type remoteClientStub struct {
	markResp    *dto.MarkAttendanceResponse
	markErr     error
	markCalls   int
	lastMark    dto.MarkAttendanceRequest
	registerErr error
	createResp  *dto.CreateEmployeeResponse
	createErr   error
}

func (c *remoteClientStub) MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	c.markCalls++
	c.lastMark = req
	return c.markResp, c.markErr
}

func (c *remoteClientStub) RegisterFace(ctx context.Context, employeeID string, photos []string) error {
	return c.registerErr
}

func (c *remoteClientStub) CreateEmployee(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.CreateEmployeeResponse, error) {
	return c.createResp, c.createErr
}

type verifierStub struct {
	outcome VerificationOutcome
	calls   int
}

func (v *verifierStub) Verify(ctx context.Context, photoURI string, eventType models.EventType, loc models.Location) VerificationOutcome {
	v.calls++
	return v.outcome
}

type connectivityStub struct{ online bool }

func (c connectivityStub) Online() bool { return c.online }

type locationStub struct{ loc models.Location }

func (l locationStub) Resolve(ctx context.Context) models.Location { return l.loc }

type workerCacheStub struct {
	registered   []string
	refreshCalls int
	refreshErr   error
}

func (w *workerCacheStub) MarkFaceRegistered(id string) {
	w.registered = append(w.registered, id)
}

func (w *workerCacheStub) Refresh(ctx context.Context) error {
	w.refreshCalls++
	return w.refreshErr
}

type syncerStub struct {
	mu     sync.Mutex
	result SyncResult
	err    error
	calls  int
	last   *time.Time
}

func (s *syncerStub) Sync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *syncerStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *syncerStub) LastSync() *time.Time { return s.last }

type coordinatorFixture struct {
	repo     *stateRepoStub
	remote   *remoteClientStub
	verifier *verifierStub
	workers  *workerCacheStub
	syncer   *syncerStub
	svc      *SubmissionService
}

func newCoordinator(t *testing.T, online bool) *coordinatorFixture {
	t.Helper()
	lat, lng := -33.45, -70.66
	f := &coordinatorFixture{
		repo:     &stateRepoStub{},
		remote:   &remoteClientStub{},
		verifier: &verifierStub{},
		workers:  &workerCacheStub{},
		syncer:   &syncerStub{},
	}
	f.svc = NewSubmissionService(
		f.repo,
		f.remote,
		f.verifier,
		connectivityStub{online: online},
		locationStub{loc: models.Location{Latitude: &lat, Longitude: &lng, Address: "Av. Providencia 1234, Santiago"}},
		f.workers,
		f.syncer,
		nil,
		nil,
		nil,
		0,
	)
	f.svc.clock = func() time.Time {
		return time.Date(2026, 8, 30, 8, 30, 0, 0, time.UTC)
	}
	return f
}

func selectWorker(f *coordinatorFixture) models.Worker {
	w := models.Worker{ID: "w1", EmployeeCode: "EMP-001", Name: "Ana Soto"}
	f.repo.selected = &w
	return w
}

func TestSubmitManualOnlineConfirmed(t *testing.T) {
	f := newCoordinator(t, true)
	worker := selectWorker(f)
	f.remote.markResp = &dto.MarkAttendanceResponse{Success: true}
	f.remote.markResp.Record.ID = "r1"

	result, err := f.svc.SubmitManual(context.Background(), models.EventEntrance)
	require.NoError(t, err)
	assert.Equal(t, SubmissionConfirmed, result.Status)

	require.Len(t, f.repo.history, 1)
	rec := f.repo.history[0]
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, worker.Name, rec.WorkerName)
	assert.Equal(t, models.EventEntrance, rec.EventType)
	assert.False(t, rec.IsOfflineSync)
	assert.Equal(t, models.MethodManual, rec.VerificationMethod)
	assert.Equal(t, "30/08/2026 08:30:00", rec.Timestamp)

	assert.Equal(t, worker.ID, f.remote.lastMark.EmployeeID)
	assert.Equal(t, "entrada", f.remote.lastMark.Type)
	assert.Empty(t, f.repo.queue)
}

func TestSubmitManualOfflineQueues(t *testing.T) {
	f := newCoordinator(t, false)
	worker := selectWorker(f)

	result, err := f.svc.SubmitManual(context.Background(), models.EventExit)
	require.NoError(t, err)
	assert.Equal(t, SubmissionQueued, result.Status)

	require.Len(t, f.repo.queue, 1)
	pending := f.repo.queue[0]
	assert.True(t, pending.IsManual())
	assert.Equal(t, models.EventExit, pending.EventType)
	assert.Equal(t, worker.ID, pending.EmployeeID)
	assert.Equal(t, "2026-08-30T08:30:00Z", pending.Timestamp)
	assert.NotEmpty(t, pending.LocalID)

	assert.Empty(t, f.repo.history)
	assert.Zero(t, f.remote.markCalls, "no remote call while offline")
}

func TestSubmitManualRequiresSelectedWorker(t *testing.T) {
	f := newCoordinator(t, true)

	_, err := f.svc.SubmitManual(context.Background(), models.EventEntrance)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPrecondition))
}

func TestSubmitManualTransportFailureDropsAction(t *testing.T) {
	f := newCoordinator(t, true)
	selectWorker(f)
	f.remote.markErr = appErrors.ErrTransportFailure

	result, err := f.svc.SubmitManual(context.Background(), models.EventEntrance)
	require.NoError(t, err)
	assert.Equal(t, SubmissionConnectionFailed, result.Status)
	// Not queued, not retried: history and queue stay untouched.
	assert.Empty(t, f.repo.history)
	assert.Empty(t, f.repo.queue)
	assert.Equal(t, 1, f.remote.markCalls)
}

func TestSubmitManualRejectionSurfacesServerMessage(t *testing.T) {
	f := newCoordinator(t, true)
	selectWorker(f)
	f.remote.markErr = appErrors.Clone(appErrors.ErrApplicationRejection, "duplicate entry for today")

	result, err := f.svc.SubmitManual(context.Background(), models.EventEntrance)
	require.NoError(t, err)
	assert.Equal(t, SubmissionRejected, result.Status)
	assert.Equal(t, "duplicate entry for today", result.Message)
	assert.Empty(t, f.repo.history)
}

func TestSubmitFacialOfflineQueuesPhoto(t *testing.T) {
	f := newCoordinator(t, false)

	result, err := f.svc.SubmitFacial(context.Background(), "data:image/jpeg;base64,pp", models.EventExit)
	require.NoError(t, err)
	assert.Equal(t, SubmissionQueued, result.Status)

	require.Len(t, f.repo.queue, 1)
	pending := f.repo.queue[0]
	assert.Equal(t, models.EventExit, pending.EventType)
	assert.Equal(t, "data:image/jpeg;base64,pp", pending.Photo)
	assert.False(t, pending.IsManual())
	// No worker identity needed: resolution happens by face match at sync.
	assert.Empty(t, pending.EmployeeID)
	assert.Empty(t, f.repo.history)
	assert.Zero(t, f.verifier.calls)
}

func TestSubmitFacialOnlineConfirmed(t *testing.T) {
	f := newCoordinator(t, true)
	f.verifier.outcome = VerificationOutcome{
		Status:     OutcomeConfirmed,
		WorkerName: "Ana Soto",
		RecordID:   "r7",
		Confidence: 0.91,
	}

	result, err := f.svc.SubmitFacial(context.Background(), "data:image/jpeg;base64,pp", models.EventEntrance)
	require.NoError(t, err)
	assert.Equal(t, SubmissionConfirmed, result.Status)

	require.Len(t, f.repo.history, 1)
	rec := f.repo.history[0]
	assert.Equal(t, "r7", rec.ID)
	assert.Equal(t, "Ana Soto", rec.WorkerName)
	require.NotNil(t, rec.FaceConfidence)
	assert.InDelta(t, 0.91, *rec.FaceConfidence, 1e-9)
	assert.Equal(t, models.MethodFacial, rec.VerificationMethod)
}

func TestSubmitFacialRejectedPersistsNothing(t *testing.T) {
	f := newCoordinator(t, true)
	f.verifier.outcome = VerificationOutcome{Status: OutcomeRejected, Reason: "confidence too low"}

	result, err := f.svc.SubmitFacial(context.Background(), "p", models.EventEntrance)
	require.NoError(t, err)
	assert.Equal(t, SubmissionRejected, result.Status)
	assert.Equal(t, "confidence too low", result.Message)
	assert.Empty(t, f.repo.history)
	assert.Empty(t, f.repo.queue)
}

func TestSubmitFacialTimeoutSurfacesGuidance(t *testing.T) {
	f := newCoordinator(t, true)
	f.verifier.outcome = VerificationOutcome{Status: OutcomeTimedOut}

	result, err := f.svc.SubmitFacial(context.Background(), "p", models.EventEntrance)
	require.NoError(t, err)
	assert.Equal(t, SubmissionTimedOut, result.Status)
	assert.Equal(t, TimeoutGuidance, result.Guidance)
	// Timed out means dropped: not persisted, not queued; the user retries.
	assert.Empty(t, f.repo.history)
	assert.Empty(t, f.repo.queue)
}

func TestOfflineSequencePreservesOrder(t *testing.T) {
	f := newCoordinator(t, false)
	selectWorker(f)

	events := []models.EventType{models.EventEntrance, models.EventExit, models.EventEntrance}
	for i, et := range events {
		var err error
		if i%2 == 0 {
			_, err = f.svc.SubmitManual(context.Background(), et)
		} else {
			_, err = f.svc.SubmitFacial(context.Background(), fmt.Sprintf("photo-%d", i), et)
		}
		require.NoError(t, err)
	}

	require.Len(t, f.repo.queue, len(events))
	seen := map[string]bool{}
	for i, pending := range f.repo.queue {
		assert.Equal(t, events[i], pending.EventType)
		assert.False(t, seen[pending.LocalID], "local ids must not repeat")
		seen[pending.LocalID] = true
	}
}

func TestRegisterFaceHappyPath(t *testing.T) {
	f := newCoordinator(t, true)
	selectWorker(f)
	photos := []string{"p1", "p2", "p3", "p4", "p5"}

	require.NoError(t, f.svc.RegisterFace(context.Background(), photos))
	assert.Equal(t, []string{"w1"}, f.workers.registered)
	require.NotNil(t, f.repo.selected)
	assert.True(t, f.repo.selected.HasFaceRegistered)
}

func TestRegisterFacePhotoCount(t *testing.T) {
	f := newCoordinator(t, true)
	selectWorker(f)

	err := f.svc.RegisterFace(context.Background(), []string{"p1", "p2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRegisterFaceHasNoOfflinePath(t *testing.T) {
	f := newCoordinator(t, false)
	selectWorker(f)

	err := f.svc.RegisterFace(context.Background(), []string{"p1", "p2", "p3", "p4", "p5"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConnectivityUnavailable))
	assert.Empty(t, f.repo.queue, "enrollment is never queued")
}

func TestCreateWorkerWithPhotos(t *testing.T) {
	f := newCoordinator(t, true)
	f.remote.createResp = &dto.CreateEmployeeResponse{Success: true}
	f.remote.createResp.Employee.ID = "w9"
	f.remote.createResp.Employee.Name = "Pedro Rojas"

	worker, err := f.svc.CreateWorkerWithPhotos(context.Background(), CreateWorkerRequest{
		Name:       "Pedro Rojas",
		Department: "Operaciones",
		Photos:     []string{"p1", "p2", "p3", "p4", "p5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "w9", worker.ID)
	assert.True(t, worker.HasFaceRegistered)
	assert.Equal(t, 1, f.workers.refreshCalls)
}

func TestCreateWorkerValidation(t *testing.T) {
	f := newCoordinator(t, true)

	_, err := f.svc.CreateWorkerWithPhotos(context.Background(), CreateWorkerRequest{
		Department: "Operaciones",
		Photos:     []string{"p1", "p2", "p3", "p4", "p5"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestConnectivityRestoredTriggersSync(t *testing.T) {
	f := newCoordinator(t, true)
	f.repo.queue = []models.PendingRecord{
		{LocalID: "offline-1"}, {LocalID: "offline-2"}, {LocalID: "offline-3"},
	}
	f.syncer.result = SyncResult{Attempted: 3, Synced: 3}

	f.svc.OnConnectivityChange(true)
	require.Eventually(t, func() bool {
		return f.syncer.Calls() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestConnectivityLostDoesNotSync(t *testing.T) {
	f := newCoordinator(t, true)
	f.repo.queue = []models.PendingRecord{{LocalID: "offline-1"}}

	f.svc.OnConnectivityChange(false)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.syncer.Calls())
}

func TestConnectivityRestoredEmptyQueueSkipsSync(t *testing.T) {
	f := newCoordinator(t, true)

	f.svc.OnConnectivityChange(true)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.syncer.Calls())
}

func TestStatusSnapshot(t *testing.T) {
	f := newCoordinator(t, true)
	worker := selectWorker(f)
	f.repo.queue = []models.PendingRecord{{LocalID: "offline-1"}}
	f.repo.history = []models.AttendanceRecord{{ID: "r1"}, {ID: "r2"}}
	last := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	f.syncer.last = &last

	snapshot, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.Online)
	assert.Equal(t, 1, snapshot.QueueDepth)
	assert.Equal(t, 2, snapshot.HistoryCount)
	require.NotNil(t, snapshot.SelectedWorker)
	assert.Equal(t, worker.ID, snapshot.SelectedWorker.ID)
	assert.Equal(t, &last, snapshot.LastSync)
}
