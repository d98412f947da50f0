package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/dto"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

type syncClient interface {
	SyncOfflineRecords(ctx context.Context, records []dto.OfflineRecord) (*dto.SyncResponse, error)
}

type syncStateRepo interface {
	Queue(ctx context.Context) ([]models.PendingRecord, error)
	ClearQueue(ctx context.Context) error
}

type onlineChecker interface {
	Online() bool
}

// SyncResult summarises one reconciliation attempt.
type SyncResult struct {
	Attempted int  `json:"attempted"`
	Synced    int  `json:"synced"`
	Skipped   bool `json:"skipped"`
}

// SyncService flushes the offline backlog to the server as one batch.
// Batch semantics are all-or-nothing: a success response clears the entire
// local queue, any failure retains it untouched for a later attempt.
type SyncService struct {
	repo         syncStateRepo
	client       syncClient
	connectivity onlineChecker
	metrics      *MetricsService
	logger       *zap.Logger
	clock        func() time.Time

	mu       sync.Mutex
	lastSync *time.Time
}

// NewSyncService builds a SyncService.
func NewSyncService(repo syncStateRepo, client syncClient, connectivity onlineChecker, metrics *MetricsService, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		repo:         repo,
		client:       client,
		connectivity: connectivity,
		metrics:      metrics,
		logger:       logger,
		clock:        time.Now,
	}
}

// Sync sends the entire queue as one batch. An empty queue is a no-op; an
// offline device is an error so on-demand callers get told why nothing
// happened.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.repo.Queue(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if len(queue) == 0 {
		return SyncResult{Skipped: true}, nil
	}
	if !s.connectivity.Online() {
		return SyncResult{}, appErrors.ErrConnectivityUnavailable
	}

	records := make([]dto.OfflineRecord, len(queue))
	for i, pending := range queue {
		records[i] = dto.OfflineRecordFromPending(pending)
	}

	resp, err := s.client.SyncOfflineRecords(ctx, records)
	if err != nil {
		// Queue stays untouched for a future attempt.
		s.logger.Warn("offline sync failed", zap.Int("queued", len(queue)), zap.Error(err))
		return SyncResult{Attempted: len(queue)}, err
	}

	if err := s.repo.ClearQueue(ctx); err != nil {
		return SyncResult{Attempted: len(queue), Synced: resp.SyncedCount}, err
	}

	now := s.clock()
	s.lastSync = &now
	s.metrics.ObserveSync(resp.SyncedCount)
	s.metrics.SetQueueDepth(0)
	s.logger.Info("offline queue synced",
		zap.Int("attempted", len(queue)),
		zap.Int("synced", resp.SyncedCount))

	return SyncResult{Attempted: len(queue), Synced: resp.SyncedCount}, nil
}

// LastSync reports when the queue last flushed successfully, nil if never.
func (s *SyncService) LastSync() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}
