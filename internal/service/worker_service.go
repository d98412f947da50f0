package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

type workerClient interface {
	ListEmployees(ctx context.Context) ([]models.Worker, error)
	DeleteEmployee(ctx context.Context, id string) error
}

type workerStateRepo interface {
	SelectedWorker(ctx context.Context) (*models.Worker, error)
	SaveSelectedWorker(ctx context.Context, w models.Worker) error
	ClearSelectedWorker(ctx context.Context) error
}

// WorkerService owns the cached worker roster and the persisted selection.
type WorkerService struct {
	client workerClient
	repo   workerStateRepo
	logger *zap.Logger

	mu    sync.RWMutex
	cache []models.Worker
}

// NewWorkerService builds a WorkerService.
func NewWorkerService(client workerClient, repo workerStateRepo, logger *zap.Logger) *WorkerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerService{client: client, repo: repo, logger: logger}
}

// List returns the cached roster, fetching it from the server when the
// cache is cold or refresh is requested.
func (s *WorkerService) List(ctx context.Context, refresh bool) ([]models.Worker, error) {
	s.mu.RLock()
	cached := s.cache
	s.mu.RUnlock()

	if !refresh && cached != nil {
		return cached, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache, nil
}

// Refresh replaces the cached roster with the server's.
func (s *WorkerService) Refresh(ctx context.Context) error {
	workers, err := s.client.ListEmployees(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cache = workers
	s.mu.Unlock()
	return nil
}

// Select persists the worker matching the given id or employee code as the
// current selection. At most one worker is selected at a time; the
// selection survives restarts.
func (s *WorkerService) Select(ctx context.Context, idOrCode string) (*models.Worker, error) {
	workers, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range workers {
		if workers[i].ID == idOrCode || workers[i].EmployeeCode == idOrCode {
			if err := s.repo.SaveSelectedWorker(ctx, workers[i]); err != nil {
				return nil, err
			}
			return &workers[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no worker matches "+idOrCode)
}

// Selected loads the persisted selection; nil means none.
func (s *WorkerService) Selected(ctx context.Context) (*models.Worker, error) {
	return s.repo.SelectedWorker(ctx)
}

// ClearSelection drops the persisted selection.
func (s *WorkerService) ClearSelection(ctx context.Context) error {
	return s.repo.ClearSelectedWorker(ctx)
}

// Delete removes a worker server-side, drops it from the cache, and clears
// the local selection if it pointed at the deleted worker.
func (s *WorkerService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteEmployee(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache = append(s.cache[:i], s.cache[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	selected, err := s.repo.SelectedWorker(ctx)
	if err != nil {
		return err
	}
	if selected != nil && selected.ID == id {
		return s.repo.ClearSelectedWorker(ctx)
	}
	return nil
}

// MarkFaceRegistered flips the cached roster entry after a successful
// enrollment round trip.
func (s *WorkerService) MarkFaceRegistered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache[i].HasFaceRegistered = true
			return
		}
	}
}
