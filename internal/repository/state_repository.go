// Package repository layers the three typed persisted records (history,
// offline queue, selected worker) over a raw key/value store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/store"
)

// Persisted key names. These survive restarts; renaming any of them orphans
// installed-device state.
const (
	keyHistory        = "history"
	keyOfflineQueue   = "offline_queue"
	keySelectedWorker = "selected_worker"
)

// StateRepository is the single writer for all durable client state. The
// mutex serializes access to the three keys so concurrent triggers (auto
// sync vs. a user action) cannot interleave read-modify-write cycles.
type StateRepository struct {
	store        store.Store
	historyLimit int
	mu           sync.Mutex
}

// NewStateRepository wraps a store. limit <= 0 falls back to the default
// history cap.
func NewStateRepository(s store.Store, historyLimit int) *StateRepository {
	if historyLimit <= 0 {
		historyLimit = models.HistoryLimit
	}
	return &StateRepository{store: s, historyLimit: historyLimit}
}

// History loads the confirmed-record history, newest first. A missing key
// loads as an empty history.
func (r *StateRepository) History(ctx context.Context) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadHistory(ctx)
}

// PrependHistory inserts a confirmed record at the front and trims to the
// history limit, evicting the oldest entries.
func (r *StateRepository) PrependHistory(ctx context.Context, rec models.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.loadHistory(ctx)
	if err != nil {
		return err
	}
	history = append([]models.AttendanceRecord{rec}, history...)
	if len(history) > r.historyLimit {
		history = history[:r.historyLimit]
	}
	return r.save(ctx, keyHistory, history)
}

// Queue loads the offline queue in insertion order. A missing key loads as
// an empty queue.
func (r *StateRepository) Queue(ctx context.Context) ([]models.PendingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadQueue(ctx)
}

// AppendQueue adds a pending record at the tail; insertion order is sync
// order.
func (r *StateRepository) AppendQueue(ctx context.Context, rec models.PendingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue, err := r.loadQueue(ctx)
	if err != nil {
		return err
	}
	queue = append(queue, rec)
	return r.save(ctx, keyOfflineQueue, queue)
}

// ClearQueue drops the entire offline queue after a successful batch sync.
func (r *StateRepository) ClearQueue(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, keyOfflineQueue)
}

// QueueLength reports the current backlog depth.
func (r *StateRepository) QueueLength(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue, err := r.loadQueue(ctx)
	if err != nil {
		return 0, err
	}
	return len(queue), nil
}

// SelectedWorker loads the persisted selection; nil means no worker is
// selected.
func (r *StateRepository) SelectedWorker(ctx context.Context) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok, err := r.store.Get(ctx, keySelectedWorker)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", keySelectedWorker, err)
	}
	if !ok {
		return nil, nil
	}
	var w models.Worker
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keySelectedWorker, err)
	}
	return &w, nil
}

// SaveSelectedWorker persists the selection so it survives restarts.
func (r *StateRepository) SaveSelectedWorker(ctx context.Context, w models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, keySelectedWorker, w)
}

// ClearSelectedWorker drops the selection.
func (r *StateRepository) ClearSelectedWorker(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, keySelectedWorker)
}

func (r *StateRepository) loadHistory(ctx context.Context) ([]models.AttendanceRecord, error) {
	data, ok, err := r.store.Get(ctx, keyHistory)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", keyHistory, err)
	}
	if !ok {
		return []models.AttendanceRecord{}, nil
	}
	var history []models.AttendanceRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyHistory, err)
	}
	return history, nil
}

func (r *StateRepository) loadQueue(ctx context.Context) ([]models.PendingRecord, error) {
	data, ok, err := r.store.Get(ctx, keyOfflineQueue)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", keyOfflineQueue, err)
	}
	if !ok {
		return []models.PendingRecord{}, nil
	}
	var queue []models.PendingRecord
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyOfflineQueue, err)
	}
	return queue, nil
}

func (r *StateRepository) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
