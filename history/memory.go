package history

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository with an optional capacity
// bound. When the bound is reached, saving a new record evicts the oldest
// one. Safe for concurrent use.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  map[string]*Record
	order    []string // creation order, oldest first
	capacity int
}

// NewMemoryRepository creates an in-memory repository holding at most
// capacity records. A capacity <= 0 means unbounded.
func NewMemoryRepository(capacity int) *MemoryRepository {
	return &MemoryRepository{
		records:  make(map[string]*Record),
		capacity: capacity,
	}
}

// Save stores a copy of the record. Saving a new ID at capacity evicts the
// oldest record; saving an existing ID replaces it in place.
func (r *MemoryRepository) Save(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; !exists {
		if r.capacity > 0 && len(r.order) >= r.capacity {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.records, oldest)
		}
		r.order = append(r.order, record.ID)
	}

	stored := *record
	r.records[record.ID] = &stored
	return nil
}

// Get returns a copy of the record with the given ID.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// List returns copies of the stored records, newest first.
func (r *MemoryRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.order)
	if limit > 0 && limit < n {
		n = limit
	}

	records := make([]*Record, 0, n)
	for i := len(r.order) - 1; i >= 0 && len(records) < n; i-- {
		copied := *r.records[r.order[i]]
		records = append(records, &copied)
	}
	return records, nil
}

// UpdateStatus sets the status and error message of an existing record.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id, status, errMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Status = status
	record.Error = errMessage
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the record with the given ID.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	for i, rid := range r.order {
		if rid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes all records.
func (r *MemoryRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*Record)
	r.order = nil
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Ensure MemoryRepository implements Repository
var _ Repository = (*MemoryRepository)(nil)
