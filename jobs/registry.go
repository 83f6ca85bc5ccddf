// ABOUTME: Durable job registry over the dual-backend cache store: per-job records
// ABOUTME: plus a creation-time-ordered index supporting filtered listing and counts.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/lantern-research/lantern/cache"
)

// Status is the lifecycle state of a job record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Record is the durable representation of one pipeline run's lifecycle,
// independent of the in-memory pipeline state. Result and Error are set once,
// on the terminal transition, and are immutable until deletion.
type Record struct {
	JobID       string          `json:"job_id"`
	Status      Status          `json:"status"`
	Query       string          `json:"query"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ErrNotFound is returned when a job id resolves to no record.
var ErrNotFound = errors.New("job not found")

// indexEntry is one row of the ordered job index.
type indexEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

const indexKey = "jobs:index"

// Registry manages job records atop a cache.Store. The index and the per-job
// records are never atomically consistent across backends; listing tolerates
// index entries whose record has been deleted. The registry is the sole
// mutator of job records. Listing is O(index size) per call, acceptable at
// the modest job volumes this system handles.
type Registry struct {
	store *cache.Store
	now   func() time.Time

	// mu serializes index read-modify-write within this process. Cross-process
	// writers remain last-writer-wins, as the store provides no transactions.
	mu sync.Mutex
}

// NewRegistry builds a registry over the given store.
func NewRegistry(store *cache.Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

func jobKey(id string) string { return cache.Key("job", id) }

// Create writes the record and appends it to the ordered index. It fails if a
// record with the same id already exists or the store write fails.
func (r *Registry) Create(ctx context.Context, rec Record) error {
	if rec.JobID == "" {
		return errors.New("job id must not be empty")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if r.store.Exists(ctx, jobKey(rec.JobID)) {
		return fmt.Errorf("job %s already exists", rec.JobID)
	}

	if err := r.writeRecord(ctx, &rec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.readIndex(ctx)
	index = append(index, indexEntry{ID: rec.JobID, CreatedAt: rec.CreatedAt})
	sort.Slice(index, func(i, j int) bool { return index[i].CreatedAt.After(index[j].CreatedAt) })
	if err := r.writeIndex(ctx, index); err != nil {
		return err
	}

	log.Printf("component=jobs action=created job_id=%s query=%q", rec.JobID, rec.Query)
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*Record, error) {
	data, ok := r.store.Get(ctx, jobKey(id))
	if !ok {
		return nil, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &rec, nil
}

// Update applies fn to the current record under a read-modify-write and
// persists the result. It fails with ErrNotFound when the job does not exist,
// and refuses to modify Result/Error on a record already in a terminal state.
func (r *Registry) Update(ctx context.Context, id string, fn func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	wasTerminal := rec.Status.Terminal()
	prevResult, prevError := rec.Result, rec.Error

	fn(rec)
	rec.JobID = id

	if wasTerminal {
		rec.Result = prevResult
		rec.Error = prevError
	}
	if rec.Status.Terminal() && rec.CompletedAt == nil {
		t := r.now()
		rec.CompletedAt = &t
	}

	return r.writeRecord(ctx, rec)
}

// Delete removes the record and its index entry. Deleting an absent job
// returns ErrNotFound without raising; policy restrictions (such as refusing
// to delete running jobs) belong to the caller.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if !r.store.Exists(ctx, jobKey(id)) {
		return ErrNotFound
	}
	if err := r.store.Delete(ctx, jobKey(id)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.readIndex(ctx)
	kept := index[:0]
	for _, e := range index {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if err := r.writeIndex(ctx, kept); err != nil {
		return err
	}

	log.Printf("component=jobs action=deleted job_id=%s", id)
	return nil
}

// Exists reports whether a record exists for id.
func (r *Registry) Exists(ctx context.Context, id string) bool {
	return r.store.Exists(ctx, jobKey(id))
}

// List returns up to limit records, most recently created first, optionally
// filtered by status (empty status means all). Index entries with no backing
// record are skipped.
func (r *Registry) List(ctx context.Context, limit int, status Status) ([]*Record, error) {
	if limit <= 0 {
		limit = 10
	}
	index := r.readIndex(ctx)

	var out []*Record
	for _, e := range index {
		if len(out) >= limit {
			break
		}
		rec, err := r.Get(ctx, e.ID)
		if err != nil {
			// Stale index entry; skip it.
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of jobs, optionally filtered by status.
func (r *Registry) Count(ctx context.Context, status Status) int {
	index := r.readIndex(ctx)
	if status == "" {
		return len(index)
	}
	n := 0
	for _, e := range index {
		rec, err := r.Get(ctx, e.ID)
		if err != nil {
			continue
		}
		if rec.Status == status {
			n++
		}
	}
	return n
}

func (r *Registry) writeRecord(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", rec.JobID, err)
	}
	if err := r.store.Set(ctx, jobKey(rec.JobID), data, 0); err != nil {
		return fmt.Errorf("store job %s: %w", rec.JobID, err)
	}
	return nil
}

func (r *Registry) readIndex(ctx context.Context) []indexEntry {
	data, ok := r.store.Get(ctx, indexKey)
	if !ok {
		return nil
	}
	var index []indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		log.Printf("component=jobs action=corrupt_index err=%v", err)
		return nil
	}
	return index
}

func (r *Registry) writeIndex(ctx context.Context, index []indexEntry) error {
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode job index: %w", err)
	}
	if err := r.store.Set(ctx, indexKey, data, 0); err != nil {
		return fmt.Errorf("store job index: %w", err)
	}
	return nil
}
