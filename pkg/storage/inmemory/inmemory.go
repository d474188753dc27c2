// Package inmemory provides a bounded in-memory archive driver.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/brainstream/pkg/storage"
	"github.com/papercomputeco/brainstream/pkg/store"
)

// DefaultCapacity is the number of records kept when none is configured.
const DefaultCapacity = 1000

// Driver implements storage.Driver on a ring buffer. The oldest records are
// evicted once capacity is reached.
type Driver struct {
	mu     sync.RWMutex
	log    *store.BoundedLog[*storage.Record]
	byID   map[int64]*storage.Record
	nextID int64
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates an in-memory driver holding up to capacity records.
func NewDriver(capacity int) *Driver {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Driver{
		log:  store.NewBoundedLog[*storage.Record](capacity),
		byID: make(map[int64]*storage.Record, capacity),
	}
}

// Append stores a copy of rec.
func (d *Driver) Append(_ context.Context, rec *storage.Record) error {
	if err := storage.Validate(rec); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	rec.ID = d.nextID

	stored := *rec
	if evicted, ok := d.log.Push(&stored); ok {
		delete(d.byID, evicted.ID)
	}
	d.byID[stored.ID] = &stored
	return nil
}

// Get retrieves a record by id.
func (d *Driver) Get(_ context.Context, id int64) (*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byID[id]
	if !ok {
		return nil, storage.ErrNotFound{ID: id}
	}
	out := *rec
	return &out, nil
}

// Recent returns up to limit records, newest first.
func (d *Driver) Recent(_ context.Context, limit int) ([]*storage.Record, error) {
	return d.filter(limit, func(*storage.Record) bool { return true }), nil
}

// ByConnection returns up to limit records of one connection, newest first.
func (d *Driver) ByConnection(_ context.Context, connectionID string, limit int) ([]*storage.Record, error) {
	return d.filter(limit, func(r *storage.Record) bool { return r.ConnectionID == connectionID }), nil
}

func (d *Driver) filter(limit int, keep func(*storage.Record) bool) []*storage.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*storage.Record, 0)
	for _, rec := range d.log.Items() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

// Count returns the number of retained records.
func (d *Driver) Count(_ context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(d.log.Len()), nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
