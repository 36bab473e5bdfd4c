package gateway

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
)

type rowKey struct {
	owner      string
	collection domain.Collection
	identity   string
}

// MemoryStore implements RemoteStore with in-memory storage.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[rowKey]Row
	seq  map[rowKey]int64 // insertion order for stable fetches
	next int64
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[rowKey]Row),
		seq:  make(map[rowKey]int64),
		now:  time.Now,
	}
}

// Fetch returns the owner's rows in insertion order.
func (s *MemoryStore) Fetch(ctx context.Context, ownerID string, collection domain.Collection) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ordered struct {
		seq int64
		row Row
	}
	var found []ordered
	for k, row := range s.rows {
		if k.owner == ownerID && k.collection == collection {
			found = append(found, ordered{s.seq[k], row})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	rows := make([]Row, 0, len(found))
	for _, o := range found {
		rows = append(rows, copyRow(o.row))
	}
	return rows, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(rowKey{ownerID, collection, identity}, payload), nil
}

func (s *MemoryStore) Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := rowKey{ownerID, collection, identity}
	if _, exists := s.rows[k]; exists {
		return Row{}, ErrConflict
	}
	return s.put(k, payload), nil
}

func (s *MemoryStore) put(k rowKey, payload Row) Row {
	now := s.now()
	row := copyRow(payload)
	row.OwnerID, row.Collection, row.Identity = k.owner, k.collection, k.identity
	row.UpdatedAt = now
	if existing, ok := s.rows[k]; ok {
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
		s.next++
		s.seq[k] = s.next
	}
	s.rows[k] = row
	return copyRow(row)
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := rowKey{ownerID, collection, identity}
	delete(s.rows, k)
	delete(s.seq, k)
	return nil
}

// Len returns the number of rows held for the owner and collection.
func (s *MemoryStore) Len(ownerID string, collection domain.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.rows {
		if k.owner == ownerID && k.collection == collection {
			n++
		}
	}
	return n
}

func copyRow(r Row) Row {
	if r.Variant != nil {
		v := make(map[string]string, len(r.Variant))
		for k, val := range r.Variant {
			v[k] = val
		}
		r.Variant = v
	}
	return r
}
