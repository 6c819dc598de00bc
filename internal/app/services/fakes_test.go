package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// memStore is an in-memory Store keyed by id.
type memStore[T any] struct {
	mu      sync.Mutex
	items   map[int64]T
	nextID  int64
	id      func(*T) int64
	setID   func(*T, int64)
	inserts int
	updates int
	deletes int
	lists   int
}

func newMemStore[T any](id func(*T) int64, setID func(*T, int64)) *memStore[T] {
	return &memStore[T]{items: map[int64]T{}, id: id, setID: setID}
}

func (s *memStore[T]) List(_ context.Context, q listing.Query) ([]*T, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++

	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	all := make([]*T, 0, len(ids))
	for _, id := range ids {
		item := s.items[id]
		all = append(all, &item)
	}
	page := listing.Paginate(all, q)
	return page.Items, int64(len(all)), nil
}

func (s *memStore[T]) GetByID(_ context.Context, id int64) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("record not found")
	}
	return &item, nil
}

func (s *memStore[T]) Create(_ context.Context, item *T) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.inserts++
	s.setID(item, s.nextID)
	s.items[s.nextID] = *item
	return s.nextID, nil
}

func (s *memStore[T]) Update(_ context.Context, item *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id(item)
	if _, ok := s.items[id]; !ok {
		return apperrors.NewResourceNotFoundError("record not found")
	}
	s.updates++
	s.items[id] = *item
	return nil
}

func (s *memStore[T]) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperrors.NewResourceNotFoundError("record not found")
	}
	s.deletes++
	delete(s.items, id)
	return nil
}

func newTestCache() *cache.QueryCache {
	return cache.New(cache.NewMemoryStore(), "test", time.Minute, zerolog.Nop())
}
