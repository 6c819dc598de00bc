package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// Store is the persistence a ResourceService needs. repositories.Table
// satisfies it for every entity.
type Store[T any] interface {
	List(ctx context.Context, q listing.Query) ([]*T, int64, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, item *T) (int64, error)
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, id int64) error
}

// ResourceService is the list, read and mutate surface shared by every
// administration page.
type ResourceService[T any] interface {
	Name() string
	Schema() listing.Schema
	List(ctx context.Context, q listing.Query) (listing.Page[*T], error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id int64, item *T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// ResourceConfig parameterises a ResourceService for one entity.
type ResourceConfig[T any] struct {
	// Name is the cache resource and URL segment, e.g. "rooms".
	Name   string
	Schema listing.Schema
	SetID  func(item *T, id int64)
	// Validate runs before every create and update. existing is nil on create.
	Validate func(ctx context.Context, item, existing *T) error
	// Dependents are resources whose cached views include this one, such as
	// group lists showing enrollment counts.
	Dependents []string
}

type resourceServiceImpl[T any] struct {
	store  Store[T]
	cache  *cache.QueryCache
	config ResourceConfig[T]
	logger zerolog.Logger
}

// NewResourceService creates a ResourceService over store.
func NewResourceService[T any](store Store[T], queryCache *cache.QueryCache, config ResourceConfig[T], logger zerolog.Logger) ResourceService[T] {
	return &resourceServiceImpl[T]{
		store:  store,
		cache:  queryCache,
		config: config,
		logger: logger.With().Str("resource", config.Name).Logger(),
	}
}

func (s *resourceServiceImpl[T]) Name() string { return s.config.Name }

func (s *resourceServiceImpl[T]) Schema() listing.Schema { return s.config.Schema }

// List returns one page, served from the cache when possible.
func (s *resourceServiceImpl[T]) List(ctx context.Context, q listing.Query) (listing.Page[*T], error) {
	return cache.Remember(ctx, s.cache, s.config.Name, cache.Key("list", q.CacheKey()),
		func(ctx context.Context) (listing.Page[*T], error) {
			items, total, err := s.store.List(ctx, q)
			if err != nil {
				return listing.Page[*T]{}, fmt.Errorf("error listing %s: %w", s.config.Name, err)
			}
			return listing.NewPage(items, total, q), nil
		})
}

// Get returns one record.
func (s *resourceServiceImpl[T]) Get(ctx context.Context, id int64) (*T, error) {
	return cache.Remember(ctx, s.cache, s.config.Name, cache.Key("get", id),
		func(ctx context.Context) (*T, error) {
			return s.store.GetByID(ctx, id)
		})
}

// Create validates item, inserts it once and returns the stored record.
func (s *resourceServiceImpl[T]) Create(ctx context.Context, item *T) (*T, error) {
	if s.config.Validate != nil {
		if err := s.config.Validate(ctx, item, nil); err != nil {
			return nil, err
		}
	}

	id, err := s.store.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("id", id).Msg("Record created")

	created, err := s.store.GetByID(ctx, id)
	if err != nil {
		// the insert succeeded; fall back to the submitted values
		s.logger.Warn().Err(err).Int64("id", id).Msg("Could not reload created record")
		s.config.SetID(item, id)
		return item, nil
	}
	return created, nil
}

// Update validates item against the stored record and writes it.
func (s *resourceServiceImpl[T]) Update(ctx context.Context, id int64, item *T) (*T, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.config.SetID(item, id)

	if s.config.Validate != nil {
		if err := s.config.Validate(ctx, item, existing); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	return s.store.GetByID(ctx, id)
}

// Delete removes one record.
func (s *resourceServiceImpl[T]) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("id", id).Msg("Record deleted")
	return nil
}

func (s *resourceServiceImpl[T]) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, append([]string{s.config.Name}, s.config.Dependents...)...)
}
