package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// DirectoryStore lists and resolves messaging participants.
type DirectoryStore interface {
	ParticipantLookup
	Entries(ctx context.Context) ([]models.DirectoryEntry, error)
}

// DirectorySchema drives the recipient picker. The directory is assembled from
// four tables, so it is filtered in memory.
var DirectorySchema = listing.Schema{
	SearchFields: []string{"name", "email", "detail"},
	Filters: map[string]listing.FilterField{
		"role": {Column: "role"},
	},
}

func directoryField(e models.DirectoryEntry, field string) string {
	switch field {
	case "id":
		return strconv.FormatInt(e.ID, 10)
	case "role":
		return string(e.Role)
	case "name":
		return e.Name
	case "email":
		return e.Email
	case "detail":
		return e.Detail
	}
	return ""
}

// DirectoryService is the recipient picker.
type DirectoryService interface {
	List(ctx context.Context, q listing.Query) (listing.Page[models.DirectoryEntry], error)
	Lookup(ctx context.Context, p models.Participant) (*models.DirectoryEntry, error)
}

type directoryServiceImpl struct {
	store  DirectoryStore
	cache  *cache.QueryCache
	logger zerolog.Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(store DirectoryStore, queryCache *cache.QueryCache, logger zerolog.Logger) DirectoryService {
	return &directoryServiceImpl{store: store, cache: queryCache, logger: logger}
}

// List filters the whole directory and returns one page.
func (s *directoryServiceImpl) List(ctx context.Context, q listing.Query) (listing.Page[models.DirectoryEntry], error) {
	entries, err := cache.Remember(ctx, s.cache, ResDirectory, "entries",
		func(ctx context.Context) ([]models.DirectoryEntry, error) {
			entries, err := s.store.Entries(ctx)
			if err != nil {
				return nil, fmt.Errorf("error loading directory: %w", err)
			}
			return entries, nil
		})
	if err != nil {
		return listing.Page[models.DirectoryEntry]{}, err
	}
	return listing.Paginate(listing.Filter(entries, DirectorySchema, q, directoryField), q), nil
}

// Lookup resolves one participant.
func (s *directoryServiceImpl) Lookup(ctx context.Context, p models.Participant) (*models.DirectoryEntry, error) {
	return s.store.Lookup(ctx, p)
}

// DashboardStore counts the school-wide dashboard tiles.
type DashboardStore interface {
	Counts(ctx context.Context) (dto.DashboardStats, error)
}

// UnreadCounter counts the unread inbox of a participant.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, p models.Participant) (int64, error)
}

// DashboardService serves the dashboard home page.
type DashboardService interface {
	Stats(ctx context.Context, caller models.Participant) (*dto.DashboardStats, error)
}

type dashboardServiceImpl struct {
	store    DashboardStore
	messages UnreadCounter
	cache    *cache.QueryCache
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(store DashboardStore, messages UnreadCounter, queryCache *cache.QueryCache) DashboardService {
	return &dashboardServiceImpl{store: store, messages: messages, cache: queryCache}
}

// Stats returns the cached school counts plus the live unread count of caller.
func (s *dashboardServiceImpl) Stats(ctx context.Context, caller models.Participant) (*dto.DashboardStats, error) {
	stats, err := cache.Remember(ctx, s.cache, ResDashboard, "counts", s.store.Counts)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadCount(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("error counting unread messages: %w", err)
	}
	stats.UnreadMessages = unread
	return &stats, nil
}
