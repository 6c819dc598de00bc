package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterGinValidators(); err != nil {
		panic(err)
	}
}

// asParticipant stands in for JWTAuth.
func asParticipant(p models.Participant, accountID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextAccountID, accountID)
		c.Set(middleware.ContextRole, p.Role)
		c.Set(middleware.ContextParticipantID, p.ID)
		c.Next()
	}
}

func newRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Field   string      `json:"field"`
		Details interface{} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// fakeRooms is a ResourceService over an in-memory map.
type fakeRooms struct {
	mu      sync.Mutex
	items   map[int64]*models.Room
	nextID  int64
	inserts int
	deletes int
	lastQ   listing.Query
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{items: map[int64]*models.Room{}}
}

func (f *fakeRooms) Name() string { return "rooms" }

func (f *fakeRooms) Schema() listing.Schema {
	return listing.Schema{
		SearchFields: []string{"name"},
		Filters:      map[string]listing.FilterField{"status": {Column: "status"}, "capacity": {Column: "capacity", Kind: listing.KindInt}},
	}
}

func (f *fakeRooms) List(_ context.Context, q listing.Query) (listing.Page[*models.Room], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	var out []*models.Room
	for _, r := range f.items {
		out = append(out, r)
	}
	return listing.NewPage(out, int64(len(out)), q), nil
}

func (f *fakeRooms) Get(_ context.Context, id int64) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("room not found")
	}
	return r, nil
}

func (f *fakeRooms) Create(_ context.Context, r *models.Room) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.inserts++
	r.ID = f.nextID
	f.items[r.ID] = r
	return r, nil
}

func (f *fakeRooms) Update(_ context.Context, id int64, r *models.Room) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return nil, apperrors.NewResourceNotFoundError("room not found")
	}
	r.ID = id
	f.items[id] = r
	return r, nil
}

func (f *fakeRooms) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return apperrors.NewResourceNotFoundError("room not found")
	}
	f.deletes++
	delete(f.items, id)
	return nil
}

func roomRouter(rooms *fakeRooms) *gin.Engine {
	router := gin.New()
	api := router.Group("/api")
	NewResourceController[models.Room](rooms).Register(api, nil, nil)
	return router
}

func TestResourceController_Create(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		status  int
		inserts int
		field   string
	}{
		{"valid room", map[string]interface{}{"name": "Lokaal 1", "capacity": 24, "status": "available"}, http.StatusCreated, 1, ""},
		{"missing name", map[string]interface{}{"capacity": 24}, http.StatusBadRequest, 0, "name"},
		{"bad status", map[string]interface{}{"name": "Lokaal 2", "capacity": 10, "status": "broken"}, http.StatusBadRequest, 0, "status"},
		{"malformed json", `{"name":`, http.StatusBadRequest, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := newFakeRooms()
			w := serve(roomRouter(rooms), newRequest(t, http.MethodPost, "/api/rooms", tt.body))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.inserts, rooms.inserts)
			env := decode(t, w)
			if tt.status != http.StatusCreated {
				require.NotNil(t, env.Error)
				assert.Equal(t, "VAL_001", env.Error.Code)
				if tt.field != "" {
					assert.Equal(t, tt.field, env.Error.Field)
				}
				return
			}
			var room models.Room
			require.NoError(t, json.Unmarshal(env.Data, &room))
			assert.Equal(t, int64(1), room.ID)
		})
	}
}

func TestResourceController_DeleteRequiresConfirm(t *testing.T) {
	rooms := newFakeRooms()
	_, _ = rooms.Create(context.Background(), &models.Room{Name: "Lokaal 1", Capacity: 20})
	router := roomRouter(rooms)

	for _, target := range []string{"/api/rooms/1", "/api/rooms/1?confirm=false", "/api/rooms/1?confirm=yes"} {
		w := serve(router, newRequest(t, http.MethodDelete, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		env := decode(t, w)
		assert.Equal(t, "VAL_001", env.Error.Code)
		assert.Equal(t, "Deletion must be confirmed", env.Error.Message)
	}
	assert.Zero(t, rooms.deletes)
	assert.Len(t, rooms.items, 1)

	w := serve(router, newRequest(t, http.MethodDelete, "/api/rooms/1?confirm=true", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rooms.deletes)
}

func TestResourceController_GetErrors(t *testing.T) {
	router := roomRouter(newFakeRooms())

	w := serve(router, newRequest(t, http.MethodGet, "/api/rooms/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, newRequest(t, http.MethodGet, "/api/rooms/7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.Equal(t, "RES_001", env.Error.Code)
	assert.Equal(t, "room not found", env.Error.Message)
}

func TestResourceController_ListQuery(t *testing.T) {
	rooms := newFakeRooms()
	router := roomRouter(rooms)

	w := serve(router, newRequest(t, http.MethodGet, "/api/rooms?search=Lokaal&status=available&unknown=1&page=2&size=500", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lokaal", rooms.lastQ.Search)
	assert.Equal(t, map[string]string{"status": "available"}, rooms.lastQ.Filters)
	assert.Equal(t, 2, rooms.lastQ.Page)
	assert.Equal(t, listing.MaxPageSize, rooms.lastQ.Size)

	w = serve(router, newRequest(t, http.MethodGet, "/api/rooms?status=all", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rooms.lastQ.Filters)

	w = serve(router, newRequest(t, http.MethodGet, "/api/rooms?capacity=veel", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
