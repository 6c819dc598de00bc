package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/helpers"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// ResourceController serves list, read and mutate endpoints for one
// administration resource.
type ResourceController[T any] struct {
	service services.ResourceService[T]
}

// NewResourceController creates a new ResourceController
func NewResourceController[T any](service services.ResourceService[T]) *ResourceController[T] {
	return &ResourceController[T]{service: service}
}

// confirmed answers 400 unless the request carries confirm=true.
func confirmed(ctx *gin.Context) bool {
	if !helpers.QueryBool(ctx, "confirm") {
		middleware.HandleAPIError(ctx, apperrors.ErrDeleteNotConfirmed)
		return false
	}
	return true
}

// listQuery parses the list parameters against schema, answering 400 on a
// malformed filter value.
func listQuery(ctx *gin.Context, schema listing.Schema) (listing.Query, bool) {
	q, err := listing.ParseQuery(ctx, schema)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query parameters").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return listing.Query{}, false
	}
	return q, true
}

// List returns one page of the resource
// @Summary List records of a resource
// @Description Search, filter, sort and page through a resource. Filters are declared per resource; "all" clears a filter.
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param resource path string true "Resource name" Enums(academic-years, holidays, rooms, guardians, student-groups, students, teachers, enrollments, attendance, grades, behavior-records, report-templates)
// @Param search query string false "Case-insensitive search term"
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10) maximum(100)
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Records retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /{resource} [get]
func (c *ResourceController[T]) List(ctx *gin.Context) {
	q, ok := listQuery(ctx, c.service.Schema())
	if !ok {
		return
	}

	page, err := c.service.List(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page, ""))
}

// Get returns one record
// @Summary Get a record by ID
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param resource path string true "Resource name"
// @Param id path int true "Record ID"
// @Success 200 {object} dto.APIResponse "Record retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid ID"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /{resource}/{id} [get]
func (c *ResourceController[T]) Get(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	item, err := c.service.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(item, ""))
}

// Create stores a new record
// @Summary Create a record
// @Description Validates the body and inserts exactly one record.
// @Tags resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param resource path string true "Resource name"
// @Success 201 {object} dto.APIResponse "Record created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 409 {object} dto.ErrorResponse "Record conflicts with an existing one"
// @Router /{resource} [post]
func (c *ResourceController[T]) Create(ctx *gin.Context) {
	item := new(T)
	if !middleware.BindJSON(ctx, item) {
		return
	}

	created, err := c.service.Create(ctx.Request.Context(), item)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(created, "Record created successfully"))
}

// Update replaces a record
// @Summary Update a record
// @Tags resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param resource path string true "Resource name"
// @Param id path int true "Record ID"
// @Success 200 {object} dto.APIResponse "Record updated successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Failure 409 {object} dto.ErrorResponse "Record conflicts with an existing one"
// @Router /{resource}/{id} [put]
func (c *ResourceController[T]) Update(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	item := new(T)
	if !middleware.BindJSON(ctx, item) {
		return
	}

	updated, err := c.service.Update(ctx.Request.Context(), id, item)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(updated, "Record updated successfully"))
}

// Delete removes a record once confirmed
// @Summary Delete a record
// @Description Requires confirm=true; without it nothing is removed.
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param resource path string true "Resource name"
// @Param id path int true "Record ID"
// @Param confirm query bool true "Must be true"
// @Success 200 {object} dto.APIResponse "Record deleted successfully"
// @Failure 400 {object} dto.ErrorResponse "Deletion not confirmed"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /{resource}/{id} [delete]
func (c *ResourceController[T]) Delete(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	if !confirmed(ctx) {
		return
	}

	if err := c.service.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Record deleted successfully"))
}

// Register mounts the resource on group. Reads pass the read guards, writes
// additionally pass the write guards.
func (c *ResourceController[T]) Register(group *gin.RouterGroup, read, write []gin.HandlerFunc) {
	path := "/" + c.service.Name()
	chain := func(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guards...), h)
	}

	group.GET(path, chain(read, c.List)...)
	group.GET(path+"/:id", chain(read, c.Get)...)
	group.POST(path, chain(write, c.Create)...)
	group.PUT(path+"/:id", chain(write, c.Update)...)
	group.DELETE(path+"/:id", chain(write, c.Delete)...)
}
