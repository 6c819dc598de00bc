package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

// SchoolController handles the operations that go beyond plain CRUD
type SchoolController struct {
	years     services.AcademicYearService
	groups    services.StudentGroupService
	students  services.StudentService
	dashboard services.DashboardService
	directory services.DirectoryService
}

// NewSchoolController creates a new SchoolController
func NewSchoolController(school *services.SchoolServices, dashboard services.DashboardService, directory services.DirectoryService) *SchoolController {
	return &SchoolController{
		years:     school.AcademicYears,
		groups:    school.StudentGroups,
		students:  school.Students,
		dashboard: dashboard,
		directory: directory,
	}
}

// ActiveAcademicYear returns the active academic year
// @Summary Get the active academic year
// @Tags academic-years
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.AcademicYear} "Active academic year"
// @Failure 404 {object} dto.ErrorResponse "No academic year is active"
// @Router /academic-years/active [get]
func (c *SchoolController) ActiveAcademicYear(ctx *gin.Context) {
	year, err := c.years.Active(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(year, ""))
}

// ActivateAcademicYear makes one academic year the active one
// @Summary Activate an academic year
// @Description Deactivates every other year in the same transaction.
// @Tags academic-years
// @Produce json
// @Security BearerAuth
// @Param id path int true "Academic year ID"
// @Success 200 {object} dto.APIResponse{data=models.AcademicYear} "Academic year activated"
// @Failure 404 {object} dto.ErrorResponse "Academic year not found"
// @Router /academic-years/{id}/activate [post]
func (c *SchoolController) ActivateAcademicYear(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	year, err := c.years.Activate(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(year, "Academic year activated"))
}

// GroupStudents lists the students enrolled in a group
// @Summary List the students of a group
// @Tags student-groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student group ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Student} "Enrolled students"
// @Failure 404 {object} dto.ErrorResponse "Student group not found"
// @Router /student-groups/{id}/students [get]
func (c *SchoolController) GroupStudents(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	students, err := c.groups.Students(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(students, ""))
}

// StudentGuardians lists the guardians linked to a student
// @Summary List the guardians of a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Guardian} "Linked guardians"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/guardians [get]
func (c *SchoolController) StudentGuardians(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	guardians, err := c.students.Guardians(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(guardians, ""))
}

// LinkGuardian links a guardian to a student
// @Summary Link a guardian to a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param guardianId path int true "Guardian ID"
// @Success 200 {object} dto.APIResponse "Guardian linked"
// @Failure 404 {object} dto.ErrorResponse "Student or guardian not found"
// @Failure 409 {object} dto.ErrorResponse "Already linked"
// @Router /students/{id}/guardians/{guardianId} [post]
func (c *SchoolController) LinkGuardian(ctx *gin.Context) {
	studentID, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	guardianID, ok := middleware.ParseID(ctx, "guardianId")
	if !ok {
		return
	}

	if err := c.students.LinkGuardian(ctx.Request.Context(), studentID, guardianID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Guardian linked"))
}

// UnlinkGuardian removes the link between a guardian and a student
// @Summary Unlink a guardian from a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param guardianId path int true "Guardian ID"
// @Param confirm query bool true "Must be true"
// @Success 200 {object} dto.APIResponse "Guardian unlinked"
// @Failure 400 {object} dto.ErrorResponse "Deletion not confirmed"
// @Failure 404 {object} dto.ErrorResponse "Link not found"
// @Router /students/{id}/guardians/{guardianId} [delete]
func (c *SchoolController) UnlinkGuardian(ctx *gin.Context) {
	studentID, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	guardianID, ok := middleware.ParseID(ctx, "guardianId")
	if !ok {
		return
	}
	if !confirmed(ctx) {
		return
	}

	if err := c.students.UnlinkGuardian(ctx.Request.Context(), studentID, guardianID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Guardian unlinked"))
}

// DashboardStats returns the counts shown on the dashboard home page
// @Summary Dashboard statistics
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DashboardStats} "Statistics"
// @Router /dashboard/stats [get]
func (c *SchoolController) DashboardStats(ctx *gin.Context) {
	caller, ok := middleware.CurrentParticipant(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthorized)
		return
	}

	stats, err := c.dashboard.Stats(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// Directory lists possible message recipients
// @Summary Recipient directory
// @Description Students, teachers and guardians, searchable by name, email and detail.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search term"
// @Param role query string false "Role filter" Enums(student, teacher, guardian, all)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Directory entries"
// @Router /directory [get]
func (c *SchoolController) Directory(ctx *gin.Context) {
	q, ok := listQuery(ctx, services.DirectorySchema)
	if !ok {
		return
	}

	page, err := c.directory.List(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page, ""))
}
