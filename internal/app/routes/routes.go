package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/controllers"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/websocket"
)

// Handlers are the controllers mounted under /api
type Handlers struct {
	Auth      *controllers.AuthController
	School    *controllers.SchoolController
	Accounts  *controllers.AccountController
	Settings  *controllers.SettingsController
	Messages  *controllers.MessageController
	Reports   *controllers.ReportController
	WebSocket *websocket.Handler

	// Resources are the generic CRUD services, mounted by name
	Resources *services.SchoolServices
}

func with(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(append([]gin.HandlerFunc{}, guards...), h)
}

// HealthFunc reports whether the backing services are reachable
type HealthFunc func(c *gin.Context) error

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware, health HealthFunc) {
	api := router.Group("/api")

	// Health check endpoint (public)
	api.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c); err != nil {
				detail := dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Service unavailable").WithDetails(err.Error())
				c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(detail))
				return
			}
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// --- Public Auth routes ---
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// --- Authenticated Routes Group ---
	authenticated := api.Group("")
	authenticated.Use(authMiddleware.JWTAuth(), authMiddleware.ActiveAccountRequired())

	staff := []gin.HandlerFunc{authMiddleware.StaffOnly()}
	staffAndTeachers := []gin.HandlerFunc{
		authMiddleware.RoleRequired(models.RoleAdmin, models.RoleSecretariat, models.RoleTeacher),
	}

	authenticated.GET("/auth/me", h.Auth.Me)
	authenticated.GET("/ws", h.WebSocket.HandleConnection)

	// Dashboard and recipient picker are open to every role
	authenticated.GET("/dashboard/stats", h.School.DashboardStats)
	authenticated.GET("/directory", h.School.Directory)

	// Static siblings of /:id are registered before the generic resources
	authenticated.GET("/academic-years/active", h.School.ActiveAcademicYear)
	authenticated.POST("/academic-years/:id/activate", with(staff, h.School.ActivateAcademicYear)...)
	authenticated.GET("/student-groups/:id/students", with(staffAndTeachers, h.School.GroupStudents)...)
	authenticated.GET("/students/:id/guardians", with(staffAndTeachers, h.School.StudentGuardians)...)
	authenticated.POST("/students/:id/guardians/:guardianId", with(staff, h.School.LinkGuardian)...)
	authenticated.DELETE("/students/:id/guardians/:guardianId", with(staff, h.School.UnlinkGuardian)...)

	// Administration resources: staff and teachers read, staff write
	r := h.Resources
	controllers.NewResourceController[models.AcademicYear](r.AcademicYears).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.Holiday](r.Holidays).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.Room](r.Rooms).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.Guardian](r.Guardians).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.StudentGroup](r.StudentGroups).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.Student](r.Students).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.Teacher](r.Teachers).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.Enrollment](r.Enrollments).Register(authenticated, staffAndTeachers, staff)
	controllers.NewResourceController[models.ReportTemplate](r.ReportTemplates).Register(authenticated, staffAndTeachers, staff)

	// Teachers keep the registers of their own lessons
	controllers.NewResourceController[models.AttendanceRecord](r.Attendance).Register(authenticated, staffAndTeachers, staffAndTeachers)
	controllers.NewResourceController[models.Grade](r.Grades).Register(authenticated, staffAndTeachers, staffAndTeachers)
	controllers.NewResourceController[models.BehaviorRecord](r.BehaviorRecords).Register(authenticated, staffAndTeachers, staffAndTeachers)

	// User accounts (staff only)
	accounts := authenticated.Group("/user-accounts", staff...)
	{
		accounts.GET("", h.Accounts.ListAccounts)
		accounts.POST("", h.Accounts.CreateAccount)
		accounts.POST("/bulk", h.Accounts.BulkCreateAccounts)
		accounts.GET("/:id", h.Accounts.GetAccount)
		accounts.PUT("/:id", h.Accounts.UpdateAccount)
		accounts.PATCH("/:id/status", h.Accounts.SetAccountStatus)
		accounts.POST("/:id/reset-password", h.Accounts.ResetPassword)
		accounts.DELETE("/:id", h.Accounts.DeleteAccount)
	}

	// Settings (staff only)
	settings := authenticated.Group("/settings", staff...)
	{
		settings.GET("", h.Settings.AllSettings)
		settings.GET("/:section", h.Settings.GetSection)
		settings.PUT("/:section", h.Settings.UpdateSection)
	}

	// Reports
	reports := authenticated.Group("/reports", staffAndTeachers...)
	{
		reports.GET("/students/:id/card", h.Reports.StudentCard)
		reports.GET("/students/:id/attendance", h.Reports.StudentAttendance)
		reports.GET("/groups/:id/attendance", h.Reports.GroupAttendance)
	}

	// Messaging - every role; ownership is checked per message
	messages := authenticated.Group("/messages")
	{
		messages.POST("", h.Messages.SendMessage)
		messages.GET("/export", h.Messages.Export)
		messages.GET("/unread-count", h.Messages.UnreadCount)
		messages.GET("/receiver/:id/:role", h.Messages.Inbox)
		messages.GET("/sender/:id/:role", h.Messages.Sent)
		messages.GET("/:id", h.Messages.GetMessage)
		messages.PATCH("/:id/read", h.Messages.MarkRead)
		messages.GET("/:id/thread", h.Messages.Thread)
		messages.GET("/:id/attachment", h.Messages.DownloadAttachment)
		messages.DELETE("/:id", h.Messages.DeleteMessage)
	}

	// Communications (school office)
	communications := authenticated.Group("/communications", staff...)
	{
		communications.GET("", h.Messages.Communications)
		communications.POST("", h.Messages.SendCommunication)
	}
}
