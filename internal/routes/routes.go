package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/attendx-api/internal/handler"
	"github.com/noah-isme/attendx-api/internal/middleware"
	"github.com/noah-isme/attendx-api/internal/models"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Dependencies groups everything Register needs. Reports may be nil when exports are disabled.
type Dependencies struct {
	APIPrefix   string
	Tokens      tokenValidator
	Audit       auditRecorder
	AuthLimiter *middleware.RateLimiter
	Logger      *zap.Logger

	Auth       *handler.AuthHandler
	Classrooms *handler.ClassroomHandler
	Live       *handler.LiveSessionHandler
	Attendance *handler.AttendanceHandler
	Timetables *handler.TimetableHandler
	Reports    *handler.ReportHandler
	Metrics    *handler.MetricsHandler
}

// Register mounts every AttendX route on r.
func Register(r *gin.Engine, deps Dependencies) {
	if deps.Metrics != nil {
		r.GET("/health", deps.Metrics.Health)
		r.GET("/ready", deps.Metrics.Ready)
		r.GET("/metrics", deps.Metrics.Prometheus)
	}

	api := r.Group(deps.APIPrefix)

	auth := api.Group("/auth")
	if deps.AuthLimiter != nil {
		auth.Use(deps.AuthLimiter.Middleware())
	}
	auth.POST("/signup", deps.Auth.Signup)
	auth.POST("/login", deps.Auth.Login)
	auth.POST("/refresh", deps.Auth.Refresh)

	if deps.Reports != nil {
		api.GET("/export/:token", deps.Reports.Download)
	}

	educator := middleware.RequireRoles(models.RoleEducator)
	student := middleware.RequireRoles(models.RoleStudent)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	protected := api.Group("", middleware.JWT(deps.Tokens))
	{
		protected.POST("/auth/logout", deps.Auth.Logout)
		protected.GET("/auth/me", deps.Auth.Me)

		classrooms := protected.Group("/classrooms")
		classrooms.GET("", deps.Classrooms.List)
		classrooms.POST("", educator, audit(models.AuditActionClassroomAdd, models.AuditResourceClassroom), deps.Classrooms.Create)
		classrooms.GET("/search", deps.Classrooms.Search)
		classrooms.GET("/:id", deps.Classrooms.Get)
		classrooms.POST("/:id/join", student, deps.Classrooms.Join)
		classrooms.PATCH("/:id/students", educator, audit(models.AuditActionEnrollReview, models.AuditResourceClassroom), deps.Classrooms.Review)

		live := protected.Group("/live")
		live.POST("", educator, audit(models.AuditActionSessionStart, models.AuditResourceLiveSession), deps.Live.Start)
		live.GET("", deps.Live.List)
		live.GET("/:id", deps.Live.Get)
		live.PATCH("/:id", audit(models.AuditActionSessionAction, models.AuditResourceLiveSession), deps.Live.Act)

		attendance := protected.Group("/attendance")
		attendance.GET("", deps.Attendance.Report)
		if deps.Reports != nil {
			attendance.POST("/exports", educator, audit(models.AuditActionExportRequest, models.AuditResourceAttendance), deps.Reports.CreateExport)
			attendance.GET("/exports/:id", educator, deps.Reports.ExportStatus)
		}

		timetables := protected.Group("/timetables")
		timetables.GET("", deps.Timetables.List)
		timetables.POST("", deps.Timetables.Create)
		timetables.POST("/:id/slots", deps.Timetables.AddSlot)
		timetables.DELETE("/:id/slots/:slotId", deps.Timetables.DeleteSlot)
	}
}
