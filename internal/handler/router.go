package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/secretaria-online/secretaria-api/internal/middleware"
	"github.com/secretaria-online/secretaria-api/internal/repository"
	"github.com/secretaria-online/secretaria-api/internal/service"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Students      *StudentHandler
	Courses       *CourseHandler
	Classes       *ClassHandler
	Enrollments   *EnrollmentHandler
	Reenrollments *ReenrollmentHandler
	Documents     *DocumentHandler
	Contracts     *ContractHandler
	Templates     *TemplateHandler
	Evaluations   *EvaluationHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts every endpoint under the API prefix. Authentication
// is route-group level; authorization comes from the policy table and stays
// out of the handlers themselves.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService, users *repository.UserRepository) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", h.Auth.Logout)
		authed.POST("/change-password", h.Auth.ChangePassword)
		authed.GET("/me", h.Auth.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	usersGroup := protected.Group("/users")
	{
		usersGroup.GET("", middleware.Authorize("users", middleware.ActionRead), h.Users.List)
		usersGroup.POST("", middleware.Authorize("users", middleware.ActionManage), h.Users.Create)
		usersGroup.DELETE("/:id", middleware.Authorize("users", middleware.ActionManage), h.Users.Deactivate)
	}

	students := protected.Group("/students")
	{
		students.GET("/me", h.Students.Me)
		students.GET("", middleware.Authorize("students", middleware.ActionRead), h.Students.List)
		students.GET("/:id", middleware.Authorize("students", middleware.ActionRead), h.Students.Get)
		students.POST("",
			middleware.Authorize("students", middleware.ActionManage),
			middleware.Audit(users, "STUDENT_REGISTER", "students"),
			h.Students.Register)
		students.PUT("/:id", middleware.Authorize("students", middleware.ActionManage), h.Students.Update)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", middleware.Authorize("courses", middleware.ActionRead), h.Courses.List)
		courses.GET("/:id", middleware.Authorize("courses", middleware.ActionRead), h.Courses.Get)
		courses.POST("", middleware.Authorize("courses", middleware.ActionManage), h.Courses.Create)
		courses.PUT("/:id", middleware.Authorize("courses", middleware.ActionManage), h.Courses.Update)
		courses.GET("/:id/disciplines", middleware.Authorize("courses", middleware.ActionRead), h.Courses.Disciplines)
		courses.POST("/:id/disciplines", middleware.Authorize("courses", middleware.ActionManage), h.Courses.AddDiscipline)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", middleware.Authorize("classes", middleware.ActionRead), h.Classes.List)
		classes.GET("/:id", middleware.Authorize("classes", middleware.ActionRead), h.Classes.Get)
		classes.POST("", middleware.Authorize("classes", middleware.ActionManage), h.Classes.Create)
		classes.PUT("/:id", middleware.Authorize("classes", middleware.ActionManage), h.Classes.Update)
		classes.DELETE("/:id", middleware.Authorize("classes", middleware.ActionManage), h.Classes.Delete)
		classes.GET("/:id/evaluations", middleware.Authorize("evaluations", middleware.ActionRead), h.Evaluations.ListByClass)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", middleware.Authorize("enrollments", middleware.ActionRead), h.Enrollments.List)
		enrollments.GET("/:id", middleware.Authorize("enrollments", middleware.ActionRead), h.Enrollments.Get)
		enrollments.POST("", middleware.Authorize("enrollments", middleware.ActionManage), h.Enrollments.Create)
		enrollments.PUT("/:id/status", middleware.Authorize("enrollments", middleware.ActionManage), h.Enrollments.UpdateStatus)
		enrollments.DELETE("/:id", middleware.Authorize("enrollments", middleware.ActionManage), h.Enrollments.Delete)
	}

	reenrollments := protected.Group("/reenrollments")
	{
		reenrollments.POST("/process-all",
			middleware.Authorize("reenrollments", middleware.ActionManage),
			h.Reenrollments.ProcessAll)
		reenrollments.GET("/contract-preview/:enrollmentId",
			middleware.Authorize("reenrollments", middleware.ActionRead),
			h.Reenrollments.ContractPreview)
		reenrollments.POST("/accept/:enrollmentId",
			middleware.Authorize("reenrollments", middleware.ActionWrite),
			h.Reenrollments.Accept)
	}

	documents := protected.Group("/documents")
	{
		documents.GET("", middleware.Authorize("documents", middleware.ActionRead), h.Documents.List)
		documents.POST("", middleware.Authorize("documents", middleware.ActionWrite), h.Documents.Upload)
		documents.PUT("/:id/review", middleware.Authorize("documents", middleware.ActionReview), h.Documents.Review)
	}

	contracts := protected.Group("/contracts")
	{
		contracts.GET("", middleware.Authorize("contracts", middleware.ActionRead), h.Contracts.List)
		contracts.GET("/:id", middleware.Authorize("contracts", middleware.ActionRead), h.Contracts.Get)
		contracts.POST("/generate", middleware.Authorize("contracts", middleware.ActionManage), h.Contracts.Generate)
	}

	templates := protected.Group("/templates")
	{
		templates.GET("", middleware.Authorize("templates", middleware.ActionRead), h.Templates.List)
		templates.POST("", middleware.Authorize("templates", middleware.ActionManage), h.Templates.Create)
		templates.PUT("/:id", middleware.Authorize("templates", middleware.ActionManage), h.Templates.Update)
	}

	evaluations := protected.Group("/evaluations")
	{
		evaluations.POST("", middleware.Authorize("evaluations", middleware.ActionWrite), h.Evaluations.Create)
		evaluations.PUT("/:id/grades", middleware.Authorize("evaluations", middleware.ActionWrite), h.Evaluations.RecordGrade)
		evaluations.GET("/:id/grades", middleware.Authorize("evaluations", middleware.ActionRead), h.Evaluations.Grades)
	}

	protected.GET("/metrics", middleware.Authorize("metrics", middleware.ActionRead), h.Metrics.Prometheus)
}
