package routes

import (
	"log"
	"strings"

	"apollo/backend/config"
	"apollo/backend/controllers"
	"apollo/backend/middleware"
	"apollo/backend/models"
	"apollo/backend/utils"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// NewApp builds the Fiber application with middleware and every route registered.
func NewApp(cfg *config.Config, db *gorm.DB, logger *log.Logger, m *utils.Metrics, svc *Services) *fiber.App {
	bodyLimit := cfg.MaxUploadMB
	if bodyLimit <= 0 {
		bodyLimit = 200
	}
	app := fiber.New(fiber.Config{
		AppName:      "Apollo",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: utils.FiberErrorHandler,
		BodyLimit:    (bodyLimit + 1) << 20,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(middleware.LoggingMiddleware(utils.Tagged(logger, "HTTP"), false))
	if m != nil {
		app.Use(middleware.MetricsMiddleware(m))
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	app.Get("/healthz", controllers.NewHealthController(db).Healthz)
	if cfg.StorageDriver == "local" && strings.HasPrefix(cfg.PublicUploadURL, "/") {
		app.Static(cfg.PublicUploadURL, cfg.UploadDir)
	}

	SetupRoutes(app, cfg, svc)
	return app
}

func SetupRoutes(app *fiber.App, cfg *config.Config, svc *Services) {
	api := app.Group("/api")

	authMiddleware := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuth(cfg)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	authors := middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin)

	// Auth routes
	authController := controllers.NewAuthController(svc.Auth)
	auth := api.Group("/auth", middleware.AuthRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow))
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Get("/me", authMiddleware, authController.Me)
	api.Put("/users/me", authMiddleware, authController.UpdateProfile)

	// Courses routes
	coursesController := controllers.NewCoursesController(svc.Courses)
	analyticsController := controllers.NewAnalyticsController(svc.Analytics)
	builderController := controllers.NewBuilderController(svc.Builder)
	courses := api.Group("/courses")
	courses.Get("/", optionalAuth, coursesController.ListCourses)
	courses.Post("/", authMiddleware, authors, coursesController.CreateCourse)
	courses.Get("/:id", optionalAuth, coursesController.GetCourse)
	courses.Put("/:id", authMiddleware, authors, coursesController.UpdateCourse)
	courses.Delete("/:id", authMiddleware, authors, coursesController.DeleteCourse)
	courses.Post("/:id/submit", authMiddleware, authors, coursesController.SubmitCourse)
	courses.Get("/:id/analytics", authMiddleware, authors, analyticsController.GetCourseAnalytics)
	api.Get("/analytics/platform", authMiddleware, adminOnly, analyticsController.GetPlatformAnalytics)

	// Builder routes
	courses.Get("/:courseId/sections", optionalAuth, builderController.ListSections)
	courses.Post("/:courseId/sections", authMiddleware, authors, builderController.CreateSection)
	courses.Put("/:courseId/sections/reorder", authMiddleware, authors, builderController.ReorderSections)

	sections := api.Group("/sections")
	sections.Put("/:sectionId", authMiddleware, authors, builderController.UpdateSection)
	sections.Delete("/:sectionId", authMiddleware, authors, builderController.DeleteSection)
	sections.Get("/:sectionId/lessons", optionalAuth, builderController.ListLessons)
	sections.Post("/:sectionId/lessons", authMiddleware, authors, builderController.CreateLesson)
	sections.Put("/:sectionId/lessons/reorder", authMiddleware, authors, builderController.ReorderLessons)

	lessons := api.Group("/lessons", authMiddleware, authors)
	lessons.Put("/:lessonId", builderController.UpdateLesson)
	lessons.Delete("/:lessonId", builderController.DeleteLesson)

	// Quiz routes
	quizController := controllers.NewQuizController(svc.Quizzes)
	quizzes := api.Group("/quizzes", authMiddleware)
	quizzes.Get("/courses/:courseId/quizzes", quizController.ListCourseQuizzes)
	quizzes.Post("/", authors, quizController.CreateQuiz)
	quizzes.Get("/attempts/:attemptId", quizController.GetAttempt)
	quizzes.Post("/attempts/:attemptId/submit", quizController.SubmitAttempt)
	quizzes.Get("/:id", quizController.GetQuiz)
	quizzes.Put("/:id", authors, quizController.UpdateQuiz)
	quizzes.Delete("/:id", authors, quizController.DeleteQuiz)
	quizzes.Post("/:id/questions", authors, quizController.AddQuestion)
	quizzes.Put("/:id/questions/reorder", authors, quizController.ReorderQuestions)
	quizzes.Delete("/:id/questions/:questionId", authors, quizController.DeleteQuestion)
	quizzes.Post("/:id/attempt", quizController.StartAttempt)
	quizzes.Get("/:id/attempts", quizController.ListAttempts)

	// Admin moderation
	moderationController := controllers.NewModerationController(svc.Moderation)
	moderation := api.Group("/moderation/courses", authMiddleware)
	moderation.Get("/pending", adminOnly, moderationController.ListPending)
	moderation.Post("/:id/approve", adminOnly, moderationController.Approve)
	moderation.Post("/:id/reject", adminOnly, moderationController.Reject)
	moderation.Get("/:id/reviews", moderationController.Reviews)

	// Enrollments and payments
	enrollmentController := controllers.NewEnrollmentController(svc.Enrollments)
	enrollments := api.Group("/enrollments", authMiddleware)
	enrollments.Get("/", enrollmentController.List)
	enrollments.Post("/", enrollmentController.Enroll)
	enrollments.Get("/:id", enrollmentController.Get)

	paymentController := controllers.NewPaymentController(svc.Payments)
	api.Post("/payments/checkout", authMiddleware, paymentController.Checkout)
	api.Post("/payments/webhook", paymentController.Webhook)

	financeController := controllers.NewFinanceController(svc.Finance)
	finance := api.Group("/finance", authMiddleware)
	finance.Get("/balance", financeController.MyBalance)
	finance.Get("/balance/:studentId", financeController.StudentBalance)
	finance.Get("/transactions", financeController.Transactions)
	finance.Get("/summary", adminOnly, financeController.Summary)
	finance.Post("/adjustments", adminOnly, financeController.Adjust)

	// Progress, notifications, uploads
	progressController := controllers.NewProgressController(svc.Progress)
	api.Put("/progress/lessons/:lessonId", authMiddleware, progressController.UpdateLessonProgress)
	api.Get("/progress/courses/:courseId", authMiddleware, progressController.GetCourseProgress)

	notificationController := controllers.NewNotificationController(svc.Notifications)
	api.Get("/notifications", authMiddleware, notificationController.List)
	api.Post("/notifications/:id/read", authMiddleware, notificationController.MarkRead)

	uploadController := controllers.NewUploadController(svc.Uploads)
	api.Post("/uploads", authMiddleware, authors, uploadController.Upload)

	// Instructor earnings
	instructor := api.Group("/instructor", authMiddleware, authors)
	instructor.Get("/earnings", financeController.Earnings)
	instructor.Get("/courses/revenue", financeController.CourseRevenue)
	instructor.Get("/transactions", financeController.InstructorTransactions)

	// Certificates
	certificateController := controllers.NewCertificateController(svc.Certificates)
	certificates := api.Group("/certificates")
	certificates.Get("/verify/:number", certificateController.Verify)
	certificates.Post("/generate", authMiddleware, authors, certificateController.Generate)
	certificates.Get("/student/:studentId", authMiddleware, certificateController.ListByStudent)
	certificates.Get("/:id", authMiddleware, certificateController.Get)
	certificates.Delete("/:id", authMiddleware, adminOnly, certificateController.Delete)

	// Announcements
	announcementController := controllers.NewAnnouncementController(svc.Announcements)
	announcements := api.Group("/announcements", authMiddleware)
	announcements.Get("/", announcementController.List)
	announcements.Post("/", authors, announcementController.Create)
	announcements.Put("/:id", authors, announcementController.Update)
	announcements.Delete("/:id", authors, announcementController.Delete)

	// Assignments and gradebook
	assignmentController := controllers.NewAssignmentController(svc.Assignments)
	courses.Get("/:courseId/assignments", authMiddleware, assignmentController.ListByCourse)
	courses.Post("/:courseId/assignments", authMiddleware, authors, assignmentController.Create)
	courses.Get("/:courseId/gradebook", authMiddleware, assignmentController.Gradebook)
	courses.Get("/:courseId/gradebook.csv", authMiddleware, authors, assignmentController.ExportGradebook)

	assignments := api.Group("/assignments", authMiddleware)
	assignments.Put("/:id", authors, assignmentController.Update)
	assignments.Delete("/:id", authors, assignmentController.Delete)
	assignments.Get("/:id/submissions", assignmentController.ListSubmissions)
	assignments.Post("/:id/submissions", assignmentController.Submit)
	api.Post("/submissions/:id/grade", authMiddleware, authors, assignmentController.Grade)
}
