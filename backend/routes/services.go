package routes

import (
	"fmt"
	"log"

	"apollo/backend/config"
	"apollo/backend/services"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

// Services is everything the HTTP layer and the background jobs need.
type Services struct {
	Auth          *services.AuthService
	Courses       *services.CourseService
	Moderation    *services.ModerationService
	Builder       *services.BuilderService
	Quizzes       *services.QuizService
	Enrollments   *services.EnrollmentService
	Payments      *services.PaymentService
	Finance       *services.FinanceService
	Progress      *services.ProgressService
	Notifications *services.NotificationService
	Reminders     *services.ReminderService
	Uploads       *services.UploadService
	Analytics     *services.AnalyticsService
	Certificates  *services.CertificateService
	Announcements *services.AnnouncementService
	Assignments   *services.AssignmentService
}

// NewServices wires the service graph. Stripe is used only when a secret key is
// configured and SendGrid only when an API key is set.
func NewServices(db *gorm.DB, cfg *config.Config, logger *log.Logger, m *utils.Metrics) (*Services, error) {
	var mailer services.Mailer = services.LogMailer{Logger: utils.Tagged(logger, "MAIL")}
	if cfg.SendGridAPIKey != "" {
		mailer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
	}

	var provider services.PaymentProvider
	if cfg.StripeEnabled() {
		provider = services.NewStripeClient(cfg.StripeAPIURL, cfg.StripeSecretKey)
	}

	storage, err := services.NewStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	notifications := services.NewNotificationService(db, mailer, logger)
	reorder := services.NewReorderService(db, m)
	certificates := services.NewCertificateService(db, notifications, logger)

	return &Services{
		Auth:          services.NewAuthService(db, cfg),
		Courses:       services.NewCourseService(db, logger),
		Moderation:    services.NewModerationService(db, notifications, logger),
		Builder:       services.NewBuilderService(db, reorder),
		Quizzes:       services.NewQuizService(db, reorder, m, logger),
		Enrollments:   services.NewEnrollmentService(db, notifications, logger),
		Payments:      services.NewPaymentService(db, provider, cfg, notifications, m, logger),
		Finance:       services.NewFinanceService(db, cfg.Currency),
		Progress:      services.NewProgressService(db, certificates),
		Notifications: notifications,
		Reminders:     services.NewReminderService(db, notifications, logger),
		Uploads:       services.NewUploadService(storage, cfg.MaxUploadMB),
		Analytics:     services.NewAnalyticsService(db),
		Certificates:  certificates,
		Announcements: services.NewAnnouncementService(db, notifications, logger),
		Assignments:   services.NewAssignmentService(db, notifications, logger),
	}, nil
}
