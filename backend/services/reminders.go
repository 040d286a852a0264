package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ReminderService nudges students whose enrollments are still unpaid.
type ReminderService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Logger        *log.Logger
	GracePeriod   time.Duration
}

func NewReminderService(db *gorm.DB, n *NotificationService, logger *log.Logger) *ReminderService {
	return &ReminderService{
		DB:            db,
		Notifications: n,
		Logger:        utils.Tagged(logger, "REMINDERS"),
		GracePeriod:   24 * time.Hour,
	}
}

// Start registers Run with a standard 5-field cron schedule. Stop the returned cron on shutdown.
func (s *ReminderService) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.Run(context.Background(), time.Now().UTC())
		if err != nil {
			s.Logger.Printf("run failed: %v", err)
			return
		}
		s.Logger.Printf("sent %d payment reminders", n)
	})
	if err != nil {
		return nil, fmt.Errorf("reminder schedule %q: %w", schedule, err)
	}
	c.Start()
	s.Logger.Printf("scheduled with %q", schedule)
	return c, nil
}

// reminderJitter absorbs scheduler drift between consecutive daily runs.
const reminderJitter = time.Hour

// Run sends one reminder per unpaid enrollment older than the grace period,
// at most once per grace period. It returns the number of reminders sent.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.GracePeriod)
	var due []models.Enrollment
	err := s.DB.WithContext(ctx).
		Preload("Course").
		Where("payment_status IN ?", []string{models.PaymentPending, models.PaymentPartial}).
		Where("enrolled_at <= ?", cutoff).
		Where("last_reminded_at IS NULL OR last_reminded_at <= ?", cutoff.Add(reminderJitter)).
		Order("id").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range due {
		title := "Complete your enrollment payment"
		if e.Course != nil {
			title = fmt.Sprintf("Complete your payment for %q", e.Course.Title)
		}
		body := fmt.Sprintf("Your enrollment is %s. Course tuition: %s.", e.PaymentStatus, e.TuitionAmount.StringFixed(2))
		if err := s.Notifications.Notify(ctx, e.StudentID, models.NotifyPaymentReminder, title, body, map[string]interface{}{
			"enrollment_id": e.ID,
			"course_id":     e.CourseID,
		}); err != nil {
			s.Logger.Printf("enrollment %d: %v", e.ID, err)
			continue
		}
		if err := s.DB.WithContext(ctx).Model(&models.Enrollment{}).Where("id = ?", e.ID).Update("last_reminded_at", now).Error; err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
