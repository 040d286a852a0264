package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

type ModerationService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Logger        *log.Logger
}

func NewModerationService(db *gorm.DB, n *NotificationService, logger *log.Logger) *ModerationService {
	return &ModerationService{DB: db, Notifications: n, Logger: utils.Tagged(logger, "MODERATION")}
}

func (s *ModerationService) ListPending(ctx context.Context, p utils.Principal) ([]models.Course, error) {
	if !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("Admin access required")
	}
	var courses []models.Course
	err := s.DB.WithContext(ctx).
		Preload("Instructor").
		Where("status = ?", models.CoursePending).
		Order("updated_at ASC, id ASC").
		Find(&courses).Error
	return courses, err
}

func (s *ModerationService) Approve(ctx context.Context, p utils.Principal, courseID uint, feedback string) (*models.Course, error) {
	return s.decide(ctx, p, courseID, models.CourseApproved, strings.TrimSpace(feedback))
}

func (s *ModerationService) Reject(ctx context.Context, p utils.Principal, courseID uint, feedback string) (*models.Course, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, utils.NewValidationError("feedback is required when rejecting a course")
	}
	return s.decide(ctx, p, courseID, models.CourseRejected, feedback)
}

// Reviews lists the moderation history of a course, oldest first.
func (s *ModerationService) Reviews(ctx context.Context, p utils.Principal, courseID uint) ([]models.CourseReview, error) {
	db := s.DB.WithContext(ctx)
	if _, err := editableCourse(db, p, courseID); err != nil {
		return nil, err
	}
	var reviews []models.CourseReview
	err := db.Where("course_id = ?", courseID).Order("created_at, id").Find(&reviews).Error
	return reviews, err
}

func (s *ModerationService) decide(ctx context.Context, p utils.Principal, courseID uint, status, feedback string) (*models.Course, error) {
	if !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("Admin access required")
	}

	var course *models.Course
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		course, err = findCourse(tx, courseID)
		if err != nil {
			return err
		}
		if course.Status != models.CoursePending {
			return utils.NewValidationError("Only pending courses can be moderated, course is %s", course.Status)
		}

		updates := map[string]interface{}{"status": status, "review_feedback": feedback}
		if status == models.CourseApproved {
			now := time.Now().UTC()
			updates["published_at"] = now
			course.PublishedAt = &now
		}
		res := tx.Model(&models.Course{}).Where("id = ? AND status = ?", course.ID, models.CoursePending).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewConflictError("Course was moderated concurrently")
		}
		course.Status = status
		course.ReviewFeedback = feedback

		return tx.Create(&models.CourseReview{
			CourseID: course.ID,
			AdminID:  p.UserID,
			Action:   status,
			Feedback: feedback,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Printf("course %d %s by admin %d", course.ID, status, p.UserID)
	kind, title := models.NotifyCourseApproved, fmt.Sprintf("Your course %q was approved", course.Title)
	if status == models.CourseRejected {
		kind, title = models.NotifyCourseRejected, fmt.Sprintf("Your course %q needs changes", course.Title)
	}
	body := title
	if feedback != "" {
		body += "\n\nReviewer feedback: " + feedback
	}
	s.Notifications.notifyQuietly(ctx, course.InstructorID, kind, title, body, map[string]interface{}{
		"course_id": course.ID,
		"status":    status,
	})
	return course, nil
}
