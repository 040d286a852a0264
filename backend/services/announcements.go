package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

// AnnouncementService lets course owners post updates to their paying students.
type AnnouncementService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Logger        *log.Logger
}

func NewAnnouncementService(db *gorm.DB, n *NotificationService, logger *log.Logger) *AnnouncementService {
	return &AnnouncementService{DB: db, Notifications: n, Logger: utils.Tagged(logger, "ANNOUNCE")}
}

type AnnouncementInput struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required,max=255"`
	Message  string `json:"message" validate:"required"`
}

type AnnouncementUpdate struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=255"`
	Message *string `json:"message" validate:"omitempty,min=1"`
}

func (s *AnnouncementService) Create(ctx context.Context, p utils.Principal, in AnnouncementInput) (*models.Announcement, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var (
		a        models.Announcement
		course   *models.Course
		students []uint
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		course, err = editableCourse(tx, p, in.CourseID)
		if err != nil {
			return err
		}
		a = models.Announcement{CourseID: course.ID, AuthorID: p.UserID, Title: in.Title, Message: in.Message}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		return tx.Model(&models.Enrollment{}).
			Where("course_id = ? AND payment_status = ?", course.ID, models.PaymentPaid).
			Order("student_id").
			Pluck("student_id", &students).Error
	})
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("New update in %s: %s", course.Title, a.Title)
	for _, studentID := range students {
		s.Notifications.notifyQuietly(ctx, studentID, models.NotifyAnnouncement, subject, a.Message,
			map[string]interface{}{"course_id": course.ID, "announcement_id": a.ID})
	}
	s.Logger.Printf("announcement %d on course %d sent to %d students", a.ID, course.ID, len(students))
	return &a, nil
}

// List returns announcements newest first. With a course it requires access to
// that course; without one it covers the caller's own courses (enrolled for
// students, owned for instructors, all for admins).
func (s *AnnouncementService) List(ctx context.Context, p utils.Principal, courseID uint) ([]models.Announcement, error) {
	db := s.DB.WithContext(ctx)
	q := db.Model(&models.Announcement{})
	switch {
	case courseID != 0:
		course, err := viewableCourse(db, p, courseID)
		if err != nil {
			return nil, err
		}
		if p.IsStudent() {
			var enrolled int64
			if err := db.Model(&models.Enrollment{}).
				Where("student_id = ? AND course_id = ?", p.UserID, course.ID).
				Count(&enrolled).Error; err != nil {
				return nil, err
			}
			if enrolled == 0 {
				return nil, utils.NewAuthorizationError("Enroll in this course to see its announcements")
			}
		}
		q = q.Where("course_id = ?", course.ID)
	case p.IsAdmin():
	case p.IsInstructor():
		q = q.Where("course_id IN (?)", db.Model(&models.Course{}).Select("id").Where("instructor_id = ?", p.UserID))
	default:
		q = q.Where("course_id IN (?)", db.Model(&models.Enrollment{}).Select("course_id").Where("student_id = ?", p.UserID))
	}

	out := []models.Announcement{}
	err := q.Order("created_at DESC, id DESC").Limit(100).Find(&out).Error
	return out, err
}

// editable loads an announcement its author or an admin may change.
func (s *AnnouncementService) editable(tx *gorm.DB, p utils.Principal, id uint) (*models.Announcement, error) {
	var a models.Announcement
	if err := tx.First(&a, id).Error; err != nil {
		return nil, notFound(err, "Announcement")
	}
	if !p.IsAdmin() && a.AuthorID != p.UserID {
		return nil, utils.NewAuthorizationError("You can only change your own announcements")
	}
	return &a, nil
}

func (s *AnnouncementService) Update(ctx context.Context, p utils.Principal, id uint, in AnnouncementUpdate) (*models.Announcement, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	a, err := s.editable(db, p, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Message != nil {
		a.Message = strings.TrimSpace(*in.Message)
	}
	if a.Title == "" || a.Message == "" {
		return nil, utils.NewValidationError("Title and message must not be blank")
	}
	if err := db.Model(a).Select("title", "message").Updates(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, p utils.Principal, id uint) error {
	db := s.DB.WithContext(ctx)
	a, err := s.editable(db, p, id)
	if err != nil {
		return err
	}
	return db.Delete(a).Error
}
