package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Logger        *log.Logger
	Now           func() time.Time
}

func NewEnrollmentService(db *gorm.DB, n *NotificationService, logger *log.Logger) *EnrollmentService {
	return &EnrollmentService{
		DB:            db,
		Notifications: n,
		Logger:        utils.Tagged(logger, "ENROLLMENT"),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type EnrollInput struct {
	CourseID  uint `json:"course_id" validate:"required"`
	StudentID uint `json:"student_id"`
}

type EnrollmentFilter struct {
	CourseID      uint
	StudentID     uint
	PaymentStatus string
}

// Enroll creates an enrollment in an approved course. Students enroll themselves,
// admins may enroll any student. Free courses are paid on creation.
func (s *EnrollmentService) Enroll(ctx context.Context, p utils.Principal, in EnrollInput) (*models.Enrollment, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	studentID := p.UserID
	switch {
	case p.IsStudent():
	case p.IsAdmin():
		if in.StudentID == 0 {
			return nil, utils.NewValidationError("student_id is required")
		}
		var student models.User
		if err := s.DB.WithContext(ctx).First(&student, in.StudentID).Error; err != nil {
			return nil, notFound(err, "Student")
		}
		if student.Role != models.RoleStudent {
			return nil, utils.NewValidationError("user %d is not a student", in.StudentID)
		}
		studentID = student.ID
	default:
		return nil, utils.NewAuthorizationError("Only students can enroll")
	}

	var enrollment *models.Enrollment
	var course *models.Course
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		course, err = findCourse(tx, in.CourseID)
		if err != nil {
			return err
		}
		if course.Status != models.CourseApproved {
			return utils.NewValidationError("Course is not open for enrollment")
		}
		enrollment, err = createEnrollment(tx, studentID, course, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Notifications.notifyQuietly(ctx, studentID, models.NotifyEnrollmentOpened,
		fmt.Sprintf("You are enrolled in %q", course.Title),
		enrollmentBody(course, enrollment),
		map[string]interface{}{"course_id": course.ID, "enrollment_id": enrollment.ID})
	return enrollment, nil
}

func (s *EnrollmentService) List(ctx context.Context, p utils.Principal, f EnrollmentFilter) ([]models.Enrollment, error) {
	q := s.DB.WithContext(ctx).Model(&models.Enrollment{})
	switch {
	case p.IsAdmin():
		if f.StudentID != 0 {
			q = q.Where("enrollments.student_id = ?", f.StudentID)
		}
	case p.IsInstructor():
		q = q.Joins("JOIN courses ON courses.id = enrollments.course_id").
			Where("courses.instructor_id = ?", p.UserID)
	default:
		q = q.Where("enrollments.student_id = ?", p.UserID)
	}
	if f.CourseID != 0 {
		q = q.Where("enrollments.course_id = ?", f.CourseID)
	}
	if f.PaymentStatus != "" {
		q = q.Where("enrollments.payment_status = ?", f.PaymentStatus)
	}

	var out []models.Enrollment
	err := q.Preload("Course").
		Preload("Student").
		Order("enrollments.enrolled_at DESC, enrollments.id DESC").
		Find(&out).Error
	return out, err
}

func (s *EnrollmentService) Get(ctx context.Context, p utils.Principal, id uint) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := s.DB.WithContext(ctx).Preload("Course").Preload("Student").First(&e, id).Error; err != nil {
		return nil, notFound(err, "Enrollment")
	}
	if e.StudentID == p.UserID || p.IsAdmin() {
		return &e, nil
	}
	if e.Course != nil && canEditCourse(p, e.Course) {
		return &e, nil
	}
	return nil, utils.NewAuthorizationError("You cannot view this enrollment")
}

// createEnrollment fails with a conflict when the student is already enrolled.
func createEnrollment(tx *gorm.DB, studentID uint, course *models.Course, now time.Time) (*models.Enrollment, error) {
	var existing int64
	err := tx.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, course.ID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, utils.NewConflictError("Already enrolled in this course")
	}

	status := models.PaymentPending
	if course.IsFree() {
		status = models.PaymentPaid
	}
	e := models.Enrollment{
		StudentID:     studentID,
		CourseID:      course.ID,
		TuitionAmount: course.Price,
		PaymentStatus: status,
		EnrolledAt:    now,
	}
	if err := tx.Create(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewConflictError("Already enrolled in this course")
		}
		return nil, err
	}
	return &e, nil
}

// refreshPaymentStatus recomputes an enrollment's status from its completed transactions.
func refreshPaymentStatus(tx *gorm.DB, enrollmentID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := tx.First(&e, enrollmentID).Error; err != nil {
		return nil, notFound(err, "Enrollment")
	}
	var txns []models.Transaction
	if err := tx.Where("enrollment_id = ? AND status = ?", e.ID, models.TransactionCompleted).Find(&txns).Error; err != nil {
		return nil, err
	}
	status := PaymentStatusFor(e.TuitionAmount, NetPaid(txns))
	if status != e.PaymentStatus {
		if err := tx.Model(&e).Update("payment_status", status).Error; err != nil {
			return nil, err
		}
		e.PaymentStatus = status
	}
	return &e, nil
}

func enrollmentBody(course *models.Course, e *models.Enrollment) string {
	if e.PaymentStatus == models.PaymentPaid {
		return fmt.Sprintf("Your enrollment in %q is active. Happy learning!", course.Title)
	}
	return fmt.Sprintf("Your enrollment in %q is waiting for payment of %s.", course.Title, e.TuitionAmount.StringFixed(2))
}
