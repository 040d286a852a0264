package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CertificateService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Logger        *log.Logger
	Now           func() time.Time
}

func NewCertificateService(db *gorm.DB, n *NotificationService, logger *log.Logger) *CertificateService {
	return &CertificateService{
		DB:            db,
		Notifications: n,
		Logger:        utils.Tagged(logger, "CERTIFICATES"),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type CertificateInput struct {
	StudentID   uint       `json:"student_id" validate:"required"`
	CourseID    uint       `json:"course_id" validate:"required"`
	CompletedAt *time.Time `json:"completed_at"`
}

// CertificateVerification is what anyone holding a certificate number may see.
type CertificateVerification struct {
	Valid       bool      `json:"valid"`
	Number      string    `json:"certificate_number"`
	StudentName string    `json:"student_name"`
	CourseTitle string    `json:"course_title"`
	IssuedAt    time.Time `json:"issued_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// certificateNumber looks like APOLLO-<base36 millis>-<8 hex>.
func certificateNumber(now time.Time) string {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "APOLLO-" + stamp + "-" + random
}

func hasCertificate(tx *gorm.DB, studentID, courseID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Certificate{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func createCertificate(tx *gorm.DB, studentID, courseID uint, completedAt, now time.Time) (*models.Certificate, error) {
	cert := models.Certificate{
		StudentID:   studentID,
		CourseID:    courseID,
		Number:      certificateNumber(now),
		IssuedAt:    now,
		CompletedAt: completedAt,
	}
	if err := tx.Create(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

// issueOnCompletion creates the certificate once the student has completed
// every lesson of the course. It returns nil when the course is not finished
// or the certificate already exists.
func issueOnCompletion(tx *gorm.DB, studentID, courseID uint, now time.Time) (*models.Certificate, error) {
	var total, completed int64
	err := tx.Model(&models.Lesson{}).
		Joins("JOIN sections ON sections.id = lessons.section_id").
		Where("sections.course_id = ?", courseID).
		Count(&total).Error
	if err != nil || total == 0 {
		return nil, err
	}
	err = tx.Model(&models.LessonProgress{}).
		Where("student_id = ? AND course_id = ? AND status = ?", studentID, courseID, models.ProgressCompleted).
		Count(&completed).Error
	if err != nil || completed < total {
		return nil, err
	}
	exists, err := hasCertificate(tx, studentID, courseID)
	if err != nil || exists {
		return nil, err
	}
	return createCertificate(tx, studentID, courseID, now, now)
}

func (s *CertificateService) notifyIssued(ctx context.Context, cert *models.Certificate, courseTitle string) {
	s.Notifications.notifyQuietly(ctx, cert.StudentID, models.NotifyCertificate,
		fmt.Sprintf("Certificate for %q", courseTitle),
		fmt.Sprintf("Your certificate %s has been issued.", cert.Number),
		map[string]interface{}{"certificate_id": cert.ID, "course_id": cert.CourseID, "certificate_number": cert.Number})
}

// Generate issues a certificate by hand. Only the course owner or an admin may
// do it, and only for an enrolled student.
func (s *CertificateService) Generate(ctx context.Context, p utils.Principal, in CertificateInput) (*models.Certificate, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var (
		cert   *models.Certificate
		course *models.Course
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		course, err = editableCourse(tx, p, in.CourseID)
		if err != nil {
			return err
		}
		var enrolled int64
		if err := tx.Model(&models.Enrollment{}).
			Where("student_id = ? AND course_id = ?", in.StudentID, in.CourseID).
			Count(&enrolled).Error; err != nil {
			return err
		}
		if enrolled == 0 {
			return utils.NewValidationError("Student is not enrolled in this course")
		}
		exists, err := hasCertificate(tx, in.StudentID, in.CourseID)
		if err != nil {
			return err
		}
		if exists {
			return utils.NewConflictError("Certificate already exists for this student and course")
		}

		now := s.Now()
		completedAt := now
		if in.CompletedAt != nil {
			completedAt = in.CompletedAt.UTC()
		}
		cert, err = createCertificate(tx, in.StudentID, in.CourseID, completedAt, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyIssued(ctx, cert, course.Title)
	return s.load(s.DB.WithContext(ctx), cert.ID)
}

func (s *CertificateService) load(db *gorm.DB, id uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := db.Preload("Student").Preload("Course").First(&cert, id).Error; err != nil {
		return nil, notFound(err, "Certificate")
	}
	return &cert, nil
}

// Get is open to the holder, the course owner and admins.
func (s *CertificateService) Get(ctx context.Context, p utils.Principal, id uint) (*models.Certificate, error) {
	cert, err := s.load(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if cert.StudentID == p.UserID || p.IsAdmin() || (cert.Course != nil && canEditCourse(p, cert.Course)) {
		return cert, nil
	}
	return nil, utils.NewAuthorizationError("Not authorized to view this certificate")
}

func (s *CertificateService) ListByStudent(ctx context.Context, p utils.Principal, studentID uint) ([]models.Certificate, error) {
	if studentID != p.UserID && !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("Not authorized to view these certificates")
	}
	out := []models.Certificate{}
	err := s.DB.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("issued_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (s *CertificateService) Verify(ctx context.Context, number string) (*CertificateVerification, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, utils.NewValidationError("Certificate number is required")
	}
	var cert models.Certificate
	err := s.DB.WithContext(ctx).Preload("Student").Preload("Course").
		Where("number = ?", number).First(&cert).Error
	if err != nil {
		return nil, notFound(err, "Certificate")
	}
	out := &CertificateVerification{
		Valid:       true,
		Number:      cert.Number,
		IssuedAt:    cert.IssuedAt,
		CompletedAt: cert.CompletedAt,
	}
	if cert.Student != nil {
		out.StudentName = cert.Student.FullName()
	}
	if cert.Course != nil {
		out.CourseTitle = cert.Course.Title
	}
	return out, nil
}

func (s *CertificateService) Delete(ctx context.Context, p utils.Principal, id uint) error {
	if !p.IsAdmin() {
		return utils.NewAuthorizationError("Admin access required")
	}
	res := s.DB.WithContext(ctx).Delete(&models.Certificate{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewNotFoundError("Certificate")
	}
	return nil
}
