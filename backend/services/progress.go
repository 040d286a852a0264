package services

import (
	"context"
	"errors"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

type ProgressService struct {
	DB           *gorm.DB
	Certificates *CertificateService
	Now          func() time.Time
}

func NewProgressService(db *gorm.DB, certificates *CertificateService) *ProgressService {
	return &ProgressService{DB: db, Certificates: certificates, Now: func() time.Time { return time.Now().UTC() }}
}

type ProgressInput struct {
	Status              string `json:"status" validate:"required,oneof=not_started in_progress completed"`
	LastPositionSeconds int    `json:"last_position_seconds" validate:"min=0"`
}

type CourseProgress struct {
	CourseID         uint                    `json:"course_id"`
	CompletedLessons int                     `json:"completed_lessons"`
	TotalLessons     int                     `json:"total_lessons"`
	Percent          float64                 `json:"percent"`
	Lessons          []models.LessonProgress `json:"lessons"`
}

// UpdateLesson upserts the caller's progress on a lesson of a course they paid for.
// Completing the last lesson issues the course certificate.
func (s *ProgressService) UpdateLesson(ctx context.Context, p utils.Principal, lessonID uint, in ProgressInput) (*models.LessonProgress, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !p.IsStudent() {
		return nil, utils.NewAuthorizationError("Only students track progress")
	}

	var (
		progress models.LessonProgress
		issued   *models.Certificate
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseID, err := lessonCourseID(tx, lessonID)
		if err != nil {
			return err
		}
		ok, err := hasPaidEnrollment(tx, p.UserID, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewAuthorizationError("A paid enrollment is required")
		}

		err = tx.Where("student_id = ? AND lesson_id = ?", p.UserID, lessonID).First(&progress).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		progress.StudentID = p.UserID
		progress.LessonID = lessonID
		progress.CourseID = courseID
		progress.Status = in.Status
		progress.LastPositionSeconds = in.LastPositionSeconds
		switch {
		case in.Status == models.ProgressCompleted && progress.CompletedAt == nil:
			now := s.Now()
			progress.CompletedAt = &now
		case in.Status != models.ProgressCompleted:
			progress.CompletedAt = nil
		}
		if err := tx.Save(&progress).Error; err != nil {
			return err
		}
		if in.Status != models.ProgressCompleted || s.Certificates == nil {
			return nil
		}
		issued, err = issueOnCompletion(tx, p.UserID, courseID, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if issued != nil {
		var course models.Course
		if err := s.DB.WithContext(ctx).Select("id", "title").First(&course, issued.CourseID).Error; err == nil {
			s.Certificates.notifyIssued(ctx, issued, course.Title)
		}
	}
	return &progress, nil
}

func (s *ProgressService) CourseProgress(ctx context.Context, p utils.Principal, courseID uint) (*CourseProgress, error) {
	db := s.DB.WithContext(ctx)
	if _, err := viewableCourse(db, p, courseID); err != nil {
		return nil, err
	}

	var total int64
	err := db.Model(&models.Lesson{}).
		Joins("JOIN sections ON sections.id = lessons.section_id").
		Where("sections.course_id = ?", courseID).
		Count(&total).Error
	if err != nil {
		return nil, err
	}

	out := &CourseProgress{CourseID: courseID, TotalLessons: int(total), Lessons: []models.LessonProgress{}}
	if err := db.Where("student_id = ? AND course_id = ?", p.UserID, courseID).Order("lesson_id").Find(&out.Lessons).Error; err != nil {
		return nil, err
	}
	for _, lp := range out.Lessons {
		if lp.Status == models.ProgressCompleted {
			out.CompletedLessons++
		}
	}
	if out.TotalLessons > 0 {
		out.Percent = float64(out.CompletedLessons) * 100 / float64(out.TotalLessons)
	}
	return out, nil
}
