package services

import (
	"context"
	"log"
	"strings"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCourseService(db *gorm.DB, logger *log.Logger) *CourseService {
	return &CourseService{DB: db, Logger: utils.Tagged(logger, "COURSES")}
}

type CourseInput struct {
	Title        string          `json:"title" validate:"required,max=255"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"max=100"`
	Price        decimal.Decimal `json:"price"`
	ThumbnailURL string          `json:"thumbnail_url" validate:"omitempty,max=1024"`
	InstructorID uint            `json:"instructor_id"`
}

type CourseUpdate struct {
	Title        *string          `json:"title" validate:"omitempty,min=1,max=255"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category" validate:"omitempty,max=100"`
	Price        *decimal.Decimal `json:"price"`
	ThumbnailURL *string          `json:"thumbnail_url" validate:"omitempty,max=1024"`
}

type CourseFilter struct {
	Scope    string
	Category string
	Query    string
	Page     int
	PageSize int
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return utils.NewValidationError("price must not be negative")
	}
	if !price.Equal(price.Round(2)) {
		return utils.NewValidationError("price supports at most two decimal places")
	}
	return nil
}

// List returns approved courses, or with scope "all" every course an admin or
// instructor manages.
func (s *CourseService) List(ctx context.Context, p utils.Principal, f CourseFilter) ([]models.Course, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Course{})
	switch {
	case f.Scope == "all" && p.IsAdmin():
	case f.Scope == "all" && p.IsInstructor():
		q = q.Where("instructor_id = ?", p.UserID)
	case f.Scope == "all":
		return nil, 0, utils.NewAuthorizationError("scope=all requires an instructor or admin")
	default:
		q = q.Where("status = ?", models.CourseApproved)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	var courses []models.Course
	err := q.Preload("Instructor").
		Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&courses).Error
	return courses, total, err
}

// Get returns the course with its sections and lessons in display order.
func (s *CourseService) Get(ctx context.Context, p utils.Principal, id uint) (*models.Course, error) {
	db := s.DB.WithContext(ctx)
	if _, err := viewableCourse(db, p, id); err != nil {
		return nil, err
	}
	var course models.Course
	err := db.Preload("Instructor").
		Preload("Sections", orderByPosition).
		Preload("Sections.Lessons", orderByPosition).
		First(&course, id).Error
	if err != nil {
		return nil, notFound(err, "Course")
	}
	return &course, nil
}

func (s *CourseService) Create(ctx context.Context, p utils.Principal, in CourseInput) (*models.Course, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}

	instructorID := p.UserID
	switch {
	case p.IsInstructor():
	case p.IsAdmin():
		if in.InstructorID == 0 {
			return nil, utils.NewValidationError("instructor_id is required")
		}
		var instructor models.User
		if err := s.DB.WithContext(ctx).First(&instructor, in.InstructorID).Error; err != nil {
			return nil, notFound(err, "Instructor")
		}
		if instructor.Role != models.RoleInstructor {
			return nil, utils.NewValidationError("user %d is not an instructor", in.InstructorID)
		}
		instructorID = instructor.ID
	default:
		return nil, utils.NewAuthorizationError("Only instructors can create courses")
	}

	course := models.Course{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		Price:        in.Price.Round(2),
		ThumbnailURL: in.ThumbnailURL,
		Status:       models.CourseDraft,
		InstructorID: instructorID,
	}
	if err := s.DB.WithContext(ctx).Create(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// Update changes metadata only; status moves through Submit and moderation.
func (s *CourseService) Update(ctx context.Context, p utils.Principal, id uint, in CourseUpdate) (*models.Course, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	course, err := editableCourse(db, p, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		course.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		course.Description = *in.Description
	}
	if in.Category != nil {
		course.Category = *in.Category
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return nil, err
		}
		course.Price = in.Price.Round(2)
	}
	if in.ThumbnailURL != nil {
		course.ThumbnailURL = *in.ThumbnailURL
	}

	if err := db.Save(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// Delete removes the course and everything it owns. Courses with enrollments
// carry financial history and cannot be deleted.
func (s *CourseService) Delete(ctx context.Context, p utils.Principal, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := editableCourse(tx, p, id)
		if err != nil {
			return err
		}
		var enrolled int64
		if err := tx.Model(&models.Enrollment{}).Where("course_id = ?", course.ID).Count(&enrolled).Error; err != nil {
			return err
		}
		if enrolled > 0 {
			return utils.NewConflictError("Course has enrollments and cannot be deleted")
		}
		if err := deleteCourseTree(tx, course.ID); err != nil {
			return err
		}
		s.Logger.Printf("course %d deleted by user %d", course.ID, p.UserID)
		return nil
	})
}

// Submit sends a draft or rejected course to moderation.
func (s *CourseService) Submit(ctx context.Context, p utils.Principal, id uint) (*models.Course, error) {
	db := s.DB.WithContext(ctx)
	course, err := editableCourse(db, p, id)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseDraft && course.Status != models.CourseRejected {
		return nil, utils.NewValidationError("Only draft or rejected courses can be submitted, course is %s", course.Status)
	}
	res := db.Model(&models.Course{}).
		Where("id = ? AND status = ?", course.ID, course.Status).
		Update("status", models.CoursePending)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewConflictError("Course status changed concurrently")
	}
	course.Status = models.CoursePending
	return course, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

func deleteCourseTree(tx *gorm.DB, courseID uint) error {
	var quizIDs []uint
	if err := tx.Model(&models.Quiz{}).Where("course_id = ?", courseID).Pluck("id", &quizIDs).Error; err != nil {
		return err
	}
	if err := deleteQuizzes(tx, quizIDs); err != nil {
		return err
	}

	var sectionIDs []uint
	if err := tx.Model(&models.Section{}).Where("course_id = ?", courseID).Pluck("id", &sectionIDs).Error; err != nil {
		return err
	}
	if err := deleteSections(tx, sectionIDs); err != nil {
		return err
	}
	if err := tx.Where("course_id = ?", courseID).Delete(&models.LessonProgress{}).Error; err != nil {
		return err
	}
	if err := tx.Where("course_id = ?", courseID).Delete(&models.CourseReview{}).Error; err != nil {
		return err
	}
	if err := tx.Where("assignment_id IN (?)", tx.Model(&models.Assignment{}).Select("id").Where("course_id = ?", courseID)).
		Delete(&models.Submission{}).Error; err != nil {
		return err
	}
	for _, model := range []interface{}{&models.Assignment{}, &models.Announcement{}, &models.Certificate{}} {
		if err := tx.Where("course_id = ?", courseID).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Course{}, courseID).Error
}

func deleteSections(tx *gorm.DB, sectionIDs []uint) error {
	if len(sectionIDs) == 0 {
		return nil
	}
	var lessonIDs []uint
	if err := tx.Model(&models.Lesson{}).Where("section_id IN ?", sectionIDs).Pluck("id", &lessonIDs).Error; err != nil {
		return err
	}
	if err := deleteLessons(tx, lessonIDs); err != nil {
		return err
	}
	return tx.Where("id IN ?", sectionIDs).Delete(&models.Section{}).Error
}

func deleteLessons(tx *gorm.DB, lessonIDs []uint) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	if err := tx.Model(&models.Quiz{}).Where("lesson_id IN ?", lessonIDs).Update("lesson_id", nil).Error; err != nil {
		return err
	}
	if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.LessonProgress{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", lessonIDs).Delete(&models.Lesson{}).Error
}

func deleteQuizzes(tx *gorm.DB, quizIDs []uint) error {
	if len(quizIDs) == 0 {
		return nil
	}
	var attemptIDs []uint
	if err := tx.Model(&models.QuizAttempt{}).Where("quiz_id IN ?", quizIDs).Pluck("id", &attemptIDs).Error; err != nil {
		return err
	}
	if len(attemptIDs) > 0 {
		if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&models.QuizResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", attemptIDs).Delete(&models.QuizAttempt{}).Error; err != nil {
			return err
		}
	}
	var questionIDs []uint
	if err := tx.Model(&models.QuizQuestion{}).Where("quiz_id IN ?", quizIDs).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if err := deleteQuestions(tx, questionIDs); err != nil {
		return err
	}
	return tx.Where("id IN ?", quizIDs).Delete(&models.Quiz{}).Error
}

func deleteQuestions(tx *gorm.DB, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.QuizResponse{}).Error; err != nil {
		return err
	}
	if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.QuizAnswer{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", questionIDs).Delete(&models.QuizQuestion{}).Error
}
