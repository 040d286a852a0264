package services

import (
	"context"
	"strings"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

// BuilderService manages a course's sections and lessons.
type BuilderService struct {
	DB      *gorm.DB
	Reorder *ReorderService
}

func NewBuilderService(db *gorm.DB, reorder *ReorderService) *BuilderService {
	return &BuilderService{DB: db, Reorder: reorder}
}

type SectionInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
}

type SectionUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

type LessonInput struct {
	Title           string `json:"title" validate:"required,max=255"`
	LessonType      string `json:"lesson_type" validate:"required,oneof=video text quiz scorm"`
	VideoURL        string `json:"video_url" validate:"omitempty,max=2048"`
	Content         string `json:"content"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
	IsPreview       bool   `json:"is_preview"`
}

type LessonUpdate struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=255"`
	LessonType      *string `json:"lesson_type" validate:"omitempty,oneof=video text quiz scorm"`
	VideoURL        *string `json:"video_url" validate:"omitempty,max=2048"`
	Content         *string `json:"content"`
	DurationSeconds *int    `json:"duration_seconds" validate:"omitempty,min=0"`
	IsPreview       *bool   `json:"is_preview"`
}

// ReorderInput is the body of every reorder endpoint.
type ReorderInput struct {
	Order []uint `json:"order"`
}

func (s *BuilderService) ListSections(ctx context.Context, p utils.Principal, courseID uint) ([]models.Section, error) {
	db := s.DB.WithContext(ctx)
	if _, err := viewableCourse(db, p, courseID); err != nil {
		return nil, err
	}
	return s.sections(db, courseID)
}

func (s *BuilderService) CreateSection(ctx context.Context, p utils.Principal, courseID uint, in SectionInput) (*models.Section, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var section models.Section
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := editableCourse(tx, p, courseID); err != nil {
			return err
		}
		pos, err := NextPosition(tx, SectionSiblings, courseID)
		if err != nil {
			return err
		}
		section = models.Section{
			CourseID:    courseID,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			Position:    pos,
		}
		return tx.Create(&section).Error
	})
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (s *BuilderService) UpdateSection(ctx context.Context, p utils.Principal, sectionID uint, in SectionUpdate) (*models.Section, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	section, course, err := sectionWithCourse(db, sectionID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("You do not own this course")
	}
	if in.Title != nil {
		section.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		section.Description = *in.Description
	}
	if err := db.Model(section).Select("title", "description").Updates(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func (s *BuilderService) DeleteSection(ctx context.Context, p utils.Principal, sectionID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		section, course, err := sectionWithCourse(tx, sectionID)
		if err != nil {
			return err
		}
		if !canEditCourse(p, course) {
			return utils.NewAuthorizationError("You do not own this course")
		}
		if err := deleteSections(tx, []uint{section.ID}); err != nil {
			return err
		}
		return Compact(tx, SectionSiblings, section.CourseID)
	})
}

// ReorderSections rewrites every section position of the course and returns them in the new order.
func (s *BuilderService) ReorderSections(ctx context.Context, p utils.Principal, courseID uint, order []uint) ([]models.Section, error) {
	db := s.DB.WithContext(ctx)
	if _, err := editableCourse(db, p, courseID); err != nil {
		return nil, err
	}
	if err := s.Reorder.Reorder(ctx, SectionSiblings, courseID, order); err != nil {
		return nil, err
	}
	return s.sections(db, courseID)
}

func (s *BuilderService) ListLessons(ctx context.Context, p utils.Principal, sectionID uint) ([]models.Lesson, error) {
	db := s.DB.WithContext(ctx)
	_, course, err := sectionWithCourse(db, sectionID)
	if err != nil {
		return nil, err
	}
	if !canViewCourse(p, course) {
		return nil, utils.NewNotFoundError("Section")
	}
	return s.lessons(db, sectionID)
}

func (s *BuilderService) CreateLesson(ctx context.Context, p utils.Principal, sectionID uint, in LessonInput) (*models.Lesson, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var lesson models.Lesson
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, course, err := sectionWithCourse(tx, sectionID)
		if err != nil {
			return err
		}
		if !canEditCourse(p, course) {
			return utils.NewAuthorizationError("You do not own this course")
		}
		pos, err := NextPosition(tx, LessonSiblings, sectionID)
		if err != nil {
			return err
		}
		lesson = models.Lesson{
			SectionID:       sectionID,
			Title:           strings.TrimSpace(in.Title),
			LessonType:      in.LessonType,
			VideoURL:        in.VideoURL,
			Content:         in.Content,
			DurationSeconds: in.DurationSeconds,
			IsPreview:       in.IsPreview,
			Position:        pos,
		}
		return tx.Create(&lesson).Error
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (s *BuilderService) UpdateLesson(ctx context.Context, p utils.Principal, lessonID uint, in LessonUpdate) (*models.Lesson, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	lesson, err := s.editableLesson(db, p, lessonID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		lesson.Title = strings.TrimSpace(*in.Title)
	}
	if in.LessonType != nil {
		lesson.LessonType = *in.LessonType
	}
	if in.VideoURL != nil {
		lesson.VideoURL = *in.VideoURL
	}
	if in.Content != nil {
		lesson.Content = *in.Content
	}
	if in.DurationSeconds != nil {
		lesson.DurationSeconds = *in.DurationSeconds
	}
	if in.IsPreview != nil {
		lesson.IsPreview = *in.IsPreview
	}
	err = db.Model(lesson).
		Select("title", "lesson_type", "video_url", "content", "duration_seconds", "is_preview").
		Updates(lesson).Error
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *BuilderService) DeleteLesson(ctx context.Context, p utils.Principal, lessonID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lesson, err := s.editableLesson(tx, p, lessonID)
		if err != nil {
			return err
		}
		if err := deleteLessons(tx, []uint{lesson.ID}); err != nil {
			return err
		}
		return Compact(tx, LessonSiblings, lesson.SectionID)
	})
}

// ReorderLessons rewrites every lesson position of the section and returns them in the new order.
func (s *BuilderService) ReorderLessons(ctx context.Context, p utils.Principal, sectionID uint, order []uint) ([]models.Lesson, error) {
	db := s.DB.WithContext(ctx)
	_, course, err := sectionWithCourse(db, sectionID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("You do not own this course")
	}
	if err := s.Reorder.Reorder(ctx, LessonSiblings, sectionID, order); err != nil {
		return nil, err
	}
	return s.lessons(db, sectionID)
}

func (s *BuilderService) editableLesson(tx *gorm.DB, p utils.Principal, lessonID uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := tx.First(&lesson, lessonID).Error; err != nil {
		return nil, notFound(err, "Lesson")
	}
	_, course, err := sectionWithCourse(tx, lesson.SectionID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("You do not own this course")
	}
	return &lesson, nil
}

func (s *BuilderService) sections(db *gorm.DB, courseID uint) ([]models.Section, error) {
	var sections []models.Section
	err := db.Where("course_id = ?", courseID).
		Preload("Lessons", orderByPosition).
		Order("position, id").
		Find(&sections).Error
	return sections, err
}

func (s *BuilderService) lessons(db *gorm.DB, sectionID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := db.Where("section_id = ?", sectionID).Order("position, id").Find(&lessons).Error
	return lessons, err
}
