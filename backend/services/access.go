package services

import (
	"errors"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

func canEditCourse(p utils.Principal, c *models.Course) bool {
	return p.IsAdmin() || (p.IsInstructor() && c.InstructorID == p.UserID)
}

func canViewCourse(p utils.Principal, c *models.Course) bool {
	return c.Status == models.CourseApproved || canEditCourse(p, c)
}

// notFound translates gorm.ErrRecordNotFound into a NotFoundError for entity.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(entity)
	}
	return err
}

func findCourse(tx *gorm.DB, id uint) (*models.Course, error) {
	var course models.Course
	if err := tx.First(&course, id).Error; err != nil {
		return nil, notFound(err, "Course")
	}
	return &course, nil
}

// editableCourse loads a course the caller may modify.
func editableCourse(tx *gorm.DB, p utils.Principal, id uint) (*models.Course, error) {
	course, err := findCourse(tx, id)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("You do not own this course")
	}
	return course, nil
}

// viewableCourse hides unpublished courses from everyone but their owner and admins.
func viewableCourse(tx *gorm.DB, p utils.Principal, id uint) (*models.Course, error) {
	course, err := findCourse(tx, id)
	if err != nil {
		return nil, err
	}
	if !canViewCourse(p, course) {
		return nil, utils.NewNotFoundError("Course")
	}
	return course, nil
}

func sectionWithCourse(tx *gorm.DB, sectionID uint) (*models.Section, *models.Course, error) {
	var section models.Section
	if err := tx.First(&section, sectionID).Error; err != nil {
		return nil, nil, notFound(err, "Section")
	}
	course, err := findCourse(tx, section.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return &section, course, nil
}

func lessonCourseID(tx *gorm.DB, lessonID uint) (uint, error) {
	var courseID uint
	err := tx.Model(&models.Lesson{}).
		Select("sections.course_id").
		Joins("JOIN sections ON sections.id = lessons.section_id").
		Where("lessons.id = ?", lessonID).
		Scan(&courseID).Error
	if err != nil {
		return 0, err
	}
	if courseID == 0 {
		return 0, utils.NewNotFoundError("Lesson")
	}
	return courseID, nil
}

func quizWithCourse(tx *gorm.DB, quizID uint) (*models.Quiz, *models.Course, error) {
	var quiz models.Quiz
	if err := tx.First(&quiz, quizID).Error; err != nil {
		return nil, nil, notFound(err, "Quiz")
	}
	course, err := findCourse(tx, quiz.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return &quiz, course, nil
}

// hasPaidEnrollment reports whether studentID may consume courseID's content.
func hasPaidEnrollment(tx *gorm.DB, studentID, courseID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND payment_status = ?", studentID, courseID, models.PaymentPaid).
		Count(&count).Error
	return count > 0, err
}
