package services

import (
	"testing"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := utils.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, utils.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func as(u models.User) utils.Principal {
	return utils.Principal{UserID: u.ID, Role: u.Role}
}

func mkUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@apollo.test",
		PasswordHash: "x",
		FirstName:    role,
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func mkCourse(t *testing.T, db *gorm.DB, instructor models.User, status string, price string) models.Course {
	t.Helper()
	c := models.Course{
		Title:        "Course " + uuid.NewString()[:8],
		Price:        decimal.RequireFromString(price),
		Status:       status,
		InstructorID: instructor.ID,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func mkSections(t *testing.T, db *gorm.DB, course models.Course, titles ...string) []models.Section {
	t.Helper()
	out := make([]models.Section, 0, len(titles))
	for i, title := range titles {
		s := models.Section{CourseID: course.ID, Title: title, Position: i}
		require.NoError(t, db.Create(&s).Error)
		out = append(out, s)
	}
	return out
}

func mkLessons(t *testing.T, db *gorm.DB, section models.Section, titles ...string) []models.Lesson {
	t.Helper()
	out := make([]models.Lesson, 0, len(titles))
	for i, title := range titles {
		l := models.Lesson{SectionID: section.ID, Title: title, LessonType: models.LessonText, Position: i}
		require.NoError(t, db.Create(&l).Error)
		out = append(out, l)
	}
	return out
}

// mkQuiz creates a quiz whose questions carry the given points. Each question
// has two answers and the first one is correct.
func mkQuiz(t *testing.T, db *gorm.DB, course models.Course, passing int, points ...int) models.Quiz {
	t.Helper()
	q := models.Quiz{CourseID: course.ID, Title: "Quiz", PassingScore: passing}
	for i, p := range points {
		q.Questions = append(q.Questions, models.QuizQuestion{
			QuestionText: "Q" + uuid.NewString()[:4],
			QuestionType: models.QuestionMultipleChoice,
			Points:       p,
			Position:     i,
			Answers: []models.QuizAnswer{
				{AnswerText: "right", IsCorrect: true, Position: 0},
				{AnswerText: "wrong", Position: 1},
			},
		})
	}
	require.NoError(t, db.Create(&q).Error)
	return q
}

func mkEnrollment(t *testing.T, db *gorm.DB, student models.User, course models.Course, status string) models.Enrollment {
	t.Helper()
	e := models.Enrollment{
		StudentID:     student.ID,
		CourseID:      course.ID,
		TuitionAmount: course.Price,
		PaymentStatus: status,
		EnrolledAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func sectionOrder(t *testing.T, db *gorm.DB, courseID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, db.Model(&models.Section{}).Where("course_id = ?", courseID).Order("position").Pluck("id", &ids).Error)
	return ids
}

func ptr[T any](v T) *T { return &v }

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
