package seeds

import (
	"errors"
	"fmt"
	"log"
	"time"

	"apollo/backend/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AdminEmail      = "admin@apollo.local"
	InstructorEmail = "instructor@apollo.local"
	StudentEmail    = "student@apollo.local"
)

// ErrAlreadySeeded is returned when the admin account exists.
var ErrAlreadySeeded = errors.New("database already seeded")

// Run creates demo accounts sharing password and one approved course with
// sections, lessons and a quiz. It does nothing on a seeded database.
func Run(db *gorm.DB, password string, logger *log.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", AdminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadySeeded
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		users := []models.User{
			{Email: AdminEmail, PasswordHash: string(hash), FirstName: "Ada", LastName: "Admin", Role: models.RoleAdmin},
			{Email: InstructorEmail, PasswordHash: string(hash), FirstName: "Ivan", LastName: "Instructor", Role: models.RoleInstructor},
			{Email: StudentEmail, PasswordHash: string(hash), FirstName: "Sam", LastName: "Student", Role: models.RoleStudent},
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("users: %w", err)
		}
		instructor := users[1]

		now := time.Now().UTC()
		course := models.Course{
			Title:        "Go for Backend Developers",
			Description:  "From net/http to production services.",
			Category:     "programming",
			Price:        decimal.RequireFromString("49.00"),
			Status:       models.CourseApproved,
			InstructorID: instructor.ID,
			PublishedAt:  &now,
			Sections: []models.Section{
				{Title: "Getting started", Position: 0, Lessons: []models.Lesson{
					{Title: "Installing Go", LessonType: models.LessonVideo, VideoURL: "https://videos.apollo.local/install.mp4", DurationSeconds: 420, IsPreview: true, Position: 0},
					{Title: "Modules and packages", LessonType: models.LessonText, Content: "go mod init, imports and visibility.", Position: 1},
				}},
				{Title: "Concurrency", Position: 1, Lessons: []models.Lesson{
					{Title: "Goroutines and channels", LessonType: models.LessonVideo, VideoURL: "https://videos.apollo.local/channels.mp4", DurationSeconds: 900, Position: 0},
					{Title: "Checkpoint quiz", LessonType: models.LessonQuiz, Position: 1},
				}},
			},
		}
		if err := tx.Create(&course).Error; err != nil {
			return fmt.Errorf("course: %w", err)
		}

		quizLesson := course.Sections[1].Lessons[1].ID
		quiz := models.Quiz{
			CourseID:     course.ID,
			LessonID:     &quizLesson,
			Title:        "Concurrency basics",
			PassingScore: models.DefaultPassingScore,
			Questions: []models.QuizQuestion{
				{QuestionText: "Which keyword starts a goroutine?", QuestionType: models.QuestionMultipleChoice, Points: 1, Position: 0, Answers: []models.QuizAnswer{
					{AnswerText: "go", IsCorrect: true, Position: 0},
					{AnswerText: "async", Position: 1},
					{AnswerText: "spawn", Position: 2},
				}},
				{QuestionText: "Sending on a closed channel panics.", QuestionType: models.QuestionTrueFalse, Points: 1, Position: 1, Answers: []models.QuizAnswer{
					{AnswerText: "True", IsCorrect: true, Position: 0},
					{AnswerText: "False", Position: 1},
				}},
			},
		}
		if err := tx.Create(&quiz).Error; err != nil {
			return fmt.Errorf("quiz: %w", err)
		}

		if logger != nil {
			logger.Printf("seeded users %s, %s, %s and course %d", AdminEmail, InstructorEmail, StudentEmail, course.ID)
		}
		return nil
	})
}
