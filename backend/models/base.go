package models

import "time"

// Model is gorm.Model without soft deletes, so cascades stay physical.
type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&CourseReview{},
		&Section{},
		&Lesson{},
		&Quiz{},
		&QuizQuestion{},
		&QuizAnswer{},
		&QuizAttempt{},
		&QuizResponse{},
		&Enrollment{},
		&LessonProgress{},
		&Transaction{},
		&PaymentEvent{},
		&Notification{},
		&Certificate{},
		&Announcement{},
		&Assignment{},
		&Submission{},
	}
}
