package models

import "time"

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
)

const DefaultPassingScore = 70

type Quiz struct {
	Model
	CourseID         uint           `gorm:"not null;index" json:"course_id"`
	LessonID         *uint          `gorm:"index" json:"lesson_id,omitempty"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description,omitempty"`
	PassingScore     int            `gorm:"not null" json:"passing_score"`
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`
	Questions        []QuizQuestion `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

type QuizQuestion struct {
	Model
	QuizID       uint         `gorm:"not null;index" json:"quiz_id"`
	QuestionText string       `gorm:"type:text;not null" json:"question_text"`
	QuestionType string       `gorm:"size:20;not null" json:"question_type"` // multiple_choice, true_false
	Points       int          `gorm:"not null" json:"points"`
	Position     int          `gorm:"not null" json:"position"`
	Answers      []QuizAnswer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

type QuizAnswer struct {
	Model
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	AnswerText string `gorm:"type:text;not null" json:"answer_text"`
	IsCorrect  bool   `json:"is_correct"`
	Position   int    `gorm:"not null" json:"position"`
}

// QuizAttempt is in progress while CompletedAt is nil.
type QuizAttempt struct {
	Model
	QuizID      uint           `gorm:"not null;index" json:"quiz_id"`
	StudentID   uint           `gorm:"not null;index" json:"student_id"`
	StartedAt   time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Score       *float64       `json:"score"`
	Passed      *bool          `json:"passed"`
	Responses   []QuizResponse `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
}

func (a QuizAttempt) Completed() bool {
	return a.CompletedAt != nil
}

type QuizResponse struct {
	Model
	AttemptID        uint  `gorm:"not null;uniqueIndex:idx_response_attempt_question" json:"attempt_id"`
	QuestionID       uint  `gorm:"not null;uniqueIndex:idx_response_attempt_question" json:"question_id"`
	SelectedAnswerID *uint `json:"selected_answer_id"`
	IsCorrect        bool  `json:"is_correct"`
}
