package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

type Enrollment struct {
	Model
	StudentID      uint            `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	CourseID       uint            `gorm:"not null;uniqueIndex:idx_enrollment_student_course;index" json:"course_id"`
	TuitionAmount  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"tuition_amount"`
	PaymentStatus  string          `gorm:"size:20;not null;index" json:"payment_status"` // pending, partial, paid
	EnrolledAt     time.Time       `gorm:"not null" json:"enrolled_at"`
	LastRemindedAt *time.Time      `json:"-"`
	Course         *Course         `json:"course,omitempty"`
	Student        *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

type LessonProgress struct {
	Model
	StudentID           uint       `gorm:"not null;uniqueIndex:idx_progress_student_lesson" json:"student_id"`
	LessonID            uint       `gorm:"not null;uniqueIndex:idx_progress_student_lesson" json:"lesson_id"`
	CourseID            uint       `gorm:"not null;index" json:"course_id"`
	Status              string     `gorm:"size:20;not null" json:"status"`
	LastPositionSeconds int        `json:"last_position_seconds"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}
