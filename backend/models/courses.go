package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CourseDraft    = "draft"
	CoursePending  = "pending"
	CourseApproved = "approved"
	CourseRejected = "rejected"
)

const (
	LessonVideo = "video"
	LessonText  = "text"
	LessonQuiz  = "quiz"
	LessonSCORM = "scorm"
)

type Course struct {
	Model
	Title          string          `gorm:"size:255;not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	Category       string          `gorm:"size:100;index" json:"category"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	Status         string          `gorm:"size:20;not null;index" json:"status"` // draft, pending, approved, rejected
	InstructorID   uint            `gorm:"not null;index" json:"instructor_id"`
	Instructor     *User           `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	ReviewFeedback string          `gorm:"type:text" json:"review_feedback,omitempty"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	Sections       []Section       `gorm:"constraint:OnDelete:CASCADE" json:"sections,omitempty"`
}

func (c Course) IsFree() bool {
	return !c.Price.IsPositive()
}

// CourseReview is one moderation decision.
type CourseReview struct {
	Model
	CourseID uint   `gorm:"not null;index" json:"course_id"`
	AdminID  uint   `gorm:"not null" json:"admin_id"`
	Action   string `gorm:"size:20;not null" json:"action"` // approved, rejected
	Feedback string `gorm:"type:text" json:"feedback,omitempty"`
}

type Section struct {
	Model
	CourseID    uint     `gorm:"not null;index" json:"course_id"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description,omitempty"`
	Position    int      `gorm:"not null" json:"position"`
	Lessons     []Lesson `gorm:"constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

type Lesson struct {
	Model
	SectionID       uint   `gorm:"not null;index" json:"section_id"`
	Title           string `gorm:"size:255;not null" json:"title"`
	LessonType      string `gorm:"size:20;not null" json:"lesson_type"` // video, text, quiz, scorm
	VideoURL        string `json:"video_url,omitempty"`
	Content         string `gorm:"type:text" json:"content,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	IsPreview       bool   `json:"is_preview"`
	Position        int    `gorm:"not null" json:"position"`
}
