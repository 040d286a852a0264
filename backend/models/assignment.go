package models

import "time"

type Assignment struct {
	Model
	CourseID    uint       `gorm:"not null;index" json:"course_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueAt       *time.Time `json:"due_at"`
	Points      int        `gorm:"not null;default:100" json:"points"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
}

// Submission is one student's latest work on an assignment. Resubmitting
// replaces the content and keeps the grade.
type Submission struct {
	Model
	AssignmentID uint       `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;uniqueIndex:idx_submission_assignment_student;index" json:"student_id"`
	ContentURL   string     `gorm:"size:1024" json:"content_url,omitempty"`
	ContentText  string     `gorm:"type:text" json:"content_text,omitempty"`
	SubmittedAt  time.Time  `gorm:"not null" json:"submitted_at"`
	Grade        *float64   `json:"grade"`
	Feedback     string     `gorm:"type:text" json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
}
