package models

import "time"

// Certificate is issued once per (student, course). Number is the public
// verification code.
type Certificate struct {
	Model
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_certificate_student_course" json:"student_id"`
	CourseID    uint      `gorm:"not null;uniqueIndex:idx_certificate_student_course;index" json:"course_id"`
	Number      string    `gorm:"size:64;not null;uniqueIndex" json:"certificate_number"`
	IssuedAt    time.Time `gorm:"not null" json:"issued_at"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
	Student     *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Course      *Course   `json:"course,omitempty"`
}
