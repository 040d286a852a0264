package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotifyCourseApproved   = "course_approved"
	NotifyCourseRejected   = "course_rejected"
	NotifyPaymentReceived  = "payment_received"
	NotifyPaymentReminder  = "payment_reminder"
	NotifyEnrollmentOpened = "enrollment_created"
	NotifyAnnouncement     = "announcement"
	NotifyCertificate      = "certificate_issued"
	NotifySubmissionGraded = "submission_graded"
)

type Notification struct {
	Model
	UserID uint           `gorm:"not null;index" json:"user_id"`
	Type   string         `gorm:"size:50;not null" json:"type"`
	Title  string         `gorm:"size:255;not null" json:"title"`
	Body   string         `gorm:"type:text" json:"body"`
	Data   datatypes.JSON `json:"data,omitempty"`
	ReadAt *time.Time     `json:"read_at"`
}
