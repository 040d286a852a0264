package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TransactionPayment    = "payment"
	TransactionRefund     = "refund"
	TransactionAdjustment = "adjustment"
)

const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
	TransactionRefunded  = "refunded"
)

// Transaction amounts are positive for payments and refunds; adjustments are
// signed credits. Refunds point at the payment they reverse through PaymentID.
type Transaction struct {
	Model
	StudentID       uint            `gorm:"not null;index" json:"student_id"`
	CourseID        *uint           `gorm:"index" json:"course_id,omitempty"`
	EnrollmentID    *uint           `gorm:"index" json:"enrollment_id,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Type            string          `gorm:"size:20;not null;index" json:"type"`
	Status          string          `gorm:"size:20;not null;index" json:"status"`
	StripePaymentID *string         `gorm:"size:255;uniqueIndex" json:"stripe_payment_id,omitempty"`
	PaymentID       *uint           `gorm:"index" json:"payment_id,omitempty"`
	Description     string          `json:"description,omitempty"`
}

// PaymentEvent records a processed webhook event.
type PaymentEvent struct {
	Model
	EventID     string         `gorm:"size:255;uniqueIndex;not null" json:"event_id"`
	Type        string         `gorm:"size:100;not null" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
