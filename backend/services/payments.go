package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"apollo/backend/config"
	"apollo/backend/models"
	"apollo/backend/utils"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const webhookTolerance = 5 * time.Minute

type PaymentService struct {
	DB            *gorm.DB
	Provider      PaymentProvider
	Cfg           *config.Config
	Notifications *NotificationService
	Metrics       *utils.Metrics
	Logger        *log.Logger
	Now           func() time.Time
}

func NewPaymentService(db *gorm.DB, provider PaymentProvider, cfg *config.Config, n *NotificationService, m *utils.Metrics, logger *log.Logger) *PaymentService {
	return &PaymentService{
		DB:            db,
		Provider:      provider,
		Cfg:           cfg,
		Notifications: n,
		Metrics:       m,
		Logger:        utils.Tagged(logger, "PAYMENTS"),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type CheckoutInput struct {
	CourseID uint `json:"course_id" validate:"required"`
}

// CheckoutResult holds either the enrollment of a free course or a hosted checkout.
type CheckoutResult struct {
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
	Checkout   *CheckoutSession   `json:"checkout,omitempty"`
}

func (s *PaymentService) Checkout(ctx context.Context, p utils.Principal, in CheckoutInput) (*CheckoutResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !p.IsStudent() {
		return nil, utils.NewAuthorizationError("Only students can check out")
	}
	db := s.DB.WithContext(ctx)

	course, err := findCourse(db, in.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseApproved {
		return nil, utils.NewValidationError("Course is not available for purchase")
	}
	var existing int64
	if err := db.Model(&models.Enrollment{}).Where("student_id = ? AND course_id = ?", p.UserID, course.ID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, utils.NewConflictError("Already enrolled in this course")
	}

	if course.IsFree() {
		var enrollment *models.Enrollment
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			enrollment, err = createEnrollment(tx, p.UserID, course, s.Now())
			return err
		})
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Enrollment: enrollment}, nil
	}

	if s.Provider == nil {
		return nil, utils.NewUnavailableError("Payments are not configured")
	}
	var student models.User
	if err := db.First(&student, p.UserID).Error; err != nil {
		return nil, notFound(err, "User")
	}
	base := s.Cfg.FrontendURL
	session, err := s.Provider.CreateCheckoutSession(ctx, CheckoutParams{
		CourseID:      course.ID,
		StudentID:     p.UserID,
		CourseTitle:   course.Title,
		AmountCents:   toCents(course.Price),
		Currency:      s.Cfg.Currency,
		CustomerEmail: student.Email,
		SuccessURL:    fmt.Sprintf("%s/courses/%d?checkout=success&session_id={CHECKOUT_SESSION_ID}", base, course.ID),
		CancelURL:     fmt.Sprintf("%s/courses/%d?checkout=cancelled", base, course.ID),
	})
	if err != nil {
		s.Logger.Printf("checkout for course %d by user %d failed: %v", course.ID, p.UserID, err)
		return nil, utils.NewUnavailableError("Payment provider is unavailable")
	}
	return &CheckoutResult{Checkout: session}, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

type paymentIntentObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Metadata       map[string]string `json:"metadata"`
}

type chargeObject struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	AmountRefunded int64  `json:"amount_refunded"`
	Refunds        struct {
		Data []struct {
			ID     string `json:"id"`
			Amount int64  `json:"amount"`
			Status string `json:"status"`
		} `json:"data"`
	} `json:"refunds"`
}

// WebhookResult tells the caller what happened to an event.
type WebhookResult struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate"`
	Handled   bool   `json:"handled"`
}

// HandleWebhook verifies and applies a Stripe event. Each event id is applied once;
// a failed event leaves no trace so Stripe's retry can reprocess it.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.Cfg.StripeWebhookSecret == "" {
		return nil, utils.NewUnavailableError("Webhook secret is not configured")
	}
	if err := VerifyWebhookSignature(payload, signature, s.Cfg.StripeWebhookSecret, webhookTolerance, s.Now()); err != nil {
		s.Metrics.WebhookHandled("unknown", "bad_signature")
		return nil, utils.NewValidationError("Invalid webhook signature")
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.ID == "" {
		return nil, utils.NewValidationError("Invalid webhook payload")
	}
	result := &WebhookResult{EventID: event.ID, Type: event.Type}

	var notify []func()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&models.PaymentEvent{}).Where("event_id = ?", event.ID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			result.Duplicate = true
			return nil
		}
		now := s.Now()
		record := models.PaymentEvent{EventID: event.ID, Type: event.Type, Payload: datatypes.JSON(payload), ProcessedAt: &now}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.NewConflictError("Event is being processed")
			}
			return err
		}
		var err error
		switch event.Type {
		case "checkout.session.completed":
			notify, err = s.checkoutCompleted(tx, event.Data.Object)
		case "payment_intent.succeeded":
			notify, err = s.paymentSucceeded(tx, event.Data.Object)
		case "payment_intent.payment_failed":
			err = s.paymentFailed(tx, event.Data.Object)
		case "charge.refunded":
			err = s.chargeRefunded(tx, event.Data.Object)
		default:
			return nil
		}
		result.Handled = err == nil
		return err
	})
	if err != nil {
		s.Metrics.WebhookHandled(event.Type, "error")
		s.Logger.Printf("event %s (%s) failed: %v", event.ID, event.Type, err)
		return nil, err
	}

	switch {
	case result.Duplicate:
		s.Metrics.WebhookHandled(event.Type, "duplicate")
	case result.Handled:
		s.Metrics.WebhookHandled(event.Type, "handled")
		s.Logger.Printf("event %s (%s) applied", event.ID, event.Type)
	default:
		s.Metrics.WebhookHandled(event.Type, "ignored")
	}
	for _, fn := range notify {
		fn()
	}
	return result, nil
}

func (s *PaymentService) checkoutCompleted(tx *gorm.DB, raw json.RawMessage) ([]func(), error) {
	var obj checkoutSessionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, utils.NewValidationError("Invalid checkout session object")
	}
	courseID, studentID, ok := metadataIDs(obj.Metadata)
	if !ok {
		s.Logger.Printf("checkout session %s has no course/student metadata, skipping", obj.ID)
		return nil, nil
	}
	ref := obj.PaymentIntent
	if ref == "" {
		ref = obj.ID
	}
	status := models.TransactionPending
	if obj.PaymentStatus == "paid" || obj.PaymentStatus == "no_payment_required" {
		status = models.TransactionCompleted
	}
	return s.applyPayment(tx, courseID, studentID, ref, fromCents(obj.AmountTotal), status)
}

func (s *PaymentService) paymentSucceeded(tx *gorm.DB, raw json.RawMessage) ([]func(), error) {
	var obj paymentIntentObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, utils.NewValidationError("Invalid payment intent object")
	}
	amount := obj.AmountReceived
	if amount == 0 {
		amount = obj.Amount
	}

	var txn models.Transaction
	err := tx.Where("stripe_payment_id = ?", obj.ID).First(&txn).Error
	switch {
	case err == nil:
		if txn.Status == models.TransactionCompleted {
			return nil, nil
		}
		if err := tx.Model(&txn).Updates(map[string]interface{}{"status": models.TransactionCompleted, "amount": fromCents(amount)}).Error; err != nil {
			return nil, err
		}
		if txn.EnrollmentID == nil {
			return nil, nil
		}
		e, err := refreshPaymentStatus(tx, *txn.EnrollmentID)
		if err != nil {
			return nil, err
		}
		return s.paymentNotice(e, fromCents(amount)), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		courseID, studentID, ok := metadataIDs(obj.Metadata)
		if !ok {
			return nil, nil
		}
		return s.applyPayment(tx, courseID, studentID, obj.ID, fromCents(amount), models.TransactionCompleted)
	default:
		return nil, err
	}
}

func (s *PaymentService) paymentFailed(tx *gorm.DB, raw json.RawMessage) error {
	var obj paymentIntentObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return utils.NewValidationError("Invalid payment intent object")
	}
	return tx.Model(&models.Transaction{}).
		Where("stripe_payment_id = ? AND status = ?", obj.ID, models.TransactionPending).
		Update("status", models.TransactionFailed).Error
}

func (s *PaymentService) chargeRefunded(tx *gorm.DB, raw json.RawMessage) error {
	var obj chargeObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return utils.NewValidationError("Invalid charge object")
	}
	var payment models.Transaction
	if err := tx.Where("stripe_payment_id = ?", obj.PaymentIntent).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.Logger.Printf("refund for unknown payment intent %s, skipping", obj.PaymentIntent)
			return nil
		}
		return err
	}

	type refund struct {
		ref    string
		amount int64
	}
	var refunds []refund
	for _, r := range obj.Refunds.Data {
		if r.Status == "" || r.Status == "succeeded" {
			refunds = append(refunds, refund{r.ID, r.Amount})
		}
	}
	if len(refunds) == 0 && obj.AmountRefunded > 0 {
		// amount_refunded is cumulative for the charge; only the part not yet recorded is new.
		var prior []models.Transaction
		if err := tx.Where("payment_id = ? AND type = ? AND status = ?", payment.ID, models.TransactionRefund, models.TransactionCompleted).
			Find(&prior).Error; err != nil {
			return err
		}
		recorded := decimal.Zero
		for _, t := range prior {
			recorded = recorded.Add(t.Amount)
		}
		if delta := obj.AmountRefunded - toCents(recorded); delta > 0 {
			refunds = append(refunds, refund{obj.ID + ":" + strconv.FormatInt(obj.AmountRefunded, 10), delta})
		}
	}

	for _, r := range refunds {
		var count int64
		if err := tx.Model(&models.Transaction{}).Where("stripe_payment_id = ?", r.ref).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		ref := r.ref
		txn := models.Transaction{
			StudentID:       payment.StudentID,
			CourseID:        payment.CourseID,
			EnrollmentID:    payment.EnrollmentID,
			Amount:          fromCents(r.amount),
			Type:            models.TransactionRefund,
			Status:          models.TransactionCompleted,
			StripePaymentID: &ref,
			PaymentID:       &payment.ID,
			Description:     "Stripe refund",
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
	}
	if payment.EnrollmentID != nil {
		_, err := refreshPaymentStatus(tx, *payment.EnrollmentID)
		return err
	}
	return nil
}

// applyPayment records a payment for (course, student), creating the enrollment
// if needed. The payment reference makes it idempotent.
func (s *PaymentService) applyPayment(tx *gorm.DB, courseID, studentID uint, ref string, amount decimal.Decimal, status string) ([]func(), error) {
	course, err := findCourse(tx, courseID)
	if err != nil {
		return nil, err
	}

	var enrollment models.Enrollment
	err = tx.Where("student_id = ? AND course_id = ?", studentID, courseID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		enrollment = models.Enrollment{
			StudentID:     studentID,
			CourseID:      courseID,
			TuitionAmount: course.Price,
			PaymentStatus: models.PaymentPending,
			EnrolledAt:    s.Now(),
		}
		err = tx.Create(&enrollment).Error
	}
	if err != nil {
		return nil, err
	}

	var txn models.Transaction
	err = tx.Where("stripe_payment_id = ?", ref).First(&txn).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		txn = models.Transaction{
			StudentID:       studentID,
			CourseID:        &course.ID,
			EnrollmentID:    &enrollment.ID,
			Amount:          amount,
			Type:            models.TransactionPayment,
			Status:          status,
			StripePaymentID: &ref,
			Description:     "Course purchase: " + course.Title,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case txn.Status != models.TransactionCompleted && status == models.TransactionCompleted:
		if err := tx.Model(&txn).Update("status", status).Error; err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}

	e, err := refreshPaymentStatus(tx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	if status != models.TransactionCompleted {
		return nil, nil
	}
	return s.paymentNotice(e, amount), nil
}

func (s *PaymentService) paymentNotice(e *models.Enrollment, amount decimal.Decimal) []func() {
	studentID, enrollmentID, status := e.StudentID, e.ID, e.PaymentStatus
	return []func(){func() {
		s.Notifications.notifyQuietly(context.Background(), studentID, models.NotifyPaymentReceived,
			"Payment received",
			fmt.Sprintf("We received your payment of %s %s. Enrollment status: %s.", amount.StringFixed(2), s.Cfg.Currency, status),
			map[string]interface{}{"enrollment_id": enrollmentID, "amount": amount.StringFixed(2)})
	}}
}

func metadataIDs(md map[string]string) (courseID, studentID uint, ok bool) {
	c, err1 := strconv.ParseUint(md["course_id"], 10, 64)
	st, err2 := strconv.ParseUint(md["student_id"], 10, 64)
	if err1 != nil || err2 != nil || c == 0 || st == 0 {
		return 0, 0, false
	}
	return uint(c), uint(st), true
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
