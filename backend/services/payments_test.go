package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"apollo/backend/config"
	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type fakeProvider struct {
	params []CheckoutParams
	err    error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

type paymentFixture struct {
	svc      *PaymentService
	db       *gorm.DB
	mailer   *fakeMailer
	provider *fakeProvider
	student  models.User
	course   models.Course
	now      time.Time
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db := newTestDB(t)
	mailer := &fakeMailer{}
	provider := &fakeProvider{}
	cfg := &config.Config{StripeWebhookSecret: testWebhookSecret, Currency: "usd", FrontendURL: "https://apollo.test"}
	svc := NewPaymentService(db, provider, cfg, NewNotificationService(db, mailer, utils.Discard()), nil, utils.Discard())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	instructor := mkUser(t, db, models.RoleInstructor)
	return &paymentFixture{
		svc:      svc,
		db:       db,
		mailer:   mailer,
		provider: provider,
		student:  mkUser(t, db, models.RoleStudent),
		course:   mkCourse(t, db, instructor, models.CourseApproved, "49.00"),
		now:      now,
	}
}

func (f *paymentFixture) deliver(t *testing.T, payload string) (*WebhookResult, error) {
	t.Helper()
	ts := f.now.Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, SignWebhookPayload([]byte(payload), testWebhookSecret, ts))
	return f.svc.HandleWebhook(context.Background(), []byte(payload), header)
}

func (f *paymentFixture) checkoutEvent(id, intent string, cents int64) string {
	return fmt.Sprintf(`{"id":%q,"type":"checkout.session.completed","data":{"object":{
		"id":"cs_%s","payment_intent":%q,"payment_status":"paid","amount_total":%d,
		"metadata":{"course_id":"%d","student_id":"%d"}}}}`, id, id, intent, cents, f.course.ID, f.student.ID)
}

func (f *paymentFixture) enrollment(t *testing.T) models.Enrollment {
	t.Helper()
	var e models.Enrollment
	require.NoError(t, f.db.Where("student_id = ? AND course_id = ?", f.student.ID, f.course.ID).First(&e).Error)
	return e
}

func (f *paymentFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCheckout(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, as(f.student), CheckoutInput{CourseID: f.course.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Checkout)
	assert.Nil(t, res.Enrollment)
	require.Len(t, f.provider.params, 1)
	p := f.provider.params[0]
	assert.EqualValues(t, 4900, p.AmountCents)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, f.student.Email, p.CustomerEmail)
	assert.Contains(t, p.SuccessURL, fmt.Sprintf("https://apollo.test/courses/%d", f.course.ID))
	assert.EqualValues(t, 0, f.count(t, &models.Enrollment{}), "enrollment waits for the webhook")

	f.provider.err = errors.New("connection refused")
	_, err = f.svc.Checkout(ctx, as(f.student), CheckoutInput{CourseID: f.course.ID})
	assert.ErrorIs(t, err, utils.ErrUnavailable)

	instructor := mkUser(t, f.db, models.RoleInstructor)
	_, err = f.svc.Checkout(ctx, as(instructor), CheckoutInput{CourseID: f.course.ID})
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	draft := mkCourse(t, f.db, instructor, models.CourseDraft, "10.00")
	_, err = f.svc.Checkout(ctx, as(f.student), CheckoutInput{CourseID: draft.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestCheckoutFreeCourseEnrollsDirectly(t *testing.T) {
	f := newPaymentFixture(t)
	f.svc.Provider = nil
	instructor := mkUser(t, f.db, models.RoleInstructor)
	free := mkCourse(t, f.db, instructor, models.CourseApproved, "0")

	res, err := f.svc.Checkout(context.Background(), as(f.student), CheckoutInput{CourseID: free.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Enrollment)
	assert.Equal(t, models.PaymentPaid, res.Enrollment.PaymentStatus)

	_, err = f.svc.Checkout(context.Background(), as(f.student), CheckoutInput{CourseID: free.ID})
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = f.svc.Checkout(context.Background(), as(f.student), CheckoutInput{CourseID: f.course.ID})
	assert.ErrorIs(t, err, utils.ErrUnavailable, "paid course without a provider")
}

func TestWebhookRejectsBadSignatures(t *testing.T) {
	f := newPaymentFixture(t)
	payload := []byte(f.checkoutEvent("evt_1", "pi_1", 4900))
	ctx := context.Background()

	_, err := f.svc.HandleWebhook(ctx, payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, utils.ErrValidation)

	stale := f.now.Add(-10 * time.Minute).Unix()
	_, err = f.svc.HandleWebhook(ctx, payload, fmt.Sprintf("t=%d,v1=%s", stale, SignWebhookPayload(payload, testWebhookSecret, stale)))
	assert.ErrorIs(t, err, utils.ErrValidation)

	f.svc.Cfg = &config.Config{}
	_, err = f.deliver(t, string(payload))
	assert.ErrorIs(t, err, utils.ErrUnavailable)

	assert.EqualValues(t, 0, f.count(t, &models.PaymentEvent{}))
}

func TestWebhookCheckoutCompletedIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	payload := f.checkoutEvent("evt_1", "pi_1", 4900)

	res, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.False(t, res.Duplicate)

	e := f.enrollment(t)
	assert.Equal(t, models.PaymentPaid, e.PaymentStatus)
	assert.EqualValues(t, 1, f.count(t, &models.Transaction{}))
	assert.Len(t, f.mailer.Sent(), 1)

	res, err = f.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.EqualValues(t, 1, f.count(t, &models.Transaction{}))
	assert.EqualValues(t, 1, f.count(t, &models.PaymentEvent{}))
	assert.Len(t, f.mailer.Sent(), 1)

	// Same payment intent under a new event id.
	_, err = f.deliver(t, `{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount_received":4900}}}`)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &models.Transaction{}))
}

func TestWebhookPartialPaymentAndRefund(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.deliver(t, f.checkoutEvent("evt_1", "pi_1", 2000))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, f.enrollment(t).PaymentStatus)

	_, err = f.deliver(t, f.checkoutEvent("evt_2", "pi_2", 2900))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, f.enrollment(t).PaymentStatus)

	refund := `{"id":%q,"type":"charge.refunded","data":{"object":{"id":"ch_2","payment_intent":"pi_2",
		"amount_refunded":2900,"refunds":{"data":[{"id":"re_1","amount":2900,"status":"succeeded"}]}}}}`
	res, err := f.deliver(t, fmt.Sprintf(refund, "evt_3"))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, models.PaymentPartial, f.enrollment(t).PaymentStatus)

	_, err = f.deliver(t, fmt.Sprintf(refund, "evt_4"))
	require.NoError(t, err)
	var refunds int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Where("type = ?", models.TransactionRefund).Count(&refunds).Error)
	assert.EqualValues(t, 1, refunds, "a refund id is recorded once")
}

func TestWebhookCumulativeRefundsWithoutRefundList(t *testing.T) {
	f := newPaymentFixture(t)
	_, err := f.deliver(t, f.checkoutEvent("evt_1", "pi_1", 4900))
	require.NoError(t, err)

	refund := `{"id":%q,"type":"charge.refunded","data":{"object":{"id":"ch_1","payment_intent":"pi_1","amount_refunded":%d}}}`
	refunded := func() string {
		var txns []models.Transaction
		require.NoError(t, f.db.Where("type = ?", models.TransactionRefund).Find(&txns).Error)
		total := decimal.Zero
		for _, txn := range txns {
			total = total.Add(txn.Amount)
		}
		return total.StringFixed(2)
	}

	_, err = f.deliver(t, fmt.Sprintf(refund, "evt_2", 1000))
	require.NoError(t, err)
	assert.Equal(t, "10.00", refunded())
	assert.Equal(t, models.PaymentPartial, f.enrollment(t).PaymentStatus)

	_, err = f.deliver(t, fmt.Sprintf(refund, "evt_3", 2000))
	require.NoError(t, err)
	assert.Equal(t, "20.00", refunded(), "only the newly refunded part is recorded")

	// Replay of the same cumulative amount under a new event id adds nothing.
	_, err = f.deliver(t, fmt.Sprintf(refund, "evt_4", 2000))
	require.NoError(t, err)
	assert.Equal(t, "20.00", refunded())
	var refunds int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Where("type = ?", models.TransactionRefund).Count(&refunds).Error)
	assert.EqualValues(t, 2, refunds)

	var txn models.Transaction
	require.NoError(t, f.db.Where("type = ?", models.TransactionRefund).Last(&txn).Error)
	require.NotNil(t, txn.PaymentID)

	var payment models.Transaction
	require.NoError(t, f.db.Where("stripe_payment_id = ?", "pi_1").First(&payment).Error)
	assert.Equal(t, payment.ID, *txn.PaymentID)
}

func TestWebhookPaymentFailedAndUnknownEvents(t *testing.T) {
	f := newPaymentFixture(t)
	pending := fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","payment_intent":"pi_1","payment_status":"unpaid","amount_total":4900,
		"metadata":{"course_id":"%d","student_id":"%d"}}}}`, f.course.ID, f.student.ID)
	_, err := f.deliver(t, pending)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, f.enrollment(t).PaymentStatus)
	assert.Empty(t, f.mailer.Sent())

	_, err = f.deliver(t, `{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1"}}}`)
	require.NoError(t, err)
	var txn models.Transaction
	require.NoError(t, f.db.Where("stripe_payment_id = ?", "pi_1").First(&txn).Error)
	assert.Equal(t, models.TransactionFailed, txn.Status)

	res, err := f.deliver(t, `{"id":"evt_3","type":"customer.created","data":{"object":{}}}`)
	require.NoError(t, err)
	assert.False(t, res.Handled)
	assert.False(t, res.Duplicate)
	assert.EqualValues(t, 3, f.count(t, &models.PaymentEvent{}))

	_, err = f.deliver(t, `{"type":"customer.created"}`)
	assert.ErrorIs(t, err, utils.ErrValidation)
}
