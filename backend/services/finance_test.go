package services

import (
	"context"
	"testing"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func mkTxn(t *testing.T, db *gorm.DB, e models.Enrollment, kind, status, amount string) models.Transaction {
	t.Helper()
	txn := models.Transaction{
		StudentID:    e.StudentID,
		CourseID:     &e.CourseID,
		EnrollmentID: &e.ID,
		Amount:       dec(amount),
		Type:         kind,
		Status:       status,
	}
	require.NoError(t, db.Create(&txn).Error)
	return txn
}

func TestNetPaid(t *testing.T) {
	txns := []models.Transaction{
		{Type: models.TransactionPayment, Status: models.TransactionCompleted, Amount: dec("30.00")},
		{Type: models.TransactionPayment, Status: models.TransactionPending, Amount: dec("100.00")},
		{Type: models.TransactionPayment, Status: models.TransactionFailed, Amount: dec("100.00")},
		{Type: models.TransactionAdjustment, Status: models.TransactionCompleted, Amount: dec("5.50")},
		{Type: models.TransactionAdjustment, Status: models.TransactionCompleted, Amount: dec("-0.50")},
		{Type: models.TransactionRefund, Status: models.TransactionCompleted, Amount: dec("10.00")},
	}
	assertAmount(t, "25.00", NetPaid(txns))
	assertAmount(t, "0", NetPaid(nil))
}

func TestPaymentStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		tuition string
		paid    string
		want    string
	}{
		{"nothing paid", "49.00", "0", models.PaymentPending},
		{"refunded below zero", "49.00", "-5.00", models.PaymentPending},
		{"part paid", "49.00", "0.01", models.PaymentPartial},
		{"exactly paid", "49.00", "49.00", models.PaymentPaid},
		{"overpaid", "49.00", "60.00", models.PaymentPaid},
		{"free course", "0", "0", models.PaymentPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PaymentStatusFor(dec(tt.tuition), dec(tt.paid)))
		})
	}
}

func TestBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewFinanceService(db, "USD")
	ctx := context.Background()
	instructor := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	other := mkUser(t, db, models.RoleStudent)
	admin := mkUser(t, db, models.RoleAdmin)

	go101 := mkCourse(t, db, instructor, models.CourseApproved, "100.00")
	sql101 := mkCourse(t, db, instructor, models.CourseApproved, "50.00")
	e1 := mkEnrollment(t, db, student, go101, models.PaymentPartial)
	mkEnrollment(t, db, student, sql101, models.PaymentPending)
	mkTxn(t, db, e1, models.TransactionPayment, models.TransactionCompleted, "60.00")
	mkTxn(t, db, e1, models.TransactionRefund, models.TransactionCompleted, "10.00")
	mkTxn(t, db, e1, models.TransactionPayment, models.TransactionPending, "40.00")

	b, err := svc.Balance(ctx, as(student), student.ID)
	require.NoError(t, err)
	assert.Equal(t, "usd", b.Currency)
	assertAmount(t, "150.00", b.Tuition)
	assertAmount(t, "60.00", b.Paid)
	assertAmount(t, "10.00", b.Refunded)
	assertAmount(t, "100.00", b.Balance)
	require.Len(t, b.Enrollments, 2)
	assert.Equal(t, go101.Title, b.Enrollments[0].CourseTitle)
	assertAmount(t, "50.00", b.Enrollments[0].Balance)
	assertAmount(t, "50.00", b.Enrollments[1].Balance)

	_, err = svc.Balance(ctx, as(other), student.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
	_, err = svc.Balance(ctx, as(admin), student.ID)
	assert.NoError(t, err)

	empty, err := svc.Balance(ctx, as(other), other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Enrollments)
	assertAmount(t, "0", empty.Balance)
}

func TestAdjust(t *testing.T) {
	db := newTestDB(t)
	svc := NewFinanceService(db, "usd")
	ctx := context.Background()
	instructor := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	other := mkUser(t, db, models.RoleStudent)
	admin := mkUser(t, db, models.RoleAdmin)
	course := mkCourse(t, db, instructor, models.CourseApproved, "40.00")
	e := mkEnrollment(t, db, student, course, models.PaymentPending)

	in := AdjustmentInput{StudentID: student.ID, EnrollmentID: e.ID, Amount: dec("15.004"), Description: "Scholarship"}
	_, _, err := svc.Adjust(ctx, as(student), in)
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	txn, updated, err := svc.Adjust(ctx, as(admin), in)
	require.NoError(t, err)
	assertAmount(t, "15.00", txn.Amount)
	assert.Equal(t, models.TransactionAdjustment, txn.Type)
	assert.Equal(t, models.PaymentPartial, updated.PaymentStatus)

	in.Amount = dec("25.00")
	_, updated, err = svc.Adjust(ctx, as(admin), in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)

	in.Amount = dec("-40.00")
	_, updated, err = svc.Adjust(ctx, as(admin), in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, updated.PaymentStatus)

	in.Amount = decimal.Zero
	_, _, err = svc.Adjust(ctx, as(admin), in)
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, _, err = svc.Adjust(ctx, as(admin), AdjustmentInput{StudentID: other.ID, EnrollmentID: e.ID, Amount: dec("1"), Description: "x"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, _, err = svc.Adjust(ctx, as(admin), AdjustmentInput{StudentID: student.ID, EnrollmentID: 9999, Amount: dec("1"), Description: "x"})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, _, err = svc.Adjust(ctx, as(admin), AdjustmentInput{StudentID: student.ID, EnrollmentID: e.ID, Amount: dec("1")})
	assert.ErrorIs(t, err, utils.ErrValidation, "description is required")
}

func TestTransactionsAndSummary(t *testing.T) {
	db := newTestDB(t)
	svc := NewFinanceService(db, "usd")
	ctx := context.Background()
	instructor := mkUser(t, db, models.RoleInstructor)
	admin := mkUser(t, db, models.RoleAdmin)
	alice := mkUser(t, db, models.RoleStudent)
	bob := mkUser(t, db, models.RoleStudent)
	course := mkCourse(t, db, instructor, models.CourseApproved, "30.00")

	ea := mkEnrollment(t, db, alice, course, models.PaymentPaid)
	eb := mkEnrollment(t, db, bob, course, models.PaymentPartial)
	mkTxn(t, db, ea, models.TransactionPayment, models.TransactionCompleted, "30.00")
	mkTxn(t, db, eb, models.TransactionPayment, models.TransactionCompleted, "20.00")
	mkTxn(t, db, eb, models.TransactionRefund, models.TransactionCompleted, "5.00")
	mkTxn(t, db, eb, models.TransactionPayment, models.TransactionFailed, "10.00")

	mine, total, err := svc.Transactions(ctx, as(bob), TransactionFilter{StudentID: alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, mine, 3)

	page, total, err := svc.Transactions(ctx, as(admin), TransactionFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, page, 1)

	refunds, _, err := svc.Transactions(ctx, as(admin), TransactionFilter{Type: models.TransactionRefund})
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, bob.ID, refunds[0].StudentID)

	_, err = svc.Summary(ctx, as(alice))
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	sum, err := svc.Summary(ctx, as(admin))
	require.NoError(t, err)
	assertAmount(t, "45.00", sum.TotalRevenue)
	assertAmount(t, "5.00", sum.TotalRefunded)
	assertAmount(t, "15.00", sum.OutstandingBalance)
	assert.Equal(t, 1, sum.StudentsWithBalance)
	assert.EqualValues(t, 1, sum.StudentsPaid)
	assert.EqualValues(t, 1, sum.StudentsPartial)
	assert.EqualValues(t, 0, sum.StudentsPending)
}
