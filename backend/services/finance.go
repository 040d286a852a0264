package services

import (
	"context"
	"strings"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FinanceService struct {
	DB       *gorm.DB
	Currency string
}

func NewFinanceService(db *gorm.DB, currency string) *FinanceService {
	return &FinanceService{DB: db, Currency: strings.ToLower(currency)}
}

// NetPaid is payments plus adjustments minus refunds over completed transactions.
func NetPaid(txns []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.Status != models.TransactionCompleted {
			continue
		}
		switch t.Type {
		case models.TransactionPayment, models.TransactionAdjustment:
			total = total.Add(t.Amount)
		case models.TransactionRefund:
			total = total.Sub(t.Amount)
		}
	}
	return total
}

func PaymentStatusFor(tuition, paid decimal.Decimal) string {
	switch {
	case !tuition.IsPositive() || paid.GreaterThanOrEqual(tuition):
		return models.PaymentPaid
	case paid.IsPositive():
		return models.PaymentPartial
	default:
		return models.PaymentPending
	}
}

type EnrollmentBalance struct {
	EnrollmentID  uint            `json:"enrollment_id"`
	CourseID      uint            `json:"course_id"`
	CourseTitle   string          `json:"course_title"`
	TuitionAmount decimal.Decimal `json:"tuition_amount"`
	Paid          decimal.Decimal `json:"paid"`
	Refunded      decimal.Decimal `json:"refunded"`
	Balance       decimal.Decimal `json:"balance"`
	PaymentStatus string          `json:"payment_status"`
}

type StudentBalance struct {
	StudentID   uint                `json:"student_id"`
	Tuition     decimal.Decimal     `json:"total_tuition"`
	Paid        decimal.Decimal     `json:"total_paid"`
	Refunded    decimal.Decimal     `json:"total_refunded"`
	Balance     decimal.Decimal     `json:"balance"`
	Currency    string              `json:"currency"`
	Enrollments []EnrollmentBalance `json:"enrollments"`
}

type FinanceSummary struct {
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalRefunded       decimal.Decimal `json:"total_refunded"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance"`
	StudentsWithBalance int             `json:"students_with_balance"`
	StudentsPaid        int64           `json:"students_paid"`
	StudentsPartial     int64           `json:"students_partial"`
	StudentsPending     int64           `json:"students_pending"`
	Currency            string          `json:"currency"`
}

type TransactionFilter struct {
	StudentID uint
	Type      string
	Status    string
	Page      int
	PageSize  int
}

type AdjustmentInput struct {
	StudentID    uint            `json:"student_id" validate:"required"`
	EnrollmentID uint            `json:"enrollment_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description" validate:"required,max=255"`
}

// Balance is tuition minus payments and adjustments plus refunds.
func (s *FinanceService) Balance(ctx context.Context, p utils.Principal, studentID uint) (*StudentBalance, error) {
	if studentID != p.UserID && !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("You can only view your own balance")
	}
	db := s.DB.WithContext(ctx)

	var enrollments []models.Enrollment
	if err := db.Preload("Course").Where("student_id = ?", studentID).Order("enrolled_at, id").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	var txns []models.Transaction
	if err := db.Where("student_id = ? AND status = ?", studentID, models.TransactionCompleted).Find(&txns).Error; err != nil {
		return nil, err
	}
	byEnrollment := make(map[uint][]models.Transaction)
	for _, t := range txns {
		if t.EnrollmentID != nil {
			byEnrollment[*t.EnrollmentID] = append(byEnrollment[*t.EnrollmentID], t)
		}
	}

	out := &StudentBalance{StudentID: studentID, Currency: s.Currency, Enrollments: []EnrollmentBalance{}}
	for _, e := range enrollments {
		eb := balanceFor(e, byEnrollment[e.ID])
		out.Tuition = out.Tuition.Add(eb.TuitionAmount)
		out.Enrollments = append(out.Enrollments, eb)
	}
	paid, refunded := splitTotals(txns)
	out.Paid = paid
	out.Refunded = refunded
	out.Balance = out.Tuition.Sub(paid).Add(refunded)
	return out, nil
}

func (s *FinanceService) Transactions(ctx context.Context, p utils.Principal, f TransactionFilter) ([]models.Transaction, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Transaction{})
	if p.IsAdmin() {
		if f.StudentID != 0 {
			q = q.Where("student_id = ?", f.StudentID)
		}
	} else {
		q = q.Where("student_id = ?", p.UserID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	var out []models.Transaction
	err := q.Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&out).Error
	return out, total, err
}

func (s *FinanceService) Summary(ctx context.Context, p utils.Principal) (*FinanceSummary, error) {
	if !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("Admin access required")
	}
	db := s.DB.WithContext(ctx)

	var txns []models.Transaction
	if err := db.Where("status = ?", models.TransactionCompleted).Find(&txns).Error; err != nil {
		return nil, err
	}
	var enrollments []models.Enrollment
	if err := db.Find(&enrollments).Error; err != nil {
		return nil, err
	}

	out := &FinanceSummary{Currency: s.Currency}
	revenue, refunded := splitTotals(txns)
	out.TotalRevenue = revenue.Sub(refunded)
	out.TotalRefunded = refunded

	tuitionByStudent := make(map[uint]decimal.Decimal)
	for _, e := range enrollments {
		tuitionByStudent[e.StudentID] = tuitionByStudent[e.StudentID].Add(e.TuitionAmount)
	}
	txnsByStudent := make(map[uint][]models.Transaction)
	for _, t := range txns {
		txnsByStudent[t.StudentID] = append(txnsByStudent[t.StudentID], t)
	}
	for studentID, tuition := range tuitionByStudent {
		balance := tuition.Sub(NetPaid(txnsByStudent[studentID]))
		if balance.IsPositive() {
			out.OutstandingBalance = out.OutstandingBalance.Add(balance)
			out.StudentsWithBalance++
		}
	}

	var counts []struct {
		PaymentStatus string
		Count         int64
	}
	err := db.Model(&models.Enrollment{}).
		Select("payment_status, COUNT(*) AS count").
		Group("payment_status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch c.PaymentStatus {
		case models.PaymentPaid:
			out.StudentsPaid = c.Count
		case models.PaymentPartial:
			out.StudentsPartial = c.Count
		case models.PaymentPending:
			out.StudentsPending = c.Count
		}
	}
	return out, nil
}

// Adjust records a manual credit (positive) or charge (negative) against an enrollment.
func (s *FinanceService) Adjust(ctx context.Context, p utils.Principal, in AdjustmentInput) (*models.Transaction, *models.Enrollment, error) {
	if !p.IsAdmin() {
		return nil, nil, utils.NewAuthorizationError("Admin access required")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, err
	}
	if in.Amount.IsZero() {
		return nil, nil, utils.NewValidationError("amount must not be zero")
	}

	var txn models.Transaction
	var enrollment *models.Enrollment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Enrollment
		if err := tx.First(&e, in.EnrollmentID).Error; err != nil {
			return notFound(err, "Enrollment")
		}
		if e.StudentID != in.StudentID {
			return utils.NewValidationError("enrollment %d does not belong to student %d", e.ID, in.StudentID)
		}
		txn = models.Transaction{
			StudentID:    e.StudentID,
			CourseID:     &e.CourseID,
			EnrollmentID: &e.ID,
			Amount:       in.Amount.Round(2),
			Type:         models.TransactionAdjustment,
			Status:       models.TransactionCompleted,
			Description:  in.Description,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		var err error
		enrollment, err = refreshPaymentStatus(tx, e.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &txn, enrollment, nil
}

func balanceFor(e models.Enrollment, txns []models.Transaction) EnrollmentBalance {
	paid, refunded := splitTotals(txns)
	eb := EnrollmentBalance{
		EnrollmentID:  e.ID,
		CourseID:      e.CourseID,
		TuitionAmount: e.TuitionAmount,
		Paid:          paid,
		Refunded:      refunded,
		Balance:       e.TuitionAmount.Sub(paid).Add(refunded),
		PaymentStatus: e.PaymentStatus,
	}
	if e.Course != nil {
		eb.CourseTitle = e.Course.Title
	}
	return eb
}

// splitTotals returns credits (payments and adjustments) and refunds separately.
func splitTotals(txns []models.Transaction) (paid, refunded decimal.Decimal) {
	for _, t := range txns {
		if t.Status != models.TransactionCompleted {
			continue
		}
		switch t.Type {
		case models.TransactionPayment, models.TransactionAdjustment:
			paid = paid.Add(t.Amount)
		case models.TransactionRefund:
			refunded = refunded.Add(t.Amount)
		}
	}
	return paid, refunded
}
