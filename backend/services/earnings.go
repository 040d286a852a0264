package services

import (
	"context"
	"sort"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/shopspring/decimal"
)

const instructorTransactionLimit = 50

// InstructorEarnings separates list-price sales (tuition of paid enrollments)
// from money actually collected on the instructor's courses.
type InstructorEarnings struct {
	InstructorID      uint            `json:"instructor_id"`
	DirectSales       decimal.Decimal `json:"total_direct_sales"`
	Collected         decimal.Decimal `json:"total_collected"`
	Refunded          decimal.Decimal `json:"total_refunded"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
	PaidEnrollments   int64           `json:"paid_enrollments"`
	ActiveCourses     int64           `json:"active_courses"`
	AvgSalesPerCourse decimal.Decimal `json:"avg_direct_sales_per_course"`
	Currency          string          `json:"currency"`
}

type CourseRevenue struct {
	CourseID    uint            `json:"course_id"`
	Title       string          `json:"title"`
	Status      string          `json:"status"`
	Price       decimal.Decimal `json:"price"`
	SalesCount  int64           `json:"direct_sales_count"`
	DirectSales decimal.Decimal `json:"direct_sales_revenue"`
	NetRevenue  decimal.Decimal `json:"net_revenue"`
}

// instructorScope resolves whose numbers the caller may read: instructors
// their own, admins anyone's.
func instructorScope(p utils.Principal, instructorID uint) (uint, error) {
	if instructorID == 0 {
		instructorID = p.UserID
	}
	switch {
	case p.IsAdmin():
		return instructorID, nil
	case p.IsInstructor() && instructorID == p.UserID:
		return instructorID, nil
	case p.IsInstructor():
		return 0, utils.NewAuthorizationError("Only admins can view other instructors' earnings")
	default:
		return 0, utils.NewAuthorizationError("Instructor access required")
	}
}

func (s *FinanceService) instructorData(ctx context.Context, instructorID uint) ([]models.Course, []models.Enrollment, []models.Transaction, error) {
	db := s.DB.WithContext(ctx)
	var courses []models.Course
	if err := db.Where("instructor_id = ?", instructorID).Order("id").Find(&courses).Error; err != nil {
		return nil, nil, nil, err
	}
	if len(courses) == 0 {
		return nil, nil, nil, nil
	}
	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	var enrollments []models.Enrollment
	if err := db.Where("course_id IN ? AND payment_status = ?", ids, models.PaymentPaid).Find(&enrollments).Error; err != nil {
		return nil, nil, nil, err
	}
	var txns []models.Transaction
	if err := db.Where("course_id IN ? AND status = ?", ids, models.TransactionCompleted).Find(&txns).Error; err != nil {
		return nil, nil, nil, err
	}
	return courses, enrollments, txns, nil
}

func (s *FinanceService) Earnings(ctx context.Context, p utils.Principal, instructorID uint) (*InstructorEarnings, error) {
	instructorID, err := instructorScope(p, instructorID)
	if err != nil {
		return nil, err
	}
	courses, enrollments, txns, err := s.instructorData(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	out := &InstructorEarnings{InstructorID: instructorID, Currency: s.Currency}
	for _, c := range courses {
		if c.Status == models.CourseApproved {
			out.ActiveCourses++
		}
	}
	for _, e := range enrollments {
		out.DirectSales = out.DirectSales.Add(e.TuitionAmount)
		out.PaidEnrollments++
	}
	out.Collected, out.Refunded = splitTotals(txns)
	out.NetRevenue = NetPaid(txns)
	if out.ActiveCourses > 0 {
		out.AvgSalesPerCourse = out.DirectSales.DivRound(decimal.NewFromInt(out.ActiveCourses), 2)
	}
	return out, nil
}

// CourseRevenue lists the instructor's courses by direct sales, highest first.
func (s *FinanceService) CourseRevenue(ctx context.Context, p utils.Principal, instructorID uint) ([]CourseRevenue, error) {
	instructorID, err := instructorScope(p, instructorID)
	if err != nil {
		return nil, err
	}
	courses, enrollments, txns, err := s.instructorData(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	byCourse := make(map[uint]*CourseRevenue, len(courses))
	out := make([]CourseRevenue, len(courses))
	for i, c := range courses {
		out[i] = CourseRevenue{CourseID: c.ID, Title: c.Title, Status: c.Status, Price: c.Price}
		byCourse[c.ID] = &out[i]
	}
	for _, e := range enrollments {
		r := byCourse[e.CourseID]
		r.SalesCount++
		r.DirectSales = r.DirectSales.Add(e.TuitionAmount)
	}
	txnsByCourse := make(map[uint][]models.Transaction)
	for _, t := range txns {
		if t.CourseID != nil {
			txnsByCourse[*t.CourseID] = append(txnsByCourse[*t.CourseID], t)
		}
	}
	for id, list := range txnsByCourse {
		if r, ok := byCourse[id]; ok {
			r.NetRevenue = NetPaid(list)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DirectSales.GreaterThan(out[j].DirectSales)
	})
	return out, nil
}

// InstructorTransactions returns the latest completed transactions on the
// instructor's courses.
func (s *FinanceService) InstructorTransactions(ctx context.Context, p utils.Principal, instructorID uint) ([]models.Transaction, error) {
	instructorID, err := instructorScope(p, instructorID)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	out := []models.Transaction{}
	err = db.Where("status = ?", models.TransactionCompleted).
		Where("course_id IN (?)", db.Model(&models.Course{}).Select("id").Where("instructor_id = ?", instructorID)).
		Order("created_at DESC, id DESC").
		Limit(instructorTransactionLimit).
		Find(&out).Error
	return out, err
}
