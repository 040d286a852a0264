package services

import (
	"context"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

// AnalyticsService aggregates enrollment, progress and quiz numbers for
// course owners and admins.
type AnalyticsService struct {
	DB *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

type LessonStat struct {
	LessonID    uint   `json:"lesson_id"`
	LessonTitle string `json:"lesson_title"`
	Completed   int64  `json:"completed"`
}

type QuizStat struct {
	QuizID       uint    `json:"quiz_id"`
	Title        string  `json:"title"`
	Attempts     int64   `json:"attempts"`
	Completed    int64   `json:"completed"`
	Passed       int64   `json:"passed"`
	AverageScore float64 `json:"average_score"`
}

type EnrollmentTrend struct {
	Date        string `json:"date"`
	Enrollments int64  `json:"enrollments"`
}

type CourseAnalytics struct {
	CourseID    uint              `json:"course_id"`
	CourseTitle string            `json:"course_title"`
	Enrollments int64             `json:"total_enrollments"`
	ByPayment   map[string]int64  `json:"by_payment_status"`
	Lessons     []LessonStat      `json:"lesson_stats"`
	Quizzes     []QuizStat        `json:"quiz_stats"`
	Trend       []EnrollmentTrend `json:"enrollment_trend"`
}

type PlatformAnalytics struct {
	UsersByRole       map[string]int64 `json:"users_by_role"`
	CoursesByStatus   map[string]int64 `json:"courses_by_status"`
	TotalEnrollments  int64            `json:"total_enrollments"`
	CompletedAttempts int64            `json:"completed_attempts"`
	PassRate          float64          `json:"pass_rate"`
}

type groupCount struct {
	Bucket string
	Count  int64
}

func countBy(db *gorm.DB, model interface{}, column string, where ...interface{}) (map[string]int64, error) {
	q := db.Model(model).Select(column + " AS bucket, COUNT(*) AS count").Group(column)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var rows []groupCount
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Bucket] = r.Count
	}
	return out, nil
}

// Course returns analytics for one course. Only its instructor and admins may read them.
func (s *AnalyticsService) Course(ctx context.Context, p utils.Principal, courseID uint) (*CourseAnalytics, error) {
	db := s.DB.WithContext(ctx)
	course, err := editableCourse(db, p, courseID)
	if err != nil {
		return nil, err
	}

	out := &CourseAnalytics{CourseID: course.ID, CourseTitle: course.Title}
	out.ByPayment, err = countBy(db, &models.Enrollment{}, "payment_status", "course_id = ?", courseID)
	if err != nil {
		return nil, err
	}
	for _, n := range out.ByPayment {
		out.Enrollments += n
	}

	err = db.Table("lessons AS l").
		Select("l.id AS lesson_id, l.title AS lesson_title, COUNT(lp.id) AS completed").
		Joins("JOIN sections s ON s.id = l.section_id").
		Joins("LEFT JOIN lesson_progresses lp ON lp.lesson_id = l.id AND lp.status = ?", models.ProgressCompleted).
		Where("s.course_id = ?", courseID).
		Group("l.id, l.title, s.position, l.position").
		Order("s.position, l.position").
		Scan(&out.Lessons).Error
	if err != nil {
		return nil, err
	}

	err = db.Table("quizzes AS q").
		Select(`q.id AS quiz_id, q.title AS title, COUNT(a.id) AS attempts,
			COUNT(a.completed_at) AS completed,
			COALESCE(SUM(CASE WHEN a.passed THEN 1 ELSE 0 END), 0) AS passed,
			COALESCE(AVG(a.score), 0) AS average_score`).
		Joins("LEFT JOIN quiz_attempts a ON a.quiz_id = q.id").
		Where("q.course_id = ?", courseID).
		Group("q.id, q.title").
		Order("q.id").
		Scan(&out.Quizzes).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Enrollment{}).
		Select("DATE(enrolled_at) AS date, COUNT(*) AS enrollments").
		Where("course_id = ?", courseID).
		Group("DATE(enrolled_at)").
		Order("date").
		Scan(&out.Trend).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Platform is the admin dashboard.
func (s *AnalyticsService) Platform(ctx context.Context, p utils.Principal) (*PlatformAnalytics, error) {
	if !p.IsAdmin() {
		return nil, utils.NewAuthorizationError("Admin access required")
	}
	db := s.DB.WithContext(ctx)

	var (
		out PlatformAnalytics
		err error
	)
	if out.UsersByRole, err = countBy(db, &models.User{}, "role"); err != nil {
		return nil, err
	}
	if out.CoursesByStatus, err = countBy(db, &models.Course{}, "status"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Enrollment{}).Count(&out.TotalEnrollments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.QuizAttempt{}).Where("completed_at IS NOT NULL").Count(&out.CompletedAttempts).Error; err != nil {
		return nil, err
	}
	if out.CompletedAttempts > 0 {
		var passed int64
		if err := db.Model(&models.QuizAttempt{}).Where("passed = ?", true).Count(&passed).Error; err != nil {
			return nil, err
		}
		out.PassRate = float64(passed) * 100 / float64(out.CompletedAttempts)
	}
	return &out, nil
}
