package services

import (
	"context"
	"testing"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseAnalytics(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	ctx := context.Background()

	owner := mkUser(t, db, models.RoleInstructor)
	other := mkUser(t, db, models.RoleInstructor)
	admin := mkUser(t, db, models.RoleAdmin)
	alice := mkUser(t, db, models.RoleStudent)
	bob := mkUser(t, db, models.RoleStudent)
	course := mkCourse(t, db, owner, models.CourseApproved, "15.00")
	sections := mkSections(t, db, course, "One", "Two")
	lessons := append(mkLessons(t, db, sections[1], "B1"), mkLessons(t, db, sections[0], "A1", "A2")...)
	mkEnrollment(t, db, alice, course, models.PaymentPaid)
	mkEnrollment(t, db, bob, course, models.PaymentPending)

	for _, lp := range []models.LessonProgress{
		{StudentID: alice.ID, LessonID: lessons[1].ID, CourseID: course.ID, Status: models.ProgressCompleted},
		{StudentID: bob.ID, LessonID: lessons[1].ID, CourseID: course.ID, Status: models.ProgressCompleted},
		{StudentID: alice.ID, LessonID: lessons[2].ID, CourseID: course.ID, Status: models.ProgressInProgress},
	} {
		require.NoError(t, db.Create(&lp).Error)
	}

	quiz := mkQuiz(t, db, course, 70, 1, 1)
	now := time.Now().UTC()
	for _, a := range []models.QuizAttempt{
		{QuizID: quiz.ID, StudentID: alice.ID, StartedAt: now, CompletedAt: &now, Score: ptr(100.0), Passed: ptr(true)},
		{QuizID: quiz.ID, StudentID: alice.ID, StartedAt: now, CompletedAt: &now, Score: ptr(50.0), Passed: ptr(false)},
		{QuizID: quiz.ID, StudentID: bob.ID, StartedAt: now},
	} {
		require.NoError(t, db.Create(&a).Error)
	}

	stats, err := svc.Course(ctx, as(owner), course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Enrollments)
	assert.Equal(t, map[string]int64{models.PaymentPaid: 1, models.PaymentPending: 1}, stats.ByPayment)

	require.Len(t, stats.Lessons, 3)
	assert.Equal(t, "A1", stats.Lessons[0].LessonTitle)
	assert.EqualValues(t, 2, stats.Lessons[0].Completed)
	assert.EqualValues(t, 0, stats.Lessons[1].Completed)
	assert.Equal(t, "B1", stats.Lessons[2].LessonTitle)

	require.Len(t, stats.Quizzes, 1)
	q := stats.Quizzes[0]
	assert.EqualValues(t, 3, q.Attempts)
	assert.EqualValues(t, 2, q.Completed)
	assert.EqualValues(t, 1, q.Passed)
	assert.InDelta(t, 75.0, q.AverageScore, 0.001)

	var trended int64
	for _, d := range stats.Trend {
		assert.NotEmpty(t, d.Date)
		trended += d.Enrollments
	}
	assert.EqualValues(t, 2, trended)

	_, err = svc.Course(ctx, as(admin), course.ID)
	assert.NoError(t, err)
	_, err = svc.Course(ctx, as(other), course.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
	_, err = svc.Course(ctx, as(alice), course.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
}

func TestPlatformAnalytics(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	ctx := context.Background()

	admin := mkUser(t, db, models.RoleAdmin)
	instructor := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	approved := mkCourse(t, db, instructor, models.CourseApproved, "0")
	mkCourse(t, db, instructor, models.CourseDraft, "0")
	mkEnrollment(t, db, student, approved, models.PaymentPaid)

	empty, err := svc.Platform(ctx, as(admin))
	require.NoError(t, err)
	assert.Zero(t, empty.PassRate)

	quiz := mkQuiz(t, db, approved, 50, 1)
	now := time.Now().UTC()
	for _, passed := range []bool{true, true, false, true} {
		a := models.QuizAttempt{QuizID: quiz.ID, StudentID: student.ID, StartedAt: now, CompletedAt: &now, Score: ptr(0.0), Passed: ptr(passed)}
		require.NoError(t, db.Create(&a).Error)
	}

	out, err := svc.Platform(ctx, as(admin))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{models.RoleAdmin: 1, models.RoleInstructor: 1, models.RoleStudent: 1}, out.UsersByRole)
	assert.Equal(t, map[string]int64{models.CourseApproved: 1, models.CourseDraft: 1}, out.CoursesByStatus)
	assert.EqualValues(t, 1, out.TotalEnrollments)
	assert.EqualValues(t, 4, out.CompletedAttempts)
	assert.InDelta(t, 75.0, out.PassRate, 0.001)

	_, err = svc.Platform(ctx, as(instructor))
	assert.ErrorIs(t, err, utils.ErrAuthorization)
}
