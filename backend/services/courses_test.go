package services

import (
	"context"
	"testing"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseCreate(t *testing.T) {
	db := newTestDB(t)
	instructor := mkUser(t, db, models.RoleInstructor)
	admin := mkUser(t, db, models.RoleAdmin)
	student := mkUser(t, db, models.RoleStudent)
	svc := NewCourseService(db, utils.Discard())
	ctx := context.Background()

	course, err := svc.Create(ctx, as(instructor), CourseInput{Title: "  Go  ", Price: decimal.RequireFromString("19.99")})
	require.NoError(t, err)
	assert.Equal(t, "Go", course.Title)
	assert.Equal(t, models.CourseDraft, course.Status)
	assert.Equal(t, instructor.ID, course.InstructorID)

	_, err = svc.Create(ctx, as(student), CourseInput{Title: "x"})
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	_, err = svc.Create(ctx, as(admin), CourseInput{Title: "x"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = svc.Create(ctx, as(admin), CourseInput{Title: "x", InstructorID: student.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)

	byAdmin, err := svc.Create(ctx, as(admin), CourseInput{Title: "x", InstructorID: instructor.ID})
	require.NoError(t, err)
	assert.Equal(t, instructor.ID, byAdmin.InstructorID)

	for _, price := range []string{"-1", "1.999"} {
		_, err = svc.Create(ctx, as(instructor), CourseInput{Title: "x", Price: decimal.RequireFromString(price)})
		assert.ErrorIs(t, err, utils.ErrValidation, price)
	}
}

func TestCourseVisibility(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, models.RoleInstructor)
	other := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	draft := mkCourse(t, db, owner, models.CourseDraft, "0")
	approved := mkCourse(t, db, owner, models.CourseApproved, "0")
	mkSections(t, db, approved, "b", "a")
	svc := NewCourseService(db, utils.Discard())
	ctx := context.Background()

	_, err := svc.Get(ctx, as(student), draft.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.Get(ctx, utils.Principal{}, draft.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	got, err := svc.Get(ctx, utils.Principal{}, approved.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "b", got.Sections[0].Title)

	list, total, err := svc.List(ctx, as(student), CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, approved.ID, list[0].ID)

	_, total, err = svc.List(ctx, as(owner), CourseFilter{Scope: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = svc.List(ctx, as(other), CourseFilter{Scope: "all"})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, _, err = svc.List(ctx, as(student), CourseFilter{Scope: "all"})
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	title := "hijack"
	_, err = svc.Update(ctx, as(other), draft.ID, CourseUpdate{Title: &title})
	assert.ErrorIs(t, err, utils.ErrAuthorization)
}

func TestCourseSubmitAndModeration(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, models.RoleInstructor)
	admin := mkUser(t, db, models.RoleAdmin)
	mailer := &fakeMailer{}
	notifications := NewNotificationService(db, mailer, utils.Discard())
	courses := NewCourseService(db, utils.Discard())
	moderation := NewModerationService(db, notifications, utils.Discard())
	course := mkCourse(t, db, owner, models.CourseDraft, "10")
	ctx := context.Background()

	_, err := moderation.Approve(ctx, as(admin), course.ID, "")
	assert.ErrorIs(t, err, utils.ErrValidation)

	submitted, err := courses.Submit(ctx, as(owner), course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CoursePending, submitted.Status)

	_, err = courses.Submit(ctx, as(owner), course.ID)
	assert.ErrorIs(t, err, utils.ErrValidation)

	pending, err := moderation.ListPending(ctx, as(admin))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = moderation.ListPending(ctx, as(owner))
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	_, err = moderation.Reject(ctx, as(admin), course.ID, "   ")
	assert.ErrorIs(t, err, utils.ErrValidation)

	rejected, err := moderation.Reject(ctx, as(admin), course.ID, "Add a syllabus")
	require.NoError(t, err)
	assert.Equal(t, models.CourseRejected, rejected.Status)
	assert.Equal(t, "Add a syllabus", rejected.ReviewFeedback)

	_, err = courses.Submit(ctx, as(owner), course.ID)
	require.NoError(t, err)
	approved, err := moderation.Approve(ctx, as(admin), course.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.CourseApproved, approved.Status)
	assert.NotNil(t, approved.PublishedAt)

	reviews, err := moderation.Reviews(ctx, as(owner), course.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, models.CourseRejected, reviews[0].Action)
	assert.Equal(t, models.CourseApproved, reviews[1].Action)

	sent := mailer.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, owner.Email, sent[1].ToEmail)
	assert.Contains(t, sent[0].Text, "Add a syllabus")
}

func TestCourseDelete(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	svc := NewCourseService(db, utils.Discard())
	ctx := context.Background()

	course := mkCourse(t, db, owner, models.CourseDraft, "0")
	section := mkSections(t, db, course, "s")[0]
	mkLessons(t, db, section, "l1", "l2")
	mkQuiz(t, db, course, 70, 1, 1)
	assignment := models.Assignment{CourseID: course.ID, Title: "a", Points: 10, CreatedBy: owner.ID}
	require.NoError(t, db.Create(&assignment).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, StudentID: student.ID, ContentText: "x", SubmittedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&models.Announcement{CourseID: course.ID, AuthorID: owner.ID, Title: "t", Message: "m"}).Error)

	require.NoError(t, svc.Delete(ctx, as(owner), course.ID))
	for _, model := range []interface{}{
		&models.Course{}, &models.Section{}, &models.Lesson{}, &models.Quiz{}, &models.QuizQuestion{}, &models.QuizAnswer{},
		&models.Assignment{}, &models.Submission{}, &models.Announcement{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}

	enrolled := mkCourse(t, db, owner, models.CourseApproved, "0")
	mkEnrollment(t, db, student, enrolled, models.PaymentPaid)
	assert.ErrorIs(t, svc.Delete(ctx, as(owner), enrolled.ID), utils.ErrConflict)
}
