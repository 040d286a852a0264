package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateIssuedOnCourseCompletion(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	certs := NewCertificateService(db, NewNotificationService(db, mailer, utils.Discard()), utils.Discard())
	progress := NewProgressService(db, certs)
	ctx := context.Background()

	instructor := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	course := mkCourse(t, db, instructor, models.CourseApproved, "10.00")
	lessons := mkLessons(t, db, mkSections(t, db, course, "Only")[0], "One", "Two")
	mkEnrollment(t, db, student, course, models.PaymentPaid)

	_, err := progress.UpdateLesson(ctx, as(student), lessons[0].ID, ProgressInput{Status: models.ProgressCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 0, countRows(t, db, &models.Certificate{}))

	_, err = progress.UpdateLesson(ctx, as(student), lessons[1].ID, ProgressInput{Status: models.ProgressCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countRows(t, db, &models.Certificate{}))

	// Re-completing a lesson does not issue a second one.
	_, err = progress.UpdateLesson(ctx, as(student), lessons[1].ID, ProgressInput{Status: models.ProgressCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countRows(t, db, &models.Certificate{}))

	list, err := certs.ListByStudent(ctx, as(student), student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0].Number, "APOLLO-"))
	require.NotNil(t, list[0].Course)
	assert.Equal(t, course.Title, list[0].Course.Title)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, course.Title)
	assert.Contains(t, sent[0].Text, list[0].Number)
}

func TestCertificateGenerateAndAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewCertificateService(db, NewNotificationService(db, &fakeMailer{}, utils.Discard()), utils.Discard())
	issued := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return issued }
	ctx := context.Background()

	admin := mkUser(t, db, models.RoleAdmin)
	owner := mkUser(t, db, models.RoleInstructor)
	other := mkUser(t, db, models.RoleInstructor)
	student := mkUser(t, db, models.RoleStudent)
	stranger := mkUser(t, db, models.RoleStudent)
	course := mkCourse(t, db, owner, models.CourseApproved, "10.00")
	mkEnrollment(t, db, student, course, models.PaymentPaid)

	finished := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	cert, err := svc.Generate(ctx, as(owner), CertificateInput{StudentID: student.ID, CourseID: course.ID, CompletedAt: &finished})
	require.NoError(t, err)
	assert.True(t, finished.Equal(cert.CompletedAt))
	assert.True(t, issued.Equal(cert.IssuedAt))
	require.NotNil(t, cert.Student)
	assert.Equal(t, student.Email, cert.Student.Email)

	tests := []struct {
		name string
		in   CertificateInput
		by   models.User
		want error
	}{
		{"duplicate", CertificateInput{StudentID: student.ID, CourseID: course.ID}, admin, utils.ErrConflict},
		{"not enrolled", CertificateInput{StudentID: stranger.ID, CourseID: course.ID}, owner, utils.ErrValidation},
		{"foreign course", CertificateInput{StudentID: stranger.ID, CourseID: course.ID}, other, utils.ErrAuthorization},
		{"student", CertificateInput{StudentID: student.ID, CourseID: course.ID}, student, utils.ErrAuthorization},
		{"missing course", CertificateInput{StudentID: student.ID}, admin, utils.ErrValidation},
		{"unknown course", CertificateInput{StudentID: student.ID, CourseID: 9999}, admin, utils.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(ctx, as(tt.by), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	for _, u := range []models.User{student, owner, admin} {
		_, err := svc.Get(ctx, as(u), cert.ID)
		assert.NoError(t, err, u.Role)
	}
	_, err = svc.Get(ctx, as(stranger), cert.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
	_, err = svc.Get(ctx, as(other), cert.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	_, err = svc.ListByStudent(ctx, as(stranger), student.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
	list, err := svc.ListByStudent(ctx, as(admin), student.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	v, err := svc.Verify(ctx, " "+strings.ToLower(cert.Number)+" ")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, student.FullName(), v.StudentName)
	assert.Equal(t, course.Title, v.CourseTitle)
	_, err = svc.Verify(ctx, "APOLLO-NOPE")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.Verify(ctx, "")
	assert.ErrorIs(t, err, utils.ErrValidation)

	assert.ErrorIs(t, svc.Delete(ctx, as(owner), cert.ID), utils.ErrAuthorization)
	require.NoError(t, svc.Delete(ctx, as(admin), cert.ID))
	assert.ErrorIs(t, svc.Delete(ctx, as(admin), cert.ID), utils.ErrNotFound)
}
