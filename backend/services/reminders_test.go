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

func TestReminderRun(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	svc := NewReminderService(db, NewNotificationService(db, mailer, utils.Discard()), utils.Discard())
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	instructor := mkUser(t, db, models.RoleInstructor)
	course := mkCourse(t, db, instructor, models.CourseApproved, "25.00")
	pending := mkUser(t, db, models.RoleStudent)
	partial := mkUser(t, db, models.RoleStudent)
	paid := mkUser(t, db, models.RoleStudent)
	fresh := mkUser(t, db, models.RoleStudent)

	old := now.Add(-48 * time.Hour)
	for _, e := range []struct {
		student models.User
		status  string
		at      time.Time
	}{
		{pending, models.PaymentPending, old},
		{partial, models.PaymentPartial, old},
		{paid, models.PaymentPaid, old},
		{fresh, models.PaymentPending, now.Add(-time.Hour)},
	} {
		enrollment := mkEnrollment(t, db, e.student, course, e.status)
		require.NoError(t, db.Model(&enrollment).Update("enrolled_at", e.at).Error)
	}

	n, err := svc.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	recipients := map[string]bool{}
	for _, e := range mailer.Sent() {
		recipients[e.ToEmail] = true
		assert.Contains(t, e.Subject, course.Title)
	}
	assert.Equal(t, map[string]bool{pending.Email: true, partial.Email: true}, recipients)

	n, err = svc.Run(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "reminded within the grace period")

	n, err = svc.Run(ctx, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n, "fresh enrollment is now due as well")

	var notes int64
	require.NoError(t, db.Model(&models.Notification{}).Where("type = ?", models.NotifyPaymentReminder).Count(&notes).Error)
	assert.EqualValues(t, 5, notes)
}

func TestReminderRunToleratesEarlierDailyRun(t *testing.T) {
	db := newTestDB(t)
	svc := NewReminderService(db, NewNotificationService(db, &fakeMailer{}, utils.Discard()), utils.Discard())
	ctx := context.Background()
	first := time.Date(2026, 5, 10, 9, 0, 0, 5*int(time.Millisecond), time.UTC)

	instructor := mkUser(t, db, models.RoleInstructor)
	course := mkCourse(t, db, instructor, models.CourseApproved, "25.00")
	enrollment := mkEnrollment(t, db, mkUser(t, db, models.RoleStudent), course, models.PaymentPending)
	require.NoError(t, db.Model(&enrollment).Update("enrolled_at", first.Add(-72*time.Hour)).Error)

	n, err := svc.Run(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Next day's tick fires a few milliseconds earlier within the second.
	n, err = svc.Run(ctx, time.Date(2026, 5, 11, 9, 0, 0, 1*int(time.Millisecond), time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Run(ctx, time.Date(2026, 5, 11, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n, "reminded earlier the same day")
}

func TestReminderStartRejectsBadSchedule(t *testing.T) {
	svc := NewReminderService(newTestDB(t), nil, utils.Discard())
	_, err := svc.Start("every tuesday")
	assert.Error(t, err)

	c, err := svc.Start("@every 1h")
	require.NoError(t, err)
	<-c.Stop().Done()
}
