package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return m.err
}

func (m *fakeMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

func TestNotifyPersistsAndEmails(t *testing.T) {
	db := newTestDB(t)
	user := mkUser(t, db, models.RoleStudent)
	mailer := &fakeMailer{}
	svc := NewNotificationService(db, mailer, utils.Discard())
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, user.ID, models.NotifyPaymentReceived, "Paid", "Thanks", map[string]interface{}{"course_id": 7}))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.Email, sent[0].ToEmail)
	assert.Equal(t, "Paid", sent[0].Subject)

	items, err := svc.List(ctx, as(user), false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"course_id":7}`, string(items[0].Data))
	assert.Nil(t, items[0].ReadAt)
}

func TestNotifyIgnoresMailFailures(t *testing.T) {
	db := newTestDB(t)
	user := mkUser(t, db, models.RoleStudent)
	svc := NewNotificationService(db, &fakeMailer{err: errors.New("smtp down")}, utils.Discard())

	require.NoError(t, svc.Notify(context.Background(), user.ID, models.NotifyPaymentReminder, "Reminder", "Pay", nil))

	var count int64
	db.Model(&models.Notification{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestNotificationsMarkRead(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, models.RoleStudent)
	other := mkUser(t, db, models.RoleStudent)
	svc := NewNotificationService(db, &fakeMailer{}, utils.Discard())
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, owner.ID, models.NotifyPaymentReminder, "one", "", nil))
	require.NoError(t, svc.Notify(ctx, owner.ID, models.NotifyPaymentReminder, "two", "", nil))

	items, err := svc.List(ctx, as(owner), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "two", items[0].Title)

	_, err = svc.MarkRead(ctx, as(other), items[0].ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	read, err := svc.MarkRead(ctx, as(owner), items[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, read.ReadAt)

	unread, err := svc.List(ctx, as(owner), true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "one", unread[0].Title)
}
