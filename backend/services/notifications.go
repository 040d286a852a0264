package services

import (
	"context"
	"errors"
	"log"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB     *gorm.DB
	Mailer Mailer
	Logger *log.Logger
}

func NewNotificationService(db *gorm.DB, mailer Mailer, logger *log.Logger) *NotificationService {
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	return &NotificationService{DB: db, Mailer: mailer, Logger: utils.Tagged(logger, "NOTIFY")}
}

// Notify stores an in-app notification and emails the user. Email failures are
// logged and never returned.
func (s *NotificationService) Notify(ctx context.Context, userID uint, kind, title, body string, data map[string]interface{}) error {
	n := models.Notification{UserID: userID, Type: kind, Title: title, Body: body}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		n.Data = datatypes.JSON(raw)
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Select("id", "email", "first_name", "last_name").First(&user, userID).Error; err != nil {
		s.Logger.Printf("notification %d: recipient %d not loaded: %v", n.ID, userID, err)
		return nil
	}
	if err := s.Mailer.Send(ctx, Email{ToName: user.FullName(), ToEmail: user.Email, Subject: title, Text: body}); err != nil {
		s.Logger.Printf("notification %d: email failed: %v", n.ID, err)
	}
	return nil
}

// notifyQuietly is for producers whose main operation already committed.
func (s *NotificationService) notifyQuietly(ctx context.Context, userID uint, kind, title, body string, data map[string]interface{}) {
	if s == nil {
		return
	}
	if err := s.Notify(ctx, userID, kind, title, body, data); err != nil {
		s.Logger.Printf("notify user %d (%s): %v", userID, kind, err)
	}
}

func (s *NotificationService) List(ctx context.Context, p utils.Principal, unreadOnly bool) ([]models.Notification, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", p.UserID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []models.Notification
	err := q.Order("created_at DESC, id DESC").Limit(100).Find(&out).Error
	return out, err
}

func (s *NotificationService) MarkRead(ctx context.Context, p utils.Principal, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Notification")
		}
		return nil, err
	}
	if n.UserID != p.UserID {
		return nil, utils.NewNotFoundError("Notification")
	}
	if n.ReadAt == nil {
		now := time.Now().UTC()
		if err := s.DB.WithContext(ctx).Model(&n).Update("read_at", now).Error; err != nil {
			return nil, err
		}
		n.ReadAt = &now
	}
	return &n, nil
}
