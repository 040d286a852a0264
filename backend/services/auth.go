package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"apollo/backend/config"
	"apollo/backend/models"
	"apollo/backend/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{DB: db, Cfg: cfg}
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,oneof=student instructor"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=1024"`
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}

	db := s.DB.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewConflictError("Email is already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewConflictError("Email is already registered")
		}
		return nil, err
	}
	return s.issue(&user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", in.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewUnauthenticatedError("Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, utils.NewUnauthenticatedError("Invalid credentials")
	}

	now := time.Now().UTC()
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return s.issue(&user)
}

func (s *AuthService) Me(ctx context.Context, p utils.Principal) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, p.UserID).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, p utils.Principal, in ProfileUpdate) (*models.User, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	err = s.DB.WithContext(ctx).Model(user).Select("first_name", "last_name", "bio", "avatar_url").Updates(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateJWTToken(user.ID, user.Role, s.Cfg)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}
