package utils

import (
	"strings"
	"time"

	"apollo/backend/config"
	"apollo/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool      { return p.Role == models.RoleAdmin }
func (p Principal) IsInstructor() bool { return p.Role == models.RoleInstructor }
func (p Principal) IsStudent() bool    { return p.Role == models.RoleStudent }

func GenerateJWTToken(userID uint, role string, cfg *config.Config) (string, error) {
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = time.Hour * 72
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseJWTToken validates an HS256 token and returns its principal.
func ParseJWTToken(tokenString string, cfg *config.Config) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}
	role, _ := claims["role"].(string)
	switch role {
	case models.RoleStudent, models.RoleInstructor, models.RoleAdmin:
	default:
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid role in token")
	}

	return Principal{UserID: uint(userIDFloat), Role: role}, nil
}

// ExtractPrincipalFromToken reads "Authorization: Bearer <token>"; a bare token is accepted too.
func ExtractPrincipalFromToken(c *fiber.Ctx, cfg *config.Config) (Principal, error) {
	tokenString := strings.TrimSpace(c.Get("Authorization"))
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	if tokenString == "" {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}
	return ParseJWTToken(tokenString, cfg)
}
