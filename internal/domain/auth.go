package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ConsoleClaims — полезная нагрузка RS256-токена админки политик
type ConsoleClaims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Grants map[string]bool `json:"grants"` // "policy.publish": true, "audit.read": true
	jwt.RegisteredClaims
}

// Secure Token Issuing
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

// ConsoleUser — оператор админки. Не имеет отношения к бизнес-пользователям,
// чьи скоупы вычисляет движок: это отдельная таблица console_users.
type ConsoleUser struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"` // Никогда не отправляем на фронт
	Grants       map[string]bool `json:"grants"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
