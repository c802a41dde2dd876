package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims extends JWT standard claims with the examiner identity.
type Claims struct {
	jwt.RegisteredClaims
	ExaminerID uuid.UUID `json:"examiner_id"`
	Email      string    `json:"email"`
}

// AuthService handles examiner authentication. Candidates never log in;
// their access token is issued out of band and validated per request.
type AuthService struct {
	examinerRepo *repository.ExaminerRepository
	cfg          *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(examinerRepo *repository.ExaminerRepository, cfg *config.Config) *AuthService {
	return &AuthService{examinerRepo: examinerRepo, cfg: cfg}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// Login verifies credentials and returns a signed examiner JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Examiner, error) {
	examiner, err := s.examinerRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(examiner.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   examiner.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		ExaminerID: examiner.ID,
		Email:      examiner.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, examiner, nil
}

// ParseToken validates a signed examiner JWT and returns its claims.
func (s *AuthService) ParseToken(signed string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
