package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminRole   = "admin"
	tokenIssuer = "storefront"
)

// AdminClaims are the claims of an admin access token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService authenticates the single store admin.
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, *ServiceError)
	ParseToken(token string) (*AdminClaims, error)
}

type authService struct {
	passwordHash []byte
	password     []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewAuthService prefers passwordHash (bcrypt) and falls back to the plain
// password, compared in constant time.
func NewAuthService(passwordHash, password, jwtSecret string, ttl time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		passwordHash: []byte(passwordHash),
		password:     []byte(password),
		secret:       []byte(jwtSecret),
		ttl:          ttl,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, *ServiceError) {
	if msgs := ValidateLogin(req); len(msgs) > 0 {
		return nil, validationError(msgs...)
	}
	log := logger.For(ctx, s.logger)

	if !s.checkPassword(req.Password) {
		log.Warn("Admin login failed")
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid password", Kind: KindUnauthorized}
	}

	token, expiresAt, err := s.issueToken()
	if err != nil {
		log.Error("Failed to sign admin token", zap.Error(err))
		return nil, internalError("Failed to create session")
	}

	log.Info("Admin logged in")
	return &models.LoginResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: &expiresAt,
	}, nil
}

func (s *authService) checkPassword(candidate string) bool {
	if len(s.passwordHash) > 0 {
		return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(candidate)) == nil
	}
	if len(s.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.password, []byte(candidate)) == 1
}

func (s *authService) issueToken() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   adminRole,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed, expiresAt, err
}

// ParseToken validates signature, expiry and role.
func (s *authService) ParseToken(tokenStr string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	if claims.Role != adminRole {
		return nil, fmt.Errorf("invalid token role")
	}
	return claims, nil
}
