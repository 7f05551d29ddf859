package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

// ErrInvalidCredentials is returned on login with an unknown email or a
// wrong password; callers must not learn which.
var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	Email       string
	Password    string
	CompanyName string
	Role        string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domainagg.UserSnapshot
}

// Claims is the JWT payload. Subject carries the user ID.
type Claims struct {
	Role        string `json:"role"`
	CompanyName string `json:"companyName"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (domainagg.UserSnapshot, error)
	Login(ctx context.Context, email, password string) (LoginResult, error)
	ParseToken(token string) (*Claims, error)
}

type authService struct {
	users     repos.UserRepo
	aggregate domainagg.UserAggregate
	secret    []byte
	tokenTTL  time.Duration
	log       *logger.Logger
}

func NewAuthService(users repos.UserRepo, aggregate domainagg.UserAggregate, secret string, tokenTTL time.Duration, baseLog *logger.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		users:     users,
		aggregate: aggregate,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		log:       baseLog.With("service", "AuthService"),
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (domainagg.UserSnapshot, error) {
	var out domainagg.UserSnapshot

	email, err := domain.NewEmail(in.Email)
	if err != nil {
		return out, err
	}
	password, err := domain.NewPassword(in.Password)
	if err != nil {
		return out, err
	}
	role, err := domain.ParseUserRole(in.Role)
	if err != nil {
		return out, err
	}
	if role == domain.RoleAdmin {
		return out, domain.NewValidationError("admin accounts cannot self-register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password.String()), bcrypt.DefaultCost)
	if err != nil {
		return out, fmt.Errorf("hash password: %w", err)
	}

	out, err = s.aggregate.Register(ctx, domainagg.RegisterUserInput{
		Email:        email,
		PasswordHash: string(hash),
		CompanyName:  in.CompanyName,
		Role:         role,
	})
	if err != nil {
		return domainagg.UserSnapshot{}, err
	}
	s.log.Info("user registered", "user_id", out.ID, "role", out.Role)
	return out, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	normalized, err := domain.NewEmail(email)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, normalized.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:        string(user.Role),
		CompanyName: user.CompanyName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}

	return LoginResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		User: domainagg.UserSnapshot{
			ID:          user.ID,
			Email:       user.Email.String(),
			CompanyName: user.CompanyName,
			Role:        string(user.Role),
		},
	}, nil
}

func (s *authService) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, errors.New("invalid token subject")
	}
	return claims, nil
}
