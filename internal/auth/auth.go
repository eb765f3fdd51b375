// Package auth issues and checks the JWT session tokens riders and drivers
// present as "Authorization: Bearer <token>".
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/repository"
)

const minPasswordLength = 6

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   domain.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	cost   int
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(users repository.UserRepository, cfg config.AuthConfig, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL(),
		cost:   bcrypt.DefaultCost,
		clock:  clk,
		logger: logger,
	}
}

type RegisterInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role"`
}

// Register creates an account and returns it with a fresh token. Role
// defaults to RIDER.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	if in.Role == "" {
		in.Role = domain.RoleRider
	}
	if in.Role != domain.RoleRider && in.Role != domain.RoleDriver {
		return nil, "", fmt.Errorf("role must be RIDER or DRIVER: %w", domain.ErrValidation)
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case !strings.Contains(email, "@"):
		return nil, "", fmt.Errorf("a valid email is required: %w", domain.ErrValidation)
	case len(in.Password) < minPasswordLength:
		return nil, "", fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrValidation)
	case strings.TrimSpace(in.Name) == "":
		return nil, "", fmt.Errorf("name is required: %w", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, "", fmt.Errorf("email %s is already registered: %w", email, domain.ErrConflict)
		}
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) IssueToken(user *domain.User) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) ParseToken(raw string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return Principal{}, fmt.Errorf("%v: %w", err, domain.ErrUnauthorized)
	}
	return Principal{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}

type demoUser struct {
	email, name, phone string
	role               domain.Role
}

var demoUsers = []demoUser{
	{"rider@demo.com", "Demo Rider", "08012345678", domain.RoleRider},
	{"john@test.com", "John Doe", "08023456789", domain.RoleRider},
	{"sarah@test.com", "Sarah Williams", "08034567890", domain.RoleRider},
	{"driver@demo.com", "Demo Driver", "08087654321", domain.RoleDriver},
	{"mike@driver.com", "Mike Johnson", "08076543210", domain.RoleDriver},
	{"ada@driver.com", "Ada Okafor", "08065432109", domain.RoleDriver},
	{"ops@demo.com", "Demo Operator", "08000000000", domain.RoleOperator},
}

// DemoPassword is shared by every seeded demo account.
const DemoPassword = "demo123"

// SeedDemoUsers creates the demo accounts that do not exist yet.
func (s *Service) SeedDemoUsers(ctx context.Context) error {
	for _, d := range demoUsers {
		_, _, err := s.create(ctx, RegisterInput{
			Email: d.email, Password: DemoPassword, Name: d.name, Phone: d.phone, Role: d.role,
		})
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("seed %s: %w", d.email, err)
		}
	}
	return nil
}
