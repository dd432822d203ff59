package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	errx "github.com/neurosync-os/server/internal/core/error"
	"github.com/neurosync-os/server/internal/storage"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// Config is the JWT signing configuration.
type Config struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL string `envconfig:"JWT_TOKEN_TTL" default:"72h"`
}

var ErrEmailTaken = errors.New("email already registered")

type Service struct {
	users    storage.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewService(users storage.UserRepository, cfg Config) (*Service, error) {
	ttl, err := time.ParseDuration(cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:    users,
		secret:   []byte(cfg.Secret),
		tokenTTL: ttl,
	}, nil
}

// Signup creates an account with a bcrypt-hashed password.
func (s *Service) Signup(ctx context.Context, email, password string) (*storage.User, error) {
	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, errx.New(ErrEmailTaken, http.StatusConflict, ErrEmailTaken.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &storage.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errx.New(err, http.StatusBadGateway, errx.DatabaseErrorMessage)
	}

	logx.Info().Str("email", email).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues a signed session token. The token is
// reusable for the configured TTL, so a browser reload keeps its session.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", errx.New(err, http.StatusUnauthorized, errx.InvalidCredentialsMessage)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errx.New(err, http.StatusUnauthorized, errx.InvalidCredentialsMessage)
	}

	return s.issueToken(user.ID)
}

func (s *Service) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates a session token and returns the user ID it carries.
func (s *Service) ParseToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing user_id claim")
	}
	return uuid.Parse(raw)
}
