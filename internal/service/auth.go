package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cropplanner/internal/config"
	"cropplanner/internal/model"
	"cropplanner/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "cropplanner"

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// Account messages
const (
	MsgRegistered        = "Registration successful! Confirmation email sent. Please login."
	MsgRegisteredNoEmail = "Registration successful! But email could not be sent."
	WelcomeBackFormat    = "Welcome back, %s!"
)

// Account errors. Messages are shown to users as-is.
var (
	ErrInvalidEmail      = errors.New("Invalid email format")
	ErrMissingFields     = errors.New("Name, email and password are required")
	ErrEmailTaken        = errors.New("Email already registered")
	ErrUserNotFound      = errors.New("User not found")
	ErrIncorrectPassword = errors.New("Incorrect password")
	ErrPasswordTooLong   = errors.New("Password must be at most 72 bytes")
	ErrInvalidToken      = errors.New("invalid or expired token")
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// IsValidEmail performs the basic shape check used at registration
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash, token string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthService registers and logs in users
type AuthService struct {
	users  UserStore
	mailer Mailer
	secret []byte
	ttl    time.Duration
	cost   int
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, mailer Mailer, cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		mailer: mailer,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		cost:   cost,
		logger: logger,
	}
}

// Register creates an account and sends the confirmation email. A failed
// email does not undo the registration; it is reported in EmailSent.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.RegisterResponse, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, name, email, string(hash), uuid.NewString())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	sent, err := s.mailer.SendRegistration(ctx, user.Email, user.Name)
	if err != nil {
		s.logger.Warn("registration email failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	msg := MsgRegistered
	if !sent {
		msg = MsgRegisteredNoEmail
	}

	return &model.RegisterResponse{
		User:      user,
		EmailSent: sent,
		Message:   msg,
	}, nil
}

// Login checks the credentials and issues a bearer token
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrIncorrectPassword
	}

	token, expiresAt, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
		Message:   fmt.Sprintf(WelcomeBackFormat, user.Name),
	}, nil
}

// IssueToken signs an HS256 token for userID
func (s *AuthService) IssueToken(userID int64) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates a token and returns the user ID it was issued for
func (s *AuthService) ParseToken(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// User returns the account for id, or ErrUserNotFound
func (s *AuthService) User(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
