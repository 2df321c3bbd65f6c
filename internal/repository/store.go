package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cropplanner/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrDuplicateEmail is returned when registering an email that already exists
var ErrDuplicateEmail = errors.New("email already registered")

func init() {
	// modernc registers as "sqlite", which sqlx does not know
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store handles account and recommendation-log persistence
type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore connects to the database and ensures the schema exists
func NewStore(driver, dsn string, maxConn, maxIdleConn int) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// one long-lived connection: a single writer avoids SQLITE_BUSY and
		// an in-memory database lives exactly as long as its connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(maxConn)
		db.SetMaxIdleConns(maxIdleConn)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(2 * time.Minute)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		token TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_logs (
		id TEXT PRIMARY KEY,
		user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		features TEXT NOT NULL,
		top_crops TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendation_logs_user ON recommendation_logs (user_id, created_at)`,
}

var postgresSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		token TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_logs (
		id UUID PRIMARY KEY,
		user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		features vector(6) NOT NULL,
		top_crops JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendation_logs_user ON recommendation_logs (user_id, created_at)`,
}

// CreateUser inserts a user and returns it with its new ID
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash, token string) (*model.User, error) {
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Token:        &token,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	query := s.db.Rebind(`INSERT INTO users (name, email, password, token, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, query, user.Name, user.Email, user.PasswordHash, token, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns the user with email, or nil if there is none
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, name, email, password, token, created_at FROM users WHERE email = ?`, email)
}

// GetUserByID returns the user with id, or nil if there is none
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, name, email, password, token, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// LogRecommendation stores a recommendation and its input vector
func (s *Store) LogRecommendation(ctx context.Context, entry *model.RecommendationLog) error {
	query := s.db.Rebind(`INSERT INTO recommendation_logs (id, user_id, features, top_crops, created_at) VALUES (?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.Features, entry.TopCrops, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log recommendation: %w", err)
	}
	return nil
}

// ListRecommendations returns a user's most recent recommendations, newest first
func (s *Store) ListRecommendations(ctx context.Context, userID int64, limit int) ([]model.RecommendationLog, error) {
	query := `SELECT id, user_id, features, top_crops, created_at FROM recommendation_logs
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	logs := []model.RecommendationLog{}
	if err := s.db.SelectContext(ctx, &logs, s.db.Rebind(query), userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return logs, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
