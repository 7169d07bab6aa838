package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Only Gmail addresses may register.
var emailPattern = regexp.MustCompile(`^[a-z0-9._%+-]+@gmail\.com$`)

const maxPasswordBytes = 72 // bcrypt input limit

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db   *sql.DB
	cost int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db, cost: bcrypt.DefaultCost}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is an accepted address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(NormalizeEmail(email))
}

// Register creates a new user and their empty profile in one transaction.
func (s *UserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return models.User{}, invalid("All fields are required")
	}
	if !emailPattern.MatchString(email) {
		return models.User{}, invalid("Only valid @gmail.com addresses are allowed.")
	}
	if len(password) > maxPasswordBytes {
		return models.User{}, invalid("Password is too long.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Name: name, Email: email}
	err = database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)", name, email, string(hashedPassword))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if user.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO profiles (user_id) VALUES (?)", user.ID); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Authenticate verifies a user's credentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.getUserWithHash(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE id = ?", id)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, without the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := s.getUserWithHash(ctx, NormalizeEmail(email))
	user.PasswordHash = ""
	return user, err
}

func (s *UserService) getUserWithHash(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?", email)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
