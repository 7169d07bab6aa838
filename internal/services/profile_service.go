package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tutoriq/tutoriq-be/internal/models"
)

// Length caps for the free-text profile fields, in characters.
const (
	maxInstitutionLength = 100
	maxTermLength        = 50
	maxCourseLength      = 100
)

// ProfileServiceProvider defines the interface for profile services.
type ProfileServiceProvider interface {
	GetProfile(ctx context.Context, userID int64) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) error
}

// ProfileService provides business logic for study profiles.
type ProfileService struct {
	db *sql.DB
}

// NewProfileService creates a new ProfileService.
func NewProfileService(db *sql.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile returns the profile joined with the owner's name and email. The
// API key is returned unmasked; callers facing the client must mask it.
func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (models.Profile, error) {
	var p models.Profile
	var institution, term, course, apiKey sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT p.user_id, p.university, p.semester, p.course, p.gemini_api_key, u.name, u.email
		FROM profiles p
		JOIN users u ON p.user_id = u.id
		WHERE p.user_id = ?`, userID)
	err := row.Scan(&p.UserID, &institution, &term, &course, &apiKey, &p.Name, &p.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	p.Institution = institution.String
	p.Term = term.String
	p.Course = course.String
	p.APIKey = apiKey.String
	p.HasAPIKey = p.APIKey != ""
	return p, nil
}

// UpdateProfile updates the academic context. The stored API key is replaced
// only when a non-empty, unmasked key is supplied.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) error {
	institution := strings.TrimSpace(update.Institution)
	term := strings.TrimSpace(update.Term)
	course := strings.TrimSpace(update.Course)

	if utf8.RuneCountInString(institution) > maxInstitutionLength {
		return invalid("University name is too long.")
	}
	if utf8.RuneCountInString(term) > maxTermLength {
		return invalid("Semester info is too long.")
	}
	if utf8.RuneCountInString(course) > maxCourseLength {
		return invalid("Course name is too long.")
	}

	var (
		res sql.Result
		err error
	)
	key := strings.TrimSpace(update.APIKey)
	if key != "" && !models.IsMaskedSecret(key) {
		res, err = s.db.ExecContext(ctx,
			"UPDATE profiles SET university = ?, semester = ?, course = ?, gemini_api_key = ? WHERE user_id = ?",
			institution, term, course, key, userID)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE profiles SET university = ?, semester = ?, course = ? WHERE user_id = ?",
			institution, term, course, userID)
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// FirstProfileWithKey returns the lowest-id profile that has an API key stored.
func (s *ProfileService) FirstProfileWithKey(ctx context.Context) (models.Profile, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM profiles
		WHERE gemini_api_key IS NOT NULL AND gemini_api_key != ''
		ORDER BY user_id LIMIT 1`).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return s.GetProfile(ctx, userID)
}
