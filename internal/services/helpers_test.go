package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "tutoriq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestUserService(db *sql.DB) *UserService {
	s := NewUserService(db)
	s.cost = bcrypt.MinCost
	return s
}

func registerUser(t *testing.T, db *sql.DB, name, email string) models.User {
	t.Helper()
	user, err := newTestUserService(db).Register(context.Background(), name, email, "password123")
	require.NoError(t, err)
	return user
}

func setAPIKey(t *testing.T, db *sql.DB, userID int64, key string) {
	t.Helper()
	err := NewProfileService(db).UpdateProfile(context.Background(), userID, models.ProfileUpdate{
		Institution: "Pune University",
		Term:        "3",
		Course:      "BCA",
		APIKey:      key,
	})
	require.NoError(t, err)
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

// fakeGenerator records prompts and answers with a fixed reply or error.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	keys    []string
}

func (g *fakeGenerator) Generate(_ context.Context, apiKey, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.keys = append(g.keys, apiKey)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
