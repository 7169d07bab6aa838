package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"github.com/tutoriq/tutoriq-be/internal/services"
	"golang.org/x/crypto/bcrypt"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	diagnose, _, err := root.Find([]string{"diagnose"})
	require.NoError(t, err)
	assert.NotNil(t, diagnose.Flags().Lookup("email"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.RunE)
}

func TestRevealEdges(t *testing.T) {
	assert.Equal(t, "AIza...wxyz", revealEdges("AIzaSyABCDEFGwxyz"))
	assert.Equal(t, "••••", revealEdges("abcd"))
	assert.Equal(t, "", revealEdges(""))
}

func TestFindProfile(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(filepath.Join(t.TempDir(), "tutoriq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	users := services.NewUserService(db)
	profiles := services.NewProfileService(db)

	_, err = findProfile(ctx, users, profiles, "")
	assert.EqualError(t, err, "no profile has a Gemini API key stored")

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	res, err := db.ExecContext(ctx, "INSERT INTO users (name, email, password_hash) VALUES ('Asha', 'asha@gmail.com', ?)", string(hash))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO profiles (user_id) VALUES (?)", id)
	require.NoError(t, err)

	_, err = findProfile(ctx, users, profiles, "asha@gmail.com")
	assert.EqualError(t, err, "asha@gmail.com has no Gemini API key stored")

	_, err = findProfile(ctx, users, profiles, "nobody@gmail.com")
	assert.EqualError(t, err, "no account for nobody@gmail.com")

	require.NoError(t, profiles.UpdateProfile(ctx, id, models.ProfileUpdate{APIKey: "AIzaSyDiagnoseKey1"}))

	byEmail, err := findProfile(ctx, users, profiles, "ASHA@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyDiagnoseKey1", byEmail.APIKey)

	first, err := findProfile(ctx, users, profiles, "")
	require.NoError(t, err)
	assert.Equal(t, id, first.UserID)
}
