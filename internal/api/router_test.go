package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutoriq/tutoriq-be/internal/auth"
	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"github.com/tutoriq/tutoriq-be/internal/prompt"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

type stubGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (g *stubGenerator) Generate(context.Context, string, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reply, g.err
}

func (g *stubGenerator) set(reply string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reply, g.err = reply, err
}

type testApp struct {
	handler http.Handler
	gen     *stubGenerator
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(filepath.Join(dir, "tutoriq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	static := filepath.Join(dir, "client")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>tutoriq</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log('tutoriq')"), 0o644))

	gen := &stubGenerator{reply: "Here is your answer."}
	profiles := services.NewProfileService(db)
	conversations := services.NewConversationService(db)

	router := NewRouter(Dependencies{
		Users:         services.NewUserService(db),
		Profiles:      profiles,
		Conversations: conversations,
		Chat:          services.NewChatService(profiles, conversations, prompt.NewComposer(), gen),
		DB:            db,
		Issuer:        auth.NewIssuer("router-test-secret", time.Hour, false),
	}, Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		StaticDir:      static,
	})
	return &testApp{handler: router, gen: gen}
}

func (a *testApp) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers and logs in a user and returns the session cookie.
func (a *testApp) signup(t *testing.T, name, email string) *http.Cookie {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": name, "email": email, "password": "password123"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (a *testApp) saveKey(t *testing.T, cookie *http.Cookie) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/profile/update", map[string]string{
		"university":     "Pune University",
		"semester":       "3",
		"course":         "BCA",
		"gemini_api_key": "AIzaSyRouterKey9876",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	register := map[string]string{"name": "Asha", "email": "asha@gmail.com", "password": "password123"}

	rec := app.do(t, http.MethodPost, "/api/auth/register", register, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User registered successfully", decode[map[string]string](t, rec)["message"])

	rec = app.do(t, http.MethodPost, "/api/auth/register", register, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This email is already registered.", decode[map[string]string](t, rec)["error"])

	rec = app.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": "X", "email": "x@yahoo.com", "password": "pw"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only valid @gmail.com addresses are allowed.", decode[map[string]string](t, rec)["error"])

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "asha@outlook.com", "password": "password123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please use your @gmail.com account.", decode[map[string]string](t, rec)["error"])

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "asha@gmail.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[map[string]string](t, rec)["error"])

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "asha@gmail.com", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Message string             `json:"message"`
		User    models.UserSummary `json:"user"`
	}](t, rec)
	assert.Equal(t, "Login successful", body.Message)
	assert.Equal(t, "Asha", body.User.Name)
	assert.Equal(t, "asha@gmail.com", body.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = app.do(t, http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/profile"},
		{http.MethodPost, "/api/profile/update"},
		{http.MethodPost, "/api/ai/chat"},
		{http.MethodGet, "/api/history"},
		{http.MethodGet, "/api/history/1"},
		{http.MethodDelete, "/api/history/1"},
		{http.MethodDelete, "/api/history/all/clear"},
	} {
		rec := app.do(t, route.method, route.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "Access denied. Please login.", decode[map[string]string](t, rec)["error"])
	}

	rec := app.do(t, http.MethodGet, "/api/profile", nil, &http.Cookie{Name: auth.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token. Please login again.", decode[map[string]string](t, rec)["error"])
}

func TestProfileMasksKey(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signup(t, "Asha", "asha@gmail.com")

	rec := app.do(t, http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[models.Profile](t, rec)
	assert.Equal(t, "Asha", empty.Name)
	assert.False(t, empty.HasAPIKey)
	assert.Empty(t, empty.APIKey)

	app.saveKey(t, cookie)

	rec = app.do(t, http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.Profile](t, rec)
	assert.Equal(t, "Pune University", profile.Institution)
	assert.True(t, profile.HasAPIKey)
	assert.Equal(t, models.MaskSecret("AIzaSyRouterKey9876"), profile.APIKey)
	assert.NotContains(t, rec.Body.String(), "AIzaSyRouterKey9876")

	// Sending the masked value back keeps the stored key working.
	rec = app.do(t, http.MethodPost, "/api/profile/update", map[string]string{"university": "MIT", "gemini_api_key": profile.APIKey}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"toolType": "learnerBuddy", "message": "hi"}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/profile/update", map[string]string{"semester": strings.Repeat("s", 51)}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Semester info is too long.", decode[map[string]string](t, rec)["error"])
}

func TestChatAndHistory(t *testing.T) {
	app := newTestApp(t)
	asha := app.signup(t, "Asha", "asha@gmail.com")
	ravi := app.signup(t, "Ravi", "ravi@gmail.com")
	app.saveKey(t, asha)
	app.saveKey(t, ravi)

	rec := app.do(t, http.MethodPost, "/api/ai/chat", map[string]any{
		"toolType": "exerciseMaker",
		"message":  "Make a paper",
		"toolData": map[string]any{"subject": "DBMS", "shortQty": 2, "medQty": "1", "longQty": nil},
	}, asha)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	chat := decode[services.ChatResult](t, rec)
	assert.Equal(t, "Here is your answer.", chat.Response)
	require.Positive(t, chat.ConversationID)
	historyPath := "/api/history/" + strconv.FormatInt(chat.ConversationID, 10)

	rec = app.do(t, http.MethodGet, "/api/history", nil, asha)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Conversation](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "exerciseMaker", list[0].ToolName)

	rec = app.do(t, http.MethodGet, historyPath, nil, asha)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode[[]models.Message](t, rec)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)

	// Another user sees nothing and cannot write into or delete the conversation.
	rec = app.do(t, http.MethodGet, historyPath, nil, ravi)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Message](t, rec))

	rec = app.do(t, http.MethodPost, "/api/ai/chat", map[string]any{
		"toolType": "exerciseMaker", "message": "hijack", "conversationId": chat.ConversationID,
	}, ravi)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, historyPath, nil, ravi)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, historyPath, nil, asha)
	assert.Len(t, decode[[]models.Message](t, rec), 2)

	rec = app.do(t, http.MethodGet, "/api/history/abc", nil, asha)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodDelete, "/api/history/all/clear", nil, asha)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := decode[map[string]any](t, rec)
	assert.Equal(t, "All history cleared successfully", cleared["message"])
	assert.EqualValues(t, 1, cleared["conversationsDeleted"])

	rec = app.do(t, http.MethodGet, "/api/history", nil, asha)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestChatErrors(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signup(t, "Asha", "asha@gmail.com")

	rec := app.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"toolType": "answerMaker", "message": "hi"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	app.saveKey(t, cookie)

	rec = app.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"toolType": "poetMaker", "message": "hi"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid tool type", decode[map[string]string](t, rec)["error"])

	app.gen.set("", errors.New("googleapi: Error 429: You exceeded your current quota"))
	rec = app.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"toolType": "answerMaker", "message": "hi"}, cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "API Quota Error")
	assert.Contains(t, body["details"], "quota")
}

func TestStaticAndHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = app.do(t, http.MethodGet, "/app.js", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")

	rec = app.do(t, http.MethodGet, "/dashboard/history", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tutoriq</html>")

	rec = app.do(t, http.MethodGet, "/api/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[map[string]string](t, rec)["error"])
}
