package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/unibot/internal/pkg/validation"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/internal/unibot/bot"
	"github.com/kart-io/unibot/internal/unibot/handler"
	"github.com/kart-io/unibot/internal/unibot/realtime"
	"github.com/kart-io/unibot/internal/unibot/router"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/internal/unibot/upload"
	"github.com/kart-io/unibot/pkg/auth/jwt"
	jsonutil "github.com/kart-io/unibot/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = validation.Register()
}

// echoResponder answers every question with a fixed reply.
type echoResponder struct{}

func (echoResponder) Respond(_ context.Context, gc bot.GenerationContext) (string, error) {
	return "echo: " + gc.Question, nil
}

// emptySearcher returns no knowledge context.
type emptySearcher struct{}

func (emptySearcher) Search(context.Context, string, int) (string, error) { return "", nil }

type apiFixture struct {
	engine  *gin.Engine
	factory store.Factory
	authn   *jwt.JWT
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	factory, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	authn, err := jwt.New(
		jwt.WithKey("unit-test-signing-key-0123456789abcdef"),
		jwt.WithExpired(time.Hour),
	)
	require.NoError(t, err)

	require.NoError(t, biz.EnsureAdmin(context.Background(), factory, "admin@campus.edu", "admin123", "Administrator"))

	uploads, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)

	supportSvc := biz.NewSupportService(factory)
	hub := realtime.NewHub(authn, supportSvc)

	engine := gin.New()
	router.Register(engine, authn, &router.Handlers{
		Auth:       handler.NewAuthHandler(biz.NewAuthService(authn, factory), uploads),
		User:       handler.NewUserHandler(biz.NewUserService(factory)),
		Chat:       handler.NewChatHandler(biz.NewChatService(factory, echoResponder{}, emptySearcher{}, nil)),
		History:    handler.NewHistoryHandler(biz.NewHistoryService(factory)),
		Support:    handler.NewSupportHandler(supportSvc, hub),
		ServeWS:    hub.ServeWS,
		UploadsDir: uploads.Root(),
	})

	return &apiFixture{engine: engine, factory: factory, authn: authn}
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body string) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &env))
	return w, &env
}

func (f *apiFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	w, env := f.do(t, http.MethodPost, "/api/login", "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func registerForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndPendingLogin(t *testing.T) {
	f := newAPIFixture(t)

	body, contentType := registerForm(t, map[string]string{
		"full_name":  "Sara Ahmed",
		"email":      "sara@campus.edu",
		"password":   "password123",
		"student_id": "FA22-001",
		"semester":   "6",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/register", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Pending accounts cannot log in yet.
	w2, env := f.do(t, http.MethodPost, "/api/login", "",
		`{"email":"sara@campus.edu","password":"password123"}`)
	assert.Equal(t, http.StatusForbidden, w2.Code)
	assert.Contains(t, env.Message, "pending")
}

func TestAdminUserManagementFlow(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.login(t, "admin@campus.edu", "admin123")

	// Create a consultant.
	w, env := f.do(t, http.MethodPost, "/api/admin/users", adminToken,
		`{"firstName":"Omar","lastName":"Khan","email":"omar@campus.edu","password":"password123","role":"consultant","employeeId":"EMP-9","position":"Advisor"}`)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	// Listing shows the admin and the consultant.
	w, env = f.do(t, http.MethodGet, "/api/admin/users", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	users, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Len(t, users, 2)

	// A bad role key never reaches the service.
	w, _ = f.do(t, http.MethodPost, "/api/admin/users", adminToken,
		`{"firstName":"X","lastName":"Y","email":"x@campus.edu","password":"password123","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Students cannot reach the admin surface at all.
	consultantToken := f.login(t, "omar@campus.edu", "password123")
	w, _ = f.do(t, http.MethodGet, "/api/admin/users", consultantToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChatAnonymousAndAuthenticated(t *testing.T) {
	f := newAPIFixture(t)

	// Anonymous chat answers without persisting anything.
	w, env := f.do(t, http.MethodPost, "/api/chat", "", `{"message":"hi there"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "echo: hi there", data["response"])
	assert.Nil(t, data["conversationId"])

	// Authenticated chat opens a conversation.
	adminToken := f.login(t, "admin@campus.edu", "admin123")
	w, env = f.do(t, http.MethodPost, "/api/chat", adminToken, `{"message":"hello again"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data = env.Data.(map[string]any)
	assert.NotNil(t, data["conversationId"])

	// And the conversation shows up in history.
	w, env = f.do(t, http.MethodGet, "/api/ai/conversations", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	conversations, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Len(t, conversations, 1)
}

func TestChatBadRequestBodies(t *testing.T) {
	f := newAPIFixture(t)

	// A body that does not decode is reported as malformed.
	w, env := f.do(t, http.MethodPost, "/api/chat", "", `{"message": 7}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", env.Message)

	w, env = f.do(t, http.MethodPost, "/api/chat", "", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", env.Message)

	// A well-formed body without a message is the empty-message case.
	w, env = f.do(t, http.MethodPost, "/api/chat", "", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Empty message", env.Message)
}

func TestMeRequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	adminToken := f.login(t, "admin@campus.edu", "admin123")
	w, env := f.do(t, http.MethodGet, "/api/me", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	user := env.Data.(map[string]any)
	assert.Equal(t, "admin@campus.edu", user["email"])
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.login(t, "admin@campus.edu", "admin123")

	w, _ := f.do(t, http.MethodPost, "/api/logout", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/me", adminToken, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
