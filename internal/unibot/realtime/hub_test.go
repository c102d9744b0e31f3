package realtime

import (
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/pkg/auth/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type wsFixture struct {
	hub     *Hub
	authn   *jwt.JWT
	factory store.Factory
	server  *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	factory, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	authn, err := jwt.New(
		jwt.WithKey("unit-test-signing-key-0123456789abcdef"),
		jwt.WithExpired(time.Hour),
	)
	require.NoError(t, err)

	hub := NewHub(authn, biz.NewSupportService(factory))

	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &wsFixture{hub: hub, authn: authn, factory: factory, server: server}
}

func (f *wsFixture) seedUser(t *testing.T, email string, role authz.Role) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		FullName:     "Test User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsApproved:   true,
	}
	require.NoError(t, f.factory.Users().Create(context.Background(), user))
	return user
}

func (f *wsFixture) token(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := f.authn.Sign(context.Background(), strconv.FormatUint(user.ID, 10), string(user.Role))
	require.NoError(t, err)
	return token.GetAccessToken()
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *outboundEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event outboundEvent
	require.NoError(t, conn.ReadJSON(&event))
	return &event
}

func TestJoinAndBroadcast(t *testing.T) {
	f := newWSFixture(t)
	student := f.seedUser(t, "student@campus.edu", authz.RoleStudent)
	consultant := f.seedUser(t, "consultant@campus.edu", authz.RoleConsultant)

	thread, err := biz.NewSupportService(f.factory).EnsureThread(context.Background(), student.ID)
	require.NoError(t, err)

	studentConn := f.dial(t)
	consultantConn := f.dial(t)

	require.NoError(t, studentConn.WriteJSON(&inboundEvent{
		Event: EventJoinThread, Token: f.token(t, student), ThreadID: thread.ID,
	}))
	joined := readEvent(t, studentConn)
	assert.Equal(t, EventJoined, joined.Event)
	assert.Equal(t, thread.ID, joined.ThreadID)

	require.NoError(t, consultantConn.WriteJSON(&inboundEvent{
		Event: EventJoinThread, Token: f.token(t, consultant), ThreadID: thread.ID,
	}))
	readEvent(t, consultantConn)

	// A message sent by the student reaches both room members.
	require.NoError(t, studentConn.WriteJSON(&inboundEvent{
		Event: EventSendMessage, Token: f.token(t, student), ThreadID: thread.ID, Text: "hello",
	}))

	for _, conn := range []*websocket.Conn{studentConn, consultantConn} {
		event := readEvent(t, conn)
		assert.Equal(t, EventNewMessage, event.Event)
		require.NotNil(t, event.Message)
		assert.Equal(t, "hello", event.Message.Text)
		assert.Equal(t, student.ID, event.Message.SenderID)
	}
}

func TestEventAuthFailures(t *testing.T) {
	f := newWSFixture(t)
	student := f.seedUser(t, "student@campus.edu", authz.RoleStudent)
	f.seedUser(t, "consultant@campus.edu", authz.RoleConsultant)
	outsider := f.seedUser(t, "outsider@campus.edu", authz.RoleStudent)

	thread, err := biz.NewSupportService(f.factory).EnsureThread(context.Background(), student.ID)
	require.NoError(t, err)

	conn := f.dial(t)

	// No token.
	require.NoError(t, conn.WriteJSON(&inboundEvent{Event: EventJoinThread, ThreadID: thread.ID}))
	assert.Equal(t, EventError, readEvent(t, conn).Event)

	// Garbage token.
	require.NoError(t, conn.WriteJSON(&inboundEvent{
		Event: EventJoinThread, Token: "bogus", ThreadID: thread.ID,
	}))
	assert.Equal(t, EventError, readEvent(t, conn).Event)

	// Valid token, wrong thread.
	require.NoError(t, conn.WriteJSON(&inboundEvent{
		Event: EventJoinThread, Token: f.token(t, outsider), ThreadID: thread.ID,
	}))
	assert.Equal(t, EventError, readEvent(t, conn).Event)

	// Non-participants cannot post either.
	require.NoError(t, conn.WriteJSON(&inboundEvent{
		Event: EventSendMessage, Token: f.token(t, outsider), ThreadID: thread.ID, Text: "hi",
	}))
	assert.Equal(t, EventError, readEvent(t, conn).Event)
}

func TestRevokedTokenRejectedPerEvent(t *testing.T) {
	f := newWSFixture(t)
	student := f.seedUser(t, "student@campus.edu", authz.RoleStudent)
	f.seedUser(t, "consultant@campus.edu", authz.RoleConsultant)

	thread, err := biz.NewSupportService(f.factory).EnsureThread(context.Background(), student.ID)
	require.NoError(t, err)

	token := f.token(t, student)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(&inboundEvent{
		Event: EventJoinThread, Token: token, ThreadID: thread.ID,
	}))
	assert.Equal(t, EventJoined, readEvent(t, conn).Event)

	// The connection survives but a revoked token no longer authorizes events.
	require.NoError(t, f.authn.Revoke(context.Background(), token))
	require.NoError(t, conn.WriteJSON(&inboundEvent{
		Event: EventSendMessage, Token: token, ThreadID: thread.ID, Text: "hi",
	}))
	assert.Equal(t, EventError, readEvent(t, conn).Event)
}

func TestUnknownAndMalformedEvents(t *testing.T) {
	f := newWSFixture(t)
	student := f.seedUser(t, "student@campus.edu", authz.RoleStudent)

	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, EventError, readEvent(t, conn).Event)

	require.NoError(t, conn.WriteJSON(&inboundEvent{
		Event: "dance", Token: f.token(t, student),
	}))
	assert.Equal(t, EventError, readEvent(t, conn).Event)
}
