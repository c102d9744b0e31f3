package biz

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/unibot/bot"
	"github.com/kart-io/unibot/pkg/errors"
)

// stubResponder records generation contexts and returns a canned reply.
type stubResponder struct {
	contexts []bot.GenerationContext
	reply    string
}

func (s *stubResponder) Respond(ctx context.Context, gc bot.GenerationContext) (string, error) {
	s.contexts = append(s.contexts, gc)
	return s.reply, nil
}

// stubSearcher returns a fixed knowledge snippet.
type stubSearcher struct {
	result string
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int) (string, error) {
	return s.result, s.err
}

func TestAnonymousChatIsStateless(t *testing.T) {
	factory := testStore(t)
	responder := &stubResponder{reply: "hello there"}
	svc := NewChatService(factory, responder, &stubSearcher{result: "campus facts"}, nil)

	resp, err := svc.Chat(context.Background(), 0, &ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Response)
	assert.Zero(t, resp.ConversationID)

	gc := responder.contexts[0]
	assert.Equal(t, "hi", gc.Question)
	assert.Contains(t, gc.Context, "campus facts")
	assert.NotContains(t, gc.Context, "Current user profile", "anonymous chat carries no profile")
}

func TestChatPersistsExchange(t *testing.T) {
	factory := testStore(t)
	user := seedAccount(t, factory, "u@campus.edu", authz.RoleStudent, true, false)
	responder := &stubResponder{reply: "the answer"}
	svc := NewChatService(factory, responder, &stubSearcher{}, nil)
	ctx := context.Background()

	resp, err := svc.Chat(ctx, user.ID, &ChatRequest{Message: "when do admissions open?"})
	require.NoError(t, err)
	require.NotZero(t, resp.ConversationID)

	conversation, err := factory.Conversations().Get(ctx, resp.ConversationID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "when do admissions open?", conversation.Title)

	msgs, err := factory.Conversations().Messages(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, model.SenderAI, msgs[1].Sender)
	assert.Equal(t, "the answer", msgs[1].Text)
}

func TestChatReusesOwnConversation(t *testing.T) {
	factory := testStore(t)
	user := seedAccount(t, factory, "u@campus.edu", authz.RoleStudent, true, false)
	other := seedAccount(t, factory, "o@campus.edu", authz.RoleStudent, true, false)
	responder := &stubResponder{reply: "ok"}
	svc := NewChatService(factory, responder, &stubSearcher{}, nil)
	ctx := context.Background()

	first, err := svc.Chat(ctx, user.ID, &ChatRequest{Message: "first"})
	require.NoError(t, err)

	second, err := svc.Chat(ctx, user.ID, &ChatRequest{Message: "second", ConversationID: first.ConversationID})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// Someone else's conversation ID yields a fresh conversation.
	stolen, err := svc.Chat(ctx, other.ID, &ChatRequest{Message: "mine", ConversationID: first.ConversationID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ConversationID, stolen.ConversationID)
}

func TestChatTitleClipped(t *testing.T) {
	factory := testStore(t)
	user := seedAccount(t, factory, "u@campus.edu", authz.RoleStudent, true, false)
	svc := NewChatService(factory, &stubResponder{reply: "ok"}, &stubSearcher{}, nil)
	ctx := context.Background()

	long := strings.Repeat("q", maxTitleRunes+40)
	resp, err := svc.Chat(ctx, user.ID, &ChatRequest{Message: long})
	require.NoError(t, err)

	conversation, err := factory.Conversations().Get(ctx, resp.ConversationID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("q", maxTitleRunes), conversation.Title)
}

func TestChatContextSections(t *testing.T) {
	factory := testStore(t)
	user := seedAccount(t, factory, "u@campus.edu", authz.RoleStudent, true, false)
	user.FullName = "Sara Ahmed"
	user.Department = "Physics"
	require.NoError(t, factory.Users().Update(context.Background(), user))

	responder := &stubResponder{reply: "ok"}
	svc := NewChatService(factory, responder, &stubSearcher{result: "kb snippet"}, nil)
	ctx := context.Background()

	_, err := svc.Chat(ctx, user.ID, &ChatRequest{Message: "first question"})
	require.NoError(t, err)

	_, err = svc.Chat(ctx, user.ID, &ChatRequest{Message: "second question"})
	require.NoError(t, err)

	gc := responder.contexts[1]
	kbIdx := strings.Index(gc.Context, "University knowledge:")
	profileIdx := strings.Index(gc.Context, "Current user profile from database:")
	historyIdx := strings.Index(gc.Context, "Previous conversation with this user:")

	require.GreaterOrEqual(t, kbIdx, 0)
	require.GreaterOrEqual(t, profileIdx, 0)
	require.GreaterOrEqual(t, historyIdx, 0)
	assert.Less(t, kbIdx, profileIdx, "knowledge precedes profile")
	assert.Less(t, profileIdx, historyIdx, "profile precedes history")

	assert.Contains(t, gc.Context, "- First name (preferred to use): Sara")
	assert.Contains(t, gc.Context, "- Department: Physics")
	assert.Contains(t, gc.Context, "User: first question")
	assert.Contains(t, gc.Context, "Assistant: ok")
}

func TestChatHistoryDigestWindow(t *testing.T) {
	factory := testStore(t)
	user := seedAccount(t, factory, "u@campus.edu", authz.RoleStudent, true, false)
	responder := &stubResponder{reply: "ok"}
	svc := NewChatService(factory, responder, &stubSearcher{}, nil)
	ctx := context.Background()

	conv := &model.AiConversation{UserID: user.ID, Title: "long history"}
	require.NoError(t, factory.Conversations().Create(ctx, conv))

	base := time.Now().Add(-24 * time.Hour)
	pad := strings.Repeat("x", maxHistoryMsgRunes+50)
	for i := 1; i <= 12; i++ {
		seedExchange(t, factory, conv.ID, base.Add(time.Duration(i)*time.Minute),
			fmt.Sprintf("question %02d %s", i, pad),
			fmt.Sprintf("answer %02d %s", i, pad))
	}

	_, err := svc.Chat(ctx, user.ID, &ChatRequest{Message: "latest", ConversationID: conv.ID})
	require.NoError(t, err)

	header := "Previous conversation with this user:\n"
	gc := responder.contexts[0]
	idx := strings.Index(gc.Context, header)
	require.GreaterOrEqual(t, idx, 0)
	lines := strings.Split(gc.Context[idx+len(header):], "\n")
	require.Len(t, lines, maxHistoryPairs*2)

	clip := func(s string) string { return string([]rune(s)[:maxHistoryMsgRunes]) + "…" }
	for i := 0; i < maxHistoryPairs; i++ {
		pair := i + 3 // pairs 3..12 make up the window
		assert.Equal(t, "User: "+clip(fmt.Sprintf("question %02d %s", pair, pad)), lines[2*i])
		assert.Equal(t, "Assistant: "+clip(fmt.Sprintf("answer %02d %s", pair, pad)), lines[2*i+1])
	}
	assert.NotContains(t, gc.Context, "question 01")
	assert.NotContains(t, gc.Context, "question 02")
	assert.NotContains(t, gc.Context, "User: latest", "current prompt is not part of the digest")
}

func TestBindConversationSurfacesStoreErrors(t *testing.T) {
	factory := testStore(t)
	user := seedAccount(t, factory, "u@campus.edu", authz.RoleStudent, true, false)
	svc := NewChatService(factory, &stubResponder{reply: "ok"}, &stubSearcher{}, nil)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.bindConversation(canceled, user.ID, 42, "q")
	assert.ErrorIs(t, err, errors.ErrInternal, "a failed lookup must not fork a fresh conversation")
}

func TestChatSearchFailureDegrades(t *testing.T) {
	factory := testStore(t)
	responder := &stubResponder{reply: "still works"}
	svc := NewChatService(factory, responder, &stubSearcher{err: errors.ErrInternal}, nil)

	resp, err := svc.Chat(context.Background(), 0, &ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "still works", resp.Response)
	assert.NotContains(t, responder.contexts[0].Context, "University knowledge:")
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc := NewChatService(testStore(t), &stubResponder{}, &stubSearcher{}, nil)

	_, err := svc.Chat(context.Background(), 0, &ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, errors.ErrBadRequest)
}
