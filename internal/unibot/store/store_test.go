package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
)

func testFactory(t *testing.T) Factory {
	t.Helper()
	factory, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	return factory
}

func seedUser(t *testing.T, factory Factory, email string, role authz.Role) *model.User {
	t.Helper()
	user := &model.User{
		FullName:     "Test User",
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		IsApproved:   true,
	}
	require.NoError(t, factory.Users().Create(context.Background(), user))
	return user
}

func TestUserCRUD(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	user := seedUser(t, factory, "a@campus.edu", authz.RoleStudent)
	require.NotZero(t, user.ID)

	got, err := factory.Users().Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@campus.edu", got.Email)

	got.Department = "CS"
	require.NoError(t, factory.Users().Update(ctx, got))

	byEmail, err := factory.Users().GetByEmail(ctx, "a@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, "CS", byEmail.Department)

	require.NoError(t, factory.Users().Delete(ctx, user.ID))
	_, err = factory.Users().Get(ctx, user.ID)
	assert.Error(t, err)
}

func TestUserListFiltersByRole(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	seedUser(t, factory, "s1@campus.edu", authz.RoleStudent)
	seedUser(t, factory, "s2@campus.edu", authz.RoleStudent)
	seedUser(t, factory, "c@campus.edu", authz.RoleConsultant)
	seedUser(t, factory, "admin@campus.edu", authz.RoleAdmin)

	students, err := factory.Users().List(ctx, []authz.Role{authz.RoleStudent})
	require.NoError(t, err)
	assert.Len(t, students, 2)

	staff, err := factory.Users().List(ctx, []authz.Role{authz.RoleStudent, authz.RoleConsultant})
	require.NoError(t, err)
	assert.Len(t, staff, 3)

	all, err := factory.Users().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFirstByRolePicksOldest(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	first := seedUser(t, factory, "c1@campus.edu", authz.RoleConsultant)
	seedUser(t, factory, "c2@campus.edu", authz.RoleConsultant)

	got, err := factory.Users().FirstByRole(ctx, authz.RoleConsultant)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestConversationOwnership(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	owner := seedUser(t, factory, "owner@campus.edu", authz.RoleStudent)
	other := seedUser(t, factory, "other@campus.edu", authz.RoleStudent)

	conv := &model.AiConversation{UserID: owner.ID, Title: "hello"}
	require.NoError(t, factory.Conversations().Create(ctx, conv))

	_, err := factory.Conversations().Get(ctx, conv.ID, owner.ID)
	require.NoError(t, err)

	_, err = factory.Conversations().Get(ctx, conv.ID, other.ID)
	assert.Error(t, err, "a conversation is only visible to its owner")
}

func TestRecentMessagesChronological(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	user := seedUser(t, factory, "u@campus.edu", authz.RoleStudent)
	conv := &model.AiConversation{UserID: user.ID, Title: "t"}
	require.NoError(t, factory.Conversations().Create(ctx, conv))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAI
		}
		msg := &model.AiMessage{
			ConversationID: conv.ID,
			Sender:         sender,
			Text:           fmt.Sprintf("msg %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, factory.Conversations().AddMessage(ctx, msg))
	}

	recent, err := factory.Conversations().RecentMessages(ctx, user.ID, 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "msg 2", recent[0].Text, "limited window starts at the oldest kept message")
	assert.Equal(t, "msg 5", recent[3].Text)
}

func TestHistoryDaysGrouping(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	user := seedUser(t, factory, "u@campus.edu", authz.RoleStudent)
	conv := &model.AiConversation{UserID: user.ID, Title: "t"}
	require.NoError(t, factory.Conversations().Create(ctx, conv))

	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)

	for i, at := range []time.Time{yesterday, today, today.Add(time.Minute)} {
		msg := &model.AiMessage{
			ConversationID: conv.ID,
			Sender:         model.SenderUser,
			Text:           fmt.Sprintf("question %d", i),
			CreatedAt:      at,
		}
		require.NoError(t, factory.Conversations().AddMessage(ctx, msg))
	}

	days, err := factory.Conversations().HistoryDays(ctx, user.ID, yesterday.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-10", days[0].Date)
	assert.EqualValues(t, 2, days[0].Count)
	assert.Equal(t, "2026-03-09", days[1].Date)

	first, err := factory.Conversations().FirstUserMessageOn(ctx, user.ID, "2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "question 1", first.Text)
}

func TestMessagesBetweenAndDelete(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	user := seedUser(t, factory, "u@campus.edu", authz.RoleStudent)
	conv := &model.AiConversation{UserID: user.ID, Title: "t"}
	require.NoError(t, factory.Conversations().Create(ctx, conv))

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	msg := &model.AiMessage{ConversationID: conv.ID, Sender: model.SenderUser, Text: "q", CreatedAt: at}
	require.NoError(t, factory.Conversations().AddMessage(ctx, msg))

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	msgs, err := factory.Conversations().MessagesBetween(ctx, user.ID, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, factory.Conversations().DeleteMessages(ctx, []uint64{msg.ID}))
	count, err := factory.Conversations().CountMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestThreadParticipantsAndMessages(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()

	student := seedUser(t, factory, "s@campus.edu", authz.RoleStudent)
	consultant := seedUser(t, factory, "c@campus.edu", authz.RoleConsultant)

	thread := &model.ChatThread{StudentID: student.ID, ConsultantID: consultant.ID}
	require.NoError(t, factory.Threads().Create(ctx, thread))

	got, err := factory.Threads().GetByParticipants(ctx, student.ID, consultant.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, got.ID)

	require.NoError(t, factory.Threads().AddMessage(ctx, &model.ChatMessage{
		ThreadID: thread.ID,
		SenderID: student.ID,
		Text:     "hello",
	}))

	msgs, err := factory.Threads().Messages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Sender)
	assert.Equal(t, student.ID, msgs[0].Sender.ID)

	mine, err := factory.Threads().ListByUser(ctx, consultant.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Student)

	require.NoError(t, factory.Threads().Delete(ctx, thread.ID))
	msgs, err = factory.Threads().Messages(ctx, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "deleting a thread removes its messages")
}

func TestTokenStoreRevocation(t *testing.T) {
	factory := testFactory(t)
	ctx := context.Background()
	tokens := factory.RevokedTokens()

	revoked, err := tokens.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, tokens.Revoke(ctx, "tid-1", time.Hour))
	revoked, err = tokens.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Expired revocations stop matching and can be purged.
	require.NoError(t, tokens.Revoke(ctx, "tid-2", -time.Minute))
	revoked, err = tokens.IsRevoked(ctx, "tid-2")
	require.NoError(t, err)
	assert.False(t, revoked)
	require.NoError(t, tokens.Purge(ctx))
}
