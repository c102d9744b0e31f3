package biz

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/textutil"
	"github.com/kart-io/unibot/internal/unibot/audit"
	"github.com/kart-io/unibot/internal/unibot/bot"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/pkg/errors"
)

const (
	// maxTitleRunes caps the conversation title derived from the first
	// message.
	maxTitleRunes = 80

	// maxHistoryPairs is the number of prior exchanges woven into the
	// context.
	maxHistoryPairs = 10

	// maxHistoryMsgRunes caps each history message in the context digest.
	maxHistoryMsgRunes = 400

	// searchTopK is the number of knowledge chunks retrieved per question.
	searchTopK = 3
)

// systemInstructions anchors every answer to the allowed sources and guards
// against stale persona text leaking in from older context.
var systemInstructions = strings.Join([]string{
	"You are the official campus AI assistant.",
	"Use ONLY these sources when answering:",
	"  1) University knowledge provided below.",
	"  2) The current user's profile and role from the database (if given).",
	"  3) The previous conversation history shown below, which belongs ONLY to this logged-in user.",
	"",
	"Important:",
	"  - Ignore any older notes or texts that claim a different identity for the user.",
	"  - Prefer the user's profile (name, role, department, semester) from the database over any other source.",
}, "\n")

// Responder generates an answer from a generation context.
type Responder interface {
	Respond(ctx context.Context, gc bot.GenerationContext) (string, error)
}

// Searcher retrieves knowledge context for a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (string, error)
}

// ChatRequest carries one AI chat message.
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID uint64 `json:"conversationId"`
}

// ChatResponse is the reply to an AI chat message. ConversationID is zero
// for anonymous callers.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID uint64 `json:"conversationId,omitempty"`
}

// ChatService handles the AI chat flow: conversation binding, context
// composition, answer generation and persistence.
type ChatService struct {
	store     store.Factory
	assistant Responder
	knowledge Searcher
	audit     *audit.Sink
}

// NewChatService creates a new ChatService. The audit sink may be nil.
func NewChatService(store store.Factory, assistant Responder, knowledge Searcher, sink *audit.Sink) *ChatService {
	return &ChatService{
		store:     store,
		assistant: assistant,
		knowledge: knowledge,
		audit:     sink,
	}
}

// Chat answers one user message. For authenticated callers (userID != 0) the
// exchange is bound to a conversation and persisted; anonymous callers get a
// fully stateless answer.
func (s *ChatService) Chat(ctx context.Context, userID uint64, req *ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.ErrBadRequest.WithMessage("Empty message")
	}

	var user *model.User
	if userID != 0 {
		var err error
		user, err = s.store.Users().Get(ctx, userID)
		if err != nil {
			return nil, errors.ErrUserNotFound
		}
	}

	var conversation *model.AiConversation
	if user != nil {
		var err error
		conversation, err = s.bindConversation(ctx, user.ID, req.ConversationID, message)
		if err != nil {
			return nil, err
		}
	}

	// Compose before persisting the prompt so the history digest holds only
	// prior exchanges.
	fullContext := s.composeContext(ctx, user, message)

	if conversation != nil {
		userMsg := &model.AiMessage{
			ConversationID: conversation.ID,
			Sender:         model.SenderUser,
			Text:           message,
		}
		if err := s.store.Conversations().AddMessage(ctx, userMsg); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
	}

	reply, err := s.assistant.Respond(ctx, bot.GenerationContext{
		Question: message,
		Context:  fullContext,
	})
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	resp := &ChatResponse{Response: reply}
	if conversation != nil {
		aiMsg := &model.AiMessage{
			ConversationID: conversation.ID,
			Sender:         model.SenderAI,
			Text:           reply,
		}
		if err := s.store.Conversations().AddMessage(ctx, aiMsg); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		if err := s.store.Conversations().Touch(ctx, conversation.ID); err != nil {
			logger.Warnw("failed to touch conversation", "conversation_id", conversation.ID, "error", err.Error())
		}
		resp.ConversationID = conversation.ID

		if s.audit != nil {
			s.audit.Append(user.ID, message, reply)
		}
	}

	return resp, nil
}

// bindConversation returns the caller-owned conversation by ID, or creates a
// new one titled after the first message.
func (s *ChatService) bindConversation(ctx context.Context, userID, conversationID uint64, message string) (*model.AiConversation, error) {
	if conversationID != 0 {
		conversation, err := s.store.Conversations().Get(ctx, conversationID, userID)
		switch {
		case err == nil:
			return conversation, nil
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			// Stale ID or someone else's conversation, start a fresh one.
		default:
			return nil, errors.ErrInternal.WithCause(err)
		}
	}

	conversation := &model.AiConversation{
		UserID: userID,
		Title:  clipTitle(message),
	}
	if err := s.store.Conversations().Create(ctx, conversation); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return conversation, nil
}

// composeContext assembles the generation context from fixed-order sections,
// empty sections omitted. Retrieval failures degrade to answering without
// that section.
func (s *ChatService) composeContext(ctx context.Context, user *model.User, message string) string {
	sections := []string{systemInstructions}

	kb, err := s.knowledge.Search(ctx, message, searchTopK)
	if err != nil {
		logger.Warnw("knowledge search failed", "error", err.Error())
		kb = ""
	}
	if kb != "" {
		sections = append(sections, "University knowledge:\n"+kb)
	}

	if user != nil {
		sections = append(sections, profileSection(user))

		if history := s.historySection(ctx, user.ID); history != "" {
			sections = append(sections, "Previous conversation with this user:\n"+history)
		}
	}

	return strings.Join(sections, "\n\n")
}

// profileSection formats the current user's profile for the model.
func profileSection(user *model.User) string {
	lines := []string{
		"Current user profile from database:",
		"- Full name: " + orNA(user.FullName),
		"- First name (preferred to use): " + orNA(user.FirstName()),
		"- Last name: " + orNA(user.LastName()),
		"- Role: " + orNA(user.Role.String()),
		"- Department: " + orNA(user.Department),
		"- Semester: " + orNA(user.Semester),
		"",
		"When you need the user's name, call them by their first name above.",
	}
	return strings.Join(lines, "\n")
}

// historySection renders the user's recent exchanges as a short transcript.
func (s *ChatService) historySection(ctx context.Context, userID uint64) string {
	msgs, err := s.store.Conversations().RecentMessages(ctx, userID, maxHistoryPairs*2)
	if err != nil {
		logger.Warnw("failed to load chat history", "user_id", userID, "error", err.Error())
		return ""
	}
	if len(msgs) == 0 {
		return ""
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		role := "User"
		if m.Sender == model.SenderAI {
			role = "Assistant"
		}
		text := textutil.TruncateRunes(strings.TrimSpace(m.Text), maxHistoryMsgRunes)
		lines = append(lines, role+": "+text)
	}
	return strings.Join(lines, "\n")
}

func clipTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= maxTitleRunes {
		return message
	}
	return string(runes[:maxTitleRunes])
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
