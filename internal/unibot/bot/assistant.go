package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/pkg/llm"
	"github.com/kart-io/unibot/pkg/llm/resilience"
)

const (
	// maxContextRunes caps the knowledge context placed in the system message.
	maxContextRunes = 1500

	// systemPromptPrefix precedes the retrieved context in the system message.
	systemPromptPrefix = "You are the campus assistant. Answer based on: "

	// restartMessage is returned while the failure gate is tripped.
	restartMessage = "System needs restart. Please try again later."
)

// GenerationContext carries everything one answer generation needs. Callers
// assemble it per request; the assistant itself keeps no conversation state.
type GenerationContext struct {
	// Question is the user's current message.
	Question string

	// Context is the composed background (knowledge, profile, history digest)
	// placed in the system message.
	Context string

	// History is the prior conversation turns, oldest first.
	History []llm.Message
}

// Assistant generates answers through a chat provider with bounded retry and
// a cumulative failure gate. Safe for concurrent use.
type Assistant struct {
	chat  llm.ChatProvider
	retry *resilience.RetryConfig
	gate  *resilience.FailureGate
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg *resilience.RetryConfig) AssistantOption {
	return func(a *Assistant) { a.retry = cfg }
}

// WithFailureThreshold overrides the failure gate threshold.
func WithFailureThreshold(n int) AssistantOption {
	return func(a *Assistant) { a.gate = resilience.NewFailureGate(n) }
}

// NewAssistant creates an assistant on top of the given chat provider.
func NewAssistant(chat llm.ChatProvider, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		chat:  chat,
		retry: resilience.DefaultRetryConfig(),
		gate:  resilience.NewFailureGate(resilience.DefaultFailureThreshold),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Respond generates an answer for the given generation context.
//
// Provider failures degrade to a user-facing fallback message with a nil
// error: each exhausted call bumps the failure counter and reports it in the
// fallback, including the call that reaches the threshold. From the next
// call onward the assistant answers with a static restart message without
// calling the provider at all. One successful call resets the counter.
func (a *Assistant) Respond(ctx context.Context, gc GenerationContext) (string, error) {
	if a.gate.Tripped() {
		logger.Warnw("assistant gate tripped, skipping provider call", "failures", a.gate.Failures())
		return restartMessage, nil
	}

	messages := make([]llm.Message, 0, len(gc.History)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: systemPromptPrefix + clipRunes(gc.Context, maxContextRunes),
	})
	messages = append(messages, gc.History...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: gc.Question,
	})

	var reply string
	err := resilience.RetryWithBackoff(ctx, a.retry, func() error {
		var callErr error
		reply, callErr = a.chat.Chat(ctx, messages)
		return callErr
	})
	if err != nil {
		failures := a.gate.RecordFailure()
		logger.Warnw("assistant provider call failed",
			"provider", a.chat.Name(),
			"failures", failures,
			"error", err.Error(),
		)
		return fmt.Sprintf("Temporary issue. Please try again. (%d/%d)", failures, a.gate.Threshold()), nil
	}

	a.gate.RecordSuccess()
	return strings.TrimSpace(reply), nil
}

// Failures exposes the current failure count, for health reporting.
func (a *Assistant) Failures() int {
	return a.gate.Failures()
}

// clipRunes truncates s to at most n runes without an ellipsis.
func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
