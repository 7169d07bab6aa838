package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/ai"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"github.com/tutoriq/tutoriq-be/internal/prompt"
)

// MaxMessageLength is the longest accepted chat message, in characters.
const MaxMessageLength = 5000

// ChatRequest is one chat turn sent by the browser.
type ChatRequest struct {
	ToolType       string        `json:"toolType"`
	Message        string        `json:"message"`
	ConversationID *int64        `json:"conversationId"`
	ToolData       prompt.Params `json:"toolData"`
}

// ChatResult is the assistant reply and the conversation it was stored in.
type ChatResult struct {
	Response       string `json:"response"`
	ConversationID int64  `json:"conversationId"`
}

// ChatServiceProvider defines the interface for the chat flow.
type ChatServiceProvider interface {
	Chat(ctx context.Context, userID int64, req ChatRequest) (ChatResult, error)
}

// ChatService runs a chat turn: it validates the request, stores the user
// message, asks the AI provider and stores the reply.
type ChatService struct {
	profiles      ProfileServiceProvider
	conversations ConversationServiceProvider
	composer      *prompt.Composer
	generator     ai.Generator
}

// NewChatService creates a new ChatService.
func NewChatService(profiles ProfileServiceProvider, conversations ConversationServiceProvider, composer *prompt.Composer, generator ai.Generator) *ChatService {
	return &ChatService{
		profiles:      profiles,
		conversations: conversations,
		composer:      composer,
		generator:     generator,
	}
}

// Chat handles one turn for userID.
//
// The user message is committed before the provider is called and the reply
// after it returns; a provider failure leaves the user message in place and
// returns an *ai.ProviderError. A conversation id that does not belong to the
// user is rejected with ErrNotFound before anything is written.
func (s *ChatService) Chat(ctx context.Context, userID int64, req ChatRequest) (ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if req.ToolType == "" || message == "" {
		return ChatResult{}, invalid("Message content is required.")
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		return ChatResult{}, invalid("Message is too long. Please shorten it.")
	}
	tool, err := prompt.ParseTool(req.ToolType)
	if err != nil {
		return ChatResult{}, invalid("Invalid tool type")
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ChatResult{}, invalid("Your profile could not be found. Please log in again.")
		}
		return ChatResult{}, fmt.Errorf("load profile: %w", err)
	}
	if profile.APIKey == "" {
		return ChatResult{}, invalid("Your Gemini API key is not set. Please add it in your Profile.")
	}

	fullPrompt, err := s.composer.Compose(string(tool), message, req.ToolData, prompt.Context{
		Institution: profile.Institution,
		Term:        profile.Term,
		Course:      profile.Course,
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("compose prompt: %w", err)
	}

	conversationID, err := s.storeUserMessage(ctx, userID, tool, req.ConversationID, message)
	if err != nil {
		return ChatResult{}, err
	}

	reply, err := s.generator.Generate(ctx, profile.APIKey, prompt.WithQuestion(fullPrompt, message))
	if err != nil {
		pe := ai.Classify(err)
		log.Warn().Err(err).Int64("user_id", userID).Int64("conversation_id", conversationID).
			Str("kind", string(pe.Kind)).Msg("AI provider call failed")
		return ChatResult{}, pe
	}

	// The reply is stored even if the client has gone away meanwhile.
	if _, err := s.conversations.AddMessage(context.WithoutCancel(ctx), conversationID, models.RoleAssistant, reply); err != nil {
		return ChatResult{}, fmt.Errorf("store assistant message: %w", err)
	}

	return ChatResult{Response: reply, ConversationID: conversationID}, nil
}

// storeUserMessage resolves the conversation and persists the user's message.
func (s *ChatService) storeUserMessage(ctx context.Context, userID int64, tool prompt.Tool, conversationID *int64, message string) (int64, error) {
	if conversationID == nil || *conversationID <= 0 {
		id, err := s.conversations.CreateConversation(ctx, userID, string(tool), message)
		if err != nil {
			return 0, fmt.Errorf("create conversation: %w", err)
		}
		return id, nil
	}

	id := *conversationID
	owned, err := s.conversations.ConversationOwnedBy(ctx, id, userID)
	if err != nil {
		return 0, fmt.Errorf("check conversation owner: %w", err)
	}
	if !owned {
		return 0, ErrNotFound
	}
	if _, err := s.conversations.AddMessage(ctx, id, models.RoleUser, message); err != nil {
		return 0, fmt.Errorf("store user message: %w", err)
	}
	return id, nil
}
