package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/models"
)

// sqliteTimeLayout matches CURRENT_TIMESTAMP.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// ConversationServiceProvider defines the interface for conversation history.
type ConversationServiceProvider interface {
	CreateConversation(ctx context.Context, userID int64, tool, firstMessage string) (int64, error)
	ConversationOwnedBy(ctx context.Context, conversationID, userID int64) (bool, error)
	AddMessage(ctx context.Context, conversationID int64, role, content string) (int64, error)
	ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID, userID int64) ([]models.Message, error)
	DeleteConversation(ctx context.Context, conversationID, userID int64) (bool, error)
	ClearConversations(ctx context.Context, userID int64) (int64, error)
	PruneConversations(ctx context.Context, olderThan time.Time) (int64, error)
}

// ConversationService persists conversations and their messages.
type ConversationService struct {
	db *sql.DB
}

// NewConversationService creates a new ConversationService.
func NewConversationService(db *sql.DB) *ConversationService {
	return &ConversationService{db: db}
}

// CreateConversation starts a conversation together with its first user
// message, so a stored conversation always has at least one message.
func (s *ConversationService) CreateConversation(ctx context.Context, userID int64, tool, firstMessage string) (int64, error) {
	var id int64
	err := database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO conversations (user_id, tool_name) VALUES (?, ?)", userID, tool)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = insertMessage(ctx, tx, id, models.RoleUser, firstMessage)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ConversationOwnedBy reports whether the conversation exists and belongs to userID.
func (s *ConversationService) ConversationOwnedBy(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM conversations WHERE id = ? AND user_id = ?)",
		conversationID, userID).Scan(&exists)
	return exists, err
}

// AddMessage appends a message to a conversation and returns its id.
func (s *ConversationService) AddMessage(ctx context.Context, conversationID int64, role, content string) (int64, error) {
	return insertMessage(ctx, s.db, conversationID, role, content)
}

func insertMessage(ctx context.Context, q database.DBTX, conversationID int64, role, content string) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, role, content) VALUES (?, ?, ?)",
		conversationID, role, content)
	if err != nil {
		return 0, fmt.Errorf("insert %s message: %w", role, err)
	}
	return res.LastInsertId()
}

// ListConversations returns the user's conversations, newest first.
func (s *ConversationService) ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, tool_name, created_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.ToolName, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// GetMessages returns the messages of a conversation owned by userID, oldest
// first. A conversation owned by someone else yields no messages.
func (s *ConversationService) GetMessages(ctx context.Context, conversationID, userID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE c.id = ? AND c.user_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, conversationID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteConversation removes a conversation owned by userID; its messages
// cascade. It reports whether anything was deleted.
func (s *ConversationService) DeleteConversation(ctx context.Context, conversationID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ? AND user_id = ?", conversationID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearConversations removes every conversation of userID and returns how many were deleted.
func (s *ConversationService) ClearConversations(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneConversations removes conversations created before olderThan.
func (s *ConversationService) PruneConversations(ctx context.Context, olderThan time.Time) (int64, error) {
	if olderThan.IsZero() {
		return 0, errors.New("prune cutoff is required")
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE created_at < ?", olderThan.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
