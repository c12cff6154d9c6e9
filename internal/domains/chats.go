package domains

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/studysync/internal/models"
	"github.com/studyforge/studysync/internal/remote"
	"github.com/studyforge/studysync/internal/store"
)

// Chats is the domain adapter for chat transcripts.
type Chats struct {
	*Adapter[models.ChatSession]
}

// NewChats creates the chats adapter. maxSize <= 0 uses the default cap.
func NewChats(s store.Store, client *remote.Client, maxSize int, logger *slog.Logger, now func() time.Time) *Chats {
	if maxSize <= 0 {
		maxSize = DefaultChatCap
	}

	return &Chats{newAdapter[models.ChatSession](DomainChats, maxSize, s, client, logger, now)}
}

// StartSession stores a new empty transcript with a fresh id.
func (c *Chats) StartSession(title string) (models.ChatSession, error) {
	now := c.now().UnixMilli()

	session := models.ChatSession{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.put(session); err != nil {
		return models.ChatSession{}, err
	}

	return session, nil
}

// AppendMessage adds one message to a transcript and bumps its
// timestamp.
func (c *Chats) AppendMessage(sessionID, role, content string) error {
	session, ok := c.Get(sessionID)
	if !ok {
		return &notFoundError{domain: DomainChats, id: sessionID}
	}

	now := c.now().UnixMilli()

	session.Messages = append(session.Messages, models.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	session.UpdatedAt = now

	return c.put(session)
}
