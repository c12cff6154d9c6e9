package models

import "fmt"

// ChatMessage is one turn of a study-group or assistant conversation.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ChatSession is an ordered transcript of messages.
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
	Messages  []ChatMessage `json:"messages"`
}

func (s ChatSession) RecordID() string    { return s.ID }
func (s ChatSession) LastModified() int64 { return s.UpdatedAt }

func (s ChatSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("missing id")
	}

	if s.UpdatedAt <= 0 {
		return fmt.Errorf("missing updatedAt")
	}

	for i, m := range s.Messages {
		if m.Role == "" {
			return fmt.Errorf("message %d: missing role", i)
		}
	}

	return nil
}
