package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository is the session working memory behind the routing
// graph: the recent turns fed back into the classifier context. Clearing it
// does not touch the durable chat log.
type ConversationRepository interface {
	// AddMessage appends a message to the working memory for the conversation.
	AddMessage(ctx context.Context, conversationKey string, message *schema.Message) error

	// LoadHistory retrieves the working memory for a conversation.
	LoadHistory(ctx context.Context, conversationKey string) (*ConversationHistory, error)

	// ClearHistory removes the working memory for a conversation.
	ClearHistory(ctx context.Context, conversationKey string) error

	// GetMessageCount returns the number of messages held for a conversation.
	GetMessageCount(ctx context.Context, conversationKey string) (int, error)
}

// ConversationHistory represents loaded working-memory data with metadata.
type ConversationHistory struct {
	ConversationKey string
	Messages        []*schema.Message
}

// DocumentRepository stores the ingested record text per student.
// Last write wins; there is no versioning.
type DocumentRepository interface {
	// SaveDocument replaces the stored text for the student.
	SaveDocument(ctx context.Context, studentID string, text string) error

	// LoadDocument returns the stored text, or "" when nothing was uploaded.
	LoadDocument(ctx context.Context, studentID string) (string, error)
}
