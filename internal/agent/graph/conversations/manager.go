package conversations

import (
	"context"
	"strings"

	"github.com/neurosync-os/server/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

// MessagesManager mediates between graph nodes and the working-memory
// repository: it persists turns and shapes conversation context for the
// router and response models.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	routerMaxTurns   int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		routerMaxTurns:   config.Router.MaxTurns,
	}
}

// ProcessUserMessage saves the user turn and returns the router context: the
// recent conversation window plus the current message wrapped in analysis
// markers.
func (cm *MessagesManager) ProcessUserMessage(ctx context.Context, conversationKey string, query string) (string, error) {
	userMsg := schema.UserMessage(query)
	if err := cm.conversationRepo.AddMessage(ctx, conversationKey, userMsg); err != nil {
		return "", err
	}

	history, err := cm.conversationRepo.LoadHistory(ctx, conversationKey)
	if err != nil {
		return "", err
	}

	conversationContext := cm.buildRouterContext(history.Messages)

	var fullContext strings.Builder
	fullContext.WriteString(conversationContext)
	fullContext.WriteString("\n<current_message_to_analyze>\n")
	fullContext.WriteString("UserMessage(" + query + ")\n")
	fullContext.WriteString("</current_message_to_analyze>")

	return fullContext.String(), nil
}

func (cm *MessagesManager) buildRouterContext(messages []*schema.Message) string {
	recentMessages := trimTail(messages, cm.routerMaxTurns)

	var contextBuilder strings.Builder
	contextBuilder.WriteString("<conversation_context>\n")

	for _, msg := range recentMessages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			contextBuilder.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			contextBuilder.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}

	contextBuilder.WriteString("</conversation_context>")
	return contextBuilder.String()
}

// BuildResponseContext assembles the generation messages: the persona system
// prompt followed by the full working-memory history (which already ends with
// the current user turn).
func (cm *MessagesManager) BuildResponseContext(ctx context.Context, conversationKey string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationKey)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}

	messages = append(messages, history.Messages...)

	return messages, nil
}

// SaveResponse appends an assistant turn to working memory.
func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationKey string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationKey, assistantMsg)
}

// ClearHistory empties the working memory for a conversation. The durable
// chat log is unaffected.
func (cm *MessagesManager) ClearHistory(ctx context.Context, conversationKey string) error {
	return cm.conversationRepo.ClearHistory(ctx, conversationKey)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
