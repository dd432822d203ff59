package conversations

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurosync-os/server/internal/agent/model"
)

// memoryRepo is an in-memory ConversationRepository for tests.
type memoryRepo struct {
	messages map[string][]*schema.Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{messages: make(map[string][]*schema.Message)}
}

func (m *memoryRepo) AddMessage(_ context.Context, key string, msg *schema.Message) error {
	m.messages[key] = append(m.messages[key], msg)
	return nil
}

func (m *memoryRepo) LoadHistory(_ context.Context, key string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationKey: key, Messages: m.messages[key]}, nil
}

func (m *memoryRepo) ClearHistory(_ context.Context, key string) error {
	delete(m.messages, key)
	return nil
}

func (m *memoryRepo) GetMessageCount(_ context.Context, key string) (int, error) {
	return len(m.messages[key]), nil
}

func managerWith(repo model.ConversationRepository, maxTurns int) *MessagesManager {
	var cfg model.ConversationConfig
	cfg.Router.MaxTurns = maxTurns
	return NewMessagesManager(repo, cfg)
}

func TestProcessUserMessage_SavesTurnAndBuildsContext(t *testing.T) {
	repo := newMemoryRepo()
	mm := managerWith(repo, 5)
	ctx := context.Background()

	out, err := mm.ProcessUserMessage(ctx, "u1:s1", "What are my rights?")
	require.NoError(t, err)

	assert.Contains(t, out, "<conversation_context>")
	assert.Contains(t, out, "UserMessage(What are my rights?)")
	assert.Contains(t, out, "<current_message_to_analyze>")

	n, err := repo.GetMessageCount(ctx, "u1:s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessUserMessage_WindowTrimsOldTurns(t *testing.T) {
	repo := newMemoryRepo()
	mm := managerWith(repo, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := mm.ProcessUserMessage(ctx, "k", fmt.Sprintf("turn-%d", i))
		require.NoError(t, err)
	}

	out, err := mm.ProcessUserMessage(ctx, "k", "turn-4")
	require.NoError(t, err)

	// Only the last two history turns survive in the context window.
	assert.Contains(t, out, "turn-3")
	assert.NotContains(t, out, "turn-1")
}

func TestBuildResponseContext_SystemPromptFirst(t *testing.T) {
	repo := newMemoryRepo()
	mm := managerWith(repo, 5)
	ctx := context.Background()

	_, err := mm.ProcessUserMessage(ctx, "k", "hello")
	require.NoError(t, err)
	require.NoError(t, mm.SaveResponse(ctx, "k", "hi there"))
	_, err = mm.ProcessUserMessage(ctx, "k", "follow up")
	require.NoError(t, err)

	msgs, err := mm.BuildResponseContext(ctx, "k", "PERSONA")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "PERSONA", msgs[0].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "follow up", msgs[3].Content)
}

func TestClearHistory_EmptiesWorkingMemory(t *testing.T) {
	repo := newMemoryRepo()
	mm := managerWith(repo, 5)
	ctx := context.Background()

	_, err := mm.ProcessUserMessage(ctx, "k", "hello")
	require.NoError(t, err)
	require.NoError(t, mm.ClearHistory(ctx, "k"))

	n, err := repo.GetMessageCount(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}
