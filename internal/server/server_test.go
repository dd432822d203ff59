package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurosync-os/server/internal/agent/graph/conversations"
	"github.com/neurosync-os/server/internal/agent/model"
	"github.com/neurosync-os/server/internal/auth"
	"github.com/neurosync-os/server/internal/profile"
	"github.com/neurosync-os/server/internal/storage"
)

// ====================== fakes ======================

type memoryUserRepo struct {
	byEmail map[string]*storage.User
}

func (m *memoryUserRepo) Create(_ context.Context, u *storage.User) error {
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (*storage.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*storage.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

type memoryStudentRepo struct {
	students map[uuid.UUID]*storage.Student
}

func (m *memoryStudentRepo) Create(_ context.Context, s *storage.Student) error {
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memoryStudentRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]storage.Student, error) {
	var out []storage.Student
	for _, s := range m.students {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryStudentRepo) FindOwned(_ context.Context, userID, studentID uuid.UUID) (*storage.Student, error) {
	s, ok := m.students[studentID]
	if !ok || s.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStudentRepo) UpdateProfile(_ context.Context, studentID uuid.UUID, name, diagnosis, grade, iepDate string) error {
	s, ok := m.students[studentID]
	if !ok {
		return storage.ErrNotFound
	}
	s.Name, s.Diagnosis, s.Grade, s.IEPDate = name, diagnosis, grade, iepDate
	return nil
}

type memoryChatLog struct {
	turns []storage.ChatTurn
}

func (m *memoryChatLog) AppendTurn(_ context.Context, turn *storage.ChatTurn) error {
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *memoryChatLog) LoadHistory(_ context.Context, userID, studentID uuid.UUID) ([]storage.ChatTurn, error) {
	var out []storage.ChatTurn
	for _, t := range m.turns {
		if t.UserID == userID && t.StudentID == studentID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memoryConversationRepo struct {
	messages map[string][]*schema.Message
}

func (m *memoryConversationRepo) AddMessage(_ context.Context, key string, msg *schema.Message) error {
	m.messages[key] = append(m.messages[key], msg)
	return nil
}

func (m *memoryConversationRepo) LoadHistory(_ context.Context, key string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationKey: key, Messages: m.messages[key]}, nil
}

func (m *memoryConversationRepo) ClearHistory(_ context.Context, key string) error {
	delete(m.messages, key)
	return nil
}

func (m *memoryConversationRepo) GetMessageCount(_ context.Context, key string) (int, error) {
	return len(m.messages[key]), nil
}

type memoryDocumentRepo struct {
	docs map[string]string
}

func (m *memoryDocumentRepo) SaveDocument(_ context.Context, studentID, text string) error {
	m.docs[studentID] = text
	return nil
}

func (m *memoryDocumentRepo) LoadDocument(_ context.Context, studentID string) (string, error) {
	return m.docs[studentID], nil
}

type fakeRunner struct {
	result model.AgentResult
	err    error
	calls  []model.QueryInput
}

func (f *fakeRunner) Invoke(_ context.Context, in model.QueryInput) (model.AgentResult, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return model.AgentResult{}, f.err
	}
	return f.result, nil
}

type fakeChatModel struct {
	response string
}

func (f *fakeChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	return schema.AssistantMessage(f.response, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](1)
	sw.Send(schema.AssistantMessage(f.response, nil), nil)
	sw.Close()
	return sr, nil
}

// ====================== harness ======================

type harness struct {
	app      *fiber.App
	users    *memoryUserRepo
	students *memoryStudentRepo
	chatLog  *memoryChatLog
	convRepo *memoryConversationRepo
	docs     *memoryDocumentRepo
	runner   *fakeRunner
	token    string
	userID   uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	users := &memoryUserRepo{byEmail: map[string]*storage.User{}}
	students := &memoryStudentRepo{students: map[uuid.UUID]*storage.Student{}}
	chatLog := &memoryChatLog{}
	convRepo := &memoryConversationRepo{messages: map[string][]*schema.Message{}}
	docs := &memoryDocumentRepo{docs: map[string]string{}}
	runner := &fakeRunner{result: model.AgentResult{
		Text:  "Here is a plan.",
		Agent: model.AgentStrategy,
		Label: model.LabelStrategy,
	}}

	authSvc, err := auth.NewService(users, auth.Config{Secret: "test-secret", TokenTTL: "1h"})
	require.NoError(t, err)

	extractor := profile.NewExtractor(&fakeChatModel{
		response: `{"name":"Alex","diagnosis":"ADHD","grade":"4","iep_date":"2026-01-15"}`,
	}, 3000)

	sessions := conversations.NewMessagesManager(convRepo, model.ConversationConfig{})

	srv := New(Config{Port: "0", CorsAllowedOrigins: "http://localhost:5173", BodyLimitMB: 10}, Deps{
		AuthService:    authSvc,
		AuthController: NewAuthController(authSvc),
		StudentController: NewStudentController(students, docs, extractor, model.DocumentConfig{
			MaxContextChars: 12000,
			MaxStoredChars:  20000,
			ProfileChars:    3000,
		}),
		ChatController: NewChatController(runner, students, chatLog, sessions),
	})

	h := &harness{
		app:      srv.App(),
		users:    users,
		students: students,
		chatLog:  chatLog,
		convRepo: convRepo,
		docs:     docs,
		runner:   runner,
	}

	user, err := authSvc.Signup(context.Background(), "parent@example.com", "hunter22")
	require.NoError(t, err)
	h.userID = user.ID

	token, err := authSvc.Login(context.Background(), "parent@example.com", "hunter22")
	require.NoError(t, err)
	h.token = token

	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
	return envelope.Data
}

func (h *harness) createStudent(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/students/", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	id, err := uuid.Parse(data["id"].(string))
	require.NoError(t, err)
	return id
}

// ====================== tests ======================

func TestProtectedRoutes_RejectMissingToken(t *testing.T) {
	h := newHarness(t)
	h.token = ""

	resp := h.do(t, http.MethodGet, "/api/students/", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStudentLifecycle(t *testing.T) {
	h := newHarness(t)

	id := h.createStudent(t, "Alex")

	resp := h.do(t, http.MethodGet, fmt.Sprintf("/api/students/%s/profile", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "Alex", data["name"])
}

func TestStudentOwnership_OtherUsersStudentHidden(t *testing.T) {
	h := newHarness(t)

	foreign := &storage.Student{ID: uuid.New(), UserID: uuid.New(), Name: "Not Yours", CreatedAt: time.Now()}
	require.NoError(t, h.students.Create(context.Background(), foreign))

	resp := h.do(t, http.MethodGet, fmt.Sprintf("/api/students/%s/profile", foreign.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadDocument_StoresTextAndExtractsProfile(t *testing.T) {
	h := newHarness(t)
	id := h.createStudent(t, "Placeholder Name")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("document", "record.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Student Alex, grade 4, diagnosed with ADHD. IEP dated 2026-01-15."))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/students/%s/document", id), &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, h.docs.docs[id.String()], "Student Alex")

	student, err := h.students.FindOwned(context.Background(), h.userID, id)
	require.NoError(t, err)
	assert.Equal(t, "Alex", student.Name)
	assert.Equal(t, "ADHD", student.Diagnosis)
	assert.Equal(t, "4", student.Grade)
	assert.Equal(t, "2026-01-15", student.IEPDate)
}

func TestChat_AppendsBothTurnsToDurableLog(t *testing.T) {
	h := newHarness(t)
	id := h.createStudent(t, "Alex")

	resp := h.do(t, http.MethodPost, fmt.Sprintf("/api/students/%s/chat/", id),
		map[string]string{"query": "How do I help with reading?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "Here is a plan.", data["text"])
	assert.Equal(t, model.AgentStrategy, data["agent"])

	require.Len(t, h.chatLog.turns, 2)
	assert.Equal(t, storage.RoleUser, h.chatLog.turns[0].Role)
	assert.Equal(t, storage.RoleAssistant, h.chatLog.turns[1].Role)
	assert.Equal(t, model.AgentStrategy, h.chatLog.turns[1].Agent)

	require.Len(t, h.runner.calls, 1)
	assert.Equal(t, h.userID.String(), h.runner.calls[0].UserID)
	assert.Equal(t, id.String(), h.runner.calls[0].StudentID)
}

func TestChat_EmptyQueryRejectedBeforeInvoke(t *testing.T) {
	h := newHarness(t)
	id := h.createStudent(t, "Alex")

	resp := h.do(t, http.MethodPost, fmt.Sprintf("/api/students/%s/chat/", id),
		map[string]string{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, h.runner.calls)
	assert.Empty(t, h.chatLog.turns)
}

func TestChat_RunnerFailureReturnsGenerationError(t *testing.T) {
	h := newHarness(t)
	id := h.createStudent(t, "Alex")
	h.runner.err = fmt.Errorf("upstream unavailable")

	resp := h.do(t, http.MethodPost, fmt.Sprintf("/api/students/%s/chat/", id),
		map[string]string{"query": "hello"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// The user turn is still logged even when generation fails.
	require.Len(t, h.chatLog.turns, 1)
	assert.Equal(t, storage.RoleUser, h.chatLog.turns[0].Role)
}

func TestClearHistory_EmptiesWorkingMemoryOnly(t *testing.T) {
	h := newHarness(t)
	id := h.createStudent(t, "Alex")

	key := model.QueryInput{UserID: h.userID.String(), StudentID: id.String()}.ConversationKey()
	require.NoError(t, h.convRepo.AddMessage(context.Background(), key, schema.UserMessage("earlier turn")))
	h.chatLog.turns = append(h.chatLog.turns, storage.ChatTurn{
		UserID: h.userID, StudentID: id, Role: storage.RoleUser, Text: "earlier turn",
	})

	resp := h.do(t, http.MethodDelete, fmt.Sprintf("/api/students/%s/chat/history", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, h.convRepo.messages[key], "working memory must be cleared")
	assert.Len(t, h.chatLog.turns, 1, "durable log must survive a clear")
}

func TestHistoryEndpoint_ReadsDurableLog(t *testing.T) {
	h := newHarness(t)
	id := h.createStudent(t, "Alex")

	h.do(t, http.MethodPost, fmt.Sprintf("/api/students/%s/chat/", id),
		map[string]string{"query": "first question"})

	resp := h.do(t, http.MethodGet, fmt.Sprintf("/api/students/%s/chat/history", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool               `json:"success"`
		Data    []storage.ChatTurn `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "first question", envelope.Data[0].Text)
}

func TestSignupAndLoginOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.token = ""

	resp := h.do(t, http.MethodPost, "/api/auth/signup",
		map[string]string{"email": "New@Example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "new@example.com", data["email"], "email must be normalised")

	resp = h.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "new@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeData(t, resp)
	assert.NotEmpty(t, data["token"])
}
