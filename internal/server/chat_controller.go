package server

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/neurosync-os/server/internal/agent/graph"
	"github.com/neurosync-os/server/internal/agent/graph/conversations"
	"github.com/neurosync-os/server/internal/agent/model"
	errx "github.com/neurosync-os/server/internal/core/error"
	"github.com/neurosync-os/server/internal/storage"
	logx "github.com/neurosync-os/server/pkg/logger"
)

type chatRequest struct {
	Query string `json:"query"`
}

// ChatController runs routed turns against a student case file and exposes
// the durable chat log. Clearing the session only touches working memory.
type ChatController struct {
	runner   graph.Runner
	students storage.StudentRepository
	chatLog  storage.ChatLogRepository
	sessions *conversations.MessagesManager
}

func NewChatController(
	runner graph.Runner,
	students storage.StudentRepository,
	chatLog storage.ChatLogRepository,
	sessions *conversations.MessagesManager,
) *ChatController {
	return &ChatController{
		runner:   runner,
		students: students,
		chatLog:  chatLog,
		sessions: sessions,
	}
}

func (c *ChatController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	h := r.Group("/students/:id/chat", protected)
	h.Post("/", c.Chat)
	h.Get("/history", c.History)
	h.Delete("/history", c.ClearHistory)
}

func (c *ChatController) Chat(ctx *fiber.Ctx) error {
	student, err := c.owned(ctx)
	if err != nil {
		return err
	}

	var req chatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errx.New(err, http.StatusBadRequest, "invalid request body")
	}
	if err := graph.ValidateQuery(req.Query); err != nil {
		return errx.New(err, http.StatusBadRequest, "query must not be empty")
	}

	userID := currentUserID(ctx)
	c.appendTurn(ctx, userID, student.ID, storage.RoleUser, req.Query, "")

	in := model.QueryInput{
		UserID:    userID.String(),
		StudentID: student.ID.String(),
		Query:     req.Query,
	}
	result, err := c.runner.Invoke(ctx.Context(), in)
	if err != nil {
		logx.Error().Err(err).
			Str("student_id", student.ID.String()).
			Msg("routed turn failed")
		return errx.New(err, http.StatusBadGateway, errx.GenerationErrorMessage)
	}

	c.appendTurn(ctx, userID, student.ID, storage.RoleAssistant, result.Text, result.Agent)

	return ok(ctx, result)
}

func (c *ChatController) History(ctx *fiber.Ctx) error {
	student, err := c.owned(ctx)
	if err != nil {
		return err
	}

	turns, err := c.chatLog.LoadHistory(ctx.Context(), currentUserID(ctx), student.ID)
	if err != nil {
		return errx.New(err, http.StatusBadGateway, errx.DatabaseErrorMessage)
	}
	return ok(ctx, turns)
}

func (c *ChatController) ClearHistory(ctx *fiber.Ctx) error {
	student, err := c.owned(ctx)
	if err != nil {
		return err
	}

	in := model.QueryInput{UserID: currentUserID(ctx).String(), StudentID: student.ID.String()}
	if err := c.sessions.ClearHistory(ctx.Context(), in.ConversationKey()); err != nil {
		return err
	}
	return ok(ctx, fiber.Map{"cleared": true})
}

// appendTurn writes to the durable log. Log failures are reported but never
// fail the chat turn itself.
func (c *ChatController) appendTurn(ctx *fiber.Ctx, userID, studentID uuid.UUID, role, text, agent string) {
	turn := &storage.ChatTurn{
		ID:        uuid.New(),
		UserID:    userID,
		StudentID: studentID,
		Role:      role,
		Text:      text,
		Agent:     agent,
		CreatedAt: time.Now(),
	}
	if err := c.chatLog.AppendTurn(ctx.Context(), turn); err != nil {
		logx.Error().Err(err).
			Str("student_id", studentID.String()).
			Str("role", role).
			Msg("failed to append chat turn")
	}
}

func (c *ChatController) owned(ctx *fiber.Ctx) (*storage.Student, error) {
	studentID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return nil, errx.New(err, http.StatusBadRequest, "invalid student id")
	}
	student, err := c.students.FindOwned(ctx.Context(), currentUserID(ctx), studentID)
	if err != nil {
		return nil, errx.New(err, http.StatusNotFound, "student not found")
	}
	return student, nil
}
