package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/neurosync-os/server/internal/agent/model"
	"github.com/neurosync-os/server/internal/auth"
	errx "github.com/neurosync-os/server/internal/core/error"
	"github.com/neurosync-os/server/internal/ingest"
	"github.com/neurosync-os/server/internal/profile"
	"github.com/neurosync-os/server/internal/storage"
	logx "github.com/neurosync-os/server/pkg/logger"
)

type createStudentRequest struct {
	Name string `json:"name"`
}

// StudentController manages case files: creation, listing, document upload
// with profile extraction, and profile reads.
type StudentController struct {
	students  storage.StudentRepository
	documents model.DocumentRepository
	extractor *profile.Extractor
	docCfg    model.DocumentConfig
}

func NewStudentController(
	students storage.StudentRepository,
	documents model.DocumentRepository,
	extractor *profile.Extractor,
	docCfg model.DocumentConfig,
) *StudentController {
	return &StudentController{
		students:  students,
		documents: documents,
		extractor: extractor,
		docCfg:    docCfg,
	}
}

func (c *StudentController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	h := r.Group("/students", protected)
	h.Get("/", c.List)
	h.Post("/", c.Create)
	h.Get("/:id/profile", c.Profile)
	h.Post("/:id/document", c.UploadDocument)
}

func (c *StudentController) List(ctx *fiber.Ctx) error {
	userID := currentUserID(ctx)
	students, err := c.students.ListByUser(ctx.Context(), userID)
	if err != nil {
		return errx.New(err, http.StatusBadGateway, errx.DatabaseErrorMessage)
	}
	return ok(ctx, students)
}

func (c *StudentController) Create(ctx *fiber.Ctx) error {
	var req createStudentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errx.New(err, http.StatusBadRequest, "invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errx.New(nil, http.StatusBadRequest, "student name is required")
	}

	student := &storage.Student{
		ID:        uuid.New(),
		UserID:    currentUserID(ctx),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := c.students.Create(ctx.Context(), student); err != nil {
		return errx.New(err, http.StatusBadGateway, errx.DatabaseErrorMessage)
	}
	return ok(ctx, student)
}

func (c *StudentController) Profile(ctx *fiber.Ctx) error {
	student, err := c.ownedStudent(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, student)
}

// UploadDocument ingests one record document: extract text, store it for the
// history persona, and refresh the profile columns via the extraction call.
func (c *StudentController) UploadDocument(ctx *fiber.Ctx) error {
	student, err := c.ownedStudent(ctx)
	if err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("document")
	if err != nil {
		return errx.New(err, http.StatusBadRequest, "document file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errx.New(err, http.StatusUnprocessableEntity, errx.DocumentReadErrorMessage)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errx.New(err, http.StatusUnprocessableEntity, errx.DocumentReadErrorMessage)
	}

	text, err := ingest.ExtractText(fileHeader.Filename, data)
	if err != nil {
		return errx.New(err, http.StatusUnprocessableEntity, errx.DocumentReadErrorMessage)
	}

	stored := model.TruncateRunes(text, c.docCfg.MaxStoredChars)
	if err := c.documents.SaveDocument(ctx.Context(), student.ID.String(), stored); err != nil {
		return err
	}

	// Profile extraction never fails; worst case it writes the placeholder.
	p := c.extractor.Extract(ctx.Context(), stored)
	if err := c.students.UpdateProfile(ctx.Context(), student.ID, p.Name, p.Diagnosis, p.Grade, p.IEPDate); err != nil {
		logx.Error().Err(err).Str("student_id", student.ID.String()).Msg("failed to update student profile")
		return errx.New(err, http.StatusBadGateway, errx.DatabaseErrorMessage)
	}

	return ok(ctx, fiber.Map{
		"profile":      p,
		"stored_runes": len([]rune(stored)),
	})
}

func (c *StudentController) ownedStudent(ctx *fiber.Ctx) (*storage.Student, error) {
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

func currentUserID(ctx *fiber.Ctx) uuid.UUID {
	if id, ok := ctx.Locals(auth.UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
