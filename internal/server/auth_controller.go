package server

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/neurosync-os/server/internal/auth"
	errx "github.com/neurosync-os/server/internal/core/error"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthController struct {
	service *auth.Service
}

func NewAuthController(service *auth.Service) *AuthController {
	return &AuthController{service: service}
}

func (c *AuthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/signup", c.Signup)
	h.Post("/login", c.Login)
}

func (c *AuthController) Signup(ctx *fiber.Ctx) error {
	req, err := parseCredentials(ctx)
	if err != nil {
		return err
	}

	user, err := c.service.Signup(ctx.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return ok(ctx, fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (c *AuthController) Login(ctx *fiber.Ctx) error {
	req, err := parseCredentials(ctx)
	if err != nil {
		return err
	}

	token, err := c.service.Login(ctx.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return ok(ctx, fiber.Map{"token": token})
}

func parseCredentials(ctx *fiber.Ctx) (*credentialsRequest, error) {
	var req credentialsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, errx.New(err, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return nil, errx.New(nil, http.StatusBadRequest, "email and password are required")
	}
	return &req, nil
}
