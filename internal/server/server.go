package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/neurosync-os/server/internal/auth"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// Config is the HTTP surface configuration.
type Config struct {
	Port               string `envconfig:"APP_PORT" default:"3000"`
	CorsAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	BodyLimitMB        int    `envconfig:"BODY_LIMIT_MB" default:"10"`
}

// Deps bundles the request handlers behind the HTTP surface.
type Deps struct {
	AuthService       *auth.Service
	AuthController    *AuthController
	StudentController *StudentController
	ChatController    *ChatController
}

type Server struct {
	app *fiber.App
	cfg Config
}

func New(cfg Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.BodyLimitMB * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	app.Use(ErrorHandlerMiddleware())

	registerRoutes(app, deps)

	return &Server{app: app, cfg: cfg}
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	logx.Info().Str("port", s.cfg.Port).Msg("server listening")
	return s.app.Listen(":" + s.cfg.Port)
}

func registerRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api")

	deps.AuthController.RegisterRoutes(api)

	protected := auth.NewMiddleware(deps.AuthService)
	deps.StudentController.RegisterRoutes(api, protected)
	deps.ChatController.RegisterRoutes(api, protected)
}
