package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber Locals key carrying the authenticated user ID.
const UserIDKey = "user_id"

// NewMiddleware validates the Bearer token and stores the user ID in Locals.
func NewMiddleware(svc *Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(ctx, "missing token")
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := svc.ParseToken(tokenStr)
		if err != nil {
			return unauthorized(ctx, "invalid token")
		}

		ctx.Locals(UserIDKey, userID)
		return ctx.Next()
	}
}

func unauthorized(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"code":    fiber.StatusUnauthorized,
		"message": message,
	})
}
