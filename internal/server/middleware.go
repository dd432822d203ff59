package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	errx "github.com/neurosync-os/server/internal/core/error"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// ErrorHandlerMiddleware renders AppError values as safe JSON envelopes and
// hides everything else behind a generic 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *errx.AppError
		if errors.As(err, &appErr) {
			return ctx.Status(appErr.Status).JSON(fiber.Map{
				"success": false,
				"code":    appErr.Status,
				"message": appErr.Message,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{
				"success": false,
				"code":    fiberErr.Code,
				"message": fiberErr.Message,
			})
		}

		logx.Error().Err(err).Str("path", ctx.Path()).Msg("unhandled error")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"code":    fiber.StatusInternalServerError,
			"message": errx.SystemErrorMessage,
		})
	}
}

func ok(ctx *fiber.Ctx, data any) error {
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusOK,
		"data":    data,
	})
}
