package middleware

import (
	"ephemchat/cmd/internal/utils"
	"ephemchat/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type AuthMiddlewareConfig struct {
	Verifier utils.TokenVerifier
}

// NewAuthMiddleware creates the handler with dependencies injected
func NewAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := utils.ExtractToken(c)
			if token == "" {
				return c.JSON(apierror.MissingAuthTokenError.Code(), apierror.MissingAuthTokenError)
			}

			tokenData, err := cfg.Verifier.Verify(token)
			if err != nil {
				return c.JSON(apierror.InvalidAuthTokenError.Code(), apierror.InvalidAuthTokenError)
			}

			c.Set(utils.ContextUserKey, tokenData)
			return next(c)
		}
	}
}
