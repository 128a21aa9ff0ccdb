package utils

import (
	"ephemchat/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const ContextUserKey = "user"

func GetUserFromContext(c echo.Context) (*TokenData, apierror.ErrorResponse) {
	val := c.Get(ContextUserKey)
	if val == nil {
		log.Warnf("route %s attempted to read nil user from context", c.Request().URL)
		return nil, apierror.UnauthorizedError
	}

	user, ok := val.(*TokenData)
	if !ok {
		log.Warnf("expected token data at 'user' context key, got %T", val)
		return nil, apierror.InternalServerError
	}
	return user, nil
}
