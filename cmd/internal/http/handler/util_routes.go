package handler

import (
	"context"
	"net/http"
	"strings"

	"ephemchat/cmd/internal/contract"
	"ephemchat/cmd/internal/utils"
	"ephemchat/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type UtilService interface {
	Health() *contract.HealthResponse
	GetStats() *contract.StatsResponse
	GetOnlineStatus(ctx context.Context, userID string) (*contract.OnlineStatusResponse, apierror.ErrorResponse)
	GetRoomPresence(ctx context.Context, roomID string) (*contract.RoomPresenceResponse, apierror.ErrorResponse)
}

type DefaultUtilRoute struct {
	UtilService UtilService
}

func NewUtilRoute(utilService UtilService) *DefaultUtilRoute {
	return &DefaultUtilRoute{UtilService: utilService}
}

// HealthCheck backs the Docker Compose healthcheck.
func (u *DefaultUtilRoute) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, u.UtilService.Health())
}

func (u *DefaultUtilRoute) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, u.UtilService.GetStats())
}

func (u *DefaultUtilRoute) GetOnlineStatus(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		apierr := apierror.NewMissingParamError("id")
		return c.JSON(apierr.Code(), apierr)
	}

	status, apierr := u.UtilService.GetOnlineStatus(c.Request().Context(), userID)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, status)
}

// GetOwnStatus reports the caller's own online flag.
func (u *DefaultUtilRoute) GetOwnStatus(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	status, apierr := u.UtilService.GetOnlineStatus(c.Request().Context(), user.UserID)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, status)
}

func (u *DefaultUtilRoute) GetRoomPresence(c echo.Context) error {
	roomID := strings.TrimSpace(c.Param("id"))
	if roomID == "" {
		apierr := apierror.NewMissingParamError("id")
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := u.UtilService.GetRoomPresence(c.Request().Context(), roomID)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}
