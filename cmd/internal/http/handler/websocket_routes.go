package handler

import (
	"context"
	"io"
	"net/http"

	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/infrastructure/websocket"
	"ephemchat/cmd/internal/utils"
	"ephemchat/cmd/internal/utils/apierror"
	"ephemchat/cmd/internal/utils/uid"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const maxFrameBytes = 64 * 1024

type WebSocketService interface {
	Authenticate(token string) (*utils.TokenData, apierror.ErrorResponse)
	RegisterConnection(ctx context.Context, handle string, token *utils.TokenData) *entity.Connection
	HandleMessage(ctx context.Context, handle string, raw []byte)
	RemoveConnection(ctx context.Context, handle string)
}

type DefaultWSRoute struct {
	WSService WebSocketService
	Hub       *websocket.Hub
	Upgrader  gorilla.Upgrader
}

func NewWSDefault(wsService WebSocketService, hub *websocket.Hub, allowedOrigins []string) *DefaultWSRoute {
	return &DefaultWSRoute{
		WSService: wsService,
		Hub:       hub,
		Upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleUpgrade terminates a websocket directly on this server. The token is
// checked before upgrading so rejected clients get a plain 401.
func (h *DefaultWSRoute) HandleUpgrade(c echo.Context) error {
	token, apierr := h.WSService.Authenticate(utils.ExtractToken(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	conn, err := h.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Debugf("websocket upgrade failed: %v", err)
		return nil
	}

	client := websocket.NewClient(uid.NewHandle(), conn)
	if err := h.Hub.Register(client); err != nil {
		_ = conn.Close()
		return nil
	}

	// The connection outlives the request context once hijacked
	ctx := context.WithoutCancel(c.Request().Context())
	h.WSService.RegisterConnection(ctx, client.Handle, token)

	go client.WritePump()
	go client.ReadPump()

	for raw := range client.Inbound() {
		h.WSService.HandleMessage(ctx, client.Handle, raw)
	}

	h.Hub.Unregister(client)
	client.Close()
	h.WSService.RemoveConnection(ctx, client.Handle)
	return nil
}

// Mount registers the endpoints of the active transport. The local transport
// only serves the upgrade, the callbacks exist only behind an API Gateway.
func (h *DefaultWSRoute) Mount(e *echo.Echo, apiGateway bool) {
	if !apiGateway {
		e.GET("/ws", h.HandleUpgrade)
		return
	}

	gw := e.Group("/ws", echomw.BodyLimit("64K"))
	gw.POST("/connect", h.HandleConnect)
	gw.POST("/message", h.HandleMessage)
	gw.POST("/disconnect", h.HandleDisconnect)
}

// HandleConnect is the $connect callback of an API Gateway websocket API.
func (h *DefaultWSRoute) HandleConnect(c echo.Context) error {
	connID := c.Request().Header.Get(websocket.HeaderConnectionID)
	if connID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("connectionId"))
	}

	token, apierr := h.WSService.Authenticate(utils.ExtractToken(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	h.WSService.RegisterConnection(c.Request().Context(), connID, token)
	return c.NoContent(http.StatusOK)
}

// HandleMessage is the $default callback, the body is one raw client frame.
func (h *DefaultWSRoute) HandleMessage(c echo.Context) error {
	connID := c.Request().Header.Get(websocket.HeaderConnectionID)
	if connID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("connectionId"))
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxFrameBytes+1))
	if err != nil || len(raw) > maxFrameBytes {
		return c.JSON(http.StatusBadRequest, apierror.MalformedPayloadError)
	}

	h.WSService.HandleMessage(c.Request().Context(), connID, raw)
	return c.NoContent(http.StatusOK)
}

func (h *DefaultWSRoute) HandleDisconnect(c echo.Context) error {
	connID := c.Request().Header.Get(websocket.HeaderConnectionID)
	if connID != "" {
		h.WSService.RemoveConnection(c.Request().Context(), connID)
	}
	return c.NoContent(http.StatusOK)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
