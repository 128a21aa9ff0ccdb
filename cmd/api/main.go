package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ephemchat/cmd/internal/config"
	"ephemchat/cmd/internal/domain/policy"
	"ephemchat/cmd/internal/domain/sqlite"
	"ephemchat/cmd/internal/domain/sqlite/repository"
	"ephemchat/cmd/internal/http/handler"
	"ephemchat/cmd/internal/http/middleware"
	"ephemchat/cmd/internal/infrastructure/presence"
	"ephemchat/cmd/internal/infrastructure/websocket"
	"ephemchat/cmd/internal/service"
	"ephemchat/cmd/internal/service/jobs"
	"ephemchat/cmd/internal/utils"
	"ephemchat/cmd/internal/utils/uid"
	"ephemchat/cmd/internal/utils/validators"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Loads env vars depending on environment
	if err := config.LoadEnv(context.Background()); err != nil {
		log.Fatalf("unable to load environment, %v", err)
	}

	cfg := &config.Config{}
	app := &cli.App{
		Name:  "ephemchat",
		Usage: "anonymous chat rooms and random video matching",
		Flags: config.Flags(cfg),
		Action: func(c *cli.Context) error {
			return run(c.Context, cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.SetLevel(cfg.Lvl())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validators.New()
	uid.Init(cfg.MachineID)

	// Init SQLite
	db, err := sqlite.Init(cfg.DatabasePath)
	if err != nil {
		return err
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := newPresenceStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Gettings repos
	messageRepo := repository.NewMessageRepository(db)
	roomRepo := repository.NewRoomRepository(db)

	// Getting services
	calls := service.NewCallService()
	rooms := service.NewRoomRegistry()
	chat := service.NewChatService(messageRepo, roomRepo, policy.NewMessagePolicy(cfg.ExtraBlockedWords()...), store)

	var (
		hub     *websocket.Hub
		gateway websocket.GatewayClient
	)
	if cfg.Transport == config.TransportAPIGateway {
		gateway, err = websocket.NewAWSGatewayClient(ctx, cfg.APIGatewayEndpoint, cfg.AWSRegion)
		if err != nil {
			return err
		}
	} else {
		hub = websocket.NewHub()
		gateway = hub
	}

	wsService := service.NewWebSocketService(verifier, store, chat, calls, rooms, gateway, validate)
	utilService := service.NewUtilService(wsService, calls, store, chat)

	// Gettings handler
	wsRoutes := handler.NewWSDefault(wsService, hub, cfg.Origins())
	utilRoutes := handler.NewUtilRoute(utilService)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.Origins()}))

	// Websocket
	wsRoutes.Mount(e, cfg.Transport == config.TransportAPIGateway)

	// Docker Compose healthcheck
	e.GET("/health", utilRoutes.HealthCheck)

	api := e.Group("/api", echomw.BodyLimit("1M"), middleware.NewAuthMiddleware(&middleware.AuthMiddlewareConfig{Verifier: verifier}))
	api.GET("/stats", utilRoutes.GetStats)
	api.GET("/users/me/online", utilRoutes.GetOwnStatus)
	api.GET("/users/:id/online", utilRoutes.GetOnlineStatus)
	api.GET("/rooms/:id/presence", utilRoutes.GetRoomPresence)

	cleaner := jobs.NewConnectionCleaner(wsService, gateway, cfg.CleanInterval)
	cleaner.CheckHeartbeat = cfg.Transport == config.TransportAPIGateway
	refresher := jobs.NewOnlineRefresher(wsService, cfg.RefreshInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		refresher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		cleaner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Infof("listening on :%d (transport=%s, presence=%s)", cfg.Port, cfg.Transport, store.Mode())
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newVerifier(ctx context.Context, cfg *config.Config) (utils.TokenVerifier, error) {
	if cfg.JWKSURL != "" {
		return utils.NewJWKSVerifier(ctx, cfg.JWKSURL)
	}
	return utils.NewHMACVerifier(cfg.JWTSecret)
}

// newPresenceStore prefers redis and degrades to process memory when it is
// not configured or cannot be reached.
func newPresenceStore(ctx context.Context, cfg *config.Config) (*presence.Store, error) {
	var primary presence.Backend
	if cfg.RedisURL != "" {
		rb, err := presence.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		primary = rb
	}

	backend := presence.NewFailoverBackend(ctx, primary, presence.NewMemoryBackend())
	return presence.NewStore(backend, cfg.PresenceConfig()), nil
}
