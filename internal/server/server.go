package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/chatrelay/internal/auth"
	"github.com/pscheid92/chatrelay/internal/config"
	"github.com/pscheid92/chatrelay/internal/manager"
	goredis "github.com/redis/go-redis/v9"
)

type Server struct {
	echo    *echo.Echo
	config  *config.Config
	manager *manager.Manager
	authn   *auth.Authenticator
	clock   clockwork.Clock

	// redisClient is nil when running with the in-process broker; the
	// readiness check skips Redis in that case.
	redisClient *goredis.Client

	upgrader  websocket.Upgrader
	startTime time.Time
}

func NewServer(cfg *config.Config, mgr *manager.Manager, authn *auth.Authenticator, redisClient *goredis.Client, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		manager:     mgr,
		authn:       authn,
		clock:       clock,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(":" + s.config.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
