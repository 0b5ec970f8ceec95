package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	"github.com/meryambn/mimiScaleUp-sub005/services/realtime"
)

// Deps holds the services the API is served from.
type Deps struct {
	Conf      *core.Config
	Logger    core.Logger
	Validator *core.Validator

	UserSvc         user.ServiceInterface
	ProgramSvc      program.ServiceInterface
	NotificationSvc notification.ServiceInterface
	MessageSvc      message.ServiceInterface
	PlanningSvc     planning.ServiceInterface

	Hub      *realtime.Hub
	Relay    realtime.Handler
	Registry *prometheus.Registry
}

type Server struct {
	app          *echo.Echo
	addr         string
	deps         *Deps
	serverErrors chan error
	shutdown     chan os.Signal
}

// NewServer builds the API. When `shutdown` is nil, the server listens for SIGINT and SIGTERM itself.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s := &Server{
		app:          echo.New(),
		addr:         addr,
		deps:         deps,
		serverErrors: make(chan error, 1),
		shutdown:     shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Validator = s.deps.Validator
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.AllowOrigins,
		AllowCredentials: true,
	}))
	if s.deps.Registry != nil {
		s.app.Use(metricsMiddleware(newHTTPMetrics(s.deps.Registry)))
		s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf.SecretKey, ""))

	registerUserAPI(api, jwt, s.deps.UserSvc, s.deps.Validator, conf)
	registerProgramAPI(api, jwt, s.deps.ProgramSvc)
	registerNotificationAPI(api, jwt, s.deps.NotificationSvc)
	registerMessageAPI(api, jwt, s.deps.MessageSvc)
	registerPlanningAPI(api, jwt, s.deps.PlanningSvc)

	if s.deps.Hub != nil {
		wsJWT := middleware.JWTWithConfig(newJWTConfig(conf.SecretKey, "query:token"))
		registerRealtimeAPI(s.app, wsJWT, s.deps.Hub, s.deps.Relay, s.deps.UserSvc, s.deps.Logger, conf)
	}
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Start blocks until the server stops. Listening errors are sent on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.serverErrors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.serverErrors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// Shutdown closes the realtime connections, then gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Hub != nil {
		if err := s.deps.Hub.Shutdown(ctx); err != nil {
			s.deps.Logger.Warn("closing realtime connections", err)
		}
	}
	return errors.Wrap(s.app.Shutdown(ctx), "shutting down server")
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
