package devapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/rollcall/core"
)

// BasePath prefixes every route, matching the default api.baseURL.
const BasePath = "/api"

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Store          *Store
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		conf   *core.Config
		logger core.Logger
		opts   *Options
		app    *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(conf *core.Config, logger core.Logger, opts *Options) Server {
	s := &server{
		conf:   conf,
		logger: logger,
		opts:   opts,
		app:    echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger)
	s.app.Validator = requestValidator{v: core.NewValidator()}
	s.app.Debug = s.conf.Debug

	s.app.GET("/", home)

	tokens := tokenIssuer{
		appName: s.conf.AppName,
		key:     []byte(s.conf.SecretKey),
		ttl:     s.conf.DevServer.JWTExpirationDelta,
	}
	jwt := middleware.JWTWithConfig(tokens.config())

	registerAcademicsAPI(s.app.Group(BasePath), jwt, &academicsApi{
		store:  s.opts.Store,
		tokens: tokens,
		logger: s.logger,
	})
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Rollcall dev API!")
}
