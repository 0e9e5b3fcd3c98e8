// Package web wires the bookshelf HTTP server: storage, services, sessions and routes.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/util/crypto"
	"github.com/bookshelf/bookshelf/web/controller"
	"github.com/bookshelf/bookshelf/web/locale"
	"github.com/bookshelf/bookshelf/web/middleware"
	"github.com/bookshelf/bookshelf/web/service"
	"github.com/bookshelf/bookshelf/web/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Users    *service.UserService
	Books    *service.BookService
	Metadata *service.MetadataService
	Export   *service.ExportService
	Sessions sessions.Store

	RateLimit middleware.RateLimitConfig
}

// Server represents the bookshelf API server and the resources it owns.
type Server struct {
	cfg *config.Config

	httpServer *http.Server
	listener   net.Listener

	db    *gorm.DB
	redis *redis.Client

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server for cfg. Nothing is opened until Start.
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{cfg: cfg, ctx: ctx, cancel: cancel}
}

// OpenBooks returns the book repository selected by cfg.Books.Backend.
func OpenBooks(cfg *config.Config, db *gorm.DB) (database.BookRepository, error) {
	switch cfg.Books.Backend {
	case config.BooksBackendJSON:
		logger.Info("Storing books in", cfg.Books.JSONPath)
		return database.NewJSONBookRepository(cfg.Books.JSONPath)
	case config.BooksBackendSQL, "":
		return database.NewSQLBookRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported books backend: %q", cfg.Books.Backend)
	}
}

// NewDeps builds the services on an open database.
func NewDeps(cfg *config.Config, db *gorm.DB, store sessions.Store) (*Deps, error) {
	books, err := OpenBooks(cfg, db)
	if err != nil {
		return nil, err
	}
	hasher := crypto.NewPasswordHasher(cfg.BcryptCost)

	limit := middleware.DefaultRateLimitConfig()
	limit.RequestsPerMinute = cfg.RateLimit.PerMinute
	limit.BurstSize = cfg.RateLimit.Burst

	return &Deps{
		Users:     service.NewUserService(db, books, hasher),
		Books:     service.NewBookService(books),
		Metadata:  service.NewMetadataService(cfg.GoogleBooks),
		Export:    service.NewExportService(books),
		Sessions:  store,
		RateLimit: limit,
	}, nil
}

// NewRouter registers middleware and controllers on a new gin engine.
func NewRouter(debug bool, deps *Deps) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(sessions.Sessions(session.CookieName, deps.Sessions))
	engine.Use(locale.LocalizerMiddleware())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	{
		base := controller.NewBaseController(deps.Users)
		controller.NewAuthController(api, base, deps.Users, middleware.RateLimitMiddleware(deps.RateLimit))
		controller.NewExportController(api, base, deps.Export)
		controller.NewBookController(api, base, deps.Books)
		controller.NewSearchController(api, base, deps.Metadata)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine
}

// Start opens the database and the session store, then serves in the background.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if err := locale.InitLocalizer(s.cfg.Language); err != nil {
		return err
	}

	s.db, err = database.InitDB(&s.cfg.Database, s.cfg.Debug)
	if err != nil {
		return err
	}

	store, client, err := session.NewStore(s.cfg)
	if err != nil {
		return err
	}
	s.redis = client
	if client != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis session store: %w", err)
		}
	}

	deps, err := NewDeps(s.cfg, s.db, store)
	if err != nil {
		return err
	}
	engine := NewRouter(s.cfg.Debug, deps)

	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Web server stopped:", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down and releases the database and redis client.
func (s *Server) Stop() error {
	defer s.cancel()

	var errs []error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, s.httpServer.Shutdown(ctx))
	} else if s.listener != nil {
		errs = append(errs, s.listener.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
		s.redis = nil
	}
	if s.db != nil {
		errs = append(errs, database.CloseDB(s.db))
		s.db = nil
	}
	return common.Combine(errs...)
}

// GetCtx returns the server's context.
func (s *Server) GetCtx() context.Context { return s.ctx }
