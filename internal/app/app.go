package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/Fieldops/fieldops/config"
	"github.com/Fieldops/fieldops/internal/database"
	"github.com/Fieldops/fieldops/internal/domain"
	httpHandler "github.com/Fieldops/fieldops/internal/http"
	"github.com/Fieldops/fieldops/internal/http/middleware"
	"github.com/Fieldops/fieldops/internal/repository"
	"github.com/Fieldops/fieldops/internal/service"
	"github.com/Fieldops/fieldops/pkg/cache"
	"github.com/Fieldops/fieldops/pkg/liquid"
	"github.com/Fieldops/fieldops/pkg/logger"
	"github.com/Fieldops/fieldops/pkg/ratelimiter"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

// AppInterface defines the interface for the App
type AppInterface interface {
	Initialize() error
	Start() error
	Shutdown(ctx context.Context) error

	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetMux() *http.ServeMux
	GetDB() *sql.DB

	GetAutomationRepository() domain.AutomationRepository
	GetWorkflowRepository() domain.WorkflowRepository

	IsServerCreated() bool
	WaitForServerStart(ctx context.Context) bool

	InitDB() error
	InitTracing() error
	InitRepositories() error
	InitServices() error
	InitHandlers() error

	SetShutdownTimeout(timeout time.Duration)
	GetActiveRequestCount() int64
	GetShutdownContext() context.Context
}

type shutdownContextKey struct{}

// App encapsulates the application dependencies and configuration
type App struct {
	config *config.Config
	logger logger.Logger
	db     *sql.DB

	// Repositories
	automationRepo domain.AutomationRepository
	workflowRepo   domain.WorkflowRepository

	// Services
	automationService *service.AutomationService
	workflowService   *service.WorkflowService
	executionService  *service.ExecutionService
	aiService         *service.AIService
	aiCache           *cache.TTLCache[*domain.AIGenerationResponse]
	rateLimiter       *ratelimiter.RateLimiter

	// stopDBStats ends the ocsql stats recorder started by InitDB
	stopDBStats func()

	mux    *http.ServeMux
	server *http.Server

	serverMu      sync.RWMutex
	serverStarted chan struct{}

	shutdownCtx     context.Context
	shutdownCancel  context.CancelFunc
	activeRequests  int64
	requestWg       sync.WaitGroup
	shutdownTimeout time.Duration
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use a mock database
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logger.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// NewApp creates a new application instance with the given options
func NewApp(cfg *config.Config, opts ...AppOption) AppInterface {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	app := &App{
		config:          cfg,
		logger:          logger.NewLoggerWithLevel(cfg.LogLevel),
		mux:             http.NewServeMux(),
		serverStarted:   make(chan struct{}),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
		shutdownTimeout: shutdownTimeout,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing initializes OpenCensus tracing
func (a *App) InitTracing() error {
	if err := tracing.InitTracing(&a.config.Tracing, a.logger); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return nil
}

// InitDB connects to postgres, creating the database and tables when missing.
// A database injected with WithMockDB is used as is. Connection pool stats are
// recorded while tracing is enabled.
func (a *App) InitDB() error {
	if a.db == nil {
		if err := a.connectDB(); err != nil {
			return err
		}
	}

	if a.config.Tracing.Enabled && a.stopDBStats == nil {
		a.stopDBStats = ocsql.RecordStats(a.db, 5*time.Second)
	}
	return nil
}

func (a *App) connectDB() error {
	dbCfg := &a.config.Database
	a.logger.WithFields(map[string]interface{}{
		"host":    dbCfg.Host,
		"port":    dbCfg.Port,
		"user":    dbCfg.User,
		"dbname":  dbCfg.DBName,
		"sslmode": dbCfg.SSLMode,
	}).Info("Connecting to database")

	if err := database.EnsureDatabaseExists(database.GetPostgresDSN(dbCfg), dbCfg.DBName); err != nil {
		a.logger.Error(err.Error())
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	db, err := database.Connect(dbCfg, a.config.Tracing.Enabled)
	if err != nil {
		return err
	}

	if err := database.InitializeDatabase(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	a.db = db
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.automationRepo = repository.NewAutomationRepository(a.db)
	a.workflowRepo = repository.NewWorkflowRepository(a.db)
	return nil
}

// InitServices initializes all application services
func (a *App) InitServices() error {
	if a.automationRepo == nil || a.workflowRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	substitutor := domain.NewSubstitutor(
		domain.WithLocation(a.config.Location()),
		domain.WithPaymentBaseURL(a.config.Automation.PaymentBaseURL),
	)

	a.automationService = service.NewAutomationService(a.automationRepo, substitutor, liquid.NewRenderer(), a.logger)
	a.workflowService = service.NewWorkflowService(a.workflowRepo, a.logger)
	a.executionService = service.NewExecutionService(a.automationRepo, a.logger)

	a.aiCache = cache.NewTTLCache[*domain.AIGenerationResponse](time.Minute)
	a.rateLimiter = ratelimiter.NewRateLimiter()
	a.aiService = service.NewAIService(service.AIServiceConfig{
		Generator:      service.NewTextGenerator(a.config.AI, a.logger),
		Cache:          a.aiCache,
		CacheTTL:       a.config.AI.CacheTTL,
		RateLimiter:    a.rateLimiter,
		RequestsPerMin: a.config.AI.RequestsPerMin,
		Timeout:        a.config.AI.Timeout,
		Logger:         a.logger,
	})

	a.logger.WithField("ai_provider", a.config.AI.Provider).Info("Services initialized")
	return nil
}

// InitHandlers registers all HTTP routes on a fresh mux
func (a *App) InitHandlers() error {
	a.mux = http.NewServeMux()

	getJWTSecret := func() ([]byte, error) {
		if a.config.Security.JWTSecret == "" {
			return nil, fmt.Errorf("JWT secret is not configured")
		}
		return []byte(a.config.Security.JWTSecret), nil
	}

	httpHandler.NewHealthHandler(a.db).RegisterRoutes(a.mux)
	httpHandler.NewAutomationHandler(a.automationService, getJWTSecret, a.logger).RegisterRoutes(a.mux)
	httpHandler.NewWorkflowHandler(a.workflowService, getJWTSecret, a.logger).RegisterRoutes(a.mux)
	httpHandler.NewAIHandler(a.aiService, getJWTSecret, a.logger).RegisterRoutes(a.mux)

	if a.config.Security.WebhookSecret == "" {
		a.logger.Warn("WEBHOOK_SECRET is not set, execution reports are disabled")
		return nil
	}
	webhookHandler, err := httpHandler.NewExecutionWebhookHandler(a.executionService, a.config.Security.WebhookSecret, a.logger)
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}
	webhookHandler.RegisterRoutes(a.mux)
	return nil
}

// Handler returns the mux wrapped in the middleware chain
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.gracefulShutdownMiddleware(a.mux)
	if a.config.Tracing.Enabled {
		handler = middleware.TracingMiddleware(handler)
	}
	return middleware.CORSMiddleware(a.config.Security.CORSAllowedOrigins)(handler)
}

// Start serves HTTP until Shutdown is called
func (a *App) Start() error {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.logger.WithField("address", addr).Info(fmt.Sprintf("Server starting on %s", addr))

	a.serverMu.Lock()
	if a.serverStarted != nil {
		select {
		case <-a.serverStarted:
		default:
			close(a.serverStarted)
		}
	}
	a.serverStarted = make(chan struct{})
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverStarted := a.serverStarted
	server := a.server
	a.serverMu.Unlock()

	close(serverStarted)

	var err error
	if a.config.Server.SSL.Enabled {
		a.logger.WithField("cert_file", a.config.Server.SSL.CertFile).Info("SSL enabled")
		err = server.ListenAndServeTLS(a.config.Server.SSL.CertFile, a.config.Server.SSL.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown refuses new requests and waits for in-flight ones up to the shutdown
// timeout before releasing resources
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Starting graceful shutdown...")
	a.shutdownCancel()

	a.serverMu.RLock()
	server := a.server
	a.serverMu.RUnlock()

	if server == nil {
		a.logger.Info("No server to shutdown")
		return a.cleanupResources()
	}

	shutdownTimeout := a.shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < shutdownTimeout {
			shutdownTimeout = remaining
		}
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	a.logger.WithField("active_requests", a.GetActiveRequestCount()).Info("Waiting for active requests to complete")

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr == nil {
		done := make(chan struct{})
		go func() {
			a.requestWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			a.logger.WithField("active_requests", a.GetActiveRequestCount()).Warn("Shutdown timeout reached, forcing shutdown")
			shutdownErr = fmt.Errorf("shutdown timeout exceeded")
		}
	}

	if err := a.cleanupResources(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr.Error()).Error("Graceful shutdown completed with errors")
	} else {
		a.logger.Info("Graceful shutdown completed successfully")
	}
	return shutdownErr
}

func (a *App) cleanupResources() error {
	if a.aiCache != nil {
		a.aiCache.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	if a.db == nil {
		return nil
	}
	if a.stopDBStats != nil {
		a.stopDBStats()
		a.stopDBStats = nil
	}
	a.logger.Info("Closing database connection")
	if err := a.db.Close(); err != nil {
		a.logger.WithField("error", err.Error()).Error("Error closing database connection")
		return err
	}
	return nil
}

// IsServerCreated safely checks if the server has been created
func (a *App) IsServerCreated() bool {
	a.serverMu.RLock()
	defer a.serverMu.RUnlock()
	return a.server != nil
}

// WaitForServerStart blocks until Start has created the server or ctx expires
func (a *App) WaitForServerStart(ctx context.Context) bool {
	a.serverMu.RLock()
	started := a.serverStarted
	a.serverMu.RUnlock()

	select {
	case <-started:
		return a.IsServerCreated()
	case <-ctx.Done():
		return false
	}
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting fieldops application")

	steps := []func() error{
		a.InitTracing,
		a.InitDB,
		a.InitRepositories,
		a.InitServices,
		a.InitHandlers,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

func (a *App) GetConfig() *config.Config { return a.config }

func (a *App) GetLogger() logger.Logger { return a.logger }

func (a *App) GetMux() *http.ServeMux { return a.mux }

func (a *App) GetDB() *sql.DB { return a.db }

func (a *App) GetAutomationRepository() domain.AutomationRepository { return a.automationRepo }

func (a *App) GetWorkflowRepository() domain.WorkflowRepository { return a.workflowRepo }

// GetActiveRequestCount returns the number of requests still being served
func (a *App) GetActiveRequestCount() int64 {
	return atomic.LoadInt64(&a.activeRequests)
}

// SetShutdownTimeout sets how long Shutdown waits for in-flight requests
func (a *App) SetShutdownTimeout(timeout time.Duration) {
	a.shutdownTimeout = timeout
	a.logger.WithField("shutdown_timeout", timeout.String()).Info("Shutdown timeout configured")
}

// GetShutdownContext is cancelled as soon as Shutdown starts
func (a *App) GetShutdownContext() context.Context {
	return a.shutdownCtx
}

func (a *App) isShuttingDown() bool {
	select {
	case <-a.shutdownCtx.Done():
		return true
	default:
		return false
	}
}

// gracefulShutdownMiddleware counts in-flight requests and refuses new ones once
// shutdown has begun
func (a *App) gracefulShutdownMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isShuttingDown() {
			httpHandler.WriteJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		atomic.AddInt64(&a.activeRequests, 1)
		a.requestWg.Add(1)
		defer func() {
			atomic.AddInt64(&a.activeRequests, -1)
			a.requestWg.Done()
		}()

		ctx := context.WithValue(r.Context(), shutdownContextKey{}, a.shutdownCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var _ AppInterface = (*App)(nil)
