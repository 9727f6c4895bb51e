package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bharatconnect/internal/backend"
	"bharatconnect/internal/crypto"
	"bharatconnect/internal/database"
	envelopeHandler "bharatconnect/internal/handler/http/envelope"
	keysHandler "bharatconnect/internal/handler/http/keys"
	"bharatconnect/internal/middleware"
	"bharatconnect/internal/repository/cassandra"
	envelopeService "bharatconnect/internal/service/envelope"
	keysService "bharatconnect/internal/service/keys"
	"bharatconnect/pkg/audit"
	"bharatconnect/pkg/config"
	"bharatconnect/pkg/constants"
	"bharatconnect/pkg/firebase"
	"bharatconnect/pkg/jwt"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/metrics"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Initialize Metrics
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	database.InitRedisMetrics()

	// 3. Connect to the directory backend
	backends, err := backend.Open(ctx, cfg, appMetrics)
	if err != nil {
		logger.Fatal("Failed to open directory backend", zap.Error(err))
	}
	defer backends.Close()

	if backends.Redis != nil {
		go backends.Redis.StartHealthCheck(ctx, constants.RedisHealthCheckInterval)
	}

	// 4. Connect to Cassandra
	cassandraDB, err := database.NewCassandraDB(cfg.Cassandra)
	if err != nil {
		logger.Fatal("Failed to connect to Cassandra", zap.Error(err))
	}
	defer cassandraDB.Close()

	envelopeRepo := cassandra.NewEnvelopeRepository(cassandraDB)
	if err := envelopeRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to prepare envelope table", zap.Error(err))
	}

	// 5. Initialize Services
	var auditor audit.Recorder = audit.LogRecorder{}
	if backends.Redis != nil {
		auditor = audit.NewRedisRecorder(backends.Redis.Client)
	}
	keysSvc := keysService.NewService(backends.Directory, backends.Vaults, crypto.NewStdProvider()).WithAudit(auditor)
	envelopeSvc := envelopeService.NewService(envelopeRepo)

	// 6. Token verification
	verifier, err := newVerifier(ctx, cfg, backends)
	if err != nil {
		logger.Fatal("Failed to initialize token verifier", zap.Error(err))
	}

	// 7. Initialize Handlers
	keysHdlr := keysHandler.NewHandler(keysSvc)
	envelopeHdlr := envelopeHandler.NewHandler(envelopeSvc)

	// 8. Setup Gin Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		logger.Warn("Failed to configure trusted proxies", zap.Error(err))
	}

	router.Use(middleware.HealthCheck(cfg.Server.ServiceName))
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.NewPrometheusMiddleware(appMetrics).Handler())
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(verifier, appMetrics))
	if backends.Redis != nil {
		limiter := middleware.NewRateLimiter(middleware.NewRedisCounter(backends.Redis.Client),
			"v1", cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
		v1.Use(limiter.Middleware())
	}
	{
		// Public key directory
		v1.PUT("/keys", keysHdlr.PublishKey)
		v1.GET("/keys/:user_id", keysHdlr.GetPublicKey)

		// Key vault
		v1.GET("/vault", keysHdlr.GetVault)
		v1.POST("/vault", keysHdlr.CreateVault)

		// Encrypted message envelopes
		v1.POST("/conversations/:conversation_id/messages", envelopeHdlr.StoreEnvelope)
		v1.GET("/conversations/:conversation_id/messages", envelopeHdlr.ListEnvelopes)
	}

	// 9. Start server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
	}

	go func() {
		logger.Info("Keys service starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("directory_backend", cfg.Directory.Backend),
			zap.String("auth_provider", verifier.Provider()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newVerifier picks the bearer token verifier for AUTH_PROVIDER
func newVerifier(ctx context.Context, cfg *config.Config, backends *backend.Backends) (middleware.TokenVerifier, error) {
	switch cfg.Server.AuthProvider {
	case config.AuthFirebase:
		app := backends.Firebase
		if app == nil {
			// Firebase auth in front of a self-hosted directory
			var err error
			app, err = firebase.NewApp(ctx, firebase.Config{
				ProjectID:       cfg.Firebase.ProjectID,
				CredentialsPath: cfg.Firebase.CredentialsPath,
			})
			if err != nil {
				return nil, err
			}
		}
		v, err := app.TokenVerifier(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.AuthJWT:
		if cfg.JWT.Secret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required when AUTH_PROVIDER=%s", config.AuthJWT)
		}
		return jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Audience, constants.AccessTokenExpiry), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Server.AuthProvider)
	}
}
