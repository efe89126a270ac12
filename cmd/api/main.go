package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qr-loyalty-backend/config"
	httpHandler "qr-loyalty-backend/internal/adapter/http/handler"
	memStorage "qr-loyalty-backend/internal/adapter/storage/memory"
	pgStorage "qr-loyalty-backend/internal/adapter/storage/postgres"
	redisStorage "qr-loyalty-backend/internal/adapter/storage/redis"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/internal/service"
	"qr-loyalty-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// repositories is the persistence layer selected by storage.driver.
type repositories struct {
	accounts    ports.AccountRepository
	customers   ports.CustomerRepository
	merchants   ports.MerchantRepository
	categories  ports.CategoryRepository
	promotions  ports.PromotionRepository
	redemptions ports.RedemptionRepository
	ratings     ports.RatingRepository
	audit       ports.AuditRepository
	transactor  ports.DBTransactor
	health      ports.HealthChecker
	close       func()
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*repositories, error) {
	pool, err := pgStorage.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := pgStorage.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &repositories{
		accounts:    pgStorage.NewAccountRepo(pool),
		customers:   pgStorage.NewCustomerRepo(pool),
		merchants:   pgStorage.NewMerchantRepo(pool),
		categories:  pgStorage.NewCategoryRepo(pool),
		promotions:  pgStorage.NewPromotionRepo(pool),
		redemptions: pgStorage.NewRedemptionRepo(pool),
		ratings:     pgStorage.NewRatingRepo(pool),
		audit:       pgStorage.NewAuditRepository(pool),
		transactor:  pgStorage.NewTransactor(pool, cfg.LockTimeout),
		health:      pgStorage.NewHealthCheck(pool),
		close:       pool.Close,
	}, nil
}

func openMemory() *repositories {
	store := memStorage.NewStore()
	return &repositories{
		accounts:    memStorage.NewAccountRepo(store),
		customers:   memStorage.NewCustomerRepo(store),
		merchants:   memStorage.NewMerchantRepo(store),
		categories:  memStorage.NewCategoryRepo(store),
		promotions:  memStorage.NewPromotionRepo(store),
		redemptions: memStorage.NewRedemptionRepo(store),
		ratings:     memStorage.NewRatingRepo(store),
		audit:       memStorage.NewAuditRepo(store),
		transactor:  memStorage.NewTransactor(store),
		health:      memStorage.NewHealthCheck(store),
		close:       func() {},
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting QR loyalty backend")

	ctx := context.Background()

	var repos *repositories
	switch cfg.Storage.Driver {
	case "memory":
		repos = openMemory()
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
	default:
		repos, err = openPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL")
		}
		log.Info().Msg("PostgreSQL connected")
	}
	defer repos.close()

	healthCheckers := []ports.HealthChecker{repos.health}

	// Redis is optional: without it rate limiting is off and categories are
	// read straight from the store.
	var (
		limiter  ports.RateLimiter
		catCache ports.CategoryCache
	)
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, rate limiting and category cache disabled")
	} else {
		defer rdb.Close()
		limiter = redisStorage.NewRateLimitStore(rdb)
		catCache = redisStorage.NewCategoryCache(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	}

	encSvc, err := service.NewAESEncryptionService(cfg.Security.AESKey, cfg.Security.AESRetiredKeys...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService(cfg.Security.TokenDigestKey)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(
		cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshSecret, cfg.JWT.RefreshExpiry,
		cfg.JWT.Issuer,
	)
	lockout := service.LockoutPolicy{
		MaxAttempts:  cfg.Security.MaxLoginAttempts,
		LockDuration: cfg.Security.LockDuration,
	}

	authSvc := service.NewAuthService(repos.accounts, repos.customers, hashSvc, encSvc, tokenSvc, sigSvc, repos.transactor, lockout, log)
	accountSvc := service.NewAccountService(repos.accounts, repos.customers, repos.merchants, repos.categories, encSvc, repos.transactor, log)
	merchantSvc := service.NewMerchantService(repos.merchants, repos.categories, repos.transactor, log)
	categorySvc := service.NewCategoryService(repos.categories, catCache, cfg.Storage.CategoryCacheTTL, log)
	promotionSvc := service.NewPromotionService(repos.promotions, repos.merchants, log)
	redemptionSvc := service.NewRedemptionService(repos.accounts, repos.customers, repos.merchants, repos.promotions, repos.redemptions, repos.transactor, log)
	ratingSvc := service.NewRatingService(repos.ratings, repos.redemptions, repos.merchants, repos.customers, repos.transactor, log)
	customerSvc := service.NewCustomerService(repos.customers, repos.merchants, log)
	reportingSvc := service.NewReportingService(repos.merchants, repos.promotions, repos.redemptions)
	auditSvc := service.NewAuditService(repos.audit, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		AccountSvc:     accountSvc,
		MerchantSvc:    merchantSvc,
		CategorySvc:    categorySvc,
		PromotionSvc:   promotionSvc,
		RedemptionSvc:  redemptionSvc,
		RatingSvc:      ratingSvc,
		CustomerSvc:    customerSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		AccountRepo:    repos.accounts,
		RateLimiter:    limiter,
		AuditSvc:       auditSvc,
		HealthCheckers: healthCheckers,
		CORS:           cfg.CORS,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
