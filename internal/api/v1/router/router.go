package router

import (
	"context"
	"net/http"
	"strings"

	"app/internal/api/v1/handler"
	"app/internal/clock"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/notifier"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DatabaseURL
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// The notification queue goes through database/sql on the same pool.
	queueDB := stdlib.OpenDBFromPool(pool)

	// 2. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher
	var publisher pubsub.Publisher = pubsub.NoopPublisher{}
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(context.Background(), cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
			return nil, nil, err
		}
		publisher = p
	} else {
		logger.Warn().Msg("No GCP project configured, ledger events will not be published")
	}

	// 5. Reward day policy
	days, err := clock.NewDayPolicy(cfg.RewardTimezone, clock.System())
	if err != nil {
		logger.Fatal().Msgf("Failed to load reward timezone: %v", err)
		return nil, nil, err
	}
	policy, err := service.PolicyFromConfig(cfg)
	if err != nil {
		logger.Fatal().Msgf("Invalid reward policy: %v", err)
		return nil, nil, err
	}

	// 6. Notification queue
	var notify notifier.Enqueuer = notifier.LogEnqueuer{Logger: logger}
	if cfg.NotificationQueueName != "" {
		notify = notifier.NewQueueEnqueuer(pgmq.New(queueDB), cfg.NotificationQueueName)
	}

	// 7. Initialize repositories & services & handlers
	accountRepo := repository.NewAccountRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)
	planRepo := repository.NewPlanRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	watchRepo := repository.NewWatchRepo(pool)
	payoutRepo := repository.NewPayoutRepo(pool)

	accountSvc := service.NewAccountService(accountRepo, notify, cfg.JWTSecret, cfg.PublicBaseURL, logger)
	ledgerSvc := service.NewLedgerService(ledgerRepo, accountRepo, policy, logger)
	referralSvc := service.NewReferralService(accountRepo, ledgerRepo, policy, cfg.PublicBaseURL, logger)
	planSvc := service.NewPlanService(planRepo, accountRepo, referralSvc, publisher, cfg.LedgerEventTopic, policy, days, logger)
	rewardSvc := service.NewRewardService(accountRepo, planRepo, videoRepo, watchRepo, referralSvc, publisher, cfg.LedgerEventTopic, policy, days, logger)
	videoSvc := service.NewVideoService(videoRepo, logger)
	mediaSvc := service.NewMediaService(s3Client, cfg.S3Bucket, logger)
	payoutSvc := service.NewPayoutService(payoutRepo, accountRepo, notify, policy, days, logger)

	accountHandler := handler.NewAccountHandler(accountSvc, rewardSvc, validate, logger)
	walletHandler := handler.NewWalletHandler(ledgerSvc, referralSvc, logger)
	planHandler := handler.NewPlanHandler(planSvc, validate, logger)
	videoHandler := handler.NewVideoHandler(videoSvc, rewardSvc, mediaSvc, validate, logger)
	payoutHandler := handler.NewPayoutHandler(payoutSvc, mediaSvc, validate, logger)
	adminHandler := handler.NewAdminHandler(accountSvc, ledgerSvc, validate, logger)

	// 8. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	adminMiddleware := func(next http.Handler) http.Handler {
		return authMiddleware(middleware.AdminMiddleware(next))
	}

	// 9. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	accountHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	walletHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	planHandler.RegisterRoutes(apiV1Mux, authMiddleware, adminMiddleware)
	videoHandler.RegisterRoutes(apiV1Mux, authMiddleware, adminMiddleware)
	payoutHandler.RegisterRoutes(apiV1Mux, authMiddleware, adminMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, adminMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Add Swagger documentation
	mux.HandleFunc("/swagger/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger/swagger.json")
	})
	mux.Handle("/swagger/", http.StripPrefix("/swagger/", http.FileServer(http.Dir("./docs/swagger/swagger-ui"))))

	// 10. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		// This makes the client more robust, especially for operations like presigned URLs
		// that might inspect the middleware stack.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
