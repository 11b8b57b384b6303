package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pawtograder/platform-sub009/internal/config"
	"github.com/pawtograder/platform-sub009/internal/database"
	"github.com/pawtograder/platform-sub009/internal/handler"
	"github.com/pawtograder/platform-sub009/internal/middleware"
	"github.com/pawtograder/platform-sub009/internal/repository"
	"github.com/pawtograder/platform-sub009/internal/router"
	"github.com/pawtograder/platform-sub009/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.Level(cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled; summaries are not cached")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	probes := []handler.Probe{{Name: "postgres", Check: database.PingSQL(db)}}
	if redisClient != nil {
		probes = append(probes, handler.Probe{Name: "redis", Check: database.PingRedis(redisClient)})
	}
	if natsConn != nil {
		probes = append(probes, handler.Probe{Name: "nats", Check: database.NATSConnected(natsConn)})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	groupRepo := repository.NewAssignmentGroupRepository(db)
	labRepo := repository.NewLabSectionRepository(db)
	exceptionRepo := repository.NewDueDateExceptionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	invalidator := service.NewSummaryCacheInvalidator(redisClient)
	activityService := service.NewActivityService(activityRepo, logger)
	classService := service.NewClassService(classRepo, studentRepo, assignmentRepo, groupRepo, validate, invalidator, cfg.LabDefaultTimezone, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, classRepo, validate, invalidator, logger)
	labService := service.NewLabScheduleService(labRepo, classRepo, validate, invalidator, cfg.LabLocation(), logger)
	resolver := service.NewDueDateResolver(groupRepo, exceptionRepo, labService, logger)
	exceptionService := service.NewDueDateExceptionService(service.DueDateExceptionServiceConfig{
		Exceptions:  exceptionRepo,
		Assignments: assignmentRepo,
		Classes:     classRepo,
		Groups:      groupRepo,
		Resolver:    resolver,
		Activity:    activityService,
		Events:      service.NewEventPublisher(redisClient, cfg.EventsChannel, natsConn, logger),
		Cache:       invalidator,
		Validator:   validate,
		Logger:      logger,
	})
	summaryService := service.NewStudentSummaryService(classRepo, assignmentRepo, groupRepo, exceptionRepo, resolver, redisClient, cfg.SummaryCacheTTL, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.HTTPAccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		ClassHandler:            handler.NewClassHandler(classService, logger),
		AssignmentHandler:       handler.NewAssignmentHandler(assignmentService, logger),
		LabScheduleHandler:      handler.NewLabScheduleHandler(labService, logger),
		DueDateExceptionHandler: handler.NewDueDateExceptionHandler(exceptionService, middleware.RateLimit("due_date_exceptions", cfg.RateLimitMax, cfg.RateLimitWindow), logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		StudentDueDateHandler:   handler.NewStudentDueDateHandler(summaryService, exceptionService, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:            probes,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cfg, logger)
}

func waitForShutdown(app *fiber.App, cfg config.Config, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
