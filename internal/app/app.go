package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/config"
	"github.com/studyhall/homework-service/internal/delivery/httpd"
	"github.com/studyhall/homework-service/internal/repository"
	"github.com/studyhall/homework-service/internal/service"
	"github.com/studyhall/homework-service/internal/service/integration"
	"github.com/studyhall/homework-service/internal/storage"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	db        *sql.DB
	publisher integration.EventPublisher
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	fileStore, err := storage.NewMinIOStore(storage.MinIOConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	}, log)
	if err != nil {
		return nil, err
	}

	publisher, err := integration.NewEventPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create event publisher")
		// Lifecycle events are advisory; the service runs without a broker.
		publisher = nil
	}

	baseRepo := repository.NewPostgresRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)
	courseRepo := repository.NewCourseRepository(db, log)
	assignmentRepo := repository.NewAssignmentRepository(db, log)
	submissionRepo := repository.NewSubmissionRepository(db, log)
	feedbackRepo := repository.NewFeedbackRepository(db, log)

	userService := service.NewUserService(userRepo, log)
	courseService := service.NewCourseService(courseRepo, userRepo, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, courseRepo, log)
	submissionService := service.NewSubmissionService(
		submissionRepo,
		assignmentRepo,
		courseRepo,
		userRepo,
		fileStore,
		publisher,
		log,
	)
	feedbackService := service.NewFeedbackService(
		feedbackRepo,
		submissionRepo,
		assignmentRepo,
		courseRepo,
		publisher,
		log,
	)

	handler := httpd.NewHandler(
		submissionService,
		feedbackService,
		assignmentService,
		courseService,
		userService,
		fileStore,
		baseRepo,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		db:        db,
		publisher: publisher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting homework service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down homework service...")

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close event publisher")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
