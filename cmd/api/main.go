package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/carewire/hospital-api/internal/alert"
	"github.com/carewire/hospital-api/internal/config"
	appointmentHandler "github.com/carewire/hospital-api/internal/handler/appointment"
	authHandler "github.com/carewire/hospital-api/internal/handler/auth"
	caregiverHandler "github.com/carewire/hospital-api/internal/handler/caregiver"
	healthHandler "github.com/carewire/hospital-api/internal/handler/health"
	hospitalHandler "github.com/carewire/hospital-api/internal/handler/hospital"
	scheduleHandler "github.com/carewire/hospital-api/internal/handler/schedule"
	"github.com/carewire/hospital-api/internal/middleware"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository/postgres"
	"github.com/carewire/hospital-api/internal/router"
	appointmentService "github.com/carewire/hospital-api/internal/service/appointment"
	authService "github.com/carewire/hospital-api/internal/service/auth"
	caregiverService "github.com/carewire/hospital-api/internal/service/caregiver"
	hospitalService "github.com/carewire/hospital-api/internal/service/hospital"
	"github.com/carewire/hospital-api/internal/service/saga"
	scheduleService "github.com/carewire/hospital-api/internal/service/schedule"
	"github.com/carewire/hospital-api/internal/worker"
	"github.com/carewire/hospital-api/pkg/auth"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/messaging"
	redisbroker "github.com/carewire/hospital-api/pkg/messaging/redis"
	"github.com/carewire/hospital-api/pkg/metrics"
	"github.com/carewire/hospital-api/pkg/remote"
	"github.com/carewire/hospital-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.FromZerolog(log.Logger)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	scheduleRepo := postgres.NewScheduleRepository(db)
	caregiverRepo := postgres.NewCaregiverRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	credentialRepo := postgres.NewCredentialRepository(db)
	hospitalRepo := postgres.NewHospitalRepository(db)

	// Alerting: broker plus optional email
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}
	alerter := buildAlerter(cfg, broker)

	// Remote notifiers: one per owning service, keyed in the registry by the
	// role whose records that service owns.
	notifierTimeout := time.Duration(cfg.Notifiers.TimeoutSeconds) * time.Second
	registry := remote.NewRegistry()
	if cfg.Notifiers.CaregiverServiceURL != "" {
		n := remote.NewHTTPNotifier(remote.HTTPNotifierConfig{BaseURL: cfg.Notifiers.CaregiverServiceURL, Timeout: notifierTimeout})
		registry.Register(string(model.RoleDoctor), n)
		registry.Register(string(model.RoleNurse), n)
	}
	authNotifier := remote.NewHTTPNotifier(remote.HTTPNotifierConfig{BaseURL: cfg.Notifiers.AuthServiceURL, Timeout: notifierTimeout})
	registry.Register(worker.TargetAuth, authNotifier)
	scheduleNotifier := remote.NewHTTPNotifier(remote.HTTPNotifierConfig{BaseURL: cfg.Notifiers.ScheduleServiceURL, Timeout: notifierTimeout})
	registry.Register(worker.TargetSchedule, scheduleNotifier)

	// Services
	tokens := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour, cfg.JWT.Issuer)
	hasher := security.NewBcryptHasher(12)
	coordinator := saga.NewCoordinator(cfg.Reconciler.Backoff(), alerter, appLogger)
	checker := scheduleService.NewConflictChecker(caregiverRepo, scheduleRepo, cfg.Schedule.AlternativesWindowDays)

	scheduleSvc := scheduleService.NewService(scheduleRepo, checker, registry, coordinator, appLogger)
	caregiverSvc := caregiverService.NewService(caregiverRepo, hasher, authNotifier, coordinator, appLogger)
	appointmentSvc := appointmentService.NewService(appointmentRepo, scheduleNotifier, coordinator, appLogger)
	authSvc := authService.NewService(credentialRepo, hospitalRepo, hasher, tokens, appLogger)
	hospitalSvc := hospitalService.NewService(hospitalRepo, appLogger)

	// HTTP surface
	authMW := middleware.NewAuthMiddleware(tokens)
	r := router.NewRouter(
		authMW,
		authHandler.NewHandler(authSvc, authMW),
		scheduleHandler.NewHandler(scheduleSvc, authMW),
		caregiverHandler.NewHandler(caregiverSvc, authMW),
		appointmentHandler.NewHandler(appointmentSvc, authMW),
		hospitalHandler.NewHandler(hospitalSvc, authMW),
		healthHandler.NewHandler(db),
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RPS),
			RateBurst:     cfg.RateLimit.Burst,
			MetricsPrefix: "hospital_api_http",
		},
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedded reconciler: drains PENDING_REMOTE records in the background.
	if cfg.Reconciler.Enabled {
		rec := worker.NewReconciler(
			[]worker.Source{
				worker.ScheduleSource(scheduleRepo),
				worker.CaregiverSource(caregiverRepo),
				worker.AppointmentSource(appointmentRepo),
			},
			registry,
			tokens,
			alerter,
			metrics.New("hospital_api"),
			worker.Config{
				PollInterval: cfg.Reconciler.Interval(),
				BatchSize:    cfg.Reconciler.BatchSize,
				MaxRetries:   cfg.Reconciler.MaxRetries,
				RetryBackoff: cfg.Reconciler.Backoff(),
			},
			appLogger,
		)
		go rec.Start(ctx)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func buildAlerter(cfg *config.Config, broker messaging.Broker) alert.Alerter {
	var sinks alert.Multi
	if broker != nil {
		sinks = append(sinks, alert.NewBrokerAlerter(broker, ""))
	}
	if cfg.Alert.EmailEnabled {
		sinks = append(sinks, alert.NewMailer(alert.MailerConfig{
			Host:     cfg.Alert.SMTPHost,
			Port:     cfg.Alert.SMTPPort,
			Username: cfg.Alert.SMTPUser,
			Password: cfg.Alert.SMTPPassword,
			From:     cfg.Alert.From,
			To:       strings.Split(cfg.Alert.To, ","),
		}))
	}
	if len(sinks) == 0 {
		return alert.Nop{}
	}
	return sinks
}
