package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carewire/hospital-api/internal/alert"
	"github.com/carewire/hospital-api/internal/config"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository/postgres"
	"github.com/carewire/hospital-api/internal/worker"
	"github.com/carewire/hospital-api/pkg/auth"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/messaging"
	redisbroker "github.com/carewire/hospital-api/pkg/messaging/redis"
	"github.com/carewire/hospital-api/pkg/metrics"
	"github.com/carewire/hospital-api/pkg/remote"
)

// envOverrides are the knobs operators tune per deployment without touching
// the shared config file.
type envOverrides struct {
	HealthPort      string `envconfig:"HEALTH_PORT" default:":8081"`
	IntervalSeconds int    `envconfig:"INTERVAL_SECONDS"`
	BatchSize       int    `envconfig:"BATCH_SIZE"`
	MaxRetries      int    `envconfig:"MAX_RETRIES"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env envOverrides
	if err := envconfig.Process("reconciler", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to read environment overrides")
	}
	if env.IntervalSeconds > 0 {
		cfg.Reconciler.IntervalSeconds = env.IntervalSeconds
	}
	if env.BatchSize > 0 {
		cfg.Reconciler.BatchSize = env.BatchSize
	}
	if env.MaxRetries > 0 {
		cfg.Reconciler.MaxRetries = env.MaxRetries
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := logger.FromZerolog(log.Logger)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	scheduleRepo := postgres.NewScheduleRepository(db)
	caregiverRepo := postgres.NewCaregiverRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)

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

	var alerter alert.Alerter = alert.Nop{}
	if broker != nil {
		alerter = alert.NewBrokerAlerter(broker, "")
	}

	notifierTimeout := time.Duration(cfg.Notifiers.TimeoutSeconds) * time.Second
	registry := remote.NewRegistry()
	if cfg.Notifiers.CaregiverServiceURL != "" {
		n := remote.NewHTTPNotifier(remote.HTTPNotifierConfig{BaseURL: cfg.Notifiers.CaregiverServiceURL, Timeout: notifierTimeout})
		registry.Register(string(model.RoleDoctor), n)
		registry.Register(string(model.RoleNurse), n)
	}
	registry.Register(worker.TargetAuth, remote.NewHTTPNotifier(remote.HTTPNotifierConfig{BaseURL: cfg.Notifiers.AuthServiceURL, Timeout: notifierTimeout}))
	registry.Register(worker.TargetSchedule, remote.NewHTTPNotifier(remote.HTTPNotifierConfig{BaseURL: cfg.Notifiers.ScheduleServiceURL, Timeout: notifierTimeout}))

	tokens := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour, cfg.JWT.Issuer)

	rec := worker.NewReconciler(
		[]worker.Source{
			worker.ScheduleSource(scheduleRepo),
			worker.CaregiverSource(caregiverRepo),
			worker.AppointmentSource(appointmentRepo),
		},
		registry,
		tokens,
		alerter,
		metrics.New("hospital_reconciler"),
		worker.Config{
			PollInterval: cfg.Reconciler.Interval(),
			BatchSize:    cfg.Reconciler.BatchSize,
			MaxRetries:   cfg.Reconciler.MaxRetries,
			RetryBackoff: cfg.Reconciler.Backoff(),
		},
		appLogger,
	)

	setupHealthCheck(env.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	rec.Start(ctx)
}

func setupHealthCheck(addr string, logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Fatal(err, "health check server failed")
		}
	}()
}
