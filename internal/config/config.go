package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Notifiers  NotifiersConfig
	Reconciler ReconcilerConfig
	Alert      AlertConfig
	RateLimit  RateLimitConfig
	Schedule   ScheduleConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"maxRetries"`
	PoolSize     int    `mapstructure:"poolSize"`
	MinIdleConns int    `mapstructure:"minIdleConns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
	Issuer      string `mapstructure:"issuer"`
}

// NotifiersConfig names the base URL of the service that owns each remote
// record type. An empty URL means the role has no remote owner and writes
// for it stay local-only.
type NotifiersConfig struct {
	CaregiverServiceURL string `mapstructure:"caregiver_service_url"`
	ScheduleServiceURL  string `mapstructure:"schedule_service_url"`
	AuthServiceURL      string `mapstructure:"auth_service_url"`
	TimeoutSeconds      int    `mapstructure:"timeoutSeconds"`
}

type ReconcilerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"intervalSeconds"`
	BatchSize       int  `mapstructure:"batchSize"`
	MaxRetries      int  `mapstructure:"maxRetries"`
	BackoffSeconds  int  `mapstructure:"backoffSeconds"`
}

func (c ReconcilerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c ReconcilerConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

type AlertConfig struct {
	EmailEnabled bool   `mapstructure:"email_enabled"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	From         string `mapstructure:"from"`
	To           string `mapstructure:"to"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type ScheduleConfig struct {
	AlternativesWindowDays int `mapstructure:"alternativesWindowDays"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
