package config

import (
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"7777"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	// Credentials the mail relay's filter uses against the push endpoints
	IngressUser     string `env:"INGRESS_USER,required"`
	IngressPassword string `env:"INGRESS_PASSWORD,required"`

	// Request body caps, in bytes
	MaxEmailBodySize      int64 `env:"MAX_EMAIL_BODY_SIZE" envDefault:"5242880"`
	MaxAttachmentBodySize int64 `env:"MAX_ATTACHMENT_BODY_SIZE" envDefault:"20971520"`

	Logger  *logger.Config
	Tracing *tracing.JaegerConfig
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT,required"`
	User            string `env:"POSTGRES_USER,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE"`
}

type MailgunConfig struct {
	APIKey              string `env:"MAILGUN_API_KEY"`
	FetchConcurrency    int    `env:"MAILGUN_FETCH_CONCURRENCY" envDefault:"4"`
	FetchTimeoutSeconds int    `env:"MAILGUN_FETCH_TIMEOUT_SECONDS" envDefault:"30"`
}

type QuotaConfig struct {
	RenewalPeriodDays int    `env:"QUOTA_RENEWAL_PERIOD_DAYS" envDefault:"30"`
	RenewalSchedule   string `env:"CRON_SCHEDULE_QUOTA_RENEWAL" envDefault:"@hourly"`
}
