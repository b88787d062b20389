package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

type Config struct {
	AppName       string
	Environment   string
	SnowflakeNode int64

	Log          LogConfig
	HTTP         HTTPConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Vault        VaultConfig
	Admin        AdminConfig
	Payment      PaymentConfig
	MercadoPago  MercadoPagoConfig
	Notification NotificationConfig
	Storage      StorageConfig
	Scheduler    SchedulerConfig

	WebhookRetentionDays int
}

type LogConfig struct {
	Level string
}

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type VaultConfig struct {
	AESKey string
}

type AdminConfig struct {
	APIKey string
}

type PaymentConfig struct {
	// PublicBaseURL is the externally reachable base of this service, used to
	// build notification URLs when a gateway config has no explicit webhook URL.
	PublicBaseURL         string
	WebhookTolerance      time.Duration
	AllowUnsignedWebhooks bool
	ReplayTTL             time.Duration
	ChargeTTL             time.Duration
}

// MercadoPagoConfig feeds the seed-gateways setup command and the adapter base URL.
type MercadoPagoConfig struct {
	BaseURL       string
	AccessToken   string
	PublicKey     string
	WebhookSecret string
	HTTPTimeout   time.Duration
}

type NotificationConfig struct {
	BatchSize       int
	WhatsAppBaseURL string
	HTTPTimeout     time.Duration
	RetryBackoff    time.Duration
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Region         string
	LogoBucket     string
	DocumentBucket string
	PublicBaseURL  string
}

type SchedulerConfig struct {
	DispatchSpec  string
	ExpirySpec    string
	RetentionSpec string
}

// Load reads configuration from defaults, an optional config.yaml and the environment.
// Environment keys are the upper-cased dotted keys with "." replaced by "_",
// e.g. database.url -> DATABASE_URL.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		Environment:   strings.ToLower(v.GetString("app.env")),
		SnowflakeNode: v.GetInt64("snowflake.node"),
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Vault: VaultConfig{
			AESKey: v.GetString("vault.aes_key"),
		},
		Admin: AdminConfig{
			APIKey: v.GetString("admin.api_key"),
		},
		Payment: PaymentConfig{
			PublicBaseURL:         strings.TrimRight(v.GetString("payment.public_base_url"), "/"),
			WebhookTolerance:      v.GetDuration("payment.webhook_tolerance"),
			AllowUnsignedWebhooks: v.GetBool("payment.allow_unsigned_webhooks"),
			ReplayTTL:             v.GetDuration("payment.replay_ttl"),
			ChargeTTL:             v.GetDuration("payment.charge_ttl"),
		},
		MercadoPago: MercadoPagoConfig{
			BaseURL:       strings.TrimRight(v.GetString("mercadopago.base_url"), "/"),
			AccessToken:   v.GetString("mercadopago.access_token"),
			PublicKey:     v.GetString("mercadopago.public_key"),
			WebhookSecret: v.GetString("mercadopago.webhook_secret"),
			HTTPTimeout:   v.GetDuration("mercadopago.http_timeout"),
		},
		Notification: NotificationConfig{
			BatchSize:       v.GetInt("notification.batch_size"),
			WhatsAppBaseURL: strings.TrimRight(v.GetString("notification.whatsapp_base_url"), "/"),
			HTTPTimeout:     v.GetDuration("notification.http_timeout"),
			RetryBackoff:    v.GetDuration("notification.retry_backoff"),
		},
		Storage: StorageConfig{
			Endpoint:       v.GetString("minio.endpoint"),
			AccessKey:      v.GetString("minio.access_key"),
			SecretKey:      v.GetString("minio.secret_key"),
			UseSSL:         v.GetBool("minio.use_ssl"),
			Region:         v.GetString("minio.region"),
			LogoBucket:     v.GetString("minio.logo_bucket"),
			DocumentBucket: v.GetString("minio.document_bucket"),
			PublicBaseURL:  strings.TrimRight(v.GetString("minio.public_base_url"), "/"),
		},
		Scheduler: SchedulerConfig{
			DispatchSpec:  v.GetString("scheduler.dispatch_spec"),
			ExpirySpec:    v.GetString("scheduler.expiry_spec"),
			RetentionSpec: v.GetString("scheduler.retention_spec"),
		},
		WebhookRetentionDays: v.GetInt("webhook.retention_days"),
	}

	if strings.TrimSpace(cfg.Database.URL) == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "federation")
	v.SetDefault("app.env", "development")
	v.SetDefault("snowflake.node", 1)
	v.SetDefault("log.level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("payment.public_base_url", "http://localhost:8080")
	v.SetDefault("payment.webhook_tolerance", 5*time.Minute)
	v.SetDefault("payment.allow_unsigned_webhooks", false)
	v.SetDefault("payment.replay_ttl", 24*time.Hour)
	v.SetDefault("payment.charge_ttl", 48*time.Hour)

	v.SetDefault("mercadopago.base_url", "https://api.mercadopago.com")
	v.SetDefault("mercadopago.http_timeout", 10*time.Second)

	v.SetDefault("notification.batch_size", 50)
	v.SetDefault("notification.whatsapp_base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("notification.http_timeout", 10*time.Second)
	v.SetDefault("notification.retry_backoff", 2*time.Second)

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.logo_bucket", "logos")
	v.SetDefault("minio.document_bucket", "fgc")

	v.SetDefault("scheduler.dispatch_spec", "@every 30s")
	v.SetDefault("scheduler.expiry_spec", "@every 15m")
	v.SetDefault("scheduler.retention_spec", "@daily")

	v.SetDefault("webhook.retention_days", 90)
}
