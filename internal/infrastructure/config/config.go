package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Suppliers SuppliersConfig
	Catalog   CatalogConfig
	Orders    OrdersConfig
	Sync      SyncConfig
	Vault     VaultConfig
	Mail      MailConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SuppliersConfig locates the static supplier definitions
type SuppliersConfig struct {
	DefinitionsFile string // path to the suppliers YAML file
}

// CatalogConfig holds catalog cache settings. TTLs are per integration kind:
// API catalogs move with supplier stock, scraped portals change daily at
// most, and document suppliers only change when someone edits the sheet.
type CatalogConfig struct {
	APITTL       time.Duration // api_oauth2 and api_key suppliers
	ScrapeTTL    time.Duration // web_scrape suppliers
	DocumentTTL  time.Duration // email and manual suppliers
	FetchTimeout time.Duration // upper bound on one refresh attempt
}

// TTLForKind returns the cache TTL for an integration kind name
func (c *CatalogConfig) TTLForKind(kind string) time.Duration {
	switch kind {
	case "web_scrape":
		return c.ScrapeTTL
	case "email", "manual":
		return c.DocumentTTL
	default:
		return c.APITTL
	}
}

// OrdersConfig holds order submission settings
type OrdersConfig struct {
	MaxAttempts        int           // total submission attempts including the first
	RetryBaseDelay     time.Duration // delay before the first retry
	RetryMaxDelay      time.Duration // cap on exponential backoff
	RequeueInterval    time.Duration // how often stuck created orders are retried
	StatusPollInterval time.Duration // how often submitted API orders are polled
	StatusPollBatch    int           // orders polled per tick
	ArchiveEnabled     bool          // archive rendered order sheets to object storage
}

// SyncConfig holds POS sync engine settings
type SyncConfig struct {
	Interval   time.Duration // how often sync cycles run per connection
	BatchLimit int           // events pulled per request
	MaxBatches int           // batches drained per cycle before yielding
}

// VaultConfig holds credential vault settings
type VaultConfig struct {
	Backend       string // postgres, memory
	EncryptionKey string // base64-encoded 32-byte key
}

// MailConfig holds outbound mail settings for email-channel orders
type MailConfig struct {
	Backend      string // smtp, ses, log
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SESRegion    string
}

// StorageConfig holds object storage settings for order sheet archival
type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// KafkaConfig holds settings for the POS push event stream
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	CatalogWarmup     bool // refresh verified supplier catalogs on startup
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling
	ProfilingEnabled bool   // Whether to enable the pyroscope profiler
	ProfilingServer  string // Pyroscope server address
	// Log export
	LogsEnabled bool // Forward zap output to the collector via the OTLP logs bridge
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RESTOHUB_ prefix (e.g., RESTOHUB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("RESTOHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Suppliers: SuppliersConfig{
			DefinitionsFile: v.GetString("suppliers.definitions_file"),
		},
		Catalog: CatalogConfig{
			APITTL:       v.GetDuration("catalog.api_ttl"),
			ScrapeTTL:    v.GetDuration("catalog.scrape_ttl"),
			DocumentTTL:  v.GetDuration("catalog.document_ttl"),
			FetchTimeout: v.GetDuration("catalog.fetch_timeout"),
		},
		Orders: OrdersConfig{
			MaxAttempts:        v.GetInt("orders.max_attempts"),
			RetryBaseDelay:     v.GetDuration("orders.retry_base_delay"),
			RetryMaxDelay:      v.GetDuration("orders.retry_max_delay"),
			RequeueInterval:    v.GetDuration("orders.requeue_interval"),
			StatusPollInterval: v.GetDuration("orders.status_poll_interval"),
			StatusPollBatch:    v.GetInt("orders.status_poll_batch"),
			ArchiveEnabled:     v.GetBool("orders.archive_enabled"),
		},
		Sync: SyncConfig{
			Interval:   v.GetDuration("sync.interval"),
			BatchLimit: v.GetInt("sync.batch_limit"),
			MaxBatches: v.GetInt("sync.max_batches"),
		},
		Vault: VaultConfig{
			Backend:       v.GetString("vault.backend"),
			EncryptionKey: v.GetString("vault.encryption_key"),
		},
		Mail: MailConfig{
			Backend:      v.GetString("mail.backend"),
			From:         v.GetString("mail.from"),
			SMTPHost:     v.GetString("mail.smtp_host"),
			SMTPPort:     v.GetInt("mail.smtp_port"),
			SMTPUsername: v.GetString("mail.smtp_username"),
			SMTPPassword: v.GetString("mail.smtp_password"),
			SESRegion:    v.GetString("mail.ses_region"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			KeyPrefix:       v.GetString("storage.key_prefix"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			CatalogWarmup:     v.GetBool("scheduler.catalog_warmup"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "restohub-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "restohub"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.Suppliers.DefinitionsFile == "" {
		cfg.Suppliers.DefinitionsFile = "suppliers.yaml"
	}
	if cfg.Catalog.APITTL == 0 {
		cfg.Catalog.APITTL = 5 * time.Minute
	}
	if cfg.Catalog.ScrapeTTL == 0 {
		cfg.Catalog.ScrapeTTL = 6 * time.Hour
	}
	if cfg.Catalog.DocumentTTL == 0 {
		cfg.Catalog.DocumentTTL = 24 * time.Hour
	}
	if cfg.Catalog.FetchTimeout == 0 {
		cfg.Catalog.FetchTimeout = 90 * time.Second
	}
	if cfg.Orders.MaxAttempts == 0 {
		cfg.Orders.MaxAttempts = 3
	}
	if cfg.Orders.RetryBaseDelay == 0 {
		cfg.Orders.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Orders.RetryMaxDelay == 0 {
		cfg.Orders.RetryMaxDelay = 30 * time.Second
	}
	if cfg.Orders.RequeueInterval == 0 {
		cfg.Orders.RequeueInterval = time.Minute
	}
	if cfg.Orders.StatusPollInterval == 0 {
		cfg.Orders.StatusPollInterval = 5 * time.Minute
	}
	if cfg.Orders.StatusPollBatch == 0 {
		cfg.Orders.StatusPollBatch = 50
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 2 * time.Minute
	}
	if cfg.Sync.BatchLimit == 0 {
		cfg.Sync.BatchLimit = 200
	}
	if cfg.Sync.MaxBatches == 0 {
		cfg.Sync.MaxBatches = 10
	}
	if cfg.Vault.Backend == "" {
		cfg.Vault.Backend = "postgres"
	}
	if cfg.Mail.Backend == "" {
		cfg.Mail.Backend = "log"
	}
	if cfg.Mail.SMTPPort == 0 {
		cfg.Mail.SMTPPort = 587
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "ap-southeast-2"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "orders"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "pos-events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "restohub-pos-sync"
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 4
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "restohub-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.ProfilingServer == "" {
		cfg.Telemetry.ProfilingServer = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Catalog TTLs follow volatility: API catalogs expire fastest, scraped
	// portals slower, document suppliers slowest. A config that inverts the
	// ordering is almost certainly a unit mistake.
	if c.Catalog.APITTL > c.Catalog.ScrapeTTL {
		return fmt.Errorf("catalog.api_ttl (%s) cannot exceed catalog.scrape_ttl (%s)",
			c.Catalog.APITTL, c.Catalog.ScrapeTTL)
	}
	if c.Catalog.ScrapeTTL > c.Catalog.DocumentTTL {
		return fmt.Errorf("catalog.scrape_ttl (%s) cannot exceed catalog.document_ttl (%s)",
			c.Catalog.ScrapeTTL, c.Catalog.DocumentTTL)
	}

	if c.Orders.MaxAttempts < 1 {
		return fmt.Errorf("orders.max_attempts must be at least 1")
	}

	switch c.Vault.Backend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("vault.backend must be 'postgres' or 'memory', got %q", c.Vault.Backend)
	}
	if c.Vault.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Vault.EncryptionKey)
		if err != nil {
			return fmt.Errorf("vault.encryption_key must be base64: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("vault.encryption_key must decode to 32 bytes, got %d", len(key))
		}
	}

	switch c.Mail.Backend {
	case "smtp", "ses", "log":
	default:
		return fmt.Errorf("mail.backend must be 'smtp', 'ses' or 'log', got %q", c.Mail.Backend)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Vault.EncryptionKey == "" {
			return fmt.Errorf("vault.encryption_key is required in production")
		}
		if c.Mail.Backend == "log" {
			return fmt.Errorf("mail.backend cannot be 'log' in production (email-channel orders would go nowhere)")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// EncryptionKeyBytes decodes the vault encryption key. Returns nil when no
// key is configured; the memory backend generates an ephemeral one.
func (c *VaultConfig) EncryptionKeyBytes() []byte {
	if c.EncryptionKey == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil || len(key) != 32 {
		return nil
	}
	return key
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
