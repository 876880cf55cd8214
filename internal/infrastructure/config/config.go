package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app" yaml:"app"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo" yaml:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Local    LocalConfig    `mapstructure:"local" yaml:"local"`
	Remote   RemoteConfig   `mapstructure:"remote" yaml:"remote"`
	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Version     string `mapstructure:"version" yaml:"version"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Debug       bool   `mapstructure:"debug" yaml:"debug"`
	// Timezone decides which calendar day is "today" for carry-forward.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port" yaml:"port"`
	Host         string        `mapstructure:"host" yaml:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// DatabaseConfig holds Postgres configuration. Accounts live in Postgres, so
// Enabled turns them on even when tasks are kept elsewhere.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Name            string        `mapstructure:"name" yaml:"name"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	SSLMode         string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path" yaml:"migrations_path"`
}

// MongoConfig holds MongoDB configuration for the mongo row store
type MongoConfig struct {
	URI            string        `mapstructure:"uri" yaml:"uri"`
	Database       string        `mapstructure:"database" yaml:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// LocalConfig selects the on-device key/value backend
type LocalConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	Path        string `mapstructure:"path" yaml:"path"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// RemoteConfig selects the remote task row store
type RemoteConfig struct {
	Driver    string        `mapstructure:"driver" yaml:"driver"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string        `mapstructure:"secret" yaml:"secret"`
	ExpiresIn        time.Duration `mapstructure:"expires_in" yaml:"expires_in"`
	RefreshExpiresIn time.Duration `mapstructure:"refresh_expires_in" yaml:"refresh_expires_in"`
	Issuer           string        `mapstructure:"issuer" yaml:"issuer"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Format   string `mapstructure:"format" yaml:"format"`
	Output   string `mapstructure:"output" yaml:"output"`
	Filename string `mapstructure:"filename" yaml:"filename"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
	EncryptionSecret   string        `mapstructure:"encryption_secret" yaml:"encryption_secret"`
	BcryptCost         int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

const (
	LocalDriverFile   = "file"
	LocalDriverSQLite = "sqlite"
	LocalDriverRedis  = "redis"
	LocalDriverMemory = "memory"

	RemoteDriverNone     = "none"
	RemoteDriverPostgres = "postgres"
	RemoteDriverMongo    = "mongo"
)

const defaultJWTSecret = "change-me-daybook-jwt-secret"

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("daybook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/daybook")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Daybook")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.timezone", "Local")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "daybook")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "30s")
	v.SetDefault("database.migrations_path", "migrations")

	// Mongo defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "daybook")
	v.SetDefault("mongo.connect_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Local store defaults
	v.SetDefault("local.driver", LocalDriverFile)
	v.SetDefault("local.path", ".daybook")
	v.SetDefault("local.redis_prefix", "daybook:")

	// Remote store defaults
	v.SetDefault("remote.driver", RemoteDriverNone)
	v.SetDefault("remote.batch_size", 50)
	v.SetDefault("remote.timeout", "800ms")

	// JWT defaults
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.expires_in", "24h")
	v.SetDefault("jwt.refresh_expires_in", "168h") // 7 days
	v.SetDefault("jwt.issuer", "daybook")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Security defaults
	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1m")
	v.SetDefault("security.encryption_secret", "")
	v.SetDefault("security.bcrypt_cost", 12)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

func bindEnvVars(v *viper.Viper) {
	// App
	_ = v.BindEnv("app.environment", "APP_ENVIRONMENT")
	_ = v.BindEnv("app.debug", "APP_DEBUG")
	_ = v.BindEnv("app.timezone", "DAYBOOK_TIMEZONE")

	// Server
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.host", "SERVER_HOST")
	_ = v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	_ = v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	_ = v.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Database
	_ = v.BindEnv("database.enabled", "DB_ENABLED")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.ssl_mode", "DB_SSL_MODE")
	_ = v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.migrations_path", "DB_MIGRATIONS_PATH")

	// Mongo
	_ = v.BindEnv("mongo.uri", "MONGO_URI")
	_ = v.BindEnv("mongo.database", "MONGO_DATABASE")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")

	// Local / remote stores
	_ = v.BindEnv("local.driver", "DAYBOOK_LOCAL_DRIVER")
	_ = v.BindEnv("local.path", "DAYBOOK_LOCAL_PATH")
	_ = v.BindEnv("remote.driver", "DAYBOOK_REMOTE_DRIVER")
	_ = v.BindEnv("remote.batch_size", "DAYBOOK_REMOTE_BATCH_SIZE")
	_ = v.BindEnv("remote.timeout", "DAYBOOK_REMOTE_TIMEOUT")

	// JWT
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.expires_in", "JWT_EXPIRES_IN")
	_ = v.BindEnv("jwt.refresh_expires_in", "JWT_REFRESH_EXPIRES_IN")
	_ = v.BindEnv("jwt.issuer", "JWT_ISSUER")

	// Logger
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
	_ = v.BindEnv("logger.format", "LOG_FORMAT")
	_ = v.BindEnv("logger.output", "LOG_OUTPUT")
	_ = v.BindEnv("logger.filename", "LOG_FILENAME")

	// Security
	_ = v.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	_ = v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("security.encryption_secret", "DAYBOOK_ENCRYPTION_SECRET")

	// Metrics
	_ = v.BindEnv("metrics.enabled", "ENABLE_METRICS")
	_ = v.BindEnv("metrics.port", "METRICS_PORT")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch cfg.Local.Driver {
	case LocalDriverFile, LocalDriverSQLite:
		if cfg.Local.Path == "" {
			return fmt.Errorf("local.path is required for the %s driver", cfg.Local.Driver)
		}
	case LocalDriverRedis, LocalDriverMemory:
	default:
		return fmt.Errorf("unknown local driver %q", cfg.Local.Driver)
	}

	if cfg.AccountsEnabled() && (cfg.Database.Host == "" || cfg.Database.Name == "") {
		return fmt.Errorf("database host and name are required")
	}

	switch cfg.Remote.Driver {
	case RemoteDriverNone, RemoteDriverPostgres:
	case RemoteDriverMongo:
		if cfg.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown remote driver %q", cfg.Remote.Driver)
	}

	if cfg.Remote.BatchSize <= 0 {
		return fmt.Errorf("remote.batch_size must be positive")
	}
	if cfg.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}

	if cfg.Security.EncryptionSecret == "" {
		return fmt.Errorf("security.encryption_secret must be set")
	}

	if cfg.App.IsProduction() && cfg.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be set and should not use default value")
	}

	if _, err := cfg.App.Location(); err != nil {
		return err
	}

	return nil
}

// GetDSN returns the database connection string
func (cfg *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// GetMigrateURL returns the URL form golang-migrate expects
func (cfg *DatabaseConfig) GetMigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)
}

// GetAddr returns the Redis address
func (cfg *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}

// Location resolves the configured timezone
func (cfg *AppConfig) Location() (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return loc, nil
}

// RemoteEnabled reports whether a remote row store is configured
func (cfg *Config) RemoteEnabled() bool {
	return cfg.Remote.Driver != "" && cfg.Remote.Driver != RemoteDriverNone
}

// AccountsEnabled reports whether Postgres is in use, which is where
// profiles and credentials are stored
func (cfg *Config) AccountsEnabled() bool {
	return cfg.Database.Enabled || cfg.Remote.Driver == RemoteDriverPostgres
}

// Redacted returns a copy with secrets masked, for display
func (cfg Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "******"
	}
	cfg.Database.Password = mask(cfg.Database.Password)
	cfg.Redis.Password = mask(cfg.Redis.Password)
	cfg.JWT.Secret = mask(cfg.JWT.Secret)
	cfg.Security.EncryptionSecret = mask(cfg.Security.EncryptionSecret)
	if cfg.Mongo.URI != "" && strings.Contains(cfg.Mongo.URI, "@") {
		cfg.Mongo.URI = "******"
	}
	return cfg
}
