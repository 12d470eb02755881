package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Scorer      ScorerConfig      `mapstructure:"scorer"`
	Renderer    RendererConfig    `mapstructure:"renderer"`
	Executor    ExecutorConfig    `mapstructure:"executor"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Uploads     UploadsConfig     `mapstructure:"uploads"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type ScorerConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type RendererConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type ExecutorConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type IdempotencyConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/careerforge.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "careerforge")
	v.SetDefault("database.name", "careerforge")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "artifacts")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("scorer.provider", "openai")
	v.SetDefault("scorer.model", "gpt-4o-mini")
	v.SetDefault("scorer.base_url", "https://api.openai.com/v1")
	v.SetDefault("renderer.base_url", "")
	v.SetDefault("executor.workers", 4)
	v.SetDefault("executor.queue_size", 64)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("idempotency.purge_interval", time.Hour)
	v.SetDefault("uploads.dir", "./data/uploads")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	v.BindEnv("scorer.api_key", "OPENAI_API_KEY")
	v.BindEnv("scorer.base_url", "OPENAI_BASE_URL")
	v.BindEnv("scorer.model", "SCORER_MODEL")
	v.BindEnv("renderer.base_url", "RENDERER_BASE_URL")
	v.BindEnv("renderer.api_key", "RENDERER_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
