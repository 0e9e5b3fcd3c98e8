// Package config loads the bookshelf server configuration from an optional .env file,
// an optional bookshelf.yaml and BOOKSHELF_* environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const envPrefix = "BOOKSHELF"

// SessionStore selects the backend of the session authority.
type SessionStore string

const (
	SessionStoreCookie SessionStore = "cookie"
	SessionStoreRedis  SessionStore = "redis"
)

// BooksBackend selects where book records live.
type BooksBackend string

const (
	BooksBackendSQL  BooksBackend = "sql"
	BooksBackendJSON BooksBackend = "json"
)

// Config is the full server configuration.
type Config struct {
	Listen     string   `mapstructure:"listen"`
	Port       int      `mapstructure:"port"`
	Debug      bool     `mapstructure:"debug"`
	LogLevel   LogLevel `mapstructure:"log_level"`
	LogFolder  string   `mapstructure:"log_folder"`
	Language   string   `mapstructure:"language"`
	BcryptCost int      `mapstructure:"bcrypt_cost"`

	Session     SessionConfig     `mapstructure:"session"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Books       BooksConfig       `mapstructure:"books"`
	GoogleBooks GoogleBooksConfig `mapstructure:"google_books"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
}

// SessionConfig configures the login session cookie.
type SessionConfig struct {
	Store  SessionStore `mapstructure:"store"`
	Secret string       `mapstructure:"secret"`
	// MaxAge is expressed in minutes.
	MaxAge int  `mapstructure:"max_age"`
	Secure bool `mapstructure:"secure"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BooksConfig struct {
	Backend  BooksBackend `mapstructure:"backend"`
	JSONPath string       `mapstructure:"json_path"`
}

type GoogleBooksConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
}

// RateLimitConfig limits login and registration attempts per client IP.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "")
	v.SetDefault("port", 5000)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", string(Info))
	v.SetDefault("log_folder", "")
	v.SetDefault("language", "pt-BR")
	v.SetDefault("bcrypt_cost", 10)

	v.SetDefault("session.store", string(SessionStoreCookie))
	v.SetDefault("session.secret", "")
	v.SetDefault("session.max_age", 60*24*7)
	v.SetDefault("session.secure", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	def := GetDefaultDatabaseConfig()
	v.SetDefault("database.type", string(def.Type))
	v.SetDefault("database.sqlite.path", def.SQLite.Path)
	v.SetDefault("database.postgres.host", def.Postgres.Host)
	v.SetDefault("database.postgres.port", def.Postgres.Port)
	v.SetDefault("database.postgres.database", def.Postgres.Database)
	v.SetDefault("database.postgres.username", def.Postgres.Username)
	v.SetDefault("database.postgres.password", def.Postgres.Password)
	v.SetDefault("database.postgres.ssl_mode", def.Postgres.SSLMode)
	v.SetDefault("database.postgres.time_zone", def.Postgres.TimeZone)
	v.SetDefault("database.mysql.dsn", def.MySQL.DSN)

	v.SetDefault("books.backend", string(BooksBackendSQL))
	v.SetDefault("books.json_path", "data/books.json")

	v.SetDefault("google_books.base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("google_books.api_key", "")
	v.SetDefault("google_books.timeout", 10*time.Second)
	v.SetDefault("google_books.max_results", 5)

	v.SetDefault("rate_limit.per_minute", 20)
	v.SetDefault("rate_limit.burst", 5)
}

// Load reads the configuration. configFile may be empty, in which case bookshelf.yaml is
// looked up in the working directory and /etc/bookshelf. A missing file is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bookshelf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bookshelf")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = Debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and backend combinations.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.LogLevel {
	case Debug, Info, Notice, Warn, Error:
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	switch c.Session.Store {
	case SessionStoreCookie:
	case SessionStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis session store requires redis.addr")
		}
	default:
		return fmt.Errorf("unsupported session store: %q", c.Session.Store)
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session.max_age must be positive")
	}
	switch c.Books.Backend {
	case BooksBackendSQL:
	case BooksBackendJSON:
		if c.Books.JSONPath == "" {
			return fmt.Errorf("json books backend requires books.json_path")
		}
	default:
		return fmt.Errorf("unsupported books backend: %q", c.Books.Backend)
	}
	if c.GoogleBooks.Timeout <= 0 {
		return fmt.Errorf("google_books.timeout must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31, got %d", c.BcryptCost)
	}
	return c.Database.ValidateConfig()
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen, c.Port)
}
