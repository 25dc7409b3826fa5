// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ad-tracker/youtube-channel-etl/internal/db"
	"github.com/ad-tracker/youtube-channel-etl/internal/validation"
)

// MaxChannels is the most channels one channels.list call can harvest.
const MaxChannels = 50

// DefaultChannelIDs are the data-science channels tracked out of the box.
var DefaultChannelIDs = []string{
	"UCtYLUTtgS3k1Fg4y5tAhLbw",
	"UCCezIgC97PvUuR4_gbFUs5g",
	"UCfzlCWGWYyIQ0aLC5w48gBQ",
	"UCNU_lfiiWBdtULKOw6X0Dig",
	"UCzL_0nIe8B4-7ShhVPfJkgw",
	"UCLLw7jmFsvfIVaUFsLs8mlQ",
	"UCiT9RITQ9PW6BhXK0y2jaeg",
	"UC7cs8q-gJRlGwj4A8OmCmXg",
	"UC2UXDak6o7rBm23k3Vv5dww",
	"UCDybamfye5An6p-j1t2YMsg",
	"UCAq9f7jFEA7Mtl3qOZy2h1A",
	"UC8_RSKwbU1OmZWNEoLV1tQg",
	"UCmLGJ3VYBcfRaWbP6JLJcpA",
	"UCFp1vaKzpfvoGai0vE5VJ0w",
	"UCh9nVJoWXmFb7sLApWGcLPQ",
}

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	YouTube  YouTubeConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Pipeline PipelineConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// YouTubeConfig contains YouTube Data API configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YouTubeConfig struct {
	APIKey         string
	ChannelIDs     []string
	PageSize       int64
	RequestTimeout time.Duration
	MaxRetries     int
}

// ServerConfig contains HTTP server configuration for daemon mode.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RabbitMQConfig contains the run-completed publisher configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	RoutingKey string
	Port       int
}

// PipelineConfig contains run behavior switches.
type PipelineConfig struct {
	// ContinueOnChannelError skips channels whose videos cannot be extracted
	// instead of failing the run.
	ContinueOnChannelError bool
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from an optional .env file, config file and
// environment variables.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.YouTube.APIKey == "" {
		errs = append(errs, errors.New("youtube api key is required (set YOUTUBE_API_KEY)"))
	}
	switch n := len(c.YouTube.ChannelIDs); {
	case n == 0:
		errs = append(errs, errors.New("at least one channel id is required"))
	case n > MaxChannels:
		errs = append(errs, fmt.Errorf("at most %d channel ids are supported, got %d", MaxChannels, n))
	}
	for _, id := range c.YouTube.ChannelIDs {
		if !validation.IsValidChannelID(id) {
			errs = append(errs, fmt.Errorf("invalid channel id %q", id))
		}
	}
	if c.YouTube.PageSize < 1 || c.YouTube.PageSize > 50 {
		errs = append(errs, fmt.Errorf("youtube page size must be between 1 and 50, got %d", c.YouTube.PageSize))
	}
	if c.RabbitMQ.Enabled && (c.RabbitMQ.Exchange == "" || c.RabbitMQ.RoutingKey == "") {
		errs = append(errs, errors.New("rabbitmq exchange and routing key are required when rabbitmq is enabled"))
	}

	return errors.Join(errs...)
}

// DB converts the database section to a pool configuration.
func (d DatabaseConfig) DB() *db.Config {
	return &db.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxConns:        int32(d.MaxConnections),
		MinConns:        int32(d.MinConnections),
		MaxConnLifetime: d.MaxLifetime,
		MaxConnIdleTime: d.MaxIdleTime,
	}
}

// URL returns the AMQP connection URL.
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.User, r.Password, r.Host, r.Port)
}

func setDefaults() {
	// YouTube
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.channelids", slices.Clone(DefaultChannelIDs))
	viper.SetDefault("youtube.pagesize", 50)
	viper.SetDefault("youtube.requesttimeout", 30*time.Second)
	viper.SetDefault("youtube.maxretries", 3)

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "youtube_etl")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 4)
	viper.SetDefault("database.minconnections", 1)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "youtube.etl")
	viper.SetDefault("rabbitmq.routingkey", "etl.run.completed")

	// Pipeline
	viper.SetDefault("pipeline.continueonchannelerror", false)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

// bindEnv binds every known key to its APP_ variable so nested keys resolve
// from the environment. The API key also falls back to YOUTUBE_API_KEY, then
// API_KEY.
func bindEnv() {
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key)
	}
	_ = viper.BindEnv("youtube.apikey", "APP_YOUTUBE_APIKEY", "YOUTUBE_API_KEY", "API_KEY")
}
