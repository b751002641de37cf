// internal/common/config/config.go
package config

import (
	"fmt"
	"time"

	"opportunity-funnel/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Services      ServicesConfig     `mapstructure:"services"`
	Funnel        FunnelConfig       `mapstructure:"funnel"`
	Tiers         []models.DepthTier `mapstructure:"tiers"`
	Notes         NotesConfig        `mapstructure:"notes"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// ServicesConfig holds the two remote collaborator endpoints.
type ServicesConfig struct {
	Opportunity RemoteServiceConfig `mapstructure:"opportunity"`
	Analysis    RemoteServiceConfig `mapstructure:"analysis"`
}

type RemoteServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// GetTimeout returns the request timeout as a duration.
func (r RemoteServiceConfig) GetTimeout() time.Duration {
	return time.Duration(r.Timeout) * time.Millisecond
}

// FunnelConfig holds screening prices and batch limits.
type FunnelConfig struct {
	FastUnitPrice     float64 `mapstructure:"fast_unit_price"`
	ThoroughUnitPrice float64 `mapstructure:"thorough_unit_price"`
	MaxBatchSize      int     `mapstructure:"max_batch_size"`
	SpendAlertDollars float64 `mapstructure:"spend_alert_dollars"`
}

// NotesConfig holds autosave timing.
type NotesConfig struct {
	DebounceMillis int `mapstructure:"debounce_millis"`
	SavedAckMillis int `mapstructure:"saved_ack_millis"`
}

// Debounce returns the autosave debounce window.
func (n NotesConfig) Debounce() time.Duration {
	return time.Duration(n.DebounceMillis) * time.Millisecond
}

// SavedAck returns how long the saved acknowledgment stays visible.
func (n NotesConfig) SavedAck() time.Duration {
	return time.Duration(n.SavedAckMillis) * time.Millisecond
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds settings for batch-completion and spend alerts.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled     bool   `mapstructure:"enabled"`
		PhoneNumber string `mapstructure:"phone_number"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TierCatalog returns the configured tiers, or the compiled-in default
// catalog when the configuration does not override them.
func (c *Config) TierCatalog() models.TierCatalog {
	if len(c.Tiers) == 0 {
		return models.DefaultTierCatalog()
	}
	return models.TierCatalog(c.Tiers)
}
