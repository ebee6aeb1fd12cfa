package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Sui        SuiConfig        `json:"sui"`
	Remittance RemittanceConfig `json:"remittance"`
	Tracker    TrackerConfig    `json:"tracker"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Mode         string        `json:"mode"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig represents database configuration. When disabled,
// transaction records live in memory and die with their session.
type DatabaseConfig struct {
	Enabled        bool          `json:"enabled"`
	Driver         string        `json:"driver"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	Path           string        `json:"path"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// SuiConfig selects the fullnode and the deployed packages.
type SuiConfig struct {
	Network               string        `json:"network"`
	RPCURL                string        `json:"rpc_url"`
	Timeout               time.Duration `json:"timeout"`
	RemittancePackageID   string        `json:"remittance_package_id"`
	PackageID             string        `json:"package_id"`
	MarketplaceID         string        `json:"marketplace_id"`
	TreasuryID            string        `json:"treasury_id"`
	RegistryID            string        `json:"registry_id"`
	TreasuryUnitPriceMist uint64        `json:"treasury_unit_price_mist"`
}

type RemittanceConfig struct {
	RefreshDelay time.Duration `json:"refresh_delay"`
}

// TrackerConfig
type TrackerConfig struct {
	Enabled             bool          `json:"enabled"`
	Schedule            string        `json:"schedule"`
	ConfirmationTimeout time.Duration `json:"confirmation_timeout"`
	BatchSize           int           `json:"batch_size"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret      string        `json:"jwt_secret"`
	SessionTTL     time.Duration `json:"session_ttl"`
	AllowedOrigins []string      `json:"allowed_origins"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
	File        string `json:"file"`
	MaxSizeMB   int    `json:"max_size_mb"`
	MaxBackups  int    `json:"max_backups"`
	MaxAgeDays  int    `json:"max_age_days"`
}

// Default returns the configuration used when nothing overrides it. The
// contract ids are the testnet deployment the web client ships with.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "debug",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "carbonscribe_dapp_portal",
			SSLMode:        "disable",
			Path:           "portal.db",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    time.Hour,
		},
		Sui: SuiConfig{
			Network:               sui.NetworkTestnet,
			Timeout:               30 * time.Second,
			PackageID:             "0x08a91e0eee53bdade76d9b4c37ceead073d249ac2870f458fc78fc366c46bd40",
			MarketplaceID:         "0x70bea4d3084daec70ef0d8d7e01cbff87e9d11f122aa84e13caf7a66f266e916",
			TreasuryID:            "0x42f70bac8a056e24bacc9e36eca2f415724f44d57ef9e55acaea97e729059aab",
			RegistryID:            "0x00fcf3c0bad36bd5ed93a29debf97e8ddb11e79f4a2b43ad3182af7805a63b17",
			TreasuryUnitPriceMist: 100_000_000,
		},
		Remittance: RemittanceConfig{
			RefreshDelay: 2 * time.Second,
		},
		Tracker: TrackerConfig{
			Enabled:             true,
			Schedule:            "@every 10s",
			ConfirmationTimeout: 5 * time.Minute,
			BatchSize:           100,
		},
		Security: SecurityConfig{
			SessionTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is read first if present.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Default()

	// Load from file if exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_HOST", &config.Server.Host)
	num("SERVER_PORT", &config.Server.Port)
	str("GIN_MODE", &config.Server.Mode)

	flag("DATABASE_ENABLED", &config.Database.Enabled)
	str("DATABASE_DRIVER", &config.Database.Driver)
	str("DATABASE_HOST", &config.Database.Host)
	num("DATABASE_PORT", &config.Database.Port)
	str("DATABASE_USER", &config.Database.User)
	str("DATABASE_PASSWORD", &config.Database.Password)
	str("DATABASE_DBNAME", &config.Database.DBName)
	str("DATABASE_SSLMODE", &config.Database.SSLMode)
	str("DATABASE_PATH", &config.Database.Path)

	str("SUI_NETWORK", &config.Sui.Network)
	str("SUI_RPC_URL", &config.Sui.RPCURL)
	str("SUI_REMITTANCE_PACKAGE_ID", &config.Sui.RemittancePackageID)
	str("SUI_PACKAGE_ID", &config.Sui.PackageID)
	str("SUI_MARKETPLACE_ID", &config.Sui.MarketplaceID)
	str("SUI_TREASURY_ID", &config.Sui.TreasuryID)
	str("SUI_REGISTRY_ID", &config.Sui.RegistryID)

	dur("REMITTANCE_REFRESH_DELAY", &config.Remittance.RefreshDelay)

	flag("TRACKER_ENABLED", &config.Tracker.Enabled)
	str("TRACKER_SCHEDULE", &config.Tracker.Schedule)
	dur("TRACKER_CONFIRMATION_TIMEOUT", &config.Tracker.ConfirmationTimeout)

	str("JWT_SECRET", &config.Security.JWTSecret)
	dur("SESSION_TTL", &config.Security.SessionTTL)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Security.AllowedOrigins = splitList(origins)
	}

	str("LOG_LEVEL", &config.Logging.Level)
	flag("LOG_DEVELOPMENT", &config.Logging.Development)
	str("LOG_FILE", &config.Logging.File)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwt_secret is required"))
	}
	if c.Database.Enabled && c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Sui.RPCURL == "" {
		if _, err := sui.FullnodeURL(c.Sui.Network); err != nil {
			errs = append(errs, err)
		}
	}
	for name, id := range map[string]string{
		"sui.package_id":     c.Sui.PackageID,
		"sui.marketplace_id": c.Sui.MarketplaceID,
		"sui.treasury_id":    c.Sui.TreasuryID,
		"sui.registry_id":    c.Sui.RegistryID,
	} {
		if !sui.IsValidAddress(id) {
			errs = append(errs, fmt.Errorf("%s is not a valid object id", name))
		}
	}
	if c.Sui.RemittancePackageID != "" && !sui.IsValidAddress(c.Sui.RemittancePackageID) {
		errs = append(errs, errors.New("sui.remittance_package_id is not a valid object id"))
	}
	return errors.Join(errs...)
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClientConfig returns the fullnode client settings.
func (c *SuiConfig) ClientConfig() sui.ClientConfig {
	return sui.ClientConfig{Network: c.Network, RPCURL: c.RPCURL, Timeout: c.Timeout}
}

// Contract returns the carbon_credits deployment.
func (c *SuiConfig) Contract() txbuilder.ContractConfig {
	return txbuilder.ContractConfig{
		PackageID:     c.PackageID,
		MarketplaceID: c.MarketplaceID,
		TreasuryID:    c.TreasuryID,
		RegistryID:    c.RegistryID,
	}
}

// RemittancePackage returns the package holding remittance::send_remittance.
// It defaults to the carbon_credits package.
func (c *SuiConfig) RemittancePackage() string {
	if c.RemittancePackageID != "" {
		return c.RemittancePackageID
	}
	return c.PackageID
}
