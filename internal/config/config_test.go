package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090},
		"database": {"enabled": true, "driver": "sqlite", "path": "records.db"},
		"security": {"jwt_secret": "from-file"}
	}`), 0o600))

	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SUI_NETWORK", "devnet")
	t.Setenv("TRACKER_CONFIRMATION_TIMEOUT", "90s")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://portal.example.com,")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.GetServerAddr())
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "records.db", cfg.Database.Path)
	assert.Equal(t, "from-file", cfg.Security.JWTSecret)
	assert.Equal(t, "devnet", cfg.Sui.ClientConfig().Network)
	assert.Equal(t, 90*time.Second, cfg.Tracker.ConfirmationTimeout)
	assert.Equal(t, "@every 10s", cfg.Tracker.Schedule)
	assert.Equal(t, []string{"http://localhost:3000", "https://portal.example.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Remittance.RefreshDelay)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, cfg.Sui.PackageID, cfg.Sui.RemittancePackage())
	assert.Equal(t, cfg.Sui.TreasuryID, cfg.Sui.Contract().TreasuryID)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "eighty")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "SERVER_PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	assert.ErrorContains(t, err, "jwt_secret")

	cfg.Security.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Sui.Network = "nowhere"
	assert.Error(t, cfg.Validate())
	cfg.Sui.RPCURL = "http://127.0.0.1:9000"
	require.NoError(t, cfg.Validate())

	cfg.Sui.TreasuryID = "0x12"
	assert.ErrorContains(t, cfg.Validate(), "sui.treasury_id")
	cfg.Sui.TreasuryID = Default().Sui.TreasuryID

	cfg.Database.Enabled = true
	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "mysql")
}

func TestGetDatabaseURL(t *testing.T) {
	db := DatabaseConfig{User: "portal", Password: "pw", Host: "db", Port: 5432, DBName: "records", SSLMode: "disable"}
	assert.Equal(t, "postgres://portal:pw@db:5432/records?sslmode=disable", db.GetDatabaseURL())
}
