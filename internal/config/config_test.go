package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_PORT", "LOG_LEVEL", "STORAGE_DRIVER", "MONGODB_URI", "MONGODB_DB_NAME",
	"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "META_VERIFY_TOKEN", "WHATSAPP_BASE_URL",
	"WHATSAPP_API_VERSION", "WHATSAPP_REPORT_TO", "GOOGLE_SHEETS_CREDENTIALS_PATH",
	"GOOGLE_SHEET_DATABASE_ID", "REPORT_CRON_SCHEDULE", "TIMEZONE", "BREEDING_OWNER_ID",
	"BREEDING_CACHE_TTL", "BREEDING_STALE_AFTER", "BREEDING_BATCH_PAGE_SIZE",
	"BREEDING_BATCH_CONCURRENCY", "BREEDING_BATCH_CRON",
}

// clearEnv unsets every variable the config reads and restores them after
// the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		key := key
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, value) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(key) })
		}
		require.NoError(t, os.Unsetenv(key))
	}
}

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: "8080"},
		Storage:   StorageConfig{Driver: StorageMemory},
		MongoDB:   MongoDBConfig{DBName: "herdbook"},
		Reporting: ReportingConfig{CronSchedule: "0 20 * * 5", Timezone: "UTC"},
		Breeding: BreedingConfig{
			CacheTTL:         time.Hour,
			BatchCron:        "30 2 * * *",
			BatchPageSize:    100,
			BatchConcurrency: 4,
			StaleAfter:       24 * time.Hour,
		},
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageMongoDB, cfg.Storage.Driver)
	assert.Equal(t, "herdbook", cfg.MongoDB.DBName)
	assert.Equal(t, "https://graph.facebook.com", cfg.WhatsApp.BaseURL)
	assert.Equal(t, "v20.0", cfg.WhatsApp.APIVersion)
	assert.Equal(t, "Africa/Conakry", cfg.Reporting.Timezone)
	assert.Equal(t, time.Hour, cfg.Breeding.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.Breeding.StaleAfter)
	assert.Equal(t, 100, cfg.Breeding.BatchPageSize)
	assert.Equal(t, 4, cfg.Breeding.BatchConcurrency)
	assert.Equal(t, "30 2 * * *", cfg.Breeding.BatchCron)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestFromEnvParseErrors(t *testing.T) {
	tests := map[string]string{
		"BREEDING_OWNER_ID":          "seven",
		"BREEDING_CACHE_TTL":         "an hour",
		"BREEDING_STALE_AFTER":       "1d",
		"BREEDING_BATCH_PAGE_SIZE":   "1e3",
		"BREEDING_BATCH_CONCURRENCY": "four",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := fromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STORAGE_DRIVER", StorageMemory)
		t.Setenv("TIMEZONE", "UTC")
		t.Setenv("BREEDING_OWNER_ID", "7")
		t.Setenv("BREEDING_CACHE_TTL", "30m")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, int64(7), cfg.Breeding.OwnerID)
		assert.Equal(t, 30*time.Minute, cfg.Breeding.CacheTTL)
	})

	t.Run("env file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("STORAGE_DRIVER=mongodb\nMONGODB_URI=mongodb://localhost:27017\nTIMEZONE=UTC\nAPP_PORT=9090\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	})

	t.Run("invalid configuration is rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMEZONE", "UTC")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.EqualError(t, err, "MONGODB_URI must be provided when STORAGE_DRIVER=mongodb")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unsupported driver", func(c *Config) { c.Storage.Driver = "postgres" }, `STORAGE_DRIVER "postgres" is not supported`},
		{"mongodb without uri", func(c *Config) { c.Storage.Driver = StorageMongoDB }, "MONGODB_URI must be provided when STORAGE_DRIVER=mongodb"},
		{"whatsapp without verify token", func(c *Config) {
			c.WhatsApp = WhatsAppConfig{AccessToken: "t", PhoneNumberID: "p", BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"}
		}, "META_VERIFY_TOKEN must be provided"},
		{"unknown timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, "load timezone Mars/Olympus"},
		{"negative owner", func(c *Config) { c.Breeding.OwnerID = -1 }, "BREEDING_OWNER_ID must not be negative"},
		{"zero ttl", func(c *Config) { c.Breeding.CacheTTL = 0 }, "BREEDING_CACHE_TTL must be positive"},
		{"zero page size", func(c *Config) { c.Breeding.BatchPageSize = 0 }, "BREEDING_BATCH_PAGE_SIZE must be positive"},
		{"zero concurrency", func(c *Config) { c.Breeding.BatchConcurrency = 0 }, "BREEDING_BATCH_CONCURRENCY must be positive"},
		{"negative stale window", func(c *Config) { c.Breeding.StaleAfter = -time.Minute }, "BREEDING_STALE_AFTER must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
