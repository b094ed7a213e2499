package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var portalEnvKeys = []string{
	"PORTAL_APP_NAME",
	"PORTAL_APP_ENV",
	"PORTAL_APP_PORT",
	"PORTAL_DATABASE_HOST",
	"PORTAL_DATABASE_PORT",
	"PORTAL_DATABASE_PASSWORD",
	"PORTAL_DATABASE_SSLMODE",
	"PORTAL_DATABASE_MAX_OPEN_CONNS",
	"PORTAL_DATABASE_MAX_IDLE_CONNS",
	"PORTAL_JWT_SECRET",
	"PORTAL_WORKER_SECRET_KEY",
	"PORTAL_WORKER_REDELIVER_ON_ERP_ERROR",
	"PORTAL_WORKER_PRESIGN_TTL",
	"PORTAL_ERP_ACCOUNT_ID",
	"PORTAL_ERP_CONSUMER_KEY",
	"PORTAL_ERP_CONSUMER_SECRET",
	"PORTAL_ERP_TOKEN_ID",
	"PORTAL_ERP_TOKEN_SECRET",
	"PORTAL_STORAGE_BUCKET",
	"PORTAL_QUEUE_KEY",
	"PORTAL_QUEUE_BATCH_SIZE",
	"PORTAL_QUEUE_CONSUMER_ENABLED",
	"PORTAL_INTAKE_CROSS_VALIDATE",
	"PORTAL_SWEEP_ENABLED",
	"PORTAL_HTTP_CORS_ALLOW_ORIGINS",
	"PORTAL_TELEMETRY_SAMPLING_RATIO",
}

// clearPortalEnv unsets every variable the tests touch and restores them afterwards
func clearPortalEnv(t *testing.T) {
	t.Helper()
	for _, k := range portalEnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		}
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range portalEnvKeys {
			os.Unsetenv(k)
		}
	})
}

func setProductionEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORTAL_APP_ENV", "production")
	t.Setenv("PORTAL_JWT_SECRET", "a-very-long-secret-key-that-is-at-least-32-chars")
	t.Setenv("PORTAL_DATABASE_PASSWORD", "strongpassword")
	t.Setenv("PORTAL_DATABASE_SSLMODE", "require")
	t.Setenv("PORTAL_WORKER_SECRET_KEY", "worker-shared-secret")
	t.Setenv("PORTAL_ERP_ACCOUNT_ID", "1234567_SB1")
	t.Setenv("PORTAL_ERP_CONSUMER_KEY", "ck")
	t.Setenv("PORTAL_ERP_CONSUMER_SECRET", "cs")
	t.Setenv("PORTAL_ERP_TOKEN_ID", "tk")
	t.Setenv("PORTAL_ERP_TOKEN_SECRET", "ts")
	t.Setenv("PORTAL_STORAGE_BUCKET", "portal-documents")
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearPortalEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "supplier-portal", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "portal", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)

		assert.Equal(t, "portal:invoices", cfg.Queue.Key)
		assert.Equal(t, "portal:invoices:processing", cfg.Queue.ProcessingKey)
		assert.Equal(t, "portal:invoices:dlq", cfg.Queue.DeadLetterKey)
		assert.Equal(t, 10, cfg.Queue.BatchSize)
		assert.Equal(t, 5, cfg.Queue.MaxReceiveCount)
		assert.True(t, cfg.Queue.ConsumerEnabled)

		assert.Equal(t, 24*time.Hour, cfg.Worker.PresignTTL)
		assert.False(t, cfg.Worker.RedeliverOnERPError)
		assert.Empty(t, cfg.Worker.SecretKey)
		assert.Equal(t, 30, cfg.ERP.TimeoutSeconds)

		assert.False(t, cfg.Intake.CrossValidate)
		assert.True(t, cfg.Sweep.Enabled)
		assert.Equal(t, time.Hour, cfg.Sweep.StuckAfter)
		assert.Equal(t, time.Hour, cfg.Storage.PresignExpiration)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with PORTAL prefix", func(t *testing.T) {
		clearPortalEnv(t)
		t.Setenv("PORTAL_APP_NAME", "test-portal")
		t.Setenv("PORTAL_APP_PORT", "9000")
		t.Setenv("PORTAL_DATABASE_HOST", "testdb.local")
		t.Setenv("PORTAL_DATABASE_PORT", "5433")
		t.Setenv("PORTAL_WORKER_SECRET_KEY", "s3cr3t")
		t.Setenv("PORTAL_WORKER_REDELIVER_ON_ERP_ERROR", "true")
		t.Setenv("PORTAL_WORKER_PRESIGN_TTL", "2h")
		t.Setenv("PORTAL_QUEUE_KEY", "custom:queue")
		t.Setenv("PORTAL_QUEUE_BATCH_SIZE", "25")
		t.Setenv("PORTAL_QUEUE_CONSUMER_ENABLED", "false")
		t.Setenv("PORTAL_INTAKE_CROSS_VALIDATE", "true")
		t.Setenv("PORTAL_SWEEP_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-portal", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "s3cr3t", cfg.Worker.SecretKey)
		assert.True(t, cfg.Worker.RedeliverOnERPError)
		assert.Equal(t, 2*time.Hour, cfg.Worker.PresignTTL)
		assert.Equal(t, "custom:queue", cfg.Queue.Key)
		assert.Equal(t, "custom:queue:processing", cfg.Queue.ProcessingKey)
		assert.Equal(t, 25, cfg.Queue.BatchSize)
		assert.False(t, cfg.Queue.ConsumerEnabled)
		assert.True(t, cfg.Intake.CrossValidate)
		assert.False(t, cfg.Sweep.Enabled)
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		clearPortalEnv(t)
		t.Setenv("PORTAL_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("PORTAL_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("rejects presign ttl above the S3 limit", func(t *testing.T) {
		clearPortalEnv(t)
		t.Setenv("PORTAL_WORKER_PRESIGN_TTL", "200h")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "presign_ttl")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearPortalEnv(t)
		t.Setenv("PORTAL_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("accepts a complete production configuration", func(t *testing.T) {
		clearPortalEnv(t)
		setProductionEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})

	tests := []struct {
		name    string
		unset   string
		value   string
		wantErr string
	}{
		{name: "short jwt secret", unset: "PORTAL_JWT_SECRET", value: "short", wantErr: "jwt.secret"},
		{name: "missing database password", unset: "PORTAL_DATABASE_PASSWORD", wantErr: "database.password"},
		{name: "sslmode disabled", unset: "PORTAL_DATABASE_SSLMODE", value: "disable", wantErr: "sslmode"},
		{name: "missing worker secret", unset: "PORTAL_WORKER_SECRET_KEY", wantErr: "worker.secret_key"},
		{name: "missing erp token secret", unset: "PORTAL_ERP_TOKEN_SECRET", wantErr: "erp credentials"},
		{name: "missing bucket", unset: "PORTAL_STORAGE_BUCKET", wantErr: "storage.bucket"},
		{name: "wildcard cors origin", unset: "PORTAL_HTTP_CORS_ALLOW_ORIGINS", value: "*", wantErr: "cors_allow_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPortalEnv(t)
			setProductionEnv(t)
			if tt.value == "" {
				os.Unsetenv(tt.unset)
			} else {
				t.Setenv(tt.unset, tt.value)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("escapes special characters in password", func(t *testing.T) {
		db := DatabaseConfig{
			Host:     "db.local",
			Port:     5432,
			User:     "portal",
			Password: "p@ss:w/rd",
			DBName:   "portal",
			SSLMode:  "require",
		}

		dsn := db.DSN()
		assert.Contains(t, dsn, "p%40ss%3Aw%2Frd@db.local:5432")
		assert.Contains(t, dsn, "sslmode=require")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
