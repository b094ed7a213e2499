// Package integration runs the portal against real PostgreSQL and Redis
// instances started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/portal/backend/internal/infrastructure/migration"
	"github.com/portal/backend/internal/infrastructure/persistence"
	"github.com/portal/backend/internal/infrastructure/queue"
)

// TestDB is a migrated PostgreSQL database in its own container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a PostgreSQL container and applies the embedded migrations
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("portal_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	gl := gormlogger.Default.LogMode(gormlogger.Silent)
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gl = gormlogger.Default.LogMode(gormlogger.Info)
	}
	db, err := persistence.Open(gormpostgres.Open(dsn), gl)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       dsn,
		t:         t,
	}
	t.Cleanup(testDB.Close)
	return testDB
}

// Close closes the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CreateSupplier inserts a user with a supplier profile attached to a
// subsidiary and returns the user id
func (tdb *TestDB) CreateSupplier(supplierRFC, companyName, subsidiaryRFC, subsidiaryName string) uuid.UUID {
	tdb.t.Helper()

	userID, subsidiaryID := uuid.New(), uuid.New()
	err := tdb.DB.Exec(`INSERT INTO users (id, email, name) VALUES (?, ?, ?)`,
		userID, fmt.Sprintf("%s@suppliers.test", userID.String()[:8]), companyName).Error
	require.NoError(tdb.t, err, "Failed to create user")

	err = tdb.DB.Exec(`
		INSERT INTO subsidiaries (id, rfc, business_name) VALUES (?, ?, ?)
		ON CONFLICT (rfc) DO NOTHING
	`, subsidiaryID, subsidiaryRFC, subsidiaryName).Error
	require.NoError(tdb.t, err, "Failed to create subsidiary")
	require.NoError(tdb.t, tdb.DB.Raw(`SELECT id FROM subsidiaries WHERE rfc = ?`, subsidiaryRFC).Scan(&subsidiaryID).Error)

	err = tdb.DB.Exec(`
		INSERT INTO supplier_profiles (id, user_id, rfc, company_name, subsidiary_id)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New(), userID, supplierRFC, companyName, subsidiaryID).Error
	require.NoError(tdb.t, err, "Failed to create supplier profile")
	return userID
}

// TestRedis is a Redis container plus a connected client
type TestRedis struct {
	Client    *redis.Client
	Container testcontainers.Container
}

// NewTestRedis starts a Redis container
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	client, err := queue.NewRedisClient(ctx, config.RedisConfig{Host: host, Port: portNum})
	require.NoError(t, err, "Failed to connect to Redis")
	t.Cleanup(func() { _ = client.Close() })

	return &TestRedis{Client: client, Container: container}
}

// Queue returns a queue on fresh keys with a short poll timeout
func (tr *TestRedis) Queue(name string) *queue.RedisQueue {
	return queue.NewRedisQueue(tr.Client, config.QueueConfig{
		Key:             name,
		ProcessingKey:   name + ":processing",
		DeadLetterKey:   name + ":dead",
		BatchSize:       10,
		PollTimeout:     time.Second,
		MaxReceiveCount: 3,
	}, zap.NewNop())
}
