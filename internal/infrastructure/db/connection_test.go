package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Second, config.QueryTimeout)
	assert.True(t, config.AutoMigrate)
	assert.False(t, config.Enabled) // Should be disabled by default
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.Nil(t, manager.DB())
	assert.NoError(t, manager.Close())
	assert.Error(t, manager.Migrate(context.Background()))

	health := manager.Health().Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Contains(t, health.Errors[0], "disabled")
	assert.NoError(t, manager.Health().Ping(context.Background()))
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestManagerWithDB_MigrateAndHealth(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	manager := NewManagerWithDB(sqlx.NewDb(mockDB, "postgres"), DefaultConfig())
	require.True(t, manager.IsEnabled())

	repos := manager.Repository()
	require.NotNil(t, repos)
	assert.NotNil(t, repos.Draws)
	assert.NotNil(t, repos.Predictions)
	assert.NotNil(t, repos.Boxes)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS draw_results").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, manager.Migrate(context.Background()))

	mock.ExpectPing()
	health := manager.Health().Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Empty(t, health.Errors)

	mock.ExpectPing().WillReturnError(assert.AnError)
	health = manager.Health().Health(context.Background())
	assert.False(t, health.Healthy)
	assert.Contains(t, health.Errors[0], "ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}
