package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayatoki/kiroku/internal/profile"
)

func TestNewDBDriverSQLite(t *testing.T) {
	driver, err := NewDBDriver(&profile.Profile{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, driver)
	t.Cleanup(func() { _ = driver.Close() })

	assert.NoError(t, driver.Ping(context.Background()))
}

func TestNewDBDriverUnknown(t *testing.T) {
	driver, err := NewDBDriver(&profile.Profile{Driver: "postgres", DSN: "host=localhost"})
	require.Error(t, err)
	assert.Nil(t, driver)
	assert.Contains(t, err.Error(), `unknown db driver "postgres"`)
}
