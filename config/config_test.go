package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "unit_test")
	t.Setenv("MONGODB_CONNECTION_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DBNAME_DATA", "daily_ops_test")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.WorkingDayBoundaryHour)
	assert.Equal(t, "Europe/Amsterdam", cfg.ReportTimezone)
	assert.Equal(t, 10, cfg.CategoryMaxDepth)
	assert.Equal(t, 24, cfg.FetchPaddingHours)
	assert.Equal(t, "report_sales_daily", cfg.Col_SalesAggregates)
	assert.Empty(t, cfg.RedisAddr)
}

func TestNewConfigRejectsBoundaryHour(t *testing.T) {
	t.Setenv("GO_ENV", "unit_test")
	t.Setenv("MONGODB_CONNECTION_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DBNAME_DATA", "daily_ops_test")
	t.Setenv("WORKING_DAY_BOUNDARY_HOUR", "24")

	_, err := NewConfig()
	assert.Error(t, err)
}
