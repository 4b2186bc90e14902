package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSQLiteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_PATH", "test.db")
	t.Setenv("DEPLOYMENTS", "")
	t.Setenv("DISABLED_DETECTORS", "")
	t.Setenv("SCHEDULER_INTERVAL", "")
	t.Setenv("ALERT_DEDUP_ENABLED", "")
	t.Setenv("GENERATE_RATE_PER_MINUTE", "")
}

func TestLoadDefaults(t *testing.T) {
	setSQLiteEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{DeploymentProperty, DeploymentFarm}, cfg.Deployments)
	assert.True(t, cfg.HasDeployment("Farm"))
	assert.Equal(t, time.Hour, cfg.SchedulerInterval)
	assert.False(t, cfg.DedupEnabled)
	assert.False(t, cfg.DBAutoMigrate)
	assert.Zero(t, cfg.GenerateRatePerMinute)
	assert.Equal(t, 3, cfg.GenerateBurst)
}

func TestLoadParsesOverrides(t *testing.T) {
	setSQLiteEnv(t)
	t.Setenv("DEPLOYMENTS", " Farm ")
	t.Setenv("DISABLED_DETECTORS", "lunar_calendar, supply_shortage")
	t.Setenv("SCHEDULER_INTERVAL", "15m")
	t.Setenv("ALERT_DEDUP_ENABLED", "yes")
	t.Setenv("GENERATE_RATE_PER_MINUTE", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{DeploymentFarm}, cfg.Deployments)
	assert.False(t, cfg.HasDeployment(DeploymentProperty))
	assert.True(t, cfg.IsDetectorDisabled("Supply_Shortage"))
	assert.Equal(t, 15*time.Minute, cfg.SchedulerInterval)
	assert.True(t, cfg.DedupEnabled)
	assert.InDelta(t, 2.5, cfg.GenerateRatePerMinute, 1e-9)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	setSQLiteEnv(t)
	t.Setenv("SCHEDULER_INTERVAL", "soon")
	t.Setenv("GENERATE_RATE_PER_MINUTE", "-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.SchedulerInterval)
	assert.Zero(t, cfg.GenerateRatePerMinute)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "postgres missing credentials",
			cfg:  Config{DBType: "postgres", DBHost: "db", Deployments: []string{DeploymentFarm}},
			err:  ErrMissingDatabaseConfig,
		},
		{
			name: "unknown store",
			cfg:  Config{DBType: "oracle", Deployments: []string{DeploymentFarm}},
			err:  ErrInvalidDatabaseType,
		},
		{
			name: "unknown deployment",
			cfg:  Config{DBType: "sqlite", DBPath: "x.db", Deployments: []string{"ranch"}},
			err:  ErrInvalidDeployment,
		},
		{
			name: "no deployments",
			cfg:  Config{DBType: "sqlite", DBPath: "x.db"},
			err:  ErrInvalidDeployment,
		},
		{
			name: "valid",
			cfg:  Config{DBType: "mysql", DBHost: "db", DBName: "ops", DBUser: "ops", Deployments: []string{DeploymentProperty}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
