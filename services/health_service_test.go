package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coshare/coshare-backend/types"
	"github.com/go-redis/redismock/v9"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHealthService(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	redisClient, _ := redismock.NewClientMock()

	service := NewHealthService(mockDB, redisClient, true, "1.0.0")

	require.NotNil(t, service)
	assert.Equal(t, "1.0.0", service.version)
	assert.Equal(t, defaultProbeTimeout, service.probeTimeout)
	require.Len(t, service.probes, 3)
	assert.Equal(t, types.ComponentDatabase, service.probes[0].name)
	assert.True(t, service.probes[0].critical)
	assert.False(t, service.probes[1].critical)
	assert.False(t, service.probes[2].critical)
}

func TestHealthService_CheckHealth(t *testing.T) {
	tests := []struct {
		name            string
		setupMocks      func(pgxmock.PgxPoolIface, redismock.ClientMock)
		advisoryEnabled bool
		expectedStatus  types.HealthStatus
		expectedComps   map[string]types.HealthStatus
		expectedDetails map[string]string
	}{
		{
			name: "all components healthy",
			setupMocks: func(dbMock pgxmock.PgxPoolIface, redisMock redismock.ClientMock) {
				dbMock.ExpectPing()
				redisMock.ExpectPing().SetVal("PONG")
			},
			advisoryEnabled: true,
			expectedStatus:  types.HealthStatusUp,
			expectedComps: map[string]types.HealthStatus{
				types.ComponentDatabase: types.HealthStatusUp,
				types.ComponentRedis:    types.HealthStatusUp,
				types.ComponentAdvisory: types.HealthStatusUp,
			},
		},
		{
			name: "database down is fatal",
			setupMocks: func(dbMock pgxmock.PgxPoolIface, redisMock redismock.ClientMock) {
				dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))
				redisMock.ExpectPing().SetVal("PONG")
			},
			advisoryEnabled: true,
			expectedStatus:  types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				types.ComponentDatabase: types.HealthStatusDown,
				types.ComponentRedis:    types.HealthStatusUp,
			},
			expectedDetails: map[string]string{types.ComponentDatabase: "database connection failed"},
		},
		{
			name: "redis down degrades",
			setupMocks: func(dbMock pgxmock.PgxPoolIface, redisMock redismock.ClientMock) {
				dbMock.ExpectPing()
				redisMock.ExpectPing().SetErr(context.DeadlineExceeded)
			},
			advisoryEnabled: true,
			expectedStatus:  types.HealthStatusDegraded,
			expectedComps: map[string]types.HealthStatus{
				types.ComponentDatabase: types.HealthStatusUp,
				types.ComponentRedis:    types.HealthStatusDown,
			},
			expectedDetails: map[string]string{types.ComponentRedis: "redis connection failed"},
		},
		{
			name: "advisory disabled degrades",
			setupMocks: func(dbMock pgxmock.PgxPoolIface, redisMock redismock.ClientMock) {
				dbMock.ExpectPing()
				redisMock.ExpectPing().SetVal("PONG")
			},
			advisoryEnabled: false,
			expectedStatus:  types.HealthStatusDegraded,
			expectedComps: map[string]types.HealthStatus{
				types.ComponentDatabase: types.HealthStatusUp,
				types.ComponentAdvisory: types.HealthStatusDegraded,
			},
			expectedDetails: map[string]string{types.ComponentAdvisory: "advisory service disabled, serving engine results"},
		},
		{
			name: "database failure wins over degraded components",
			setupMocks: func(dbMock pgxmock.PgxPoolIface, redisMock redismock.ClientMock) {
				dbMock.ExpectPing().WillReturnError(errors.New("db error"))
				redisMock.ExpectPing().SetErr(errors.New("redis error"))
			},
			advisoryEnabled: false,
			expectedStatus:  types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				types.ComponentDatabase: types.HealthStatusDown,
				types.ComponentRedis:    types.HealthStatusDown,
				types.ComponentAdvisory: types.HealthStatusDegraded,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mockDB.Close()

			redisClient, redisMock := redismock.NewClientMock()
			tt.setupMocks(mockDB, redisMock)

			service := NewHealthService(mockDB, redisClient, tt.advisoryEnabled, "1.2.3")
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			service.startTime = now.Add(-10 * time.Minute)
			service.now = func() time.Time { return now }

			result := service.CheckHealth(context.Background())

			assert.Equal(t, tt.expectedStatus, result.Status)
			assert.Equal(t, "1.2.3", result.Version)
			assert.Equal(t, "10m0s", result.Uptime)
			assert.Equal(t, now, result.CheckedAt)
			assert.Len(t, result.Components, 3)
			for comp, expected := range tt.expectedComps {
				assert.Equal(t, expected, result.Components[comp].Status, comp)
			}
			for comp, detail := range tt.expectedDetails {
				assert.Equal(t, detail, result.Components[comp].Details, comp)
			}
			assert.True(t, result.Components[types.ComponentDatabase].Critical)

			require.NoError(t, mockDB.ExpectationsWereMet())
			require.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestHealthService_MissingClients(t *testing.T) {
	service := NewHealthService(nil, nil, true, "dev")

	result := service.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusDown, result.Status)
	assert.Equal(t, types.HealthStatusDown, result.Components[types.ComponentDatabase].Status)
	assert.Equal(t, "database not configured", result.Components[types.ComponentDatabase].Details)
	assert.Equal(t, types.HealthStatusDegraded, result.Components[types.ComponentRedis].Status)
	assert.Equal(t, "redis not configured", result.Components[types.ComponentRedis].Details)
	assert.Equal(t, types.HealthStatusUp, result.Components[types.ComponentAdvisory].Status)
}

func TestHealthService_ProbeTimeout(t *testing.T) {
	service := &HealthService{
		probes: []healthProbe{{
			name:     "slow",
			critical: true,
			check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}},
		probeTimeout: 10 * time.Millisecond,
		now:          time.Now,
		startTime:    time.Now(),
		log:          NewHealthService(nil, nil, false, "").log,
	}

	result := service.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusDown, result.Status)
	assert.Equal(t, "slow connection failed", result.Components["slow"].Details)
}
