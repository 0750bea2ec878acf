package services

import (
	"context"
	"errors"
	"time"

	"github.com/coshare/coshare-backend/logger"
	"github.com/coshare/coshare-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultProbeTimeout = 2 * time.Second

var (
	errNotConfigured    = errors.New("not configured")
	errAdvisoryDisabled = errors.New("advisory service disabled, serving engine results")
)

// DBPinger is the part of *pgxpool.Pool the health check needs.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type healthProbe struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// HealthService probes the service's dependencies. Only the database is
// critical; Redis and the advisory service degrade the analytics answers
// without stopping them.
type HealthService struct {
	probes       []healthProbe
	version      string
	startTime    time.Time
	probeTimeout time.Duration
	now          func() time.Time
	log          *zap.SugaredLogger
}

func NewHealthService(dbPool DBPinger, redisClient *redis.Client, advisoryEnabled bool, version string) *HealthService {
	probes := []healthProbe{
		{
			name:     types.ComponentDatabase,
			critical: true,
			check: func(ctx context.Context) error {
				if dbPool == nil {
					return errNotConfigured
				}
				return dbPool.Ping(ctx)
			},
		},
		{
			name: types.ComponentRedis,
			check: func(ctx context.Context) error {
				if redisClient == nil {
					return errNotConfigured
				}
				return redisClient.Ping(ctx).Err()
			},
		},
		{
			name: types.ComponentAdvisory,
			check: func(context.Context) error {
				if !advisoryEnabled {
					return errAdvisoryDisabled
				}
				return nil
			},
		},
	}

	return &HealthService{
		probes:       probes,
		version:      version,
		startTime:    time.Now(),
		probeTimeout: defaultProbeTimeout,
		now:          time.Now,
		log:          logger.GetLogger(),
	}
}

// CheckHealth runs every probe in order and folds the results: a failed
// critical probe is DOWN, any other failure is DEGRADED.
func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	result := types.HealthCheck{
		Status:     types.HealthStatusUp,
		Version:    h.version,
		Uptime:     h.now().Sub(h.startTime).Round(time.Second).String(),
		CheckedAt:  h.now().UTC(),
		Components: make(map[string]types.HealthComponent, len(h.probes)),
	}

	for _, p := range h.probes {
		comp := h.runProbe(ctx, p)
		result.Components[p.name] = comp

		switch {
		case comp.Status == types.HealthStatusUp:
		case p.critical:
			result.Status = types.HealthStatusDown
		case result.Status == types.HealthStatusUp:
			result.Status = types.HealthStatusDegraded
		}
	}

	return result
}

func (h *HealthService) runProbe(ctx context.Context, p healthProbe) types.HealthComponent {
	probeCtx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	started := time.Now()
	err := p.check(probeCtx)
	comp := types.HealthComponent{
		Status:    types.HealthStatusUp,
		Critical:  p.critical,
		LatencyMs: time.Since(started).Milliseconds(),
	}

	switch {
	case err == nil:
	case errors.Is(err, errNotConfigured):
		comp.Status = types.HealthStatusDown
		if !p.critical {
			comp.Status = types.HealthStatusDegraded
		}
		comp.Details = p.name + " not configured"
	case errors.Is(err, errAdvisoryDisabled):
		comp.Status = types.HealthStatusDegraded
		comp.Details = err.Error()
	default:
		h.log.Errorw("Health probe failed", "component", p.name, "critical", p.critical, "error", err)
		comp.Status = types.HealthStatusDown
		comp.Details = p.name + " connection failed"
	}

	return comp
}
