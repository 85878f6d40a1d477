package health

import (
	"context"
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
	"github.com/hittygas/storefront/internal/api"
	"github.com/hittygas/storefront/internal/config"
	"github.com/hittygas/storefront/internal/storage"
)

func NewHealthHandler(cfg *config.Config, client *api.Client, store storage.Store) (*health.Health, error) {

	checks := []health.Config{
		{
			Name:      "backend",
			Timeout:   5 * time.Second,
			SkipOnErr: false,
			Check: func(ctx context.Context) error {
				if client == nil {
					return fmt.Errorf("api client is not initialized")
				}

				return client.Ping(ctx)
			},
		},
		{
			Name:      "storage",
			Timeout:   3 * time.Second,
			SkipOnErr: false,
			Check: func(ctx context.Context) error {

				probe := map[string]string{"probe": "ok"}

				if err := store.Set(ctx, "health_probe", probe); err != nil {
					return fmt.Errorf("storage write failed: %w", err)
				}

				return store.Delete(ctx, "health_probe")
			},
		},
	}

	if cfg.Storage.Backend == "redis" {
		checks = append(checks, health.Config{
			Name:      "redis",
			Timeout:   2 * time.Second,
			SkipOnErr: false,
			Check: healthRedis.New(
				healthRedis.Config{
					DSN: cfg.RedisConnect.GetDSN(),
				},
			),
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    "storefront",
			Version: "1.0.0",
		}),
		health.WithSystemInfo(),
		health.WithChecks(checks...),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}
