package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthcheckKey is written by Healthcheck to prove the server accepts writes.
const HealthcheckKey = "clickmart:healthcheck"

// Healthcheck returns a readiness probe for the job store. Besides PING it
// writes HealthcheckKey with a short TTL, so a replica demoted to read-only
// after a failover reports unhealthy.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if err := client.Set(ctx, HealthcheckKey, time.Now().Unix(), time.Minute).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
