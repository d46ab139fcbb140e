// Package redis connects to the Redis server that backs the durable job
// queue and exposes a health check for readiness probes.
//
//	client, err := redis.Connect(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	storage, err := queue.NewRedisStorage(client)
//
// Config fields are populated from REDIS_* environment variables.
package redis
