package queue

import "time"

// Config holds the process-wide defaults for queue workers and storage
type Config struct {
	PullInterval    time.Duration `env:"QUEUE_PULL_INTERVAL" envDefault:"1s"`
	LockTimeout     time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"30s"`
	StalledInterval time.Duration `env:"QUEUE_STALLED_INTERVAL" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RedisKeyPrefix  string        `env:"QUEUE_REDIS_PREFIX" envDefault:"clickmart"`
}

// WorkerOptions converts the config into worker defaults for WithWorkerDefaults.
func (c Config) WorkerOptions() []WorkerOption {
	return []WorkerOption{
		WithPullInterval(c.PullInterval),
		WithLockTimeout(c.LockTimeout),
		WithStalledInterval(c.StalledInterval),
	}
}
