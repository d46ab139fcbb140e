package queue

import (
	"time"

	"golang.org/x/time/rate"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	concurrency     int
	pullInterval    time.Duration
	lockTimeout     time.Duration
	stalledInterval time.Duration
	limiter         *rate.Limiter
}

func defaultWorkerOptions() *workerOptions {
	return &workerOptions{
		concurrency:     1,
		pullInterval:    time.Second,
		lockTimeout:     30 * time.Second,
		stalledInterval: 30 * time.Second,
	}
}

// WithConcurrency sets how many jobs the worker runs at the same time
func WithConcurrency(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithPullInterval sets how often an idle worker polls for due jobs
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout sets how long a claimed job stays locked without a heartbeat.
// Running jobs renew the lock every half period.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithStalledInterval sets how often the worker looks for active jobs whose lock expired
func WithStalledInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.stalledInterval = d
		}
	}
}

// WithRateLimit caps how many jobs the worker starts per interval
func WithRateLimit(n int, per time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 && per > 0 {
			o.limiter = rate.NewLimiter(rate.Every(per/time.Duration(n)), n)
		}
	}
}
