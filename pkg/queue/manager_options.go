package queue

import "log/slog"

// ManagerOption is a functional option for configuring a Manager
type ManagerOption func(*managerOptions)

type managerOptions struct {
	policy        Policy
	queuePolicies map[string]Policy
	logger        *slog.Logger
	events        EventHandler
	workerOpts    []WorkerOption
}

// WithPolicy sets the default policy for every queue
func WithPolicy(p Policy) ManagerOption {
	return func(o *managerOptions) {
		o.policy = p
	}
}

// WithQueuePolicy overrides the policy of a single queue
func WithQueuePolicy(queue string, p Policy) ManagerOption {
	return func(o *managerOptions) {
		if o.queuePolicies == nil {
			o.queuePolicies = make(map[string]Policy)
		}
		o.queuePolicies[queue] = p
	}
}

// WithLogger sets the logger shared by queues and workers
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler registers an observer for worker lifecycle events
func WithEventHandler(h EventHandler) ManagerOption {
	return func(o *managerOptions) {
		o.events = h
	}
}

// WithWorkerDefaults sets options applied to every worker before the
// options passed to CreateWorker
func WithWorkerDefaults(opts ...WorkerOption) ManagerOption {
	return func(o *managerOptions) {
		o.workerOpts = append(o.workerOpts, opts...)
	}
}
