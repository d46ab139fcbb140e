// Package queue provides a storage-agnostic job queue with retries, delayed
// and recurring jobs, and per-queue workers.
//
// The package is organised around a Manager that owns named queues and at
// most one worker per queue:
//
//   - Queue   adds one-off, delayed and repeatable jobs and exposes
//     inspection and remediation (counts, get, remove, retry)
//   - Worker  claims due jobs, runs them through a Handler, and records the
//     outcome with backoff-driven retries
//   - Storage persists everything; MemoryStorage serves tests and local
//     development, RedisStorage serves production
//
// Storage is split into small repository interfaces (EnqueuerRepository,
// SchedulerRepository, WorkerRepository, InspectorRepository) so that each
// component depends only on what it needs.
//
// # Job lifecycle
//
// A job starts waiting, or delayed when scheduled in the future. A worker
// claims it and moves it to active under a lock renewed by a heartbeat.
// Success moves it to completed. A failure either moves it back to delayed
// until the backoff elapses or, once attempts are exhausted or the handler
// returned Unrecoverable, to failed. Handlers return Skip to complete a job
// without doing anything. Finished jobs are pruned per the queue Policy.
//
// An active job whose lock expired is stalled. Workers report stalled jobs
// through EventStalled once and leave them in place; an operator decides
// whether to Retry them.
//
// # Repeatable jobs
//
// WithRepeat turns a job into a recurring definition keyed by the job ID, or
// by name and schedule when no ID is given. Exactly one pending instance
// exists per definition; claiming it materializes the next one. Instance IDs
// derive from the key and fire time, so registering the same definition on
// every start-up never duplicates work.
//
// # Usage
//
//	storage := queue.NewMemoryStorage()
//	manager, err := queue.NewManager(storage, queue.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer manager.Close(context.Background())
//
//	mux := queue.NewMux()
//	mux.Register("send-email", queue.NewPayloadHandler(
//		func(ctx context.Context, job *queue.Job, p SendEmail) error {
//			return mailer.Send(ctx, p.To)
//		}))
//
//	if _, err := manager.CreateWorker("emails", mux, queue.WithConcurrency(5)); err != nil {
//		return err
//	}
//
//	_, err = manager.Enqueue(ctx, "emails", "send-email", SendEmail{To: "a@b.c"},
//		queue.WithDelay(time.Minute))
//
// Recurring job, every Monday at 09:00 UTC:
//
//	_, err = manager.Enqueue(ctx, "digests", "send-digests", nil,
//		queue.WithJobID("digest-recurring"),
//		queue.WithRepeat(queue.RepeatOptions{Pattern: "0 9 * * 1"}))
package queue
