// Package httpserver runs the operational HTTP surface with graceful shutdown
// and exposes liveness and readiness probes.
//
// Run binds the listener, serves until the context is cancelled and then
// drains in-flight requests within the configured shutdown timeout:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	r := chi.NewRouter()
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(client)},
//	))
//	err := srv.Run(ctx, r)
//
// Listen failures are joined with ErrStart and shutdown failures with
// ErrShutdown; inspect them with errors.Is.
package httpserver
