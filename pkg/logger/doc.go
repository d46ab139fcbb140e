// Package logger builds log/slog loggers for the notifier.
//
// Production output is JSON; development output is compact colorized
// console lines. Attribute helpers keep key names consistent across
// components:
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "notifier"), logger.WithConfig(cfg.Log))
//	log.InfoContext(ctx, "fan-out finished", logger.Queue("weekly-notifications"), logger.Count(n))
//
// Attributes attached to a context travel with it and are added to every
// record logged with that context:
//
//	ctx = logger.WithContextAttrs(ctx, logger.JobID(job.ID), logger.UserID(userID))
//	log.InfoContext(ctx, "email sent")
package logger
