// Package mongo connects to the document store holding users, products,
// orders and notification settings.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	ready := mongo.Healthcheck(db.Client())
//
// Connection attempts are retried RetryAttempts times, RetryInterval apart.
// Config fields are populated from MONGODB_* environment variables.
package mongo
