package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/clickmart/pkg/broadcast"
	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
	"github.com/dmitrymomot/clickmart/svc/catalog"
)

// ResubscribeDelay is the pause before ListenProductEvents subscribes again
// after its subscription ended.
const ResubscribeDelay = 250 * time.Millisecond

// ProductEvents is the source of product events, usually the catalog's
// broadcast.Broadcaster.
type ProductEvents interface {
	Subscribe(ctx context.Context) broadcast.Subscriber[catalog.ProductCreated]
}

// ListenProductEvents turns every ProductCreated event from events into a
// durable notify-new-product job on OrderUpdatesQueue, keyed by product ID.
// The order-updates worker fans that job out to recipients. When the
// subscription ends the listener subscribes again; it returns only when ctx
// is done or the handler cannot be installed.
func (s *Service) ListenProductEvents(ctx context.Context, events ProductEvents) error {
	for {
		err := broadcast.Listen(ctx, events.Subscribe(ctx), s.handleProductCreated)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, broadcast.ErrSubscriptionEnded) {
			return err
		}

		s.logger.WarnContext(ctx, "product event subscription ended, resubscribing",
			slog.Duration("delay", ResubscribeDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ResubscribeDelay):
		}
	}
}

func (s *Service) handleProductCreated(ctx context.Context, msg broadcast.Message[catalog.ProductCreated]) {
	productID := msg.Data.ProductID
	job, err := s.jobs.Enqueue(ctx, OrderUpdatesQueue, JobNotifyNewProduct,
		ProductTrigger{ProductID: productID},
		queue.WithJobID(JobNotifyNewProduct+":"+productID),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to queue new product notification",
			logger.ProductID(productID),
			slog.String("event_id", msg.ID),
			logger.Error(err),
		)
		return
	}
	s.logger.DebugContext(ctx, "product event queued",
		logger.ProductID(productID),
		logger.JobID(job.ID),
	)
}
