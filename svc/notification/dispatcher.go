package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
)

var addressValidator = validator.New()

// usableAddress reports whether email can receive a notification.
func usableAddress(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && addressValidator.Var(email, "email") == nil
}

type fanOut struct {
	queue   string
	job     string
	subtype string
	cycle   string
	payload func(Recipient) any
}

// SendWeeklyNotificationsToAll enqueues one weekly notification job per
// opted-in recipient with a usable email. cycle, when set, makes the job IDs
// deterministic so repeating the same cycle adds nothing new.
// It returns the number of jobs enqueued.
func (s *Service) SendWeeklyNotificationsToAll(ctx context.Context, cycle string) (int, error) {
	return s.fanOut(ctx, fanOut{
		queue:   WeeklyQueue,
		job:     JobSendWeeklyNotification,
		subtype: SubtypeWeeklyNotification,
		cycle:   cycle,
		payload: func(r Recipient) any { return RecipientJob{UserID: r.UserID} },
	})
}

// SendAccountSummariesToAll enqueues one account summary job per opted-in
// recipient with a usable email. See SendWeeklyNotificationsToAll for cycle.
func (s *Service) SendAccountSummariesToAll(ctx context.Context, cycle string) (int, error) {
	return s.fanOut(ctx, fanOut{
		queue:   AccountSummaryQueue,
		job:     JobSendAccountSummary,
		subtype: SubtypeAccountSummary,
		cycle:   cycle,
		payload: func(r Recipient) any { return RecipientJob{UserID: r.UserID} },
	})
}

// NotifyNewProduct enqueues one order update job on OrderUpdatesQueue per
// recipient opted into order updates. Job IDs are derived from the product,
// so a repeated event for the same product does not notify anyone twice.
func (s *Service) NotifyNewProduct(ctx context.Context, productID string) (int, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, fmt.Errorf("%w: empty product id", ErrInvalidID)
	}
	ctx = logger.WithContextAttrs(ctx, logger.ProductID(productID))

	return s.fanOut(ctx, fanOut{
		queue:   OrderUpdatesQueue,
		job:     JobSendOrderUpdate,
		subtype: SubtypeOrderUpdates,
		cycle:   productID,
		payload: func(r Recipient) any { return OrderUpdateJob{UserID: r.UserID, ProductID: productID} },
	})
}

func (s *Service) fanOut(ctx context.Context, f fanOut) (int, error) {
	recipients, err := s.repo.RecipientsWithEnabled(ctx, CategoryEmail, f.subtype)
	if err != nil {
		return 0, errors.Join(ErrFailedToFanOut, err)
	}

	enqueued, skipped := 0, 0
	for _, r := range recipients {
		if r.UserID == "" || !usableAddress(r.Email) {
			skipped++
			continue
		}

		var opts []queue.EnqueueOption
		if f.cycle != "" {
			opts = append(opts, queue.WithJobID(f.job+":"+f.cycle+":"+r.UserID))
		}
		if _, err := s.jobs.Enqueue(ctx, f.queue, f.job, f.payload(r), opts...); err != nil {
			s.logger.ErrorContext(ctx, "fan-out interrupted",
				logger.Queue(f.queue),
				logger.UserID(r.UserID),
				logger.Count(enqueued),
				logger.Error(err),
			)
			return enqueued, errors.Join(ErrFailedToFanOut, err)
		}
		enqueued++
	}

	s.logger.InfoContext(ctx, "notifications queued",
		logger.Queue(f.queue),
		logger.JobName(f.job),
		logger.Count(enqueued),
		slog.Int("skipped", skipped),
	)
	return enqueued, nil
}
