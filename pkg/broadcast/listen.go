package broadcast

import "context"

// Listen calls fn for every message delivered to sub until ctx is done or
// the subscriber's channel is closed, in which case it returns
// ErrSubscriptionEnded. It closes sub before returning.
// fn runs sequentially on the calling goroutine.
func Listen[T any](ctx context.Context, sub Subscriber[T], fn func(context.Context, Message[T])) error {
	if fn == nil {
		return ErrNilHandler
	}
	defer func() { _ = sub.Close() }()

	messages := sub.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return ErrSubscriptionEnded
			}
			fn(ctx, msg)
		}
	}
}
