package broadcast

import "errors"

var (
	ErrBroadcasterClosed = errors.New("broadcast: broadcaster is closed")
	ErrNilHandler        = errors.New("broadcast: handler is nil")

	// ErrSubscriptionEnded is returned by Listen when the subscriber's channel
	// closes while its context is still live.
	ErrSubscriptionEnded = errors.New("broadcast: subscription ended")
)
