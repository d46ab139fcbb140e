// Package broadcast provides type-safe one-to-many delivery of in-process events.
//
// Each subscriber owns a buffered channel. By default publishers never block
// and a subscriber that cannot keep up is dropped and its channel closed.
// Events that must not be lost use WithBlockingDelivery, where Broadcast
// waits for buffer room until its context is done.
//
//	bus := broadcast.NewMemoryBroadcaster[ProductCreated](64, broadcast.WithLogger(log))
//	defer bus.Close()
//
//	sub := bus.Subscribe(ctx)
//	go broadcast.Listen(ctx, sub, func(ctx context.Context, msg broadcast.Message[ProductCreated]) {
//		// react to msg.Data
//	})
//
//	_ = bus.Broadcast(ctx, broadcast.Message[ProductCreated]{Data: evt})
//
// Subscriptions end when the subscriber's context is cancelled, when it is
// closed explicitly, when it falls behind a lossy broadcaster, or when the
// broadcaster is closed. Listen reports the last three as ErrSubscriptionEnded.
package broadcast
