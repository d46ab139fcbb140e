// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request struct filled by binders
// (see package binder) and returns a Response. Wrap turns it into an
// http.HandlerFunc usable with any router:
//
//	type queueRequest struct {
//		Name string `path:"name"`
//	}
//
//	counts := handler.HandlerFunc[handler.Context, queueRequest](
//		func(ctx handler.Context, req queueRequest) handler.Response {
//			c, err := manager.Counts(ctx, req.Name)
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.JSON(c)
//		},
//	)
//
//	r.Get("/queues/{name}", handler.Wrap(counts,
//		handler.WithBinders[handler.Context, queueRequest](binder.Path()),
//		handler.WithErrorHandler[handler.Context, queueRequest](handler.NewErrorHandler(log)),
//	))
//
// Responses are JSON envelopes of the form {"data": ...} or
// {"error": {"code": ..., "message": ...}}. Wrap an error with an HTTPError
// (errors.Join(handler.ErrNotFound, err)) to choose its status.
package handler
