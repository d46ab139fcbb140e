// Package binder fills request structs for the typed handlers in package
// handler. Path reads chi URL parameters (`path` tags), Query reads the URL
// query (`query` tags) and JSON decodes an application/json body (`json`
// tags). Binders with nothing to read return ErrNotApplicable and are
// skipped.
//
//	r.Get("/queues/{name}/jobs/{id}", handler.Wrap(getJob,
//		handler.WithBinders[handler.Context, jobRequest](binder.Path()),
//	))
package binder
