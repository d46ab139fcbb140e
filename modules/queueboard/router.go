package queueboard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/clickmart/handler"
	"github.com/dmitrymomot/clickmart/pkg/binder"
	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
	"github.com/dmitrymomot/clickmart/pkg/requestid"
)

type queueRequest struct {
	Queue string `path:"name"`
}

type jobRequest struct {
	Queue string `path:"name"`
	JobID string `path:"id"`
}

// actionResult is the body of add and remove responses.
type actionResult struct {
	Queue   string `json:"queue"`
	Message string `json:"message"`
}

// Handle returns the dashboard API. Mount it under a prefix such as
// /admin/queues:
//
//	GET    /                            observed queues with counts
//	GET    /events                      failed, stalled and worker-error alerts
//	POST   /add/{name}                  observe a queue
//	POST   /remove/{name}               stop observing a queue
//	GET    /q/{name}                    one queue
//	GET    /q/{name}/jobs/{id}          one job
//	POST   /q/{name}/jobs/{id}/retry    retry a failed or stalled job
//	DELETE /q/{name}/jobs/{id}          remove a job
//
// Queue routes live under /q so any queue name, "events" included, is
// reachable.
func (b *Board) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.Recoverer)

	onErr := handler.NewErrorHandler(b.logger)

	r.Get("/", handler.Wrap(b.overview,
		handler.WithErrorHandler[handler.Context, struct{}](onErr)))
	r.Get("/events", b.events)
	r.Post("/add/{name}", handler.Wrap(b.add, queueOpts(onErr)...))
	r.Post("/remove/{name}", handler.Wrap(b.remove, queueOpts(onErr)...))
	r.Route("/q/{name}", func(r chi.Router) {
		r.Get("/", handler.Wrap(b.status, queueOpts(onErr)...))
		r.Get("/jobs/{id}", handler.Wrap(b.job, jobOpts(onErr)...))
		r.Post("/jobs/{id}/retry", handler.Wrap(b.retry, jobOpts(onErr)...))
		r.Delete("/jobs/{id}", handler.Wrap(b.removeJob, jobOpts(onErr)...))
	})

	return r
}

func queueOpts(onErr handler.ErrorHandler[handler.Context]) []handler.WrapOption[handler.Context, queueRequest] {
	return []handler.WrapOption[handler.Context, queueRequest]{
		handler.WithBinders[handler.Context, queueRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, queueRequest](onErr),
	}
}

func jobOpts(onErr handler.ErrorHandler[handler.Context]) []handler.WrapOption[handler.Context, jobRequest] {
	return []handler.WrapOption[handler.Context, jobRequest]{
		handler.WithBinders[handler.Context, jobRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, jobRequest](onErr),
	}
}

func (b *Board) overview(ctx handler.Context, _ struct{}) handler.Response {
	queues, err := b.Overview(ctx)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(queues, handler.WithJSONMeta(map[string]any{"total": len(queues)}))
}

// events serves GET /events?queue=<name>.
func (b *Board) events(w http.ResponseWriter, r *http.Request) {
	alerts := b.Alerts(r.URL.Query().Get("queue"))
	resp := handler.JSON(alerts, handler.WithJSONMeta(map[string]any{"total": len(alerts)}))
	if err := resp.Render(w, r); err != nil {
		b.logger.ErrorContext(r.Context(), "failed to render alerts", logger.Error(err))
	}
}

func (b *Board) status(ctx handler.Context, req queueRequest) handler.Response {
	st, err := b.Status(ctx, req.Queue)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(st)
}

func (b *Board) add(ctx handler.Context, req queueRequest) handler.Response {
	if err := b.Observe(req.Queue); err != nil {
		return handler.JSONError(errors.Join(handler.ErrBadRequest, err))
	}
	return handler.JSON(actionResult{
		Queue:   req.Queue,
		Message: fmt.Sprintf("Queue '%s' added successfully.", req.Queue),
	})
}

func (b *Board) remove(ctx handler.Context, req queueRequest) handler.Response {
	if err := b.Forget(req.Queue); err != nil {
		return handler.JSONError(errors.Join(handler.ErrBadRequest, err))
	}
	return handler.JSON(actionResult{
		Queue:   req.Queue,
		Message: fmt.Sprintf("Queue '%s' removed successfully.", req.Queue),
	})
}

func (b *Board) job(ctx handler.Context, req jobRequest) handler.Response {
	job, err := b.Job(ctx, req.Queue, req.JobID)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(job)
}

func (b *Board) retry(ctx handler.Context, req jobRequest) handler.Response {
	if err := b.RetryJob(ctx, req.Queue, req.JobID); err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.EmptyWithStatus(http.StatusAccepted)
}

func (b *Board) removeJob(ctx handler.Context, req jobRequest) handler.Response {
	if err := b.RemoveJob(ctx, req.Queue, req.JobID); err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.Empty()
}

// httpError attaches the status matching a board or queue error.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotObserved), errors.Is(err, queue.ErrJobNotFound):
		return errors.Join(handler.ErrNotFound, err)
	case errors.Is(err, queue.ErrJobNotRetryable):
		return errors.Join(handler.ErrConflict, err)
	case errors.Is(err, queue.ErrManagerClosed):
		return errors.Join(handler.ErrServiceUnavailable, err)
	}
	return err
}
