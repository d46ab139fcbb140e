package queueboard

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
)

// DefaultAlertLimit is how many alerts a Board keeps unless WithAlertLimit
// says otherwise.
const DefaultAlertLimit = 100

// Alert is a failed, stalled or worker-error event kept for operators.
type Alert struct {
	Type    queue.EventType `json:"type"`
	Queue   string          `json:"queue"`
	JobID   string          `json:"job_id,omitempty"`
	JobName string          `json:"job_name,omitempty"`
	Error   string          `json:"error,omitempty"`
	Time    time.Time       `json:"time"`
}

// WithAlertLimit bounds the alert history.
func WithAlertLimit(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.alertLimit = n
		}
	}
}

// HandleEvent records failed, stalled and error events. Register the board
// with queue.WithEventHandler. Stalled jobs are not requeued by anyone; the
// alert is the signal to retry them by hand.
func (b *Board) HandleEvent(ctx context.Context, e queue.Event) {
	switch e.Type {
	case queue.EventFailed, queue.EventStalled, queue.EventError:
	default:
		return
	}

	a := Alert{Type: e.Type, Queue: e.Queue, Time: e.Time}
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	if e.Job != nil {
		a.JobID, a.JobName = e.Job.ID, e.Job.Name
		if a.Queue == "" {
			a.Queue = e.Job.Queue
		}
	}
	if e.Err != nil {
		a.Error = e.Err.Error()
	}

	b.alertMu.Lock()
	b.alerts = append(b.alerts, a)
	if over := len(b.alerts) - b.alertLimit; over > 0 {
		b.alerts = slices.Delete(b.alerts, 0, over)
	}
	b.alertMu.Unlock()

	if e.Type == queue.EventStalled {
		b.logger.WarnContext(ctx, "stalled job needs manual retry",
			logger.Queue(a.Queue), logger.JobID(a.JobID), logger.Component("queueboard"))
	}
}

// Alerts returns recorded alerts, newest first. An empty name returns the
// alerts of every queue.
func (b *Board) Alerts(name string) []Alert {
	b.alertMu.Lock()
	defer b.alertMu.Unlock()

	out := make([]Alert, 0, len(b.alerts))
	for i := len(b.alerts) - 1; i >= 0; i-- {
		if name == "" || b.alerts[i].Queue == name {
			out = append(out, b.alerts[i])
		}
	}
	return out
}

var _ queue.EventHandler = (*Board)(nil)
