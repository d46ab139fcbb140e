// Package queueboard is the operational dashboard API over the job queues.
//
// A Board keeps the set of queues an operator observes and reports their job
// counts by state, worker presence and recurring schedules. Jobs of an
// observed queue can be inspected, retried or removed. Adding or removing a
// queue only attaches or detaches the observer; the worker consuming the
// queue is never touched.
//
//	board := queueboard.New(manager,
//		queueboard.WithQueues(notification.WeeklyQueue, notification.AccountSummaryQueue, notification.OrderUpdatesQueue),
//		queueboard.WithLogger(log),
//	)
//	r.Mount("/admin/queues", board.Handle())
package queueboard
