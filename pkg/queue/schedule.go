package queue

import (
	"errors"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Schedule determines when a repeatable job fires next
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// RepeatOptions turns a job into a recurring template.
// Exactly one of Pattern or Every must be set.
type RepeatOptions struct {
	// Pattern is a standard 5-field cron expression evaluated in UTC.
	Pattern string
	// Every fires at fixed intervals aligned to multiples of the duration.
	Every time.Duration
	// Limit caps the number of materialized instances; 0 means unlimited.
	Limit int
}

// cronParser supports standard 5-field cron and descriptors like "@weekly".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// cronSchedule evaluates a cron expression in UTC
type cronSchedule struct {
	pattern string
	sched   cronlib.Schedule
}

func (s cronSchedule) Next(from time.Time) time.Time {
	return s.sched.Next(from.UTC())
}

func (s cronSchedule) String() string {
	return s.pattern
}

// intervalSchedule fires on multiples of every since the unix epoch, so the
// same interval yields the same instants across process restarts.
type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	step := s.every.Milliseconds()
	if step <= 0 {
		return from.Add(s.every)
	}
	ms := from.UnixMilli()
	return time.UnixMilli((ms/step + 1) * step).UTC()
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

// Cron parses a cron expression into a UTC schedule.
func Cron(pattern string) (Schedule, error) {
	sched, err := cronParser.Parse(pattern)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}
	return cronSchedule{pattern: pattern, sched: sched}, nil
}

// EveryInterval creates a schedule that runs at fixed intervals
func EveryInterval(d time.Duration) Schedule {
	return intervalSchedule{every: d}
}

// schedule builds the Schedule described by the options.
func (o RepeatOptions) schedule() (Schedule, error) {
	switch {
	case o.Pattern != "" && o.Every > 0:
		return nil, fmt.Errorf("%w: pattern and every are mutually exclusive", ErrInvalidSchedule)
	case o.Pattern != "":
		return Cron(o.Pattern)
	case o.Every >= time.Millisecond:
		return EveryInterval(o.Every), nil
	case o.Every > 0:
		return nil, fmt.Errorf("%w: interval must be at least 1ms", ErrInvalidSchedule)
	default:
		return nil, ErrNoScheduleSpecified
	}
}

// scheduleOf rebuilds the schedule of a stored definition.
func scheduleOf(r *Repeatable) (Schedule, error) {
	return RepeatOptions{Pattern: r.Pattern, Every: r.Every, Limit: r.Limit}.schedule()
}
