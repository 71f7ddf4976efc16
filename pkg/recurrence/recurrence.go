// Package recurrence computes the next occurrence of a repeating schedule.
// The functions are pure: the orchestrator feeds in the schedule of the post
// that just published and creates a sibling record from the result.
package recurrence

import (
	"time"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

// Options are policy points the product has not fully pinned down yet.
type Options struct {
	// EnforceOccurrenceLimit terminates a chain once EndAfterOccurrences
	// siblings have published. Off by default: the rule field is stored but
	// not enforced, pending product clarification.
	EnforceOccurrenceLimit bool
}

// Calculator evaluates recurrence rules under a fixed set of options.
type Calculator struct {
	opts Options
}

func NewCalculator(opts Options) *Calculator {
	return &Calculator{opts: opts}
}

// Next returns the publish time of the next occurrence, or false when the
// recurrence has ended (or none is configured). occurrence is the chain
// position of the post that just published, starting at 1.
//
// A weekly rule with a Weekdays set fires on every allowed weekday and
// ignores Interval; Interval only spaces out weekly rules without one.
func (c *Calculator) Next(schedule domainPost.Schedule, occurrence int) (time.Time, bool) {
	rule := schedule.Recurrence
	if rule == nil {
		return time.Time{}, false
	}

	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	if c.opts.EnforceOccurrenceLimit && rule.EndAfterOccurrences > 0 && occurrence >= rule.EndAfterOccurrences {
		return time.Time{}, false
	}

	var next time.Time
	switch rule.Frequency {
	case domainPost.FrequencyDaily:
		next = schedule.PublishAt.AddDate(0, 0, interval)
	case domainPost.FrequencyWeekly:
		if len(rule.Weekdays) > 0 {
			next = nextWeekday(schedule.PublishAt, rule.Weekdays)
		} else {
			next = schedule.PublishAt.AddDate(0, 0, 7*interval)
		}
	case domainPost.FrequencyMonthly:
		next = schedule.PublishAt.AddDate(0, interval, 0)
	default:
		return time.Time{}, false
	}

	if rule.EndDate != nil && next.After(*rule.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// Next with default options, for callers that do not carry a Calculator.
func Next(schedule domainPost.Schedule) (time.Time, bool) {
	return NewCalculator(Options{}).Next(schedule, 0)
}

// nextWeekday walks forward one day at a time until it lands on an allowed
// weekday. Bounded to a year to guard against an empty effective set.
func nextWeekday(from time.Time, weekdays []time.Weekday) time.Time {
	allowed := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		allowed[d] = true
	}

	candidate := from.AddDate(0, 0, 1)
	for i := 0; i < 366; i++ {
		if allowed[candidate.Weekday()] {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return from.AddDate(0, 0, 7)
}
