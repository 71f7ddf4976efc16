package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNext_NoRule(t *testing.T) {
	_, ok := Next(domainPost.Schedule{PublishAt: at("2024-01-01T10:00:00Z")})
	assert.False(t, ok, "a schedule without recurrence never repeats")
}

func TestNext_Daily(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyDaily,
			Interval:  1,
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-02T10:00:00Z"), next)
}

func TestNext_DailyInterval(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyDaily,
			Interval:  3,
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-04T10:00:00Z"), next)
}

func TestNext_Weekly(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyWeekly,
			Interval:  2,
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-15T10:00:00Z"), next)
}

func TestNext_WeeklyWithWeekdays(t *testing.T) {
	// 2024-01-01 is a Monday; next allowed day is Wednesday.
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyWeekly,
			Interval:  1,
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-03T10:00:00Z"), next)
	assert.Equal(t, time.Wednesday, next.Weekday())
}

func TestNext_WeeklyWeekdaysIgnoreInterval(t *testing.T) {
	// 2024-01-01 is a Monday. With a weekday set the rule fires on every
	// allowed day; Interval does not skip weeks.
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyWeekly,
			Interval:  2,
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-03T10:00:00Z"), next, "next allowed weekday, not two weeks out")

	schedule.PublishAt = next
	next, ok = Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-08T10:00:00Z"), next, "wraps to the following Monday")
}

func TestNext_Monthly(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-15T08:30:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyMonthly,
			Interval:  1,
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-02-15T08:30:00Z"), next)
}

func TestNext_EndDateTerminates(t *testing.T) {
	end := at("2024-01-03T00:00:00Z")
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-02T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyDaily,
			Interval:  1,
			EndDate:   &end,
		},
	}

	_, ok := Next(schedule)
	assert.False(t, ok, "candidate past end_date must terminate the chain")
}

func TestNext_EndDateInclusive(t *testing.T) {
	end := at("2024-01-02T10:00:00Z")
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyDaily,
			Interval:  1,
			EndDate:   &end,
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok, "candidate exactly at end_date is still due")
	assert.Equal(t, end, next)
}

func TestNext_OccurrenceLimitIgnoredByDefault(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency:           domainPost.FrequencyDaily,
			Interval:            1,
			EndAfterOccurrences: 1,
		},
	}

	_, ok := NewCalculator(Options{}).Next(schedule, 5)
	assert.True(t, ok, "occurrence limit is not enforced unless opted in")
}

func TestNext_OccurrenceLimitEnforced(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency:           domainPost.FrequencyDaily,
			Interval:            1,
			EndAfterOccurrences: 3,
		},
	}

	calc := NewCalculator(Options{EnforceOccurrenceLimit: true})

	_, ok := calc.Next(schedule, 2)
	assert.True(t, ok, "third occurrence is still allowed")

	_, ok = calc.Next(schedule, 3)
	assert.False(t, ok, "limit reached, chain ends")
}

func TestNext_ZeroIntervalDefaultsToOne(t *testing.T) {
	schedule := domainPost.Schedule{
		PublishAt: at("2024-01-01T10:00:00Z"),
		Recurrence: &domainPost.RecurrenceRule{
			Frequency: domainPost.FrequencyDaily,
		},
	}

	next, ok := Next(schedule)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-02T10:00:00Z"), next)
}
