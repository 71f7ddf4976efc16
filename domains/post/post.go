package post

import "time"

// Platform identifies an external network a post can be delivered to.
type Platform string

const (
	PlatformMastodon Platform = "mastodon"
	PlatformTelegram Platform = "telegram"
	PlatformWebhook  Platform = "webhook"
)

// Frequency of a recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrenceRule describes how the next occurrence of a repeating post is computed.
type RecurrenceRule struct {
	Frequency           Frequency      `json:"frequency"`
	Interval            int            `json:"interval"`
	EndDate             *time.Time     `json:"end_date,omitempty"`
	EndAfterOccurrences int            `json:"end_after_occurrences,omitempty"`
	Weekdays            []time.Weekday `json:"weekdays,omitempty"`
}

// Schedule holds when a post publishes and, optionally, how it repeats.
type Schedule struct {
	PublishAt  time.Time       `json:"publish_at"`
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
}

// Content is the platform-agnostic payload. The core never inspects it
// beyond the target platform set; publishers decide how to render it.
type Content struct {
	Text      string     `json:"text"`
	MediaURLs []string   `json:"media_urls,omitempty"`
	Platforms []Platform `json:"platforms"`
}

// ScheduledPost is the central record of the publishing pipeline.
//
// ScheduledFor is a denormalized copy of Schedule.PublishAt kept for the
// due-post range query; both are always written together.
type ScheduledPost struct {
	ID              string              `json:"id"`
	OwnerID         string              `json:"owner_id"`
	OrganizationID  string              `json:"organization_id"`
	Content         Content             `json:"content"`
	Schedule        Schedule            `json:"schedule"`
	Status          Status              `json:"status"`
	ScheduledFor    time.Time           `json:"scheduled_for"`
	Attempts        int                 `json:"attempts"`
	MaxAttempts     int                 `json:"max_attempts"`
	LastAttemptAt   *time.Time          `json:"last_attempt_at,omitempty"`
	LastError       string              `json:"last_error,omitempty"`
	PlatformPostIDs map[Platform]string `json:"platform_post_ids,omitempty"`
	PublishURLs     map[Platform]string `json:"publish_urls,omitempty"`
	PublishedAt     *time.Time          `json:"published_at,omitempty"`
	Occurrence      int                 `json:"occurrence"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// DefaultMaxAttempts is the ceiling on publish attempts, fixed at creation.
const DefaultMaxAttempts = 3
