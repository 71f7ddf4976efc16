package post

import (
	"context"
	"time"
)

type IPostUsecase interface {
	Schedule(ctx context.Context, request SchedulePostRequest) (ScheduledPost, error)
	Get(ctx context.Context, id string) (ScheduledPost, error)
	List(ctx context.Context, ownerID string, status *Status, limit int) ([]ScheduledPost, error)
	Update(ctx context.Context, id string, request UpdatePostRequest) (ScheduledPost, error)
	Reschedule(ctx context.Context, id string, publishAt time.Time) (ScheduledPost, error)
	Delete(ctx context.Context, id string) error
}

type SchedulePostRequest struct {
	OwnerID        string          `json:"owner_id"`
	OrganizationID string          `json:"organization_id"`
	Content        Content         `json:"content"`
	PublishAt      time.Time       `json:"publish_at"`
	Recurrence     *RecurrenceRule `json:"recurrence,omitempty"`
	Draft          bool            `json:"draft,omitempty"`
	MaxAttempts    int             `json:"max_attempts,omitempty"`
}

// UpdatePostRequest mutates content and/or schedule of a draft or scheduled
// post. A schedule change always rewrites ScheduledFor alongside PublishAt.
type UpdatePostRequest struct {
	Content    *Content        `json:"content,omitempty"`
	PublishAt  *time.Time      `json:"publish_at,omitempty"`
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
}
