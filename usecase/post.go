package usecase

import (
	"time"

	"context"

	"github.com/google/uuid"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
	pkgError "github.com/postpilot-io/postpilot/pkg/error"
	"github.com/postpilot-io/postpilot/repository"
	"github.com/postpilot-io/postpilot/validations"
)

type servicePost struct {
	repo        repository.IPostRepository
	maxAttempts int
}

func NewPostService(repo repository.IPostRepository, maxAttempts int) domainPost.IPostUsecase {
	if maxAttempts <= 0 {
		maxAttempts = domainPost.DefaultMaxAttempts
	}
	return &servicePost{repo: repo, maxAttempts: maxAttempts}
}

func (service *servicePost) Schedule(ctx context.Context, request domainPost.SchedulePostRequest) (domainPost.ScheduledPost, error) {
	if err := validations.ValidateSchedulePost(ctx, request); err != nil {
		return domainPost.ScheduledPost{}, err
	}

	status := domainPost.StatusScheduled
	if request.Draft {
		status = domainPost.StatusDraft
	}

	maxAttempts := request.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = service.maxAttempts
	}

	now := time.Now().UTC()
	p := domainPost.ScheduledPost{
		ID:             uuid.NewString(),
		OwnerID:        request.OwnerID,
		OrganizationID: request.OrganizationID,
		Content:        request.Content,
		Schedule: domainPost.Schedule{
			PublishAt:  request.PublishAt.UTC(),
			Recurrence: request.Recurrence,
		},
		Status:       status,
		ScheduledFor: request.PublishAt.UTC(),
		Attempts:     0,
		MaxAttempts:  maxAttempts,
		Occurrence:   1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.repo.CreatePost(ctx, p); err != nil {
		return domainPost.ScheduledPost{}, err
	}
	return p, nil
}

func (service *servicePost) Get(ctx context.Context, id string) (domainPost.ScheduledPost, error) {
	return service.repo.GetPost(ctx, id)
}

func (service *servicePost) List(ctx context.Context, ownerID string, status *domainPost.Status, limit int) ([]domainPost.ScheduledPost, error) {
	if ownerID == "" {
		return nil, pkgError.ValidationError("owner_id: cannot be blank.")
	}
	return service.repo.ListPostsByOwner(ctx, ownerID, status, limit)
}

// Update mutates content and/or schedule. Only draft and scheduled posts
// may be edited by users; everything else belongs to the orchestrator.
func (service *servicePost) Update(ctx context.Context, id string, request domainPost.UpdatePostRequest) (domainPost.ScheduledPost, error) {
	current, err := service.repo.GetPost(ctx, id)
	if err != nil {
		return domainPost.ScheduledPost{}, err
	}

	if current.Status != domainPost.StatusDraft && current.Status != domainPost.StatusScheduled {
		return domainPost.ScheduledPost{}, pkgError.ValidationError("only draft or scheduled posts can be updated.")
	}

	changes := repository.PostChanges{Content: request.Content}

	if request.PublishAt != nil || request.Recurrence != nil {
		schedule := current.Schedule
		if request.PublishAt != nil {
			schedule.PublishAt = request.PublishAt.UTC()
		}
		if request.Recurrence != nil {
			schedule.Recurrence = request.Recurrence
		}
		changes.Schedule = &schedule
	}

	return service.repo.UpdatePost(ctx, id, changes)
}

// Reschedule re-arms a post at a new publish time, resetting the attempt
// counter. This is the only recovery path for a failed post.
func (service *servicePost) Reschedule(ctx context.Context, id string, publishAt time.Time) (domainPost.ScheduledPost, error) {
	current, err := service.repo.GetPost(ctx, id)
	if err != nil {
		return domainPost.ScheduledPost{}, err
	}

	if !domainPost.CanTransition(current.Status, domainPost.StatusScheduled) {
		return domainPost.ScheduledPost{}, pkgError.ValidationError("post in status " + string(current.Status) + " cannot be rescheduled.")
	}

	schedule := current.Schedule
	schedule.PublishAt = publishAt.UTC()

	status := domainPost.StatusScheduled
	attempts := 0
	lastError := ""
	return service.repo.UpdatePost(ctx, id, repository.PostChanges{
		Schedule:  &schedule,
		Status:    &status,
		Attempts:  &attempts,
		LastError: &lastError,
	})
}

func (service *servicePost) Delete(ctx context.Context, id string) error {
	return service.repo.DeletePost(ctx, id)
}
