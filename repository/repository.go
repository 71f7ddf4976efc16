package repository

import (
	"context"
	"time"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

// PostChanges is a typed partial update. Only non-nil fields are written.
//
// Schedule carries the whole schedule value so that publish_at and
// scheduled_for are rewritten in the same operation; updating one without
// the other is unrepresentable through this interface.
type PostChanges struct {
	Content         *domainPost.Content
	Schedule        *domainPost.Schedule
	Status          *domainPost.Status
	Attempts        *int
	LastAttemptAt   *time.Time
	LastError       *string
	PlatformPostIDs map[domainPost.Platform]string // merged into the stored map
	PublishURLs     map[domainPost.Platform]string // merged into the stored map
	PublishedAt     *time.Time                     // only written if not already set
}

type IPostRepository interface {
	Init(ctx context.Context) error

	CreatePost(ctx context.Context, p domainPost.ScheduledPost) error
	GetPost(ctx context.Context, id string) (domainPost.ScheduledPost, error)
	ListPostsByOwner(ctx context.Context, ownerID string, status *domainPost.Status, limit int) ([]domainPost.ScheduledPost, error)
	GetDuePosts(ctx context.Context, now time.Time, batchLimit int) ([]domainPost.ScheduledPost, error)
	UpdatePost(ctx context.Context, id string, changes PostChanges) (domainPost.ScheduledPost, error)
	DeletePost(ctx context.Context, id string) error
}

type IConnectionRepository interface {
	Init(ctx context.Context) error

	CreateConnection(ctx context.Context, c domainConnection.Connection) error
	GetConnection(ctx context.Context, id string) (domainConnection.Connection, error)
	ListConnections(ctx context.Context, ownerID string) ([]domainConnection.Connection, error)
	ListActiveConnections(ctx context.Context, ownerID, organizationID string, platform domainPost.Platform) ([]domainConnection.Connection, error)
	UpdateConnection(ctx context.Context, c domainConnection.Connection) error
	DeleteConnection(ctx context.Context, id string) error
}
