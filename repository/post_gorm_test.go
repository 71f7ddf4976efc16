package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
	pkgError "github.com/postpilot-io/postpilot/pkg/error"
)

func newTestPostRepo(t *testing.T) *PostGormRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	repo := NewPostGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return repo
}

func scheduledFixture(id string, scheduledFor time.Time) domainPost.ScheduledPost {
	now := time.Now().UTC()
	return domainPost.ScheduledPost{
		ID:             id,
		OwnerID:        "owner-1",
		OrganizationID: "org-1",
		Content: domainPost.Content{
			Text:      "fixture",
			Platforms: []domainPost.Platform{domainPost.PlatformMastodon},
		},
		Schedule:     domainPost.Schedule{PublishAt: scheduledFor},
		Status:       domainPost.StatusScheduled,
		ScheduledFor: scheduledFor,
		MaxAttempts:  3,
		Occurrence:   1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostRoundTrip(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()

	when := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	post := scheduledFixture("post-1", when)
	post.Schedule.Recurrence = &domainPost.RecurrenceRule{
		Frequency: domainPost.FrequencyWeekly,
		Interval:  2,
		Weekdays:  []time.Weekday{time.Monday, time.Friday},
	}

	require.NoError(t, repo.CreatePost(ctx, post))

	got, err := repo.GetPost(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, post.Content, got.Content)
	assert.Equal(t, domainPost.StatusScheduled, got.Status)
	assert.True(t, got.ScheduledFor.Equal(when))
	require.NotNil(t, got.Schedule.Recurrence)
	assert.Equal(t, domainPost.FrequencyWeekly, got.Schedule.Recurrence.Frequency)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, got.Schedule.Recurrence.Weekdays)
}

func TestGetPostNotFound(t *testing.T) {
	repo := newTestPostRepo(t)

	_, err := repo.GetPost(context.Background(), "missing")
	require.Error(t, err)
	_, ok := err.(pkgError.NotFoundError)
	assert.True(t, ok, "expected a typed not-found error, got %T", err)
}

func TestGetDuePosts(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Two due, ordered oldest first; one future; one due but in a
	// non-scheduled status.
	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("due-newer", now.Add(-time.Minute))))
	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("due-older", now.Add(-time.Hour))))
	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("future", now.Add(time.Hour))))

	draft := scheduledFixture("draft", now.Add(-time.Hour))
	draft.Status = domainPost.StatusDraft
	require.NoError(t, repo.CreatePost(ctx, draft))

	due, err := repo.GetDuePosts(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due-older", due[0].ID)
	assert.Equal(t, "due-newer", due[1].ID)
}

func TestGetDuePostsBatchLimit(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		post := scheduledFixture("post-"+string(rune('a'+i)), now.Add(-time.Duration(i+1)*time.Minute))
		require.NoError(t, repo.CreatePost(ctx, post))
	}

	due, err := repo.GetDuePosts(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestUpdatePostScheduleRewritesBothTimes(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()

	original := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("post-1", original)))

	moved := original.Add(24 * time.Hour)
	updated, err := repo.UpdatePost(ctx, "post-1", PostChanges{
		Schedule: &domainPost.Schedule{PublishAt: moved},
	})
	require.NoError(t, err)

	assert.True(t, updated.Schedule.PublishAt.Equal(moved))
	assert.True(t, updated.ScheduledFor.Equal(moved), "scheduled_for always follows publish_at")
}

func TestUpdatePostMergesResultMaps(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("post-1", time.Now().UTC())))

	_, err := repo.UpdatePost(ctx, "post-1", PostChanges{
		PlatformPostIDs: map[domainPost.Platform]string{domainPost.PlatformMastodon: "m-1"},
	})
	require.NoError(t, err)

	updated, err := repo.UpdatePost(ctx, "post-1", PostChanges{
		PlatformPostIDs: map[domainPost.Platform]string{domainPost.PlatformTelegram: "t-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "m-1", updated.PlatformPostIDs[domainPost.PlatformMastodon])
	assert.Equal(t, "t-1", updated.PlatformPostIDs[domainPost.PlatformTelegram])
}

func TestUpdatePostPublishedAtWrittenOnce(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("post-1", time.Now().UTC())))

	first := time.Now().UTC().Truncate(time.Second)
	status := domainPost.StatusPublished
	_, err := repo.UpdatePost(ctx, "post-1", PostChanges{Status: &status, PublishedAt: &first})
	require.NoError(t, err)

	later := first.Add(time.Hour)
	updated, err := repo.UpdatePost(ctx, "post-1", PostChanges{PublishedAt: &later})
	require.NoError(t, err)

	require.NotNil(t, updated.PublishedAt)
	assert.True(t, updated.PublishedAt.Equal(first))
}

func TestUpdatePostNotFound(t *testing.T) {
	repo := newTestPostRepo(t)

	attempts := 1
	_, err := repo.UpdatePost(context.Background(), "missing", PostChanges{Attempts: &attempts})
	require.Error(t, err)
	_, ok := err.(pkgError.NotFoundError)
	assert.True(t, ok, "expected a typed not-found error, got %T", err)
}

func TestListPostsByOwnerFiltersStatus(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("post-1", now)))

	failed := scheduledFixture("post-2", now)
	failed.Status = domainPost.StatusFailed
	require.NoError(t, repo.CreatePost(ctx, failed))

	other := scheduledFixture("post-3", now)
	other.OwnerID = "owner-2"
	require.NoError(t, repo.CreatePost(ctx, other))

	all, err := repo.ListPostsByOwner(ctx, "owner-1", nil, 100)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := domainPost.StatusFailed
	onlyFailed, err := repo.ListPostsByOwner(ctx, "owner-1", &status, 100)
	require.NoError(t, err)
	require.Len(t, onlyFailed, 1)
	assert.Equal(t, "post-2", onlyFailed[0].ID)
}

func TestDeletePost(t *testing.T) {
	repo := newTestPostRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePost(ctx, scheduledFixture("post-1", time.Now().UTC())))
	require.NoError(t, repo.DeletePost(ctx, "post-1"))

	_, err := repo.GetPost(ctx, "post-1")
	require.Error(t, err)

	err = repo.DeletePost(ctx, "post-1")
	require.Error(t, err)
}
