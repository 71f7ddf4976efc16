package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
	pkgError "github.com/postpilot-io/postpilot/pkg/error"
)

// --- Persistence Models ---

type scheduledPostModel struct {
	ID              string         `gorm:"primaryKey;column:id"`
	OwnerID         string         `gorm:"column:owner_id;not null;index"`
	OrganizationID  string         `gorm:"column:organization_id;not null;index"`
	Content         sql.NullString `gorm:"column:content;type:text"` // JSON
	PublishAt       time.Time      `gorm:"column:publish_at;not null"`
	Recurrence      sql.NullString `gorm:"column:recurrence;type:text"` // JSON
	Status          string         `gorm:"column:status;default:'scheduled';index:idx_due,priority:1"`
	ScheduledFor    time.Time      `gorm:"column:scheduled_for;not null;index:idx_due,priority:2"`
	Attempts        int            `gorm:"column:attempts;default:0"`
	MaxAttempts     int            `gorm:"column:max_attempts;default:3"`
	LastAttemptAt   *time.Time     `gorm:"column:last_attempt_at"`
	LastError       sql.NullString `gorm:"column:last_error"`
	PlatformPostIDs sql.NullString `gorm:"column:platform_post_ids;type:text"` // JSON
	PublishURLs     sql.NullString `gorm:"column:publish_urls;type:text"`      // JSON
	PublishedAt     *time.Time     `gorm:"column:published_at"`
	Occurrence      int            `gorm:"column:occurrence;default:1"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null"`
}

func (scheduledPostModel) TableName() string { return "scheduled_posts" }

// --- Repository Implementation ---

type PostGormRepository struct {
	db *gorm.DB
}

func NewPostGormRepository(db *gorm.DB) *PostGormRepository {
	return &PostGormRepository{db: db}
}

func (r *PostGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&scheduledPostModel{})
}

func (r *PostGormRepository) CreatePost(ctx context.Context, p domainPost.ScheduledPost) error {
	model := toScheduledPostModel(p)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *PostGormRepository) GetPost(ctx context.Context, id string) (domainPost.ScheduledPost, error) {
	var m scheduledPostModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainPost.ScheduledPost{}, pkgError.NotFoundError("post not found")
		}
		return domainPost.ScheduledPost{}, err
	}
	return fromScheduledPostModel(m), nil
}

func (r *PostGormRepository) ListPostsByOwner(ctx context.Context, ownerID string, status *domainPost.Status, limit int) ([]domainPost.ScheduledPost, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("scheduled_for ASC")
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []scheduledPostModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domainPost.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromScheduledPostModel(m)
	}
	return res, nil
}

// GetDuePosts returns at most batchLimit scheduled posts whose scheduled_for
// has passed, oldest first, so each processing pass stays finite.
func (r *PostGormRepository) GetDuePosts(ctx context.Context, now time.Time, batchLimit int) ([]domainPost.ScheduledPost, error) {
	var models []scheduledPostModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", string(domainPost.StatusScheduled), now).
		Order("scheduled_for ASC").
		Limit(batchLimit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domainPost.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromScheduledPostModel(m)
	}
	return res, nil
}

// UpdatePost merges the given changes into the stored record and returns the
// result. Field-level last-write-wins; there is no optimistic locking.
func (r *PostGormRepository) UpdatePost(ctx context.Context, id string, changes PostChanges) (domainPost.ScheduledPost, error) {
	var updated domainPost.ScheduledPost

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m scheduledPostModel
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgError.NotFoundError("post not found")
			}
			return err
		}

		p := fromScheduledPostModel(m)
		applyChanges(&p, changes)
		p.UpdatedAt = time.Now().UTC()

		model := toScheduledPostModel(p)
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		updated = p
		return nil
	})
	return updated, err
}

func (r *PostGormRepository) DeletePost(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&scheduledPostModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("post not found")
	}
	return nil
}

func applyChanges(p *domainPost.ScheduledPost, changes PostChanges) {
	if changes.Content != nil {
		p.Content = *changes.Content
	}
	if changes.Schedule != nil {
		// publish_at and scheduled_for move together, always.
		p.Schedule = *changes.Schedule
		p.ScheduledFor = changes.Schedule.PublishAt
	}
	if changes.Status != nil {
		p.Status = *changes.Status
	}
	if changes.Attempts != nil {
		p.Attempts = *changes.Attempts
	}
	if changes.LastAttemptAt != nil {
		p.LastAttemptAt = changes.LastAttemptAt
	}
	if changes.LastError != nil {
		p.LastError = *changes.LastError
	}
	if len(changes.PlatformPostIDs) > 0 {
		if p.PlatformPostIDs == nil {
			p.PlatformPostIDs = make(map[domainPost.Platform]string, len(changes.PlatformPostIDs))
		}
		for k, v := range changes.PlatformPostIDs {
			p.PlatformPostIDs[k] = v
		}
	}
	if len(changes.PublishURLs) > 0 {
		if p.PublishURLs == nil {
			p.PublishURLs = make(map[domainPost.Platform]string, len(changes.PublishURLs))
		}
		for k, v := range changes.PublishURLs {
			p.PublishURLs[k] = v
		}
	}
	if changes.PublishedAt != nil && p.PublishedAt == nil {
		p.PublishedAt = changes.PublishedAt
	}
}

// --- Mappers ---

func toScheduledPostModel(p domainPost.ScheduledPost) scheduledPostModel {
	content, _ := json.Marshal(p.Content)

	var recurrence string
	if p.Schedule.Recurrence != nil {
		b, _ := json.Marshal(p.Schedule.Recurrence)
		recurrence = string(b)
	}

	var postIDs, urls string
	if len(p.PlatformPostIDs) > 0 {
		b, _ := json.Marshal(p.PlatformPostIDs)
		postIDs = string(b)
	}
	if len(p.PublishURLs) > 0 {
		b, _ := json.Marshal(p.PublishURLs)
		urls = string(b)
	}

	return scheduledPostModel{
		ID:              p.ID,
		OwnerID:         p.OwnerID,
		OrganizationID:  p.OrganizationID,
		Content:         sql.NullString{String: string(content), Valid: true},
		PublishAt:       p.Schedule.PublishAt,
		Recurrence:      sql.NullString{String: recurrence, Valid: recurrence != ""},
		Status:          string(p.Status),
		ScheduledFor:    p.ScheduledFor,
		Attempts:        p.Attempts,
		MaxAttempts:     p.MaxAttempts,
		LastAttemptAt:   p.LastAttemptAt,
		LastError:       sql.NullString{String: p.LastError, Valid: p.LastError != ""},
		PlatformPostIDs: sql.NullString{String: postIDs, Valid: postIDs != ""},
		PublishURLs:     sql.NullString{String: urls, Valid: urls != ""},
		PublishedAt:     p.PublishedAt,
		Occurrence:      p.Occurrence,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromScheduledPostModel(m scheduledPostModel) domainPost.ScheduledPost {
	var content domainPost.Content
	if s := nullStringValue(m.Content); s != "" {
		_ = json.Unmarshal([]byte(s), &content)
	}

	var rule *domainPost.RecurrenceRule
	if s := nullStringValue(m.Recurrence); s != "" {
		var r domainPost.RecurrenceRule
		if err := json.Unmarshal([]byte(s), &r); err == nil {
			rule = &r
		}
	}

	var postIDs, urls map[domainPost.Platform]string
	if s := nullStringValue(m.PlatformPostIDs); s != "" {
		_ = json.Unmarshal([]byte(s), &postIDs)
	}
	if s := nullStringValue(m.PublishURLs); s != "" {
		_ = json.Unmarshal([]byte(s), &urls)
	}

	return domainPost.ScheduledPost{
		ID:              m.ID,
		OwnerID:         m.OwnerID,
		OrganizationID:  m.OrganizationID,
		Content:         content,
		Schedule:        domainPost.Schedule{PublishAt: m.PublishAt, Recurrence: rule},
		Status:          domainPost.Status(m.Status),
		ScheduledFor:    m.ScheduledFor,
		Attempts:        m.Attempts,
		MaxAttempts:     m.MaxAttempts,
		LastAttemptAt:   m.LastAttemptAt,
		LastError:       nullStringValue(m.LastError),
		PlatformPostIDs: postIDs,
		PublishURLs:     urls,
		PublishedAt:     m.PublishedAt,
		Occurrence:      m.Occurrence,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// nullStringValue returns a trimmed string or empty if null to prevent legacy data panics.
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
