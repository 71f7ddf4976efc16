package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	pkgError "github.com/postpilot-io/postpilot/pkg/error"
)

type connectionModel struct {
	ID             string         `gorm:"primaryKey;column:id"`
	OwnerID        string         `gorm:"column:owner_id;not null;index:idx_conn_owner"`
	OrganizationID string         `gorm:"column:organization_id;not null;index:idx_conn_owner"`
	Platform       string         `gorm:"column:platform;not null;index:idx_conn_owner"`
	DisplayName    string         `gorm:"column:display_name"`
	Credentials    sql.NullString `gorm:"column:credentials;type:text"` // JSON
	Active         bool           `gorm:"column:active;default:true"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;not null"`
}

func (connectionModel) TableName() string { return "platform_connections" }

type ConnectionGormRepository struct {
	db *gorm.DB
}

func NewConnectionGormRepository(db *gorm.DB) *ConnectionGormRepository {
	return &ConnectionGormRepository{db: db}
}

func (r *ConnectionGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&connectionModel{})
}

func (r *ConnectionGormRepository) CreateConnection(ctx context.Context, c domainConnection.Connection) error {
	model := toConnectionModel(c)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ConnectionGormRepository) GetConnection(ctx context.Context, id string) (domainConnection.Connection, error) {
	var m connectionModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainConnection.Connection{}, pkgError.NotFoundError("connection not found")
		}
		return domainConnection.Connection{}, err
	}
	return fromConnectionModel(m), nil
}

func (r *ConnectionGormRepository) ListConnections(ctx context.Context, ownerID string) ([]domainConnection.Connection, error) {
	var models []connectionModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domainConnection.Connection, len(models))
	for i, m := range models {
		res[i] = fromConnectionModel(m)
	}
	return res, nil
}

// ListActiveConnections returns the active connections a due post fans out
// to. An empty result is a normal outcome, not an error.
func (r *ConnectionGormRepository) ListActiveConnections(ctx context.Context, ownerID, organizationID string, platform domainPost.Platform) ([]domainConnection.Connection, error) {
	var models []connectionModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND organization_id = ? AND platform = ? AND active = ?",
			ownerID, organizationID, string(platform), true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domainConnection.Connection, len(models))
	for i, m := range models {
		res[i] = fromConnectionModel(m)
	}
	return res, nil
}

func (r *ConnectionGormRepository) UpdateConnection(ctx context.Context, c domainConnection.Connection) error {
	model := toConnectionModel(c)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *ConnectionGormRepository) DeleteConnection(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&connectionModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("connection not found")
	}
	return nil
}

// --- Mappers ---

func toConnectionModel(c domainConnection.Connection) connectionModel {
	creds, _ := json.Marshal(c.Credentials)
	return connectionModel{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		OrganizationID: c.OrganizationID,
		Platform:       string(c.Platform),
		DisplayName:    c.DisplayName,
		Credentials:    sql.NullString{String: string(creds), Valid: true},
		Active:         c.Active,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromConnectionModel(m connectionModel) domainConnection.Connection {
	var creds domainConnection.Credentials
	if s := nullStringValue(m.Credentials); s != "" {
		_ = json.Unmarshal([]byte(s), &creds)
	}
	return domainConnection.Connection{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		OrganizationID: m.OrganizationID,
		Platform:       domainPost.Platform(m.Platform),
		DisplayName:    m.DisplayName,
		Credentials:    creds,
		Active:         m.Active,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
