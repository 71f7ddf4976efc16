package connection

import (
	"context"
	"time"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

// Credentials carries whatever a platform publisher needs to authenticate.
// Token exchange and refresh happen outside this service; we only store the
// result.
type Credentials struct {
	AccessToken string `json:"access_token,omitempty"`
	ServerURL   string `json:"server_url,omitempty"` // mastodon instance, webhook endpoint
	ChatID      string `json:"chat_id,omitempty"`    // telegram target chat
	Secret      string `json:"secret,omitempty"`     // webhook signing secret
}

// Connection is an active link between an owner and an external platform
// account. A post fans out to every active connection matching its target
// platforms.
type Connection struct {
	ID             string              `json:"id"`
	OwnerID        string              `json:"owner_id"`
	OrganizationID string              `json:"organization_id"`
	Platform       domainPost.Platform `json:"platform"`
	DisplayName    string              `json:"display_name"`
	Credentials    Credentials         `json:"credentials"`
	Active         bool                `json:"active"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type CreateConnectionRequest struct {
	OwnerID        string              `json:"owner_id"`
	OrganizationID string              `json:"organization_id"`
	Platform       domainPost.Platform `json:"platform"`
	DisplayName    string              `json:"display_name"`
	Credentials    Credentials         `json:"credentials"`
}

type UpdateConnectionRequest struct {
	DisplayName *string      `json:"display_name,omitempty"`
	Credentials *Credentials `json:"credentials,omitempty"`
	Active      *bool        `json:"active,omitempty"`
}

type IConnectionUsecase interface {
	Create(ctx context.Context, request CreateConnectionRequest) (Connection, error)
	Get(ctx context.Context, id string) (Connection, error)
	List(ctx context.Context, ownerID string) ([]Connection, error)
	Update(ctx context.Context, id string, request UpdateConnectionRequest) (Connection, error)
	Delete(ctx context.Context, id string) error

	Resolver
}

// Resolver returns the active connections a due post fans out to. Zero
// results is a valid outcome: the owner simply has not connected that
// platform.
type Resolver interface {
	Resolve(ctx context.Context, ownerID, organizationID string, platform domainPost.Platform) ([]Connection, error)
}
