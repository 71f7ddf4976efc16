package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	"github.com/postpilot-io/postpilot/repository"
	"github.com/postpilot-io/postpilot/validations"
)

type serviceConnection struct {
	repo repository.IConnectionRepository
}

func NewConnectionService(repo repository.IConnectionRepository) domainConnection.IConnectionUsecase {
	return &serviceConnection{repo: repo}
}

func (service *serviceConnection) Create(ctx context.Context, request domainConnection.CreateConnectionRequest) (domainConnection.Connection, error) {
	if err := validations.ValidateCreateConnection(ctx, request); err != nil {
		return domainConnection.Connection{}, err
	}

	now := time.Now().UTC()
	conn := domainConnection.Connection{
		ID:             uuid.NewString(),
		OwnerID:        request.OwnerID,
		OrganizationID: request.OrganizationID,
		Platform:       request.Platform,
		DisplayName:    request.DisplayName,
		Credentials:    request.Credentials,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := service.repo.CreateConnection(ctx, conn); err != nil {
		return domainConnection.Connection{}, err
	}
	return conn, nil
}

func (service *serviceConnection) Get(ctx context.Context, id string) (domainConnection.Connection, error) {
	return service.repo.GetConnection(ctx, id)
}

func (service *serviceConnection) List(ctx context.Context, ownerID string) ([]domainConnection.Connection, error) {
	return service.repo.ListConnections(ctx, ownerID)
}

func (service *serviceConnection) Update(ctx context.Context, id string, request domainConnection.UpdateConnectionRequest) (domainConnection.Connection, error) {
	conn, err := service.repo.GetConnection(ctx, id)
	if err != nil {
		return domainConnection.Connection{}, err
	}

	if request.DisplayName != nil {
		conn.DisplayName = *request.DisplayName
	}
	if request.Credentials != nil {
		conn.Credentials = *request.Credentials
	}
	if request.Active != nil {
		conn.Active = *request.Active
	}
	conn.UpdatedAt = time.Now().UTC()

	if err := service.repo.UpdateConnection(ctx, conn); err != nil {
		return domainConnection.Connection{}, err
	}
	return conn, nil
}

func (service *serviceConnection) Delete(ctx context.Context, id string) error {
	return service.repo.DeleteConnection(ctx, id)
}

// Resolve returns the owner's active connections for one target platform.
// Zero results is a valid outcome, not an error.
func (service *serviceConnection) Resolve(ctx context.Context, ownerID, organizationID string, platform domainPost.Platform) ([]domainConnection.Connection, error) {
	return service.repo.ListActiveConnections(ctx, ownerID, organizationID, platform)
}
