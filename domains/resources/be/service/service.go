package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned by the service layer.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrInvalidName = errors.New("resource display name is required")
)

// Resource is a bookable entity (an artist or worker) owned by one tenant.
// Availability attributes live with the resource; conflict logic only consumes
// the existence check.
type Resource struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}

// CreateInput represents the request to register a resource.
type CreateInput struct {
	TenantID    uuid.UUID
	DisplayName string
}

// Repository abstracts resource registry persistence. All lookups are
// tenant-scoped; there is no cross-tenant query path.
type Repository interface {
	Create(ctx context.Context, res Resource) (Resource, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (Resource, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Resource, error)
}

// Service provides resource registry operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("resources repo is required")
	}
	return &Service{repo: repo}
}

// Create registers a resource for the tenant.
func (s *Service) Create(ctx context.Context, input CreateInput) (Resource, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return Resource{}, ErrInvalidName
	}

	res := Resource{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		DisplayName: name,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	return s.repo.Create(ctx, res)
}

// Get returns a resource scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Resource, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns all of the tenant's resources.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Resource, error) {
	return s.repo.List(ctx, tenantID)
}

// Exists reports whether the resource exists, is active, and belongs to the
// tenant. The booking engine consumes this as its collaborator lookup.
func (s *Service) Exists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	res, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return res.Active, nil
}
