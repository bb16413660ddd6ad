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
	ErrNotFound     = errors.New("tenant not found")
	ErrConflictSlug = errors.New("tenant slug already exists")
	ErrInvalidSlug  = errors.New("tenant slug is invalid")
)

// TenantStatus is the registry lifecycle state of a tenant.
type TenantStatus string

const (
	StatusActive   TenantStatus = "active"
	StatusDisabled TenantStatus = "disabled"
)

// Tenant represents a tenant registry entry, the root of all isolation.
type Tenant struct {
	ID          uuid.UUID
	Slug        string
	DisplayName *string
	Status      TenantStatus
	CreatedAt   time.Time
}

// CreateInput represents the request to register a tenant.
type CreateInput struct {
	Slug        string
	DisplayName *string
}

// Repository abstracts tenant registry persistence.
type Repository interface {
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	SetStatus(ctx context.Context, id uuid.UUID, status TenantStatus) (Tenant, error)
}

// Service provides tenant registry operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	return &Service{repo: repo}
}

// Create registers a tenant; new tenants start active.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	slug := strings.TrimSpace(strings.ToLower(input.Slug))
	if slug == "" || strings.ContainsAny(slug, " \t\n") {
		return Tenant{}, ErrInvalidSlug
	}

	t := Tenant{
		ID:          uuid.New(),
		Slug:        slug,
		DisplayName: input.DisplayName,
		Status:      StatusActive,
		CreatedAt:   time.Now().UTC(),
	}

	return s.repo.Create(ctx, t)
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// List returns all registered tenants.
func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	return s.repo.List(ctx)
}

// Disable marks a tenant disabled; its requests are rejected at admission.
func (s *Service) Disable(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.repo.SetStatus(ctx, id, StatusDisabled)
}

// IsActive reports whether the tenant exists and is admitted for requests.
// Satisfies the tenant middleware Resolver contract.
func (s *Service) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return t.Status == StatusActive, nil
}
