package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/pencilbook/domains/tenants/be/repo"
	"github.com/atelier-labs/pencilbook/domains/tenants/be/service"
)

func newService() *service.Service {
	return service.New(repo.NewMemoryRepository())
}

func TestCreateNormalizesSlug(t *testing.T) {
	svc := newService()

	tenant, err := svc.Create(context.Background(), service.CreateInput{Slug: "  Studio-One "})
	require.NoError(t, err)
	require.Equal(t, "studio-one", tenant.Slug)
	require.Equal(t, service.StatusActive, tenant.Status)
}

func TestCreateRejectsBadSlugs(t *testing.T) {
	svc := newService()

	_, err := svc.Create(context.Background(), service.CreateInput{Slug: ""})
	require.ErrorIs(t, err, service.ErrInvalidSlug)

	_, err = svc.Create(context.Background(), service.CreateInput{Slug: "two words"})
	require.ErrorIs(t, err, service.ErrInvalidSlug)
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc := newService()

	_, err := svc.Create(context.Background(), service.CreateInput{Slug: "studio"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), service.CreateInput{Slug: "studio"})
	require.ErrorIs(t, err, service.ErrConflictSlug)
}

func TestIsActiveFollowsStatus(t *testing.T) {
	svc := newService()

	tenant, err := svc.Create(context.Background(), service.CreateInput{Slug: "studio"})
	require.NoError(t, err)

	active, err := svc.IsActive(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.True(t, active)

	_, err = svc.Disable(context.Background(), tenant.ID)
	require.NoError(t, err)

	active, err = svc.IsActive(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.False(t, active)

	// Unknown tenants are inactive, not errors.
	active, err = svc.IsActive(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, active)
}
