package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestResourceLockKeyDeterministic(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	resourceID := uuid.New()

	require.Equal(t, ResourceLockKey(tenantID, resourceID), ResourceLockKey(tenantID, resourceID))
}

func TestResourceLockKeyVariesByPair(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	resourceA := uuid.New()
	resourceB := uuid.New()

	require.NotEqual(t, ResourceLockKey(tenantID, resourceA), ResourceLockKey(tenantID, resourceB))
	require.NotEqual(t, ResourceLockKey(resourceA, tenantID), ResourceLockKey(tenantID, resourceA))
}
