package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/atelier-labs/pencilbook/domains/resources/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and early development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.Resource
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]service.Resource)}
}

func (r *MemoryRepository) Create(ctx context.Context, res service.Resource) (service.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[res.ID] = res
	return res, nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byID[id]
	if !ok || res.TenantID != tenantID {
		return service.Resource{}, service.ErrNotFound
	}
	return res, nil
}

func (r *MemoryRepository) List(ctx context.Context, tenantID uuid.UUID) ([]service.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Resource, 0)
	for _, res := range r.byID {
		if res.TenantID == tenantID {
			items = append(items, res)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
