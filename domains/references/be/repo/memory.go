package repo

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// MemoryRepository keeps references and their categories in process with the same ownership
// and category rules as the postgres store. Deleting a category clears it from its references.
type MemoryRepository struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]persistence.ReferenceCategoryRecord
	references map[int64]persistence.ReferenceRecord
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		categories: map[int64]persistence.ReferenceCategoryRecord{},
		references: map[int64]persistence.ReferenceRecord{},
		now:        time.Now,
	}
}

func (m *MemoryRepository) CreateCategory(ctx context.Context, fields persistence.ReferenceCategoryFields) (persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	c := persistence.ReferenceCategoryRecord{
		ID:          m.nextID,
		OwnerID:     scope.TenantID,
		Name:        fields.Name,
		Description: fields.Description,
		CreatedAt:   m.now().UTC(),
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *MemoryRepository) ListCategories(ctx context.Context) ([]persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []persistence.ReferenceCategoryRecord{}
	for _, c := range m.categories {
		if scope.Owns(c.OwnerID) {
			out = append(out, m.counted(c))
		}
	}
	slices.SortFunc(out, func(a, b persistence.ReferenceCategoryRecord) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryRepository) GetCategory(ctx context.Context, id int64) (persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.category(scope, id)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}
	return m.counted(c), nil
}

func (m *MemoryRepository) UpdateCategory(ctx context.Context, id int64, mutate CategoryMutateFunc) (persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.category(scope, id)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}
	fields, err := mutate(m.counted(c))
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}
	c.Name, c.Description = fields.Name, fields.Description
	m.categories[id] = c
	for refID, ref := range m.references {
		if ref.CategoryID != nil && *ref.CategoryID == id {
			ref.CategoryName = &c.Name
			m.references[refID] = ref
		}
	}
	return m.counted(c), nil
}

func (m *MemoryRepository) DeleteCategory(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.category(scope, id); err != nil {
		return err
	}
	delete(m.categories, id)
	for refID, ref := range m.references {
		if ref.CategoryID != nil && *ref.CategoryID == id {
			ref.CategoryID, ref.CategoryName = nil, nil
			m.references[refID] = ref
		}
	}
	return nil
}

func (m *MemoryRepository) Create(ctx context.Context, fields persistence.ReferenceFields) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ref := persistence.ReferenceRecord{OwnerID: scope.TenantID, CreatedAt: m.now().UTC()}
	ref.UpdatedAt = ref.CreatedAt
	if err := m.apply(&ref, fields); err != nil {
		return persistence.ReferenceRecord{}, err
	}
	m.nextID++
	ref.ID = m.nextID
	m.references[ref.ID] = ref
	return ref, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int64) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reference(scope, id)
}

func (m *MemoryRepository) List(ctx context.Context, params persistence.ListReferencesParams) (persistence.ListReferencesResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListReferencesResult{}, err
	}

	search := ""
	if params.Search != nil {
		search = strings.ToLower(strings.TrimSpace(*params.Search))
	}

	m.mu.Lock()
	matched := []persistence.ReferenceRecord{}
	for _, ref := range m.references {
		switch {
		case !scope.Owns(ref.OwnerID):
			continue
		case params.CategoryID != nil && (ref.CategoryID == nil || *ref.CategoryID != *params.CategoryID):
			continue
		case search != "" && !strings.Contains(strings.ToLower(ref.Title), search) && !strings.Contains(strings.ToLower(ref.Description), search):
			continue
		}
		matched = append(matched, ref)
	}
	m.mu.Unlock()

	slices.SortFunc(matched, newestFirst)

	page, pageSize := max(params.Page, 1), params.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	result := persistence.ListReferencesResult{References: []persistence.ReferenceRecord{}, TotalItems: len(matched)}
	if from := (page - 1) * pageSize; from < len(matched) {
		result.References = append(result.References, matched[from:min(from+pageSize, len(matched))]...)
	}
	return result, nil
}

func (m *MemoryRepository) Related(ctx context.Context, id int64, limit int) ([]persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	target, err := m.reference(scope, id)
	if err != nil {
		return nil, err
	}
	sameCategory := func(ref persistence.ReferenceRecord) bool {
		return target.CategoryID != nil && ref.CategoryID != nil && *ref.CategoryID == *target.CategoryID
	}

	out := []persistence.ReferenceRecord{}
	for _, ref := range m.references {
		if ref.OwnerID == target.OwnerID && ref.ID != target.ID {
			out = append(out, ref)
		}
	}
	slices.SortFunc(out, func(a, b persistence.ReferenceRecord) int {
		if sa, sb := sameCategory(a), sameCategory(b); sa != sb {
			if sa {
				return -1
			}
			return 1
		}
		return newestFirst(a, b)
	})
	return out[:min(max(limit, 0), len(out))], nil
}

func (m *MemoryRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ref, err := m.reference(scope, id)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	fields, err := mutate(ref)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	if err := m.apply(&ref, fields); err != nil {
		return persistence.ReferenceRecord{}, err
	}
	ref.UpdatedAt = m.now().UTC()
	m.references[id] = ref
	return ref, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id int64) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ref, err := m.reference(scope, id)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	delete(m.references, id)
	return ref, nil
}

// apply copies fields onto ref after checking that the category belongs to the same owner. Callers hold mu.
func (m *MemoryRepository) apply(ref *persistence.ReferenceRecord, f persistence.ReferenceFields) error {
	ref.CategoryID, ref.CategoryName = nil, nil
	if f.CategoryID != nil {
		c, ok := m.categories[*f.CategoryID]
		if !ok || c.OwnerID != ref.OwnerID {
			return persistence.ErrInvalidCategoryRef
		}
		id, name := c.ID, c.Name
		ref.CategoryID, ref.CategoryName = &id, &name
	}
	ref.Title = f.Title
	ref.ObjectKey = f.ObjectKey
	ref.Description = f.Description
	ref.SourceURL = f.SourceURL
	return nil
}

func (m *MemoryRepository) counted(c persistence.ReferenceCategoryRecord) persistence.ReferenceCategoryRecord {
	c.ReferenceCount = 0
	for _, ref := range m.references {
		if ref.CategoryID != nil && *ref.CategoryID == c.ID {
			c.ReferenceCount++
		}
	}
	return c
}

func (m *MemoryRepository) category(scope tenant.Scope, id int64) (persistence.ReferenceCategoryRecord, error) {
	c, ok := m.categories[id]
	if !ok || !scope.Owns(c.OwnerID) {
		return persistence.ReferenceCategoryRecord{}, persistence.ErrReferenceCategoryNotFound
	}
	return c, nil
}

func (m *MemoryRepository) reference(scope tenant.Scope, id int64) (persistence.ReferenceRecord, error) {
	ref, ok := m.references[id]
	if !ok || !scope.Owns(ref.OwnerID) {
		return persistence.ReferenceRecord{}, persistence.ErrReferenceNotFound
	}
	return ref, nil
}

func newestFirst(a, b persistence.ReferenceRecord) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
