package repo

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// MemoryRepository keeps studios and their images in process with the same visibility,
// ownership and single-main-image rules as the postgres store.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	studios map[int64]persistence.StudioRecord
	images  map[int64]persistence.StudioImageRecord
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		studios: map[int64]persistence.StudioRecord{},
		images:  map[int64]persistence.StudioImageRecord{},
		now:     time.Now,
	}
}

func (m *MemoryRepository) Create(ctx context.Context, fields persistence.StudioFields) (persistence.StudioRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	st := persistence.StudioRecord{ID: m.nextID, CreatedBy: scope.TenantID, CreatedAt: m.now().UTC()}
	st.UpdatedAt = st.CreatedAt
	applyStudio(&st, fields)
	m.studios[st.ID] = st
	return st, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int64) (persistence.StudioRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible(scope, id)
}

func (m *MemoryRepository) List(ctx context.Context, params persistence.ListStudiosParams) (persistence.ListStudiosResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListStudiosResult{}, err
	}

	m.mu.Lock()
	matched := []persistence.StudioRecord{}
	search := ""
	if params.Search != nil {
		search = strings.ToLower(strings.TrimSpace(*params.Search))
	}
	for _, st := range m.studios {
		switch {
		case params.OnlyOwn && !scope.Owns(st.CreatedBy):
			continue
		case !st.IsPublic && !scope.Owns(st.CreatedBy):
			continue
		case params.LocationType != nil && *params.LocationType != "" && st.LocationType != *params.LocationType:
			continue
		case search != "" && !strings.Contains(strings.ToLower(st.Name), search) && !strings.Contains(strings.ToLower(st.City), search):
			continue
		}
		matched = append(matched, st)
	}
	m.mu.Unlock()

	slices.SortFunc(matched, func(a, b persistence.StudioRecord) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	page, pageSize := max(params.Page, 1), params.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	result := persistence.ListStudiosResult{Studios: []persistence.StudioRecord{}, TotalItems: len(matched)}
	if from := (page - 1) * pageSize; from < len(matched) {
		result.Studios = append(result.Studios, matched[from:min(from+pageSize, len(matched))]...)
	}
	return result, nil
}

func (m *MemoryRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.StudioRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.owned(scope, id)
	if err != nil {
		return persistence.StudioRecord{}, err
	}
	fields, err := mutate(st)
	if err != nil {
		return persistence.StudioRecord{}, err
	}
	applyStudio(&st, fields)
	st.UpdatedAt = m.now().UTC()
	m.studios[id] = st
	return st, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.owned(scope, id); err != nil {
		return err
	}
	delete(m.studios, id)
	for imgID, img := range m.images {
		if img.StudioID == id {
			delete(m.images, imgID)
		}
	}
	return nil
}

func (m *MemoryRepository) ListImages(ctx context.Context, studioID int64) ([]persistence.StudioImageRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.visible(scope, studioID); err != nil {
		return nil, err
	}
	return m.imagesOf(studioID), nil
}

func (m *MemoryRepository) AddImage(ctx context.Context, studioID int64, params persistence.AddStudioImageParams) (persistence.StudioImageRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioImageRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.visible(scope, studioID)
	if err != nil {
		return persistence.StudioImageRecord{}, err
	}
	if params.IsMain && !scope.Owns(st.CreatedBy) {
		return persistence.StudioImageRecord{}, persistence.ErrStudioReadOnly
	}

	m.nextID++
	img := persistence.StudioImageRecord{
		ID:        m.nextID,
		StudioID:  studioID,
		ObjectKey: params.ObjectKey,
		Caption:   params.Caption,
		CreatedAt: m.now().UTC(),
	}
	m.images[img.ID] = img
	if params.IsMain {
		m.setMain(studioID, img.ID)
		img.IsMain = true
	}
	return img, nil
}

func (m *MemoryRepository) DeleteImage(ctx context.Context, studioID, imageID int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.owned(scope, studioID); err != nil {
		return err
	}
	img, ok := m.images[imageID]
	if !ok || img.StudioID != studioID {
		return persistence.ErrStudioImageNotFound
	}
	delete(m.images, imageID)
	return nil
}

func (m *MemoryRepository) SetMainImage(ctx context.Context, studioID, imageID int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.owned(scope, studioID); err != nil {
		return err
	}
	img, ok := m.images[imageID]
	if !ok || img.StudioID != studioID {
		return persistence.ErrStudioImageNotFound
	}
	m.setMain(studioID, imageID)
	return nil
}

// Studio reports the name of a studio usable by owner, for linking events.
func (m *MemoryRepository) Studio(owner uuid.UUID, id int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.visible(tenant.For(owner), id)
	if err != nil {
		return "", false
	}
	return st.Name, true
}

// setMain clears every sibling flag and sets imageID. Callers hold mu.
func (m *MemoryRepository) setMain(studioID, imageID int64) {
	for id, img := range m.images {
		if img.StudioID != studioID {
			continue
		}
		img.IsMain = id == imageID
		m.images[id] = img
	}
}

func (m *MemoryRepository) imagesOf(studioID int64) []persistence.StudioImageRecord {
	out := []persistence.StudioImageRecord{}
	for _, img := range m.images {
		if img.StudioID == studioID {
			out = append(out, img)
		}
	}
	slices.SortFunc(out, func(a, b persistence.StudioImageRecord) int {
		if a.IsMain != b.IsMain {
			if a.IsMain {
				return -1
			}
			return 1
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (m *MemoryRepository) visible(scope tenant.Scope, id int64) (persistence.StudioRecord, error) {
	st, ok := m.studios[id]
	if !ok || (!st.IsPublic && !scope.Owns(st.CreatedBy)) {
		return persistence.StudioRecord{}, persistence.ErrStudioNotFound
	}
	return st, nil
}

func (m *MemoryRepository) owned(scope tenant.Scope, id int64) (persistence.StudioRecord, error) {
	st, err := m.visible(scope, id)
	if err != nil {
		return persistence.StudioRecord{}, err
	}
	if !scope.Owns(st.CreatedBy) {
		return persistence.StudioRecord{}, persistence.ErrStudioReadOnly
	}
	return st, nil
}

func applyStudio(st *persistence.StudioRecord, f persistence.StudioFields) {
	st.Name = f.Name
	st.LocationType = f.LocationType
	st.City = f.City
	st.District = f.District
	st.Street = f.Street
	st.Building = f.Building
	st.Website = f.Website
	st.Description = f.Description
	st.IsPublic = f.IsPublic
}
