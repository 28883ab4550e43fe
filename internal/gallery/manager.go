// Package gallery owns the image list of one gallery view: the loaded
// records, the page cursor and the active filters, plus every mutation a
// viewer can issue against an image.
package gallery

import (
	"context"
	"errors"
	"sync"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/storage"
)

// ErrLoadInProgress 已有分页加载在进行中
var ErrLoadInProgress = errors.New("a page load is already in progress")

// Identity 当前身份，由 auth.Manager 提供
type Identity interface {
	CurrentUser() *models.User
}

// Snapshot 状态只读拷贝
type Snapshot struct {
	Images      []models.ImageStat
	CurrentPage int
	HasMore     bool
	IsLoading   bool
	Filters     Filters
}

// Manager 单个图库视图的状态，只有 Manager 自己能修改
type Manager struct {
	svc      *Service
	identity Identity

	mu          sync.RWMutex
	images      []models.ImageStat
	currentPage int
	hasMore     bool
	isLoading   bool
	filters     Filters
}

// NewManager 创建图库管理器
func (s *Service) NewManager(identity Identity) *Manager {
	return &Manager{
		svc:      s,
		identity: identity,
		filters:  Filters{Sort: SortNewest},
	}
}

// Snapshot 返回当前状态的拷贝
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	images := make([]models.ImageStat, len(m.images))
	copy(images, m.images)
	return Snapshot{
		Images:      images,
		CurrentPage: m.currentPage,
		HasMore:     m.hasMore,
		IsLoading:   m.isLoading,
		Filters:     m.filters,
	}
}

// Filters 当前筛选条件
func (m *Manager) Filters() Filters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filters
}

// Image 已加载列表中的一张图片
func (m *Manager) Image(id string) (models.ImageStat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, img := range m.images {
		if img.ID == id {
			return img, true
		}
	}
	return models.ImageStat{}, false
}

// ImageURL 图片公开地址
func (m *Manager) ImageURL(storagePath string) string {
	return m.svc.client.PublicURL(storage.BucketImages, storagePath)
}

func (m *Manager) currentUser(op string) (*models.User, error) {
	var user *models.User
	if m.identity != nil {
		user = m.identity.CurrentUser()
	}
	if user == nil {
		return nil, apperr.AuthRequired(op)
	}
	return user, nil
}

// LoadPage 加载第 page 页，第 1 页替换列表，之后的页追加
// 已有加载在进行时返回 ErrLoadInProgress，状态不变
func (m *Manager) LoadPage(ctx context.Context, page int, filters Filters) error {
	if page < 1 {
		page = 1
	}
	filters = filters.Normalize()

	m.mu.Lock()
	if m.isLoading {
		m.mu.Unlock()
		return ErrLoadInProgress
	}
	m.isLoading = true
	m.mu.Unlock()

	rows, err := m.fetch(ctx, page, filters)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.isLoading = false
	if err != nil {
		return err
	}

	if page == 1 {
		m.images = rows
	} else {
		m.images = append(m.images, rows...)
	}
	m.currentPage = page
	m.hasMore = len(rows) == m.svc.cfg.PageSize
	m.filters = filters
	return nil
}

// LoadMore 加载下一页，没有更多时什么也不做
func (m *Manager) LoadMore(ctx context.Context) error {
	m.mu.RLock()
	next, hasMore, filters := m.currentPage+1, m.hasMore, m.filters
	m.mu.RUnlock()

	if !hasMore {
		return nil
	}
	return m.LoadPage(ctx, next, filters)
}

// Reload 以当前条件重新加载第 1 页
func (m *Manager) Reload(ctx context.Context) error {
	return m.LoadPage(ctx, 1, m.Filters())
}

func (m *Manager) fetch(ctx context.Context, page int, filters Filters) ([]models.ImageStat, error) {
	query := remote.Query{
		Filters: filters.baseFilters(),
		Sort:    sortColumns[filters.Sort],
	}
	pageRange := remote.PageRange(page, m.svc.cfg.PageSize)
	query.Range = &pageRange

	if filters.Category != 0 {
		ids, err := remote.Pluck[models.ImageCategory, string](ctx, m.svc.client, "image_id", remote.Eq("category_id", filters.Category))
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.ImageStat{}, nil
		}
		query.Filters = append(query.Filters, remote.In("id", ids))
	}

	if filters.FavoritesOnly {
		user, err := m.currentUser("load favorites")
		if err != nil {
			return nil, err
		}
		ids, err := remote.Pluck[models.Favorite, string](ctx, m.svc.client, "image_id", remote.Eq("user_id", user.ID))
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.ImageStat{}, nil
		}
		query.Filters = append(query.Filters, remote.In("id", ids))
	}

	rows, err := remote.Select[models.ImageStat](ctx, m.svc.client, query)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.ImageStat{}
	}
	return rows, nil
}

// refresh 重新读取一张图片的聚合数据并替换列表中的那一项
func (m *Manager) refresh(ctx context.Context, imageID string) (*models.ImageStat, error) {
	stat, err := remote.First[models.ImageStat](ctx, m.svc.client, remote.Eq("id", imageID))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	for i := range m.images {
		if m.images[i].ID == imageID {
			m.images[i] = *stat
			break
		}
	}
	m.mu.Unlock()
	return stat, nil
}

func (m *Manager) forget(imageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.images {
		if m.images[i].ID == imageID {
			m.images = append(m.images[:i], m.images[i+1:]...)
			return
		}
	}
}

// ResetPersonalFilters 身份变化后去掉依赖身份的筛选条件，返回是否有变化
func (m *Manager) ResetPersonalFilters() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.filters.Personal() {
		return false
	}
	m.filters = m.filters.WithoutPersonal()
	return true
}
