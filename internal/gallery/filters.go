package gallery

import (
	"strings"
	"time"

	"github.com/anoixa/image-gallery/internal/remote"
)

// Sort 排序方式
type Sort string

const (
	SortNewest  Sort = "newest"
	SortOldest  Sort = "oldest"
	SortRating  Sort = "rating"
	SortPopular Sort = "popular"
)

// sortColumns 排序方式到 image_stats 列的映射，id 作为最后的稳定排序
var sortColumns = map[Sort][]remote.Sort{
	SortNewest:  {{Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
	SortOldest:  {{Column: "created_at"}, {Column: "id"}},
	SortRating:  {{Column: "avg_rating", Desc: true}, {Column: "rating_count", Desc: true}, {Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
	SortPopular: {{Column: "favorite_count", Desc: true}, {Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
}

// Sorts 所有可用排序，按展示顺序
func Sorts() []Sort {
	return []Sort{SortNewest, SortOldest, SortRating, SortPopular}
}

// ParseSort 未知值回退为 newest
func ParseSort(s string) Sort {
	sort := Sort(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sortColumns[sort]; ok {
		return sort
	}
	return SortNewest
}

// Label 展示名称
func (s Sort) Label() string {
	switch s {
	case SortOldest:
		return "Oldest"
	case SortRating:
		return "Top rated"
	case SortPopular:
		return "Most favorited"
	default:
		return "Newest"
	}
}

// Filters 当前筛选条件
type Filters struct {
	Category  uint
	Sort      Sort
	Search    string
	MinRating float64
	// MaxRating 平均分上限，0 表示不限
	MaxRating float64
	From      *time.Time
	To        *time.Time
	OwnerID   string
	// FavoritesOnly 只看当前用户收藏的图片，需要登录
	FavoritesOnly bool
}

// Normalize 清理输入
func (f Filters) Normalize() Filters {
	f.Sort = ParseSort(string(f.Sort))
	f.Search = strings.TrimSpace(f.Search)
	f.OwnerID = strings.TrimSpace(f.OwnerID)
	if f.MinRating < 0 {
		f.MinRating = 0
	}
	if f.MinRating > 5 {
		f.MinRating = 5
	}
	if f.MaxRating < 0 || f.MaxRating >= 5 {
		f.MaxRating = 0
	}
	return f
}

// Personal 是否包含依赖当前身份的条件
func (f Filters) Personal() bool {
	return f.FavoritesOnly || f.OwnerID != ""
}

// WithoutPersonal 去掉依赖身份的条件，登出时使用
func (f Filters) WithoutPersonal() Filters {
	f.FavoritesOnly = false
	f.OwnerID = ""
	return f
}

// baseFilters 与 image_stats 列直接对应的条件
func (f Filters) baseFilters() []remote.Filter {
	var filters []remote.Filter
	if f.Search != "" {
		filters = append(filters, remote.Contains("title", f.Search))
	}
	if f.MinRating > 0 {
		filters = append(filters, remote.Gte("avg_rating", f.MinRating))
	}
	if f.MaxRating > 0 {
		filters = append(filters, remote.Lte("avg_rating", f.MaxRating))
	}
	if f.From != nil {
		filters = append(filters, remote.Gte("created_at", *f.From))
	}
	if f.To != nil {
		filters = append(filters, remote.Lte("created_at", *f.To))
	}
	if f.OwnerID != "" {
		filters = append(filters, remote.Eq("user_id", f.OwnerID))
	}
	return filters
}
