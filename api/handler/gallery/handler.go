package gallery

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	gallerySvc "github.com/anoixa/image-gallery/internal/gallery"
	"github.com/gin-gonic/gin"
)

// Handler 图库页面与网格片段
type Handler struct {
	svc     *gallerySvc.Service
	version string
}

// NewHandler 图库处理器
func NewHandler(svc *gallerySvc.Service, version string) *Handler {
	return &Handler{svc: svc, version: version}
}

// filterKeys 出现任意一个即视为显式筛选
var filterKeys = []string{"q", "sort", "category", "min_rating", "max_rating", "from", "to", "favorites", "mine", "owner"}

func hasFilterQuery(c *gin.Context) bool {
	query := c.Request.URL.Query()
	for _, key := range filterKeys {
		if _, ok := query[key]; ok {
			return true
		}
	}
	return false
}

const dateLayout = "2006-01-02"

// parseFilters 从查询参数构造筛选条件
// category 既可以是 id 也可以是分类名，名称按模糊匹配解析
func (h *Handler) parseFilters(ctx context.Context, c *gin.Context, user *models.User) (gallerySvc.Filters, error) {
	const op = "parse filters"

	f := gallerySvc.Filters{
		Search:        c.Query("q"),
		Sort:          gallerySvc.ParseSort(c.Query("sort")),
		FavoritesOnly: c.Query("favorites") == "1",
		OwnerID:       c.Query("owner"),
	}

	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			f.Category = uint(id)
		} else {
			category, err := h.svc.ResolveCategory(ctx, raw)
			if err != nil {
				return f, err
			}
			f.Category = category.ID
		}
	}

	if raw := c.Query("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, apperr.Validation(op, "minimum rating must be a number")
		}
		f.MinRating = v
	}
	if raw := c.Query("max_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, apperr.Validation(op, "maximum rating must be a number")
		}
		f.MaxRating = v
	}
	if f.MaxRating > 0 && f.MaxRating < f.MinRating {
		return f, apperr.Validation(op, "the minimum rating must not exceed the maximum")
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return f, apperr.Validation(op, "dates use the YYYY-MM-DD format")
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return f, apperr.Validation(op, "dates use the YYYY-MM-DD format")
		}
		// 包含结束日当天
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperr.Validation(op, "the start date must be before the end date")
	}

	if c.Query("mine") == "1" {
		if user == nil {
			return f, apperr.AuthRequired(op)
		}
		f.OwnerID = user.ID
	}
	return f, nil
}

// loadFailed 并发加载时直接沿用当前列表
func loadFailed(err error) bool {
	return err != nil && !errors.Is(err, gallerySvc.ErrLoadInProgress)
}
