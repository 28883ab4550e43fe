package gallery

import (
	"errors"
	"log"
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/database/models"
	gallerySvc "github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/gin-gonic/gin"
)

// Index 整页渲染 GET /
func (h *Handler) Index(c *gin.Context) {
	s := middleware.ShellFrom(c)
	ctx := c.Request.Context()

	var toast *render.ToastView
	fail := func(err error) {
		t := render.Failure(common.MessageFor(err))
		toast = &t
	}

	switch {
	case hasFilterQuery(c):
		filters, err := h.parseFilters(ctx, c, s.Auth().CurrentUser())
		if err != nil {
			fail(err)
			break
		}
		if err := s.ApplyFilters(ctx, filters); loadFailed(err) {
			fail(err)
		}
	case s.Gallery().Snapshot().CurrentPage == 0:
		if err := s.Gallery().Reload(ctx); loadFailed(err) {
			fail(err)
		}
	}

	s.MarkRendered()
	c.HTML(http.StatusOK, render.TemplatePage, h.page(c, s, toast))
}

func (h *Handler) page(c *gin.Context, s *shell.Shell, toast *render.ToastView) render.PageView {
	v := common.Viewer(c, s)
	snap := s.Gallery().Snapshot()
	return render.PageView{
		Title:   "Gallery",
		User:    render.NewUserView(v.User),
		Filters: render.NewFilterView(snap.Filters, h.categories(c), v.User),
		Grid:    render.NewGridView(snap, v),
		Toast:   toast,
		Version: h.version,
	}
}

func (h *Handler) categories(c *gin.Context) []models.Category {
	categories, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		log.Printf("[Gallery] failed to load categories: %v", err)
		return nil
	}
	return categories
}

// Grid 按筛选条件重新加载第 1 页 GET /gallery
// 搜索框输入经过防抖，被后续输入取代的请求返回 204
func (h *Handler) Grid(c *gin.Context) {
	s := middleware.ShellFrom(c)
	ctx := c.Request.Context()

	filters, err := h.parseFilters(ctx, c, s.Auth().CurrentUser())
	if err != nil {
		common.RespondFailure(c, err)
		return
	}

	if common.TriggerName(c) == "q" {
		var ran bool
		ran, err = s.Search(ctx, filters)
		if err == nil && !ran {
			c.Status(http.StatusNoContent)
			return
		}
	} else {
		err = s.ApplyFilters(ctx, filters)
	}

	switch {
	case errors.Is(err, gallerySvc.ErrLoadInProgress), ctx.Err() != nil:
		c.Status(http.StatusNoContent)
		return
	case err != nil:
		common.RespondFailure(c, err)
		return
	}

	c.HTML(http.StatusOK, render.TemplateGrid, render.NewGridView(s.Gallery().Snapshot(), common.Viewer(c, s)))
}

// More 无限滚动追加下一页 GET /gallery/more
// 被节流时只返回新的哨兵，让它再次进入视口时重试
func (h *Handler) More(c *gin.Context) {
	s := middleware.ShellFrom(c)

	before := len(s.Gallery().Snapshot().Images)
	ran, err := s.LoadMore(c.Request.Context())
	if err != nil {
		common.RespondFailure(c, err)
		return
	}

	grid := render.NewGridView(s.Gallery().Snapshot(), common.Viewer(c, s))
	if ran {
		grid = render.Tail(grid, before)
	} else {
		grid.Cards = nil
	}
	c.HTML(http.StatusOK, render.TemplateCards, grid)
}

// Header 页眉片段，身份或资料变化后刷新 GET /header
func (h *Handler) Header(c *gin.Context) {
	s := middleware.ShellFrom(c)
	c.HTML(http.StatusOK, render.TemplateHeader, render.NewUserView(s.Auth().CurrentUser()))
}
