package images

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/gin-gonic/gin"
)

// Detail 图片详情弹窗 GET /images/:id
func (h *Handler) Detail(c *gin.Context) {
	h.renderDetail(c, c.Param("id"))
}

// renderDetail 评论变化后重绘整个详情弹窗
func (h *Handler) renderDetail(c *gin.Context, imageID string) {
	s := shellOf(c)
	details, err := s.Gallery().ImageDetails(c.Request.Context(), imageID)
	if err != nil {
		common.RespondFailure(c, err)
		return
	}
	c.HTML(http.StatusOK, render.TemplateDetail, render.NewDetailView(details, common.Viewer(c, s)))
}
