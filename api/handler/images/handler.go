package images

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/api/middleware"
	gallerySvc "github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/gin-gonic/gin"
)

// Handler 图片上传、详情与互动
type Handler struct {
	svc            *gallerySvc.Service
	maxUploadMB    int
	maxUploadBytes int64
}

// NewHandler 图片处理器
func NewHandler(svc *gallerySvc.Service, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &Handler{
		svc:            svc,
		maxUploadMB:    maxUploadMB,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// renderCard 重新渲染一张卡片，替换页面中的旧卡片
func renderCard(c *gin.Context, s *shell.Shell, imageID string) {
	stat, ok := s.Gallery().Image(imageID)
	if !ok {
		// 不在当前列表中（例如从详情弹窗操作），没有卡片可替换
		c.Header(common.HeaderReswap, "none")
		c.Status(http.StatusOK)
		return
	}
	c.HTML(http.StatusOK, render.TemplateCard, render.NewCardView(stat, common.Viewer(c, s)))
}

func shellOf(c *gin.Context) *shell.Shell {
	return middleware.ShellFrom(c)
}
