package images

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
)

// UpdateTitle 修改标题 PATCH /images/:id
func (h *Handler) UpdateTitle(c *gin.Context) {
	s := shellOf(c)
	id := c.Param("id")

	if _, err := s.Gallery().UpdateTitle(c.Request.Context(), id, c.PostForm("title")); err != nil {
		common.RespondFailure(c, err)
		return
	}
	common.Toast(c, common.ToastSuccess, "Title updated.")
	renderCard(c, s, id)
}

// Delete 删除图片 DELETE /images/:id
// 返回空内容，前端用它替换掉卡片
func (h *Handler) Delete(c *gin.Context) {
	s := shellOf(c)

	if err := s.Gallery().DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		common.RespondFailure(c, err)
		return
	}
	common.Toast(c, common.ToastSuccess, "Image deleted.")
	c.Status(http.StatusOK)
}
