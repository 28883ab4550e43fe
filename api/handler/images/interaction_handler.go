package images

import (
	"net/http"
	"strconv"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Rate 评分 POST /images/:id/rating
func (h *Handler) Rate(c *gin.Context) {
	s := shellOf(c)
	id := c.Param("id")

	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil {
		common.RespondFailure(c, apperr.Validation("rate image", "rating must be a whole number from 1 to 5"))
		return
	}

	if _, err := s.Gallery().RateImage(c.Request.Context(), id, rating); err != nil {
		common.RespondFailure(c, err)
		return
	}
	common.Toast(c, common.ToastSuccess, "Thanks for rating!")
	renderCard(c, s, id)
}

// ToggleFavorite 收藏/取消收藏 POST /images/:id/favorite
func (h *Handler) ToggleFavorite(c *gin.Context) {
	s := shellOf(c)
	id := c.Param("id")

	favorited, err := s.Gallery().ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		common.RespondFailure(c, err)
		return
	}
	if favorited {
		common.Toast(c, common.ToastSuccess, "Added to favorites.")
	} else {
		common.Toast(c, common.ToastSuccess, "Removed from favorites.")
	}
	renderCard(c, s, id)
}

// AddComment 发表评论 POST /images/:id/comments
func (h *Handler) AddComment(c *gin.Context) {
	s := shellOf(c)
	id := c.Param("id")

	if _, err := s.Gallery().AddComment(c.Request.Context(), id, c.PostForm("content")); err != nil {
		common.RespondFailure(c, err)
		return
	}
	h.renderDetail(c, id)
}

// DeleteComment 删除评论 DELETE /comments/:id
func (h *Handler) DeleteComment(c *gin.Context) {
	s := shellOf(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondFailure(c, apperr.Validation("delete comment", "invalid comment id"))
		return
	}
	if err := s.Gallery().DeleteComment(c.Request.Context(), uint(id)); err != nil {
		common.RespondFailure(c, err)
		return
	}
	common.Toast(c, common.ToastSuccess, "Comment deleted.")
	c.Status(http.StatusOK)
}
