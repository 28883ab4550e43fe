package common

import (
	"log"

	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/gin-gonic/gin"
)

// Viewer 当前会话的渲染上下文，收藏状态读取失败只记录日志
func Viewer(c *gin.Context, s *shell.Shell) render.Viewer {
	v := render.Viewer{
		User:     s.Auth().CurrentUser(),
		ImageURL: s.Gallery().ImageURL,
	}
	if v.User == nil {
		return v
	}
	favorites, err := s.Gallery().FavoriteSet(c.Request.Context())
	if err != nil {
		log.Printf("[API] failed to load favorites for %s: %v", v.User.ID, err)
		return v
	}
	v.Favorites = favorites
	return v
}
