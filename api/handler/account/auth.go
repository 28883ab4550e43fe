package account

import (
	"net/http"
	"strings"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/utils"
	"github.com/gin-gonic/gin"
)

const (
	tabLogin    = "login"
	tabRegister = "register"
)

func normalizeTab(tab string) string {
	if tab == tabRegister {
		return tabRegister
	}
	return tabLogin
}

// AuthModal 登录/注册弹窗 GET /auth/modal
func (h *Handler) AuthModal(c *gin.Context) {
	c.HTML(http.StatusOK, render.TemplateAuthModal, render.AuthModalView{Tab: normalizeTab(c.Query("tab"))})
}

// Login 登录 POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	s := middleware.ShellFrom(c)
	email := strings.TrimSpace(c.PostForm("email"))

	user, err := s.Auth().Login(c.Request.Context(), email, c.PostForm("password"), c.ClientIP())
	if err != nil {
		utils.LogIfDevf("[Auth] login failed for %s: %v", utils.SanitizeLogEmail(email), err)
		status := common.StatusFor(err)
		if apperr.IsKind(err, apperr.KindAuth) {
			status = http.StatusUnauthorized
		}
		c.HTML(status, render.TemplateAuthModal, render.AuthModalView{
			Tab:   tabLogin,
			Email: email,
			Error: common.MessageFor(err),
		})
		return
	}

	middleware.StoreToken(c, h.session, s.Auth().AccessToken())
	if s.TakeFullRender() {
		common.Refresh(c)
	}
	common.Trigger(c, common.EventCloseModal, nil)
	common.Toast(c, common.ToastSuccess, "Welcome back, "+user.DisplayName()+"!")
	c.Status(http.StatusOK)
}

// Register 注册 POST /auth/register
// 注册不会自动登录，成功后切换到登录页
func (h *Handler) Register(c *gin.Context) {
	s := middleware.ShellFrom(c)
	email := strings.TrimSpace(c.PostForm("email"))

	user, err := s.Auth().Register(c.Request.Context(), email, c.PostForm("password"), c.PostForm("display_name"))
	if err != nil {
		c.HTML(common.StatusFor(err), render.TemplateAuthModal, render.AuthModalView{
			Tab:   tabRegister,
			Email: email,
			Error: common.MessageFor(err),
		})
		return
	}

	notice := "Account created. You can sign in now."
	if !user.Confirmed() {
		notice = "Account created. Please confirm your email address before signing in."
	}
	c.HTML(http.StatusOK, render.TemplateAuthModal, render.AuthModalView{
		Tab:    tabLogin,
		Email:  user.Email,
		Notice: notice,
	})
}

// Logout 登出 POST /auth/logout?scope=global
func (h *Handler) Logout(c *gin.Context) {
	s := middleware.ShellFrom(c)

	scope := remote.ScopeLocal
	if c.Query("scope") == string(remote.ScopeGlobal) {
		scope = remote.ScopeGlobal
	}

	if err := s.Auth().Logout(c.Request.Context(), scope); err != nil {
		common.RespondFailure(c, err)
		return
	}

	middleware.ClearToken(c, h.session)
	if s.TakeFullRender() {
		common.Refresh(c)
	}
	common.Toast(c, common.ToastSuccess, "Signed out.")
	c.Status(http.StatusOK)
}
