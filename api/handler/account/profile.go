package account

import (
	"errors"
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/auth"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/gin-gonic/gin"
)

// Profile 资料弹窗 GET /profile
func (h *Handler) Profile(c *gin.Context) {
	s := middleware.ShellFrom(c)
	c.HTML(http.StatusOK, render.TemplateProfileModal, render.NewProfileView(s.Auth().CurrentUser(), ""))
}

// postField 只有表单里出现的字段才会更新
func postField(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

// UpdateProfile 保存资料 POST /profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	s := middleware.ShellFrom(c)

	user, err := s.Auth().UpdateProfile(c.Request.Context(), auth.ProfileUpdate{
		DisplayName: postField(c, "display_name"),
		Bio:         postField(c, "bio"),
		Website:     postField(c, "website"),
		Location:    postField(c, "location"),
	})
	if err != nil {
		common.RenderFailure(c, err, render.TemplateProfileModal, func(msg string) any {
			return render.NewProfileView(s.Auth().CurrentUser(), msg)
		})
		return
	}

	common.Trigger(c, common.EventAuthChanged, nil)
	common.Toast(c, common.ToastSuccess, "Profile saved.")
	c.HTML(http.StatusOK, render.TemplateProfileModal, render.NewProfileView(user, ""))
}

// UploadAvatar 更换头像 POST /profile/avatar
func (h *Handler) UploadAvatar(c *gin.Context) {
	const op = "upload avatar"
	s := middleware.ShellFrom(c)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = apperr.Validation(op, "the file is too large")
		} else {
			err = apperr.Validation(op, "choose an image file")
		}
	} else if fileHeader.Size > h.maxAvatarBytes {
		err = apperr.Validation(op, "the file is too large")
	}
	if err != nil {
		common.RenderFailure(c, err, render.TemplateProfileModal, func(msg string) any {
			return render.NewProfileView(s.Auth().CurrentUser(), msg)
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondFailure(c, apperr.Decode(op, err))
		return
	}
	defer file.Close()

	user, err := s.Auth().UploadAvatar(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		common.RenderFailure(c, err, render.TemplateProfileModal, func(msg string) any {
			return render.NewProfileView(s.Auth().CurrentUser(), msg)
		})
		return
	}

	common.Trigger(c, common.EventAuthChanged, nil)
	common.Toast(c, common.ToastSuccess, "Avatar updated.")
	c.HTML(http.StatusOK, render.TemplateProfileModal, render.NewProfileView(user, ""))
}
