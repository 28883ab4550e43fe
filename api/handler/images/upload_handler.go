package images

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/internal/apperr"
	gallerySvc "github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/utils"
	"github.com/anoixa/image-gallery/utils/validator"
	"github.com/gin-gonic/gin"
)

// NewForm 上传表单 GET /images/new
func (h *Handler) NewForm(c *gin.Context) {
	c.HTML(http.StatusOK, render.TemplateUploadForm, h.uploadView(c, ""))
}

func (h *Handler) uploadView(c *gin.Context, errMsg string) render.UploadView {
	categories, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		log.Printf("[Images] failed to load categories: %v", err)
	}
	return render.NewUploadView(categories, h.maxUploadMB, errMsg)
}

func parseCategoryIDs(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

// Upload 上传图片 POST /images
// 成功后关闭弹窗并把网格重新加载到第 1 页
func (h *Handler) Upload(c *gin.Context) {
	const op = "upload image"
	s := shellOf(c)
	ctx := c.Request.Context()

	fail := func(err error) {
		common.RenderFailure(c, err, render.TemplateUploadForm, func(msg string) any {
			return h.uploadView(c, msg)
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(apperr.Validation(op, "the file is too large"))
		} else {
			fail(apperr.Validation(op, "choose an image file"))
		}
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		fail(apperr.Validation(op, "the file is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(apperr.Decode(op, err))
		return
	}
	defer file.Close()

	if ok, _, err := validator.IsImage(file); err != nil || !ok {
		fail(apperr.Validation(op, "only image files can be uploaded"))
		return
	}

	img, err := s.Gallery().UploadImage(ctx, gallerySvc.Upload{
		File:        file,
		Filename:    fileHeader.Filename,
		Title:       c.PostForm("title"),
		CategoryIDs: parseCategoryIDs(c.PostFormArray("category")),
	})
	if err != nil {
		fail(err)
		return
	}
	utils.LogIfDevf("[Images] %s uploaded %s", img.UserID, img.StoragePath)

	if err := s.Gallery().Reload(ctx); err != nil && !errors.Is(err, gallerySvc.ErrLoadInProgress) {
		log.Printf("[Images] reload after upload failed: %v", err)
	}

	common.Trigger(c, common.EventCloseModal, nil)
	common.Toast(c, common.ToastSuccess, "Image uploaded.")
	c.Header(common.HeaderRetarget, "#grid")
	c.Header(common.HeaderReswap, "innerHTML")
	c.HTML(http.StatusOK, render.TemplateGrid, render.NewGridView(s.Gallery().Snapshot(), common.Viewer(c, s)))
}
