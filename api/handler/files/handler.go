package files

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/storage"
	"github.com/anoixa/image-gallery/utils"
	"github.com/anoixa/image-gallery/utils/mime"
	"github.com/gin-gonic/gin"
)

// 对象路径带日期与随机名，内容不会变化
const cacheControl = "public, max-age=2592000, immutable"

var copyBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 32*1024)
		return &buf
	},
}

// Handler 对外提供存储中的图片与头像
type Handler struct {
	provider storage.Provider
}

// NewHandler 文件处理器
func NewHandler(provider storage.Provider) *Handler {
	return &Handler{provider: provider}
}

// Serve GET /files/:bucket/*key
func (h *Handler) Serve(c *gin.Context) {
	bucket := c.Param("bucket")
	key := strings.TrimPrefix(c.Param("key"), "/")

	if !storage.IsValidBucket(bucket) || !storage.IsValidStoragePath(key) {
		common.RespondError(c, http.StatusNotFound, "File not found")
		return
	}

	contentType := mime.TypeByExtension(key, mime.OctetStream)
	etag := fmt.Sprintf(`"%s/%s"`, bucket, key)

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", cacheControl)
	c.Header("ETag", etag)
	c.Header("X-Content-Type-Options", "nosniff")
	if match := c.GetHeader("If-None-Match"); match == etag {
		c.Status(http.StatusNotModified)
		return
	}

	// 本地存储走 ServeContent，支持 Range 与 If-Modified-Since
	if local, ok := h.provider.(*storage.LocalStorage); ok {
		h.serveLocal(c, local, bucket, key)
		return
	}

	stream, err := h.provider.Open(c.Request.Context(), bucket, key)
	if err != nil {
		h.openFailed(c, bucket, key, err)
		return
	}
	defer stream.Close()

	if seeker, ok := stream.(io.ReadSeeker); ok {
		c.Header("Accept-Ranges", "bytes")
		http.ServeContent(c.Writer, c.Request, key, time.Time{}, seeker)
		return
	}

	buf := copyBufPool.Get().(*[]byte)
	defer copyBufPool.Put(buf)
	c.Status(http.StatusOK)
	if _, err := io.CopyBuffer(c.Writer, stream, *buf); err != nil && !utils.IsClientDisconnect(err) {
		log.Printf("[Files] Failed to stream %s/%s: %v", bucket, key, err)
	}
}

func (h *Handler) serveLocal(c *gin.Context, local *storage.LocalStorage, bucket, key string) {
	f, err := local.OpenFile(bucket, key)
	if err != nil {
		h.openFailed(c, bucket, key, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		common.RespondError(c, http.StatusNotFound, "File not found")
		return
	}
	http.ServeContent(c.Writer, c.Request, key, info.ModTime(), f)
}

func (h *Handler) openFailed(c *gin.Context, bucket, key string, err error) {
	// 错误响应不应被缓存
	c.Header("Cache-Control", "no-store")
	c.Header("ETag", "")

	if utils.IsContextCanceled(err) {
		c.Abort()
		return
	}

	var pathErr *storage.PathError
	if errors.Is(err, storage.ErrObjectNotFound) || errors.As(err, &pathErr) {
		common.RespondError(c, http.StatusNotFound, "File not found")
		return
	}
	log.Printf("[Files] Failed to open %s/%s from %s: %v", bucket, key, h.provider.Name(), err)
	common.RespondError(c, http.StatusBadGateway, "Storage is unavailable")
}
