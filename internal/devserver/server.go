// Package devserver 开发用的静态文件服务器
package devserver

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/utils/mime"
	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const indexFile = "index.html"

// Config 开发服务器参数
type Config struct {
	Files   fs.FS
	Origins []string
	Quiet   bool
}

// New 返回按扩展名确定类型的静态文件处理器
// 未知扩展名按纯文本返回，文件不存在返回 404，读取失败返回 500
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	origins := cfg.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "HX-Request", "HX-Target", "HX-Current-URL"},
		MaxAge:         300,
	}))
	r.Use(middleware.Recoverer)
	if !cfg.Quiet {
		r.Use(requestLogger)
	}

	h := &fileHandler{files: cfg.Files}
	r.Get("/*", h.serve)
	r.Head("/*", h.serve)
	return r
}

type fileHandler struct {
	files fs.FS
}

func (h *fileHandler) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = indexFile
	}

	if info, err := fs.Stat(h.files, name); err == nil && info.IsDir() {
		name = path.Join(name, indexFile)
	}

	data, err := fs.ReadFile(h.files, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeText(w, http.StatusNotFound, "404 Not Found")
			return
		}
		log.Printf("[DevServer] Failed to read %s: %v", name, err)
		writeText(w, http.StatusInternalServerError, "500 Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", mime.TypeByExtension(name, mime.TextPlain))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", mime.TextPlain)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// requestLogger 彩色请求日志
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		paint := color.New(color.FgGreen).SprintFunc()
		switch {
		case status >= 500:
			paint = color.New(color.FgRed).SprintFunc()
		case status >= 400:
			paint = color.New(color.FgYellow).SprintFunc()
		case status >= 300:
			paint = color.New(color.FgCyan).SprintFunc()
		}
		log.Printf("[DevServer] %s %s %s %s", paint(status), r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}
