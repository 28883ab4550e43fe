package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/anoixa/image-gallery/utils/pool"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// 模板名称
const (
	TemplatePage         = "page"
	TemplateHeader       = "header"
	TemplateToolbar      = "toolbar"
	TemplateGrid         = "grid"
	TemplateCards        = "cards"
	TemplateCard         = "card"
	TemplateEmpty        = "empty"
	TemplateAuthModal    = "auth_modal"
	TemplateUploadForm   = "upload_form"
	TemplateProfileModal = "profile_modal"
	TemplateDetail       = "detail"
	TemplateToast        = "toast"
)

// Renderer 持有解析好的模板集合
type Renderer struct {
	tmpl *template.Template
}

// New 解析内嵌模板
func New() (*Renderer, error) {
	tmpl, err := template.New("gallery").Funcs(funcs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNew 模板是编译期内嵌的，解析失败只可能是代码错误
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"ratingSteps": func() []float64 { return []float64{1, 2, 3, 4, 5} },
	}
}

// Template 供 gin 的 SetHTMLTemplate 使用
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

// Render 先渲染到缓冲区，模板出错时不会向客户端写出半截 HTML
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := r.tmpl.ExecuteTemplate(buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderString 渲染为字符串
func (r *Renderer) RenderString(name string, data any) (string, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := r.tmpl.ExecuteTemplate(buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Static 静态资源文件系统，根目录下直接是 app.css / app.js
func Static() http.FileSystem {
	return http.FS(StaticFS())
}

// StaticFS 同 Static，供不经过 gin 的开发服务器使用
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
