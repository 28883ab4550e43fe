// Package shell wires one browser session together: an auth manager, a
// gallery manager bound to it, and the input pacing (search debounce,
// infinite-scroll throttle) that used to live in the page.
package shell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoixa/image-gallery/internal/auth"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/utils"
)

const (
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultScrollThrottle = 100 * time.Millisecond
)

// Deps 创建 Shell 所需的共享依赖
type Deps struct {
	Backend        auth.Backend
	Gallery        *gallery.Service
	AuthOptions    auth.Options
	SearchDebounce time.Duration
	ScrollThrottle time.Duration
}

// Shell 一个浏览器会话
type Shell struct {
	id      string
	auth    *auth.Manager
	gallery *gallery.Manager
	search  *Debouncer
	scroll  *Throttler

	// 登录身份变化后下一次响应需要整页重绘
	fullRender atomic.Bool
	lastSeen   atomic.Int64

	identityMu sync.Mutex
	userID     string

	unsubscribe func()
	closeOnce   sync.Once
}

// New 创建会话并订阅身份变化
func New(id string, deps Deps) *Shell {
	if deps.SearchDebounce <= 0 {
		deps.SearchDebounce = DefaultSearchDebounce
	}
	if deps.ScrollThrottle <= 0 {
		deps.ScrollThrottle = DefaultScrollThrottle
	}

	authManager := auth.NewManager(deps.Backend, deps.AuthOptions)
	s := &Shell{
		id:      id,
		auth:    authManager,
		gallery: deps.Gallery.NewManager(authManager),
		search:  NewDebouncer(deps.SearchDebounce),
		scroll:  NewThrottler(deps.ScrollThrottle),
	}
	s.Touch(time.Now())

	s.unsubscribe = authManager.Subscribe(s.onAuthChange)
	return s
}

// onAuthChange 只有登录身份变化才整页重绘，资料修改不算
func (s *Shell) onAuthChange(state auth.State) {
	var userID string
	if state.User != nil {
		userID = state.User.ID
	}

	s.identityMu.Lock()
	changed := userID != s.userID
	s.userID = userID
	s.identityMu.Unlock()

	if !changed {
		return
	}
	s.fullRender.Store(true)
	if !state.Authenticated && s.gallery.ResetPersonalFilters() {
		utils.LogIfDevf("[Shell] %s signed out, personal filters dropped", s.id)
	}
}

// ID 会话 id
func (s *Shell) ID() string { return s.id }

// Auth 认证管理器
func (s *Shell) Auth() *auth.Manager { return s.auth }

// Gallery 图库管理器
func (s *Shell) Gallery() *gallery.Manager { return s.gallery }

// Touch 记录最近一次访问
func (s *Shell) Touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen 最近一次访问时间
func (s *Shell) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// TakeFullRender 读取并清除整页重绘标记
func (s *Shell) TakeFullRender() bool {
	return s.fullRender.Swap(false)
}

// MarkRendered 整页已渲染，清除重绘标记
func (s *Shell) MarkRendered() {
	s.fullRender.Store(false)
}

// Search 防抖后以新条件加载第 1 页
// 被后续输入取代时返回 false，调用方不应渲染任何内容
func (s *Shell) Search(ctx context.Context, filters gallery.Filters) (bool, error) {
	latest, err := s.search.Wait(ctx)
	if err != nil || !latest {
		return false, err
	}
	return true, s.ApplyFilters(ctx, filters)
}

// ApplyFilters 立即以新条件加载第 1 页
func (s *Shell) ApplyFilters(ctx context.Context, filters gallery.Filters) error {
	return s.gallery.LoadPage(ctx, 1, filters)
}

// LoadMore 无限滚动加载下一页
// 被节流或已有加载在进行时返回 false
func (s *Shell) LoadMore(ctx context.Context) (bool, error) {
	if !s.scroll.Allow() {
		return false, nil
	}
	before := s.gallery.Snapshot().CurrentPage
	err := s.gallery.LoadMore(ctx)
	if errors.Is(err, gallery.ErrLoadInProgress) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.gallery.Snapshot().CurrentPage != before, nil
}

// Close 取消订阅，释放远端事件监听
func (s *Shell) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.auth.Close()
	})
}
