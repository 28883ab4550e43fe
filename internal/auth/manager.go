// Package auth tracks the signed-in identity of one browser session.
//
// The Manager has two states, anonymous and authenticated. Every transition,
// whether caused by Login/Logout/Restore or by an event coming from the
// remote client (token expiry, sign-out on another device, profile update),
// goes through setState so observers see one consistent stream.
package auth

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/compress"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/storage"
	"github.com/anoixa/image-gallery/utils"
	"github.com/anoixa/image-gallery/utils/generator"
	"github.com/anoixa/image-gallery/utils/validator"
)

const (
	// MinPasswordLength 注册时的最短密码
	MinPasswordLength = 6

	maxDisplayNameLength = 50
	maxBioLength         = 500
	maxLocationLength    = 100
)

// DefaultAvatarOptions 头像压缩参数
var DefaultAvatarOptions = compress.Options{MaxDimension: 200, Quality: 80}

// Options 管理器依赖，零值字段使用默认实现
type Options struct {
	Compressor *compress.Compressor
	Paths      *generator.PathGenerator
	Avatar     compress.Options
}

// Backend 管理器依赖的远端能力，由 *remote.Client 实现
type Backend interface {
	SignUp(ctx context.Context, email, password string, meta remote.SignUpMeta) (*models.User, error)
	SignIn(ctx context.Context, email, password, clientIP string) (*remote.Session, error)
	SignOut(ctx context.Context, session *remote.Session, scope remote.Scope) error
	CurrentSession(ctx context.Context, accessToken string) (*remote.Session, error)
	UpdateUser(ctx context.Context, session *remote.Session, update remote.UserUpdate) (*models.User, error)
	UploadObject(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
	OnAuthStateChange(fn remote.AuthListener) func()
}

// State 对外暴露的认证状态
type State struct {
	Authenticated bool
	User          *models.User
}

// Listener 状态观察者，同步调用
// 回调里不能再调用 Login/Logout 等会改变状态的方法
type Listener func(State)

type subscriber struct {
	id uint64
	fn Listener
}

// ProfileUpdate 资料修改，nil 字段保持不变
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Website     *string
	Location    *string
}

// Manager 单个浏览器会话的认证状态
type Manager struct {
	backend    Backend
	compressor *compress.Compressor
	paths      *generator.PathGenerator
	avatar     compress.Options

	mu      sync.RWMutex
	session *remote.Session

	// notifyMu 串行化状态变更与通知，保证观察者看到的顺序与变更顺序一致
	notifyMu    sync.Mutex
	subsMu      sync.Mutex
	nextID      uint64
	subscribers []subscriber

	unsubscribeRemote func()
	closeOnce         sync.Once
}

// NewManager 创建认证管理器并订阅远端认证事件
func NewManager(backend Backend, opts Options) *Manager {
	if opts.Compressor == nil {
		opts.Compressor = compress.Default()
	}
	if opts.Paths == nil {
		opts.Paths = generator.NewPathGenerator()
	}
	if opts.Avatar.MaxDimension <= 0 {
		opts.Avatar = DefaultAvatarOptions
	}
	m := &Manager{
		backend:    backend,
		compressor: opts.Compressor,
		paths:      opts.Paths,
		avatar:     opts.Avatar,
	}
	m.unsubscribeRemote = backend.OnAuthStateChange(m.onRemoteChange)
	return m
}

// Close 取消远端事件订阅
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribeRemote != nil {
			m.unsubscribeRemote()
		}
	})
}

// State 当前状态
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return stateOf(m.session)
}

// CurrentUser 当前用户，匿名时为 nil
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	return m.session.User
}

// Session 当前会话的拷贝，匿名时为 nil
func (m *Manager) Session() *remote.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// AccessToken 当前访问令牌
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// Subscribe 注册观察者并立即回放当前状态
func (m *Manager) Subscribe(fn Listener) func() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.subsMu.Lock()
	m.nextID++
	id := m.nextID
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	m.subsMu.Unlock()

	fn(m.State())

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			for i, sub := range m.subscribers {
				if sub.id == id {
					m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// SubscriberCount 观察者数量
func (m *Manager) SubscriberCount() int {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	return len(m.subscribers)
}

// setState 唯一修改会话的路径
// guard 非 nil 时，只有 guard(当前会话) 为 true 才会切换
func (m *Manager) setState(next *remote.Session, guard func(current *remote.Session) bool) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	prev := m.session
	if guard != nil && !guard(prev) {
		m.mu.Unlock()
		return false
	}
	m.session = next
	changed := stateChanged(prev, next)
	state := stateOf(next)
	m.mu.Unlock()

	if !changed {
		return false
	}

	m.subsMu.Lock()
	subs := make([]subscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
	return true
}

func stateOf(s *remote.Session) State {
	if s == nil || s.User == nil {
		return State{}
	}
	return State{Authenticated: true, User: s.User}
}

func stateChanged(prev, next *remote.Session) bool {
	switch {
	case prev == nil && next == nil:
		return false
	case prev == nil || next == nil:
		return true
	default:
		return prev.User != next.User
	}
}

// onRemoteChange 远端事件驱动状态切换
func (m *Manager) onRemoteChange(change remote.AuthChange) {
	switch change.Event {
	case remote.EventSignedOut, remote.EventTokenExpired:
		m.setState(nil, func(current *remote.Session) bool {
			return current != nil && current.User != nil && change.Affects(current.User.ID, current.TokenID)
		})

	case remote.EventUserUpdated:
		if change.User == nil {
			return
		}
		m.mu.RLock()
		current := m.session
		m.mu.RUnlock()
		if current == nil || current.User == nil || current.User.ID != change.UserID {
			return
		}
		next := *current
		next.User = change.User
		m.setState(&next, func(s *remote.Session) bool { return s == current })
	}
}

// Login 邮箱密码登录
func (m *Manager) Login(ctx context.Context, email, password, clientIP string) (*models.User, error) {
	const op = "login"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation(op, "email and password are required")
	}

	session, err := m.backend.SignIn(ctx, email, password, clientIP)
	if err != nil {
		return nil, err
	}

	m.setState(session, nil)
	utils.LogIfDevf("[Auth] Session established for user %s", session.User.ID)
	return session.User, nil
}

// Register 注册新账号，不改变当前状态
func (m *Manager) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	const op = "register"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation(op, "email and password are required")
	}
	if _, err := validator.NormalizeEmail(email); err != nil {
		return nil, apperr.Validation(op, "email address is not valid")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperr.Validation(op, "password must be at least 6 characters")
	}
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, apperr.Validation(op, "display name is too long")
	}

	return m.backend.SignUp(ctx, email, password, remote.SignUpMeta{DisplayName: displayName})
}

// Logout 注销，远端失败时保持原状态
func (m *Manager) Logout(ctx context.Context, scope remote.Scope) error {
	session := m.Session()
	if session == nil {
		return nil
	}

	if err := m.backend.SignOut(ctx, session, scope); err != nil {
		return err
	}

	m.setState(nil, func(current *remote.Session) bool {
		return current != nil && current.TokenID == session.TokenID
	})
	return nil
}

// Restore 用 cookie 中的令牌恢复会话，失败后为匿名状态
func (m *Manager) Restore(ctx context.Context, accessToken string) (*models.User, error) {
	session, err := m.backend.CurrentSession(ctx, accessToken)
	if err != nil {
		m.setState(nil, nil)
		if apperr.KindOf(err) == apperr.KindAuth {
			return nil, err
		}
		return nil, apperr.Auth("restore session", "could not restore session", err)
	}

	m.setState(session, nil)
	return session.User, nil
}

func (m *Manager) requireSession(op string) (*remote.Session, error) {
	session := m.Session()
	if session == nil {
		return nil, apperr.AuthRequired(op)
	}
	return session, nil
}

// UpdateProfile 修改个人资料
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.User, error) {
	const op = "update profile"

	session, err := m.requireSession(op)
	if err != nil {
		return nil, err
	}

	var remoteUpdate remote.UserUpdate
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, apperr.Validation(op, "display name is required")
		}
		if utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, apperr.Validation(op, "display name is too long")
		}
		remoteUpdate.DisplayName = &name
	}
	if update.Bio != nil {
		bio := strings.TrimSpace(*update.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, apperr.Validation(op, "bio is too long")
		}
		remoteUpdate.Bio = &bio
	}
	if update.Website != nil {
		website := strings.TrimSpace(*update.Website)
		if !validator.IsWebsiteURL(website) {
			return nil, apperr.Validation(op, "website must be an http(s) URL")
		}
		remoteUpdate.Website = &website
	}
	if update.Location != nil {
		location := strings.TrimSpace(*update.Location)
		if utf8.RuneCountInString(location) > maxLocationLength {
			return nil, apperr.Validation(op, "location is too long")
		}
		remoteUpdate.Location = &location
	}

	return m.backend.UpdateUser(ctx, session, remoteUpdate)
}

// UploadAvatar 压缩头像并更新资料中的头像地址
func (m *Manager) UploadAvatar(ctx context.Context, r io.Reader, filename string) (*models.User, error) {
	const op = "upload avatar"

	session, err := m.requireSession(op)
	if err != nil {
		return nil, err
	}

	result, err := m.compressor.Compress(r, m.avatar)
	if err != nil {
		return nil, err
	}

	key := m.paths.ImagePath(session.User.ID, filename, compress.Extension)
	if err := m.backend.UploadObject(ctx, storage.BucketAvatars, key, result.Reader(), int64(len(result.Data)), compress.ContentType); err != nil {
		return nil, err
	}

	avatarURL := m.backend.PublicURL(storage.BucketAvatars, key)
	user, err := m.backend.UpdateUser(ctx, session, remote.UserUpdate{AvatarURL: &avatarURL})
	if err != nil {
		if rmErr := m.backend.RemoveObject(context.WithoutCancel(ctx), storage.BucketAvatars, key); rmErr != nil {
			log.Printf("[Auth] Failed to remove orphaned avatar %s: %v", key, rmErr)
		}
		return nil, err
	}
	return user, nil
}
