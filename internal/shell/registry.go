package shell

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/anoixa/image-gallery/utils"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	sessionIDBytes     = 24
)

var errRegistryClosed = errors.New("session registry is closed")

// Registry 按会话 id 管理 Shell，空闲超时的会话被回收
type Registry struct {
	deps Deps
	idle time.Duration
	now  func() time.Time

	mu     sync.Mutex
	shells map[string]*Shell
	closed bool

	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

// NewRegistry 创建会话注册表
func NewRegistry(deps Deps, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Registry{
		deps:   deps,
		idle:   idle,
		now:    time.Now,
		shells: make(map[string]*Shell),
	}
}

// Get 查找会话并刷新访问时间
func (r *Registry) Get(id string) (*Shell, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shells[id]
	if ok {
		s.Touch(r.now())
	}
	return s, ok
}

// Create 以随机 id 创建新会话
func (r *Registry) Create() (*Shell, error) {
	id, err := utils.GenerateRandomToken(sessionIDBytes)
	if err != nil {
		return nil, err
	}
	s := New(id, r.deps)
	s.Touch(r.now())

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Close()
		return nil, errRegistryClosed
	}
	r.shells[id] = s
	r.mu.Unlock()

	utils.LogIfDevf("[Shell] session %s created", id)
	return s, nil
}

// Acquire 取已有会话，不存在时新建，created 表示是否新建
func (r *Registry) Acquire(id string) (s *Shell, created bool, err error) {
	if s, ok := r.Get(id); ok {
		return s, false, nil
	}
	s, err = r.Create()
	return s, err == nil, err
}

// Remove 关闭并移除会话
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.shells[id]
	delete(r.shells, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shells)
}

// Sweep 回收空闲会话，返回回收数量
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	var expired []*Shell
	r.mu.Lock()
	for id, s := range r.shells {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(r.shells, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		log.Printf("[Shell] evicted %d idle sessions", len(expired))
	}
	return len(expired)
}

// StartJanitor 后台定期回收，间隔为空闲超时的一半
func (r *Registry) StartJanitor() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	if r.stopJanitor != nil || r.closed {
		r.mu.Unlock()
		cancel()
		return
	}
	r.stopJanitor = cancel
	r.janitorDone = done
	r.mu.Unlock()

	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}

	utils.SafeGo(func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	})
}

// Close 停止回收并关闭全部会话
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stop, done := r.stopJanitor, r.janitorDone
	shells := r.shells
	r.shells = make(map[string]*Shell)
	r.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	for _, s := range shells {
		s.Close()
	}
	log.Printf("[Shell] registry closed, %d sessions released", len(shells))
}
