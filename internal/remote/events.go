package remote

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/utils"
)

// AuthEvent 认证状态变化类型
type AuthEvent string

const (
	EventSignedIn     AuthEvent = "SIGNED_IN"
	EventSignedOut    AuthEvent = "SIGNED_OUT"
	EventTokenExpired AuthEvent = "TOKEN_EXPIRED"
	EventUserUpdated  AuthEvent = "USER_UPDATED"
)

// AuthChange 认证事件
// TokenID 为空表示该用户的全部会话
type AuthChange struct {
	Event   AuthEvent    `json:"event"`
	UserID  string       `json:"user_id"`
	TokenID string       `json:"token_id,omitempty"`
	User    *models.User `json:"user,omitempty"`
	Origin  string       `json:"origin"`
}

// Affects 判断事件是否作用于给定会话
func (c AuthChange) Affects(userID, tokenID string) bool {
	if c.UserID != userID {
		return false
	}
	return c.TokenID == "" || c.TokenID == tokenID
}

// AuthListener 认证事件回调，同步调用，不应阻塞
type AuthListener func(AuthChange)

type eventHub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]AuthListener
}

func newEventHub() *eventHub {
	return &eventHub{listeners: make(map[uint64]AuthListener)}
}

func (h *eventHub) subscribe(fn AuthListener) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// dispatch 按订阅顺序依次回调
func (h *eventHub) dispatch(change AuthChange) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]AuthListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.listeners[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (h *eventHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// OnAuthStateChange 订阅认证事件，返回取消订阅函数
func (c *Client) OnAuthStateChange(fn AuthListener) func() {
	return c.hub.subscribe(fn)
}

// emit 本地分发并广播到其他实例
func (c *Client) emit(change AuthChange) {
	change.Origin = c.instanceID
	utils.LogIfDevf("[Remote] Auth event %s user=%s token=%s", change.Event, change.UserID, change.TokenID)

	c.hub.dispatch(change)

	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(change)
	if err != nil {
		log.Printf("[Remote] Failed to encode auth event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.cache.Publish(ctx, cache.AuthEventsChannel, payload); err != nil {
		log.Printf("[Remote] Failed to publish auth event: %v", err)
	}
}

// startRelay 转发其他实例发出的认证事件
func (c *Client) startRelay() error {
	ctx, cancel := context.WithCancel(context.Background())
	ch, unsubscribe, err := c.cache.Subscribe(ctx, cache.AuthEventsChannel)
	if err != nil {
		cancel()
		return err
	}
	c.relayCancel = func() {
		cancel()
		unsubscribe()
	}

	utils.SafeGo(func() {
		for payload := range ch {
			var change AuthChange
			if err := json.Unmarshal(payload, &change); err != nil {
				log.Printf("[Remote] Dropping malformed auth event: %v", err)
				continue
			}
			if change.Origin == c.instanceID {
				continue
			}
			c.hub.dispatch(change)
		}
	})
	return nil
}

// scheduleExpiry 令牌到期时发出 TOKEN_EXPIRED
func (c *Client) scheduleExpiry(userID, tokenID string, expiresAt time.Time) {
	delay := expiresAt.Sub(c.now())
	if delay < 0 {
		delay = 0
	}

	c.timersMu.Lock()
	defer c.timersMu.Unlock()

	if old, ok := c.timers[tokenID]; ok {
		old.timer.Stop()
	}

	entry := &sessionTimer{userID: userID}
	entry.timer = time.AfterFunc(delay, func() {
		c.timersMu.Lock()
		current, ok := c.timers[tokenID]
		if !ok || current != entry {
			c.timersMu.Unlock()
			return
		}
		delete(c.timers, tokenID)
		c.timersMu.Unlock()

		c.emit(AuthChange{Event: EventTokenExpired, UserID: userID, TokenID: tokenID})
	})
	c.timers[tokenID] = entry
}

func (c *Client) cancelExpiry(tokenID string) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if t, ok := c.timers[tokenID]; ok {
		t.timer.Stop()
		delete(c.timers, tokenID)
	}
}

// cancelUserExpiries 全局登出后不再为该用户发出过期事件
func (c *Client) cancelUserExpiries(userID string) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	for tokenID, t := range c.timers {
		if t.userID == userID {
			t.timer.Stop()
			delete(c.timers, tokenID)
		}
	}
}

type sessionTimer struct {
	userID string
	timer  *time.Timer
}
