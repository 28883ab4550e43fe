package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []AuthChange
}

func (r *recorder) listen(change AuthChange) {
	r.mu.Lock()
	r.events = append(r.events, change)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []AuthChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuthChange(nil), r.events...)
}

func (r *recorder) kinds() []AuthEvent {
	var out []AuthEvent
	for _, e := range r.snapshot() {
		out = append(out, e.Event)
	}
	return out
}

func TestOnAuthStateChange_OrderAndUnsubscribe(t *testing.T) {
	env := newTestEnv(t)

	var order []int
	un1 := env.client.OnAuthStateChange(func(AuthChange) { order = append(order, 1) })
	un2 := env.client.OnAuthStateChange(func(AuthChange) { order = append(order, 2) })
	un3 := env.client.OnAuthStateChange(func(AuthChange) { order = append(order, 3) })

	env.client.emit(AuthChange{Event: EventUserUpdated, UserID: "u"})
	assert.Equal(t, []int{1, 2, 3}, order)

	un2()
	un2()
	order = nil
	env.client.emit(AuthChange{Event: EventUserUpdated, UserID: "u"})
	assert.Equal(t, []int{1, 3}, order)

	un1()
	un3()
	assert.Equal(t, 0, env.client.hub.count())
}

func TestAuthEvents_SignInAndOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")

	rec := &recorder{}
	defer env.client.OnAuthStateChange(rec.listen)()

	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, env.client.SignOut(ctx, session, ScopeLocal))

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventSignedIn, events[0].Event)
	assert.Equal(t, session.TokenID, events[0].TokenID)
	assert.Equal(t, EventSignedOut, events[1].Event)
	assert.True(t, events[1].Affects(session.User.ID, session.TokenID))
	assert.False(t, events[1].Affects(session.User.ID, "other-token"))
}

func TestAuthEvents_TokenExpired(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AccessTokenTTL = 50 * time.Millisecond })
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")

	rec := &recorder{}
	defer env.client.OnAuthStateChange(rec.listen)()

	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, e := range rec.snapshot() {
			if e.Event == EventTokenExpired && e.TokenID == session.TokenID {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestAuthEvents_SignOutCancelsExpiry(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AccessTokenTTL = 1500 * time.Millisecond })
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")

	rec := &recorder{}
	defer env.client.OnAuthStateChange(rec.listen)()

	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, env.client.SignOut(ctx, session, ScopeGlobal))

	env.client.timersMu.Lock()
	remaining := len(env.client.timers)
	env.client.timersMu.Unlock()
	assert.Zero(t, remaining)
	assert.Equal(t, []AuthEvent{EventSignedIn, EventSignedOut}, rec.kinds())
}

func TestAuthEvents_RelayedAcrossInstances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")

	// 第二个实例共享数据库与缓存
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	other, err := New(env.db, store, env.cache, testOptions())
	require.NoError(t, err)
	defer other.Close()

	local := &recorder{}
	remote := &recorder{}
	defer env.client.OnAuthStateChange(local.listen)()
	defer other.OnAuthStateChange(remote.listen)()

	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, env.client.SignOut(ctx, session, ScopeGlobal))

	require.Eventually(t, func() bool {
		return len(remote.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []AuthEvent{EventSignedIn, EventSignedOut}, remote.kinds())
	// 本实例不会收到自己广播的副本
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []AuthEvent{EventSignedIn, EventSignedOut}, local.kinds())
}
