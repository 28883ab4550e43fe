package remote

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func signUp(t *testing.T, env *testEnv, email, password string) *models.User {
	t.Helper()
	user, err := env.client.SignUp(context.Background(), email, password, SignUpMeta{DisplayName: "Tester"})
	require.NoError(t, err)
	return user
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := signUp(t, env, "  Alice@Example.com ", "secret123")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.Confirmed())
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$argon2id$"))
	require.NotNil(t, user.Profile)
	assert.Equal(t, "Tester", user.Profile.DisplayName)

	_, err := env.client.SignUp(ctx, "alice@example.com", "another123", SignUpMeta{})
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	_, err = env.client.SignUp(ctx, "bob@example.com", "123", SignUpMeta{})
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	_, err = env.client.SignUp(ctx, "not-an-email", "secret123", SignUpMeta{})
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
}

func TestSignIn_SuccessAndFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := signUp(t, env, "alice@example.com", "secret123")

	session, err := env.client.SignIn(ctx, "ALICE@example.com", "secret123", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.TokenID)
	assert.Equal(t, user.ID, session.User.ID)
	assert.NotNil(t, session.User.LastSignInAt)

	_, err = env.client.SignIn(ctx, "alice@example.com", "wrong-password", "10.0.0.1")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
	assert.Equal(t, msgInvalidCredentials, apperr.UserMessage(err))

	_, err = env.client.SignIn(ctx, "nobody@example.com", "secret123", "10.0.0.1")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	var attempts []models.LoginAttempt
	require.NoError(t, env.db.DB().Order("id").Find(&attempts).Error)
	require.Len(t, attempts, 3)
	assert.True(t, attempts[0].Success)
	assert.False(t, attempts[1].Success)
	assert.Equal(t, user.ID, attempts[1].UserID)
	assert.Equal(t, "", attempts[2].UserID)
	assert.Equal(t, "10.0.0.1", attempts[2].ClientIP)
}

func TestSignIn_Unconfirmed(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AutoConfirm = false })
	ctx := context.Background()
	signUp(t, env, "carol@example.com", "secret123")

	_, err := env.client.SignIn(ctx, "carol@example.com", "secret123", "")
	require.True(t, apperr.IsKind(err, apperr.KindAuth))
	assert.Equal(t, msgNotConfirmed, apperr.UserMessage(err))

	require.NoError(t, env.client.ConfirmUser(ctx, "carol@example.com"))
	_, err = env.client.SignIn(ctx, "carol@example.com", "secret123", "")
	assert.NoError(t, err)
}

func TestSignIn_LegacyBcryptIsRehashed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported1"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	user := &models.User{Email: "legacy@example.com", PasswordHash: string(legacy), EmailConfirmedAt: &now}
	require.NoError(t, env.db.DB().Create(user).Error)

	_, err = env.client.SignIn(ctx, "legacy@example.com", "imported1", "")
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, env.db.DB().Where("id = ?", user.ID).Take(&reloaded).Error)
	assert.True(t, strings.HasPrefix(reloaded.PasswordHash, "$argon2id$"))

	_, err = env.client.SignIn(ctx, "legacy@example.com", "imported1", "")
	assert.NoError(t, err)
}

func TestCurrentSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")
	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)

	restored, err := env.client.CurrentSession(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.TokenID, restored.TokenID)
	assert.Equal(t, session.User.ID, restored.User.ID)
	require.NotNil(t, restored.User.Profile)

	for _, token := range []string{"", "garbage", session.AccessToken + "x"} {
		_, err := env.client.CurrentSession(ctx, token)
		assert.True(t, apperr.IsKind(err, apperr.KindAuth), token)
	}
}

func TestCurrentSession_Expired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")
	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)

	env.client.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err = env.client.CurrentSession(ctx, session.AccessToken)
	require.True(t, apperr.IsKind(err, apperr.KindAuth))
	assert.Equal(t, msgSessionExpired, apperr.UserMessage(err))
}

func TestSignOut_Local(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")

	s1, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	s2, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)

	require.NoError(t, env.client.SignOut(ctx, s1, ScopeLocal))

	_, err = env.client.CurrentSession(ctx, s1.AccessToken)
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
	_, err = env.client.CurrentSession(ctx, s2.AccessToken)
	assert.NoError(t, err)

	assert.True(t, apperr.IsKind(env.client.SignOut(ctx, nil, ScopeLocal), apperr.KindAuth))
}

func TestSignOut_Global(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")
	signUp(t, env, "bob@example.com", "secret123")

	s1, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	s2, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	bob, err := env.client.SignIn(ctx, "bob@example.com", "secret123", "")
	require.NoError(t, err)

	require.NoError(t, env.client.SignOut(ctx, s1, ScopeGlobal))

	_, err = env.client.CurrentSession(ctx, s1.AccessToken)
	assert.Error(t, err)
	_, err = env.client.CurrentSession(ctx, s2.AccessToken)
	assert.Error(t, err)
	_, err = env.client.CurrentSession(ctx, bob.AccessToken)
	assert.NoError(t, err)

	// 全局登出之后签发的令牌不受影响
	env.client.SetClock(func() time.Time { return time.Now().Add(time.Second) })
	s3, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)
	_, err = env.client.CurrentSession(ctx, s3.AccessToken)
	assert.NoError(t, err)
}

// droppingCache 模拟缓存静默丢弃写入
type droppingCache struct {
	*cache.Memory
}

func (droppingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func TestSignOut_SurvivesDroppedCacheWrites(t *testing.T) {
	for _, scope := range []Scope{ScopeLocal, ScopeGlobal} {
		t.Run(string(scope), func(t *testing.T) {
			env := newTestEnv(t)
			client, err := New(env.db, env.store, droppingCache{env.cache}, testOptions())
			require.NoError(t, err)
			t.Cleanup(client.Close)
			ctx := context.Background()

			_, err = client.SignUp(ctx, "alice@example.com", "secret123", SignUpMeta{})
			require.NoError(t, err)
			session, err := client.SignIn(ctx, "alice@example.com", "secret123", "")
			require.NoError(t, err)

			require.NoError(t, client.SignOut(ctx, session, scope))

			_, err = client.CurrentSession(ctx, session.AccessToken)
			require.True(t, apperr.IsKind(err, apperr.KindAuth))
			assert.Equal(t, msgSessionExpired, apperr.UserMessage(err))

			// 另一个实例（没有缓存）同样拒绝
			other, err := New(env.db, env.store, nil, testOptions())
			require.NoError(t, err)
			t.Cleanup(other.Close)
			_, err = other.CurrentSession(ctx, session.AccessToken)
			assert.True(t, apperr.IsKind(err, apperr.KindAuth))
		})
	}
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com", "secret123")
	session, err := env.client.SignIn(ctx, "alice@example.com", "secret123", "")
	require.NoError(t, err)

	var mu sync.Mutex
	var events []AuthChange
	unsubscribe := env.client.OnAuthStateChange(func(change AuthChange) {
		mu.Lock()
		events = append(events, change)
		mu.Unlock()
	})
	defer unsubscribe()

	name, bio := "Alice A.", "I shoot film"
	user, err := env.client.UpdateUser(ctx, session, UserUpdate{DisplayName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", user.Profile.DisplayName)
	assert.Equal(t, "I shoot film", user.Profile.Bio)
	assert.Equal(t, session.User.ID, user.ID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserUpdated, events[0].Event)
	assert.Equal(t, "Alice A.", events[0].User.DisplayName())
}

func TestUpdateUser_CreatesMissingProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now()
	user := &models.User{Email: "noprofile@example.com", PasswordHash: "x", EmailConfirmedAt: &now}
	require.NoError(t, env.db.DB().Create(user).Error)

	loc := "Lisbon"
	updated, err := env.client.UpdateUser(ctx, &Session{User: user}, UserUpdate{Location: &loc})
	require.NoError(t, err)
	require.NotNil(t, updated.Profile)
	assert.Equal(t, "Lisbon", updated.Profile.Location)
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := signUp(t, env, "admin@example.com", "secret123")

	require.NoError(t, env.client.SetRole(ctx, "admin@example.com", models.RoleAdmin))
	reloaded, err := env.client.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin())

	assert.True(t, apperr.IsKind(env.client.SetRole(ctx, "admin@example.com", "root"), apperr.KindValidation))
	assert.Error(t, env.client.SetRole(ctx, "ghost@example.com", models.RoleAdmin))
}
