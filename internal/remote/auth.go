package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/utils"
	cryptopackage "github.com/anoixa/image-gallery/utils/crypto"
	"github.com/anoixa/image-gallery/utils/validator"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope 登出范围
type Scope string

const (
	// ScopeLocal 只注销当前会话
	ScopeLocal Scope = "local"
	// ScopeGlobal 注销该用户的全部会话
	ScopeGlobal Scope = "global"
)

const (
	msgInvalidCredentials = "invalid login credentials"
	msgNotConfirmed       = "email not confirmed"
	msgSessionExpired     = "your session has expired, please sign in again"
	msgSessionInvalid     = "invalid session"
)

// Session 已认证的会话
type Session struct {
	AccessToken string
	TokenID     string
	ExpiresAt   time.Time
	User        *models.User
}

// SignUpMeta 注册时附带的资料
type SignUpMeta struct {
	DisplayName string
}

// UserUpdate 资料更新，nil 字段保持不变
type UserUpdate struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
	Website     *string
	Location    *string
}

func (u UserUpdate) values() map[string]interface{} {
	values := make(map[string]interface{})
	if u.DisplayName != nil {
		values["display_name"] = *u.DisplayName
	}
	if u.AvatarURL != nil {
		values["avatar_url"] = *u.AvatarURL
	}
	if u.Bio != nil {
		values["bio"] = *u.Bio
	}
	if u.Website != nil {
		values["website"] = *u.Website
	}
	if u.Location != nil {
		values["location"] = *u.Location
	}
	return values
}

func (c *Client) hashPassword(password string) (string, error) {
	if c.opts.HashParams != nil {
		return cryptopackage.HashPasswordWith(password, *c.opts.HashParams)
	}
	return cryptopackage.HashPassword(password)
}

// SignUp 创建账号，不会建立会话
func (c *Client) SignUp(ctx context.Context, email, password string, meta SignUpMeta) (*models.User, error) {
	const op = "sign up"

	email, err := validator.NormalizeEmail(email)
	if err != nil {
		return nil, apperr.Auth(op, "unable to validate email address: invalid format", err)
	}
	if len(password) < c.opts.MinPasswordLength {
		return nil, apperr.Auth(op, fmt.Sprintf("password should be at least %d characters", c.opts.MinPasswordLength), nil)
	}

	existing, err := c.findUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Query(op, err)
	}
	if existing != nil {
		return nil, apperr.Auth(op, "user already registered", nil)
	}

	hash, err := c.hashPassword(password)
	if err != nil {
		return nil, apperr.Write(op, err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if c.opts.AutoConfirm {
		now := c.now()
		user.EmailConfirmedAt = &now
	}

	displayName := strings.TrimSpace(meta.DisplayName)
	err = c.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID, DisplayName: displayName}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, apperr.Write(op, err)
	}

	log.Printf("[Auth] Registered user %s (%s)", user.ID, utils.SanitizeLogEmail(email))
	return user, nil
}

// SignIn 邮箱密码登录
func (c *Client) SignIn(ctx context.Context, email, password, clientIP string) (*Session, error) {
	const op = "sign in"

	email = normalizeEmail(email)
	user, err := c.findUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Query(op, err)
	}
	if user == nil {
		c.recordAttempt(ctx, email, "", false, "user not found", clientIP)
		return nil, apperr.Auth(op, msgInvalidCredentials, nil)
	}

	ok, err := cryptopackage.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		log.Printf("[Auth] Password check failed for user %s: %v", user.ID, err)
	}
	if !ok {
		c.recordAttempt(ctx, email, user.ID, false, msgInvalidCredentials, clientIP)
		return nil, apperr.Auth(op, msgInvalidCredentials, nil)
	}
	if !user.Confirmed() {
		c.recordAttempt(ctx, email, user.ID, false, msgNotConfirmed, clientIP)
		return nil, apperr.Auth(op, msgNotConfirmed, nil)
	}

	now := c.now()
	updates := map[string]interface{}{"last_sign_in_at": now}
	if cryptopackage.IsBcryptHash(user.PasswordHash) {
		if rehashed, err := c.hashPassword(password); err == nil {
			updates["password_hash"] = rehashed
		}
	}
	if err := c.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		log.Printf("[Auth] Failed to update sign-in metadata for %s: %v", user.ID, err)
	} else {
		user.LastSignInAt = &now
	}

	session, err := c.newSession(user)
	if err != nil {
		return nil, apperr.Auth(op, "could not create session", err)
	}
	c.recordAttempt(ctx, email, user.ID, true, "", clientIP)

	c.emit(AuthChange{Event: EventSignedIn, UserID: user.ID, TokenID: session.TokenID, User: user})
	return session, nil
}

func (c *Client) newSession(user *models.User) (*Session, error) {
	token, claims, err := c.tokens.issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	session := &Session{
		AccessToken: token,
		TokenID:     claims.TokenID,
		ExpiresAt:   claims.expiresAt(),
		User:        user,
	}
	c.scheduleExpiry(user.ID, session.TokenID, session.ExpiresAt)
	return session, nil
}

// SignOut 注销会话，global 时该用户所有已签发的令牌失效
func (c *Client) SignOut(ctx context.Context, session *Session, scope Scope) error {
	const op = "sign out"

	if session == nil || session.User == nil {
		return apperr.Auth(op, msgSessionInvalid, nil)
	}
	userID := session.User.ID

	switch scope {
	case ScopeGlobal:
		epoch := c.now().UnixMilli()
		if _, err := Update[models.User](ctx, c, map[string]interface{}{"sessions_revoked_at": epoch}, Eq("id", userID)); err != nil {
			return apperr.Auth(op, "could not revoke sessions", err)
		}
		c.cancelUserExpiries(userID)
		c.emit(AuthChange{Event: EventSignedOut, UserID: userID})

	default:
		ttl := session.ExpiresAt.Sub(c.now())
		if ttl > 0 {
			revoked := &models.RevokedToken{TokenID: session.TokenID, UserID: userID, ExpiresAt: session.ExpiresAt}
			if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(revoked).Error; err != nil {
				return apperr.Auth(op, "could not revoke session", err)
			}
			c.cacheRevocation(ctx, session.TokenID, ttl)
		}
		c.cancelExpiry(session.TokenID)
		c.emit(AuthChange{Event: EventSignedOut, UserID: userID, TokenID: session.TokenID})
	}
	return nil
}

// cacheRevocation 缓存只用于加速校验，写入失败时以数据库为准
func (c *Client) cacheRevocation(ctx context.Context, tokenID string, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cache.RevokedToken.Build(tokenID), true, ttl); err != nil {
		log.Printf("[Auth] Failed to cache revoked token %s: %v", tokenID, err)
	}
}

// CurrentSession 校验访问令牌并加载用户
func (c *Client) CurrentSession(ctx context.Context, accessToken string) (*Session, error) {
	const op = "get session"

	if accessToken == "" {
		return nil, apperr.Auth(op, msgSessionInvalid, nil)
	}

	claims, err := c.tokens.parse(accessToken)
	if err != nil {
		if errors.Is(err, errTokenExpired) {
			return nil, apperr.Auth(op, msgSessionExpired, err)
		}
		return nil, apperr.Auth(op, msgSessionInvalid, err)
	}

	user, err := c.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Auth(op, msgSessionInvalid, err)
		}
		return nil, err
	}

	revoked, err := c.isRevoked(ctx, claims, user)
	if err != nil {
		return nil, apperr.Auth(op, "could not verify session", err)
	}
	if revoked {
		return nil, apperr.Auth(op, msgSessionExpired, nil)
	}

	session := &Session{
		AccessToken: accessToken,
		TokenID:     claims.TokenID,
		ExpiresAt:   claims.expiresAt(),
		User:        user,
	}
	c.scheduleExpiry(user.ID, session.TokenID, session.ExpiresAt)
	return session, nil
}

func (c *Client) isRevoked(ctx context.Context, claims *tokenClaims, user *models.User) (bool, error) {
	if claims.IssuedMs <= user.SessionsRevokedAt {
		return true, nil
	}

	if c.cache != nil {
		hit, err := c.cache.Exists(ctx, cache.RevokedToken.Build(claims.TokenID))
		if err != nil {
			log.Printf("[Auth] Revocation cache lookup failed: %v", err)
		} else if hit {
			return true, nil
		}
	}

	var count int64
	err := c.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("token_id = ?", claims.TokenID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateUser 更新当前用户资料
func (c *Client) UpdateUser(ctx context.Context, session *Session, update UserUpdate) (*models.User, error) {
	const op = "update user"

	if session == nil || session.User == nil {
		return nil, apperr.Auth(op, msgSessionInvalid, nil)
	}
	userID := session.User.ID

	values := update.values()
	if len(values) > 0 {
		db := c.db.WithContext(ctx)
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Profile{UserID: userID}).Error; err != nil {
			return nil, apperr.Write(op, err)
		}
		if _, err := Update[models.Profile](ctx, c, values, Eq("user_id", userID)); err != nil {
			return nil, err
		}
	}

	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.emit(AuthChange{Event: EventUserUpdated, UserID: userID, User: user})
	return user, nil
}

// GetUser 按 ID 加载用户及资料
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := c.db.WithContext(ctx).Preload("Profile").Where("id = ?", id).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Query("get user", apperr.ErrNotFound)
		}
		return nil, apperr.Query("get user", err)
	}
	return &user, nil
}

// ConfirmUser 标记邮箱已确认
func (c *Client) ConfirmUser(ctx context.Context, email string) error {
	now := c.now()
	_, err := Update[models.User](ctx, c, map[string]interface{}{"email_confirmed_at": now}, Eq("email", normalizeEmail(email)))
	return err
}

// SetRole 修改用户角色
func (c *Client) SetRole(ctx context.Context, email, role string) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return apperr.Validation("set role", fmt.Sprintf("unknown role %q", role))
	}
	_, err := Update[models.User](ctx, c, map[string]interface{}{"role": role}, Eq("email", normalizeEmail(email)))
	return err
}

// normalizeEmail 查询用，格式非法时只做大小写与空白处理
func normalizeEmail(email string) string {
	if normalized, err := validator.NormalizeEmail(email); err == nil {
		return normalized
	}
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Client) findUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := c.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// recordAttempt 记录登录尝试，失败只记日志
func (c *Client) recordAttempt(ctx context.Context, email, userID string, success bool, reason, clientIP string) {
	attempt := &models.LoginAttempt{
		Email:    email,
		UserID:   userID,
		Success:  success,
		Reason:   reason,
		ClientIP: clientIP,
	}
	if err := Insert(ctx, c, attempt); err != nil {
		log.Printf("[Auth] Failed to record login attempt for %s: %v", utils.SanitizeLogEmail(email), err)
	}
}
