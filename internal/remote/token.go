package remote

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// tokenClaims 访问令牌中携带的声明
type tokenClaims struct {
	Subject   string `mapstructure:"sub"`
	Email     string `mapstructure:"email"`
	Role      string `mapstructure:"role"`
	Type      string `mapstructure:"type"`
	TokenID   string `mapstructure:"jti"`
	IssuedAt  int64  `mapstructure:"iat"`
	ExpiresAt int64  `mapstructure:"exp"`
	// IssuedMs 毫秒精度的签发时间，用于与全局登出时间点比较
	IssuedMs int64 `mapstructure:"iat_ms"`
}

var (
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
)

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(secret []byte, ttl time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{secret: secret, ttl: ttl, now: now}
}

// issue 签发 HS256 访问令牌
func (t *tokenIssuer) issue(userID, email, role string) (string, *tokenClaims, error) {
	now := t.now()
	claims := &tokenClaims{
		Subject:   userID,
		Email:     email,
		Role:      role,
		Type:      "access",
		TokenID:   uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(t.ttl).Unix(),
		IssuedMs:  now.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    claims.Subject,
		"email":  claims.Email,
		"role":   claims.Role,
		"type":   claims.Type,
		"jti":    claims.TokenID,
		"iat":    claims.IssuedAt,
		"exp":    claims.ExpiresAt,
		"iat_ms": claims.IssuedMs,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return signed, claims, nil
}

// parse 校验签名与过期时间并解码声明
func (t *tokenIssuer) parse(tokenString string) (*tokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithJSONNumber(),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errTokenInvalid
	}

	var claims tokenClaims
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &claims,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(mapClaims)); err != nil {
		return nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}

	if claims.Type != "access" || claims.Subject == "" || claims.TokenID == "" {
		return nil, errTokenInvalid
	}
	return &claims, nil
}

func (c *tokenClaims) expiresAt() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}
