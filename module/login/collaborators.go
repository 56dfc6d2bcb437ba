package login

import (
	"context"
	"time"
)

// IdentityProvider 为登录码生成可扫描的二维码地址
type IdentityProvider interface {
	IssueScannableArtifact(ctx context.Context, ticket int64, ttl time.Duration) (string, error)
}

// Token 会话令牌，Name 为客户端存储令牌时使用的键
type Token struct {
	Name  string
	Value string
}

// CredentialService 会话令牌的签发与校验
type CredentialService interface {
	Mint(ctx context.Context, userID int64, device string, persistent bool, extra map[string]any) (Token, error)
	// Validate 令牌无效时返回 errs.ErrTokenInvalid
	Validate(ctx context.Context, token string) (int64, error)
	// LookupPendingAuthFlag 令牌有效性标记，值为签发时的用户 id；不存在时 ok=false
	LookupPendingAuthFlag(ctx context.Context, token string) (flag string, ok bool, err error)
	TokenName() string
}

// User 登录成功回执需要的用户信息
type User struct {
	ID     int64
	Name   string
	Avatar string
}

// UserDirectory 用户主档，不存在时返回 (nil, nil)
type UserDirectory interface {
	GetUserInfo(ctx context.Context, userID int64) (*User, error)
}
