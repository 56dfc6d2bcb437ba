package credential

import (
	"context"
	"strconv"
	"time"

	"TalkTime/logger"
	"TalkTime/module/login"
	"TalkTime/tools/errs"
	"TalkTime/tools/security"

	"go.uber.org/zap"
)

// Service 基于 JWT 的会话令牌，签发时同时写入有效性标记
type Service struct {
	opts      security.Options
	flags     FlagStore
	tokenName string
}

var _ login.CredentialService = (*Service)(nil)

func NewService(opts security.Options, flags FlagStore, tokenName string) *Service {
	if tokenName == "" {
		tokenName = "Authorization"
	}
	return &Service{opts: opts, flags: flags, tokenName: tokenName}
}

func (s *Service) TokenName() string { return s.tokenName }

func (s *Service) Mint(ctx context.Context, userID int64, device string, persistent bool, extra map[string]any) (login.Token, error) {
	tok, _, exp, err := security.Generate(s.opts, userID, device, persistent, extra)
	if err != nil {
		return login.Token{}, errs.WrapMsg(err, "generate token", "uid", userID)
	}
	ttl := time.Until(exp)
	if err := s.flags.Set(ctx, tok, strconv.FormatInt(userID, 10), ttl); err != nil {
		return login.Token{}, errs.WrapMsg(err, "save token flag", "uid", userID)
	}
	return login.Token{Name: s.tokenName, Value: tok}, nil
}

func (s *Service) Validate(_ context.Context, token string) (int64, error) {
	claims, err := security.Verify(s.opts, token, "")
	if err != nil {
		logger.Debug("[credential] verify failed", zap.Error(err))
		return 0, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if claims.UserID <= 0 {
		return 0, errs.ErrTokenInvalid.WrapMsg("missing uid")
	}
	return claims.UserID, nil
}

func (s *Service) LookupPendingAuthFlag(ctx context.Context, token string) (string, bool, error) {
	return s.flags.Get(ctx, token)
}

// Revoke 删除标记，之后 Authorize 会让客户端作废该令牌
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.flags.Del(ctx, token)
}
