package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"TalkTime/tools/errs"

	"github.com/gin-gonic/gin"
)

const DefaultHeader = "X-Callback-Secret"

// Options 回调接口的共享密钥校验
type Options struct {
	Header string // 默认 X-Callback-Secret
	Secret string // 为空时不校验，仅用于本地开发
	// EnableAuthorizationBearer 同时接受 Authorization: Bearer <secret>
	EnableAuthorizationBearer bool
}

func DefaultOptions(secret string) *Options {
	return &Options{
		Header:                    DefaultHeader,
		Secret:                    secret,
		EnableAuthorizationBearer: true,
	}
}

func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions("")
	}
	if opts.Header == "" {
		opts.Header = DefaultHeader
	}
	want := []byte(opts.Secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader(opts.Header))

		// 兼容 Authorization: Bearer xxx
		if got == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					got = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}

		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.NewCodeError(errs.NotLoggedIn, "invalid callback secret"))
			return
		}
		c.Next()
	}
}
