package security

import (
	"net/http"
	"strings"

	"chatline/global/config"
	"chatline/tools/errs"
	toolsec "chatline/tools/security"

	"github.com/gin-gonic/gin"
)

const CtxUserKey = "authUserId"

type Options struct {
	HeaderToken  string
	EnableBearer bool
}

func DefaultOptions() *Options {
	return &Options{HeaderToken: "Authorization", EnableBearer: true}
}

// Middleware verifies the bearer token and stores the subject user id
// in the gin context. Endpoints behind it can trust CtxUserKey.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		if opts.EnableBearer && strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errs.CodeAuthorization,
				"msg":  "missing token",
			})
			return
		}

		claims, err := toolsec.Verify(toolsec.DefaultOptions(config.JwtSecret()), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errs.CodeAuthorization,
				"msg":  "invalid token",
			})
			return
		}
		if sub, _ := claims.GetSubject(); sub != "" {
			c.Set(CtxUserKey, sub)
		}
		c.Next()
	}
}
