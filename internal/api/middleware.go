package api

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/grand-thief-cash/voltify/internal/consts"
)

type ownerKey struct{}

// sessionToken 先取 cookie, 其次 Authorization: Bearer
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(consts.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requireOwner 解析会话得到 owner 放入 ctx, 失败返回 401
func requireOwner(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := auth.Authenticate(r.Context(), sessionToken(r))
			if err != nil {
				// 会话存储不可用时是 500, 其余都是 401
				fail(w, r, err)
				return
			}
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("voltify.owner", owner))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
		})
	}
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
