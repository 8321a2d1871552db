package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lumina/internal/auth"
)

// AdminGuardConfig は管理者ガードミドルウェアの設定。
type AdminGuardConfig struct {
	// SignInURL はunauthenticated時のリダイレクト先。
	SignInURL string
	// LandingURL はunauthorized時のリダイレクト先（非管理者の着地点）。
	LandingURL string
}

// GuardResolver は管理画面アクセス判定を解決するインターフェース。
type GuardResolver interface {
	Resolve(ctx context.Context, sessionID, overrideToken string) auth.GuardState
}

// NewAdminGuardMiddleware は管理画面配下のリクエストをガード判定に通す
// ミドルウェアを返す。保護対象はauthorizedの場合にのみ公開される。
//   - pending: 解決が確定できない。503を返し、リダイレクトはしない。
//   - unauthenticated: サインイン画面へリダイレクト。
//   - unauthorized: 非管理者用の着地点へリダイレクト。
//   - authorized: 後続ハンドラーへ委譲。
func NewAdminGuardMiddleware(resolver GuardResolver, config AdminGuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := cookieValue(r, SessionCookieName)
			overrideToken := cookieValue(r, OverrideCookieName)

			state := resolver.Resolve(r.Context(), sessionID, overrideToken)

			switch state {
			case auth.GuardAuthorized:
				next.ServeHTTP(w, r)
			case auth.GuardUnauthenticated:
				http.Redirect(w, r, config.SignInURL, http.StatusFound)
			case auth.GuardUnauthorized:
				http.Redirect(w, r, config.LandingURL, http.StatusFound)
			default:
				// pending: 判定が確定しないため中立の応答を返す
				slog.Warn("admin guard could not settle",
					slog.String("path", r.URL.Path),
				)
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}
		})
	}
}

// NewAdminPathFallback は未登録パスのうち最後の非空セグメントが"admin"の
// ものをガード付きハンドラーへ回し、それ以外は404を返すNotFoundハンドラーを返す。
// 管理画面の深いパスが素通しの404にならないようにする。
func NewAdminPathFallback(guarded http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.IsAdminPath(r.URL.Path) {
			guarded.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	}
}

// cookieValue はクッキーの値を返す。不在の場合は空文字列。
func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
