package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// pathClass はリクエストパスの分類を表す。
type pathClass int

const (
	pathPublic pathClass = iota
	pathProtected
	pathAuthOnly
	pathExcluded
)

// protectedPrefixes は認証必須ページのパスプレフィックス。
var protectedPrefixes = []string{
	"/dashboard",
	"/profile",
	"/publications",
	"/projects",
	"/researchers",
	"/messages",
	"/analytics",
	"/settings",
}

// authOnlyPrefixes は未認証ユーザー専用ページのパスプレフィックス。
var authOnlyPrefixes = []string{
	"/auth/signin",
	"/auth/signup",
}

// excludedPrefixes は認証状態に関わらず常に通過させるパスプレフィックス。
// メール確認リンクとコード交換エンドポイントは、認証の入口そのものなので
// ガードの対象外とする。静的アセットと運用エンドポイントも同様。
var excludedPrefixes = []string{
	"/auth/callback",
	"/auth/confirm",
	"/static/",
	"/metrics",
	"/healthz",
}

// classifyPath はパスをプレフィックス一致で分類する。
// 判定順序: excluded → auth-only → protected → public。
func classifyPath(path string) pathClass {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(path, p) {
			return pathExcluded
		}
	}
	for _, p := range authOnlyPrefixes {
		if strings.HasPrefix(path, p) {
			return pathAuthOnly
		}
	}
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(path, p) {
			return pathProtected
		}
	}
	return pathPublic
}

// RouteGuardConfig はルートガードの設定。
type RouteGuardConfig struct {
	// SignInPath は未認証ユーザーのリダイレクト先。
	SignInPath string
	// DashboardPath は認証済みユーザーのリダイレクト先。
	DashboardPath string
}

// DefaultRouteGuardConfig はデフォルトのルートガード設定を返す。
func DefaultRouteGuardConfig() RouteGuardConfig {
	return RouteGuardConfig{
		SignInPath:    "/auth/signin",
		DashboardPath: "/dashboard",
	}
}

// NewRouteGuardMiddleware はページ遷移を認証状態に応じてゲートする
// ミドルウェアを返す。判定はリクエストごとに行う。
//
// 判定テーブル:
//
//	protected + 未認証 → サインインへリダイレクト（redirectToに元のパスを保持）
//	protected + 認証済 → 通過
//	auth-only + 認証済 → ダッシュボードへリダイレクト
//	auth-only + 未認証 → 通過
//	public/excluded    → 常に通過
//
// セッションCookieが解析・検証できない場合は未認証として扱う
// （保護ページに対してフェイルクローズ）。
func NewRouteGuardMiddleware(sessionFinder SessionFinder, config RouteGuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := classifyPath(r.URL.Path)
			if class == pathPublic || class == pathExcluded {
				next.ServeHTTP(w, r)
				return
			}

			authenticated := false
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
				if err != nil {
					// 検証エラーは未認証として扱う。古いログイン状態に
					// フォールバックしてはならない。
					slog.Error("route guard session lookup failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				authenticated = err == nil && session != nil
			}

			switch class {
			case pathProtected:
				if !authenticated {
					redirectURL := config.SignInPath + "?redirectTo=" + url.QueryEscape(r.URL.Path)
					http.Redirect(w, r, redirectURL, http.StatusSeeOther)
					return
				}
			case pathAuthOnly:
				if authenticated {
					http.Redirect(w, r, config.DashboardPath, http.StatusSeeOther)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
