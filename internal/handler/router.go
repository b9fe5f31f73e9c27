package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ugresearch/internal/metrics"
	"github.com/hitoshi/ugresearch/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	RouteGuardConfig  middleware.RouteGuardConfig
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	StatusObserver    middleware.StatusObserver
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	ProfileService ProfileServiceInterface

	// 研究データ
	PublicationService PublicationServiceInterface
	ProjectService     ProjectServiceInterface

	// アカウント
	AccountService AccountServiceInterface

	// ヘルスチェック
	HealthChecker func() error
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RouteGuard
//	→ (APIルートのみ) Session → RateLimit(General) → CSRF
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置し、
// サインイン・サインアップ・再送には認証試行レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusObserver))
	r.Use(middleware.NewRouteGuardMiddleware(deps.SessionFinder, deps.RouteGuardConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	publicationHandler := NewPublicationHandler(deps.PublicationService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	accountHandler := NewAccountHandler(deps.AccountService)

	// --- 認証不要のルート ---

	r.Route("/auth", func(r chi.Router) {
		// 認証試行のエンドポイントにはIPごとのレート制限を適用
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/resend-confirmation", authHandler.ResendConfirmation)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// メール確認フロー
		r.Get("/confirm", authHandler.Confirm)
		r.Get("/callback", authHandler.Callback)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// ヘルスチェック
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// CSRFトークン取得
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// プロフィールブートストラップ
		r.Get("/api/check-profile", profileHandler.CheckProfile)
		r.Post("/api/create-profile", profileHandler.EnsureProfile)
		r.Post("/api/ensure-profile", profileHandler.EnsureProfile)

		// プロフィール管理
		r.Route("/api/profiles", func(r chi.Router) {
			r.Get("/me", profileHandler.Me)
			r.Put("/me", profileHandler.UpdateMe)
		})

		// 研究者ディレクトリ
		r.Get("/api/researchers", profileHandler.ListResearchers)
		r.Get("/api/researchers/{id}", profileHandler.GetResearcher)

		// 出版物管理
		r.Route("/api/publications", func(r chi.Router) {
			r.Get("/", publicationHandler.List)
			r.Post("/", publicationHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", publicationHandler.Get)
				r.Put("/", publicationHandler.Update)
				r.Delete("/", publicationHandler.Delete)
			})
		})

		// 研究プロジェクト管理
		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)
			})
		})

		// アカウント管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", accountHandler.Withdraw)
		})
	})

	return r
}
