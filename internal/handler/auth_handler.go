// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/ugresearch/internal/middleware"
	"github.com/hitoshi/ugresearch/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password string, metadata model.SignupMetadata) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, *model.Profile, error)
	ConfirmEmail(ctx context.Context, code string) (*model.Session, error)
	ResendConfirmation(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, newPassword string) error
	SignOut(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
	DashboardPath string
	SignInPath    string
}

// AuthHandler はパスワード認証とメール確認フローのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.DashboardPath == "" {
		config.DashboardPath = "/dashboard"
	}
	if config.SignInPath == "" {
		config.SignInPath = "/auth/signin"
	}
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// signupRequest はサインアップのリクエストボディ。
type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Laboratory string `json:"laboratory"`
	Phone      string `json:"phone"`
	Bio        string `json:"bio"`
}

// SignUp は新規アカウントを作成し、確認メールを送信する。
// POST /auth/signup
// この時点ではセッションを発行しない。メール確認待ち状態になる。
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("corps de requête invalide"))
		return
	}

	user, err := h.service.SignUp(r.Context(), req.Email, req.Password, model.SignupMetadata{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		Title:      req.Title,
		Department: req.Department,
		Laboratory: req.Laboratory,
		Phone:      req.Phone,
		Bio:        req.Bio,
	})
	if err != nil {
		slog.Warn("signup failed", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":                    user.ID,
		"email":                 user.Email,
		"confirmation_required": true,
	})
}

// signinRequest はサインインのリクエストボディ。
type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn はメールアドレスとパスワードでサインインする。
// POST /auth/signin?redirectTo=/publications
// 成功時はセッションCookieを設定し、遷移先パスをJSONで返す。
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("corps de requête invalide"))
		return
	}

	session, profile, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("signin failed", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"redirect_to": h.redirectTarget(r),
		"profile": map[string]interface{}{
			"id":         profile.ID,
			"first_name": profile.FirstName,
			"last_name":  profile.LastName,
			"role":       profile.Role,
		},
	})
}

// Confirm はメール確認リンクを処理する（code_exchange）。
// GET /auth/confirm?token_hash=xxx&type=signup
// 成功時はセッションCookieを設定して303でダッシュボードへリダイレクトする。
// 失敗時はエラーページへリダイレクトする（詳細コード付き）。
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	tokenHash := r.URL.Query().Get("token_hash")
	linkType := r.URL.Query().Get("type")

	if tokenHash == "" || linkType != "signup" {
		h.redirectToError(w, r, model.ErrCodeInvalidToken)
		return
	}

	session, err := h.service.ConfirmEmail(r.Context(), tokenHash)
	if err != nil {
		slog.Warn("email confirmation failed", slog.String("error", err.Error()))
		code := model.ErrCodeInvalidToken
		if apiErr, ok := err.(*model.APIError); ok {
			code = apiErr.Code
		}
		h.redirectToError(w, r, code)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, h.config.DashboardPath, http.StatusSeeOther)
}

// Callback は外部リンク経由の着地点。確認フロー完了後の遷移に使う。
// GET /auth/callback
// セッションが有効ならダッシュボードへ、無効ならサインインへ303で転送する。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		http.Redirect(w, r, h.config.SignInPath, http.StatusSeeOther)
		return
	}

	if _, err := h.service.CurrentUser(r.Context(), cookie.Value); err != nil {
		http.Redirect(w, r, h.config.SignInPath, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.redirectTarget(r), http.StatusSeeOther)
}

// emailRequest はメールアドレスのみのリクエストボディ。
type emailRequest struct {
	Email string `json:"email"`
}

// ResendConfirmation は確認メールを再送する。
// POST /auth/resend-confirmation
// アカウント列挙を防ぐため、結果に関わらず202を返す。
func (h *AuthHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("corps de requête invalide"))
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		slog.Error("failed to resend confirmation", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ForgotPassword はパスワードリセットメールを送信する。
// POST /auth/forgot-password
// アカウント列挙を防ぐため、結果に関わらず202を返す。
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("corps de requête invalide"))
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		slog.Error("failed to request password reset", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// resetPasswordRequest はパスワードリセットのリクエストボディ。
type resetPasswordRequest struct {
	TokenHash string `json:"token_hash"`
	Password  string `json:"password"`
}

// ResetPassword はワンタイムコードを検証してパスワードを更新する。
// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("corps de requête invalide"))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.TokenHash, req.Password); err != nil {
		slog.Warn("password reset failed", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.SignOut(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, h.config.SignInPath, http.StatusSeeOther)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Warn("failed to get current user", slog.String("error", err.Error()))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":              user.ID,
		"email":           user.Email,
		"email_confirmed": user.Confirmed(),
	})
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectTarget はredirectToクエリパラメータを検証して遷移先を返す。
// 相対パス以外（別オリジンへの遷移）は拒否し、ダッシュボードへ戻す。
func (h *AuthHandler) redirectTarget(r *http.Request) string {
	target := r.URL.Query().Get("redirectTo")
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return h.config.DashboardPath
	}
	return target
}

// redirectToError はエラーコード付きでエラーページへ303リダイレクトする。
func (h *AuthHandler) redirectToError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/auth/error?error="+url.QueryEscape(code), http.StatusSeeOther)
}
