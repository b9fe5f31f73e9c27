// Package auth はパスワード認証、メール確認フロー、セッション管理を提供する。
//
// サインアップからダッシュボード到達までの正規の状態遷移:
//
//	anonymous → credentials_submitted → pending_email_confirmation
//	→ code_exchange → session_established → profile_checked
//	→ (profile_missing → profile_created) → dashboard
//
// 全ての入口（サインインページ、確認リンク、APIルート）がこの
// 単一のサービスを経由する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ugresearch/internal/mailer"
	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
	"github.com/hitoshi/ugresearch/internal/security"
)

// ProfileBootstrapper はプロフィールの遅延作成インターフェース。
// セッション確立後に呼び出され、プロフィール行の存在を保証する。
type ProfileBootstrapper interface {
	EnsureProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSignup()
	RecordSignInSuccess()
	RecordSignInFailure(reason string)
	RecordConfirmationSuccess()
	RecordConfirmationFailure(reason string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BaseURL               string
	SessionMaxAge         int // セッション有効期間（秒）
	ConfirmationTokenTTL  time.Duration
	PasswordResetTokenTTL time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	tokenRepo    repository.AuthTokenRepository
	hasher       security.PasswordHasher
	mail         mailer.Sender
	bootstrapper ProfileBootstrapper
	metrics      MetricsRecorder
	config       ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.AuthTokenRepository,
	hasher security.PasswordHasher,
	mail mailer.Sender,
	bootstrapper ProfileBootstrapper,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		tokenRepo:    tokenRepo,
		hasher:       hasher,
		mail:         mail,
		bootstrapper: bootstrapper,
		metrics:      metrics,
		config:       config,
	}
}

// SignUp は新規アカウントを作成し、確認メールを送信する。
// プロフィール行はこの時点では作成しない。メール確認後の
// ブートストラップまでmetadataをusersテーブルに保持する。
func (s *Service) SignUp(ctx context.Context, email, password string, metadata model.SignupMetadata) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewValidationError("email et mot de passe requis")
	}
	if metadata.Role != "" && !model.ValidRole(model.Role(metadata.Role)) {
		return nil, model.NewValidationError("rôle inconnu")
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateKey {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.sendConfirmationMail(ctx, user); err != nil {
		// メール送信失敗でサインアップ自体は失敗させない。
		// 再送エンドポイントから回復できる。
		slog.Error("failed to send confirmation email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordSignup()
	}
	slog.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return user, nil
}

// SignIn はメールアドレスとパスワードでサインインし、セッションを発行する。
// メール未登録とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
// メール未確認のユーザーにはセッションを発行せず、プロフィールも作成しない。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, *model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, model.NewValidationError("email et mot de passe requis")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		if s.metrics != nil {
			s.metrics.RecordSignInFailure("invalid_credentials")
		}
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !user.Confirmed() {
		if s.metrics != nil {
			s.metrics.RecordSignInFailure("email_not_confirmed")
		}
		return nil, nil, model.NewEmailNotConfirmedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	profile, err := s.bootstrapper.EnsureProfile(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSignInSuccess()
	}
	slog.Info("user signed in",
		slog.String("user_id", user.ID),
	)

	return session, profile, nil
}

// ConfirmEmail はワンタイムコードをセッションに交換する（code_exchange）。
// コードは厳密に1回しか使用できない。2回目の使用はTOKEN_USEDで失敗する。
// 成功時はメール確認日時を記録し、セッション発行とプロフィールの
// ブートストラップまで行う。
func (s *Service) ConfirmEmail(ctx context.Context, code string) (*model.Session, error) {
	token, err := s.consumeToken(ctx, code, model.TokenPurposeSignupConfirmation)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordConfirmationFailure(failureReason(err))
		}
		return nil, err
	}

	if err := s.userRepo.SetEmailConfirmed(ctx, token.UserID); err != nil {
		return nil, fmt.Errorf("failed to confirm email: %w", err)
	}

	session, err := s.createSession(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if _, err := s.bootstrapper.EnsureProfile(ctx, token.UserID); err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordConfirmationSuccess()
	}
	slog.Info("email confirmed",
		slog.String("user_id", token.UserID),
	)

	return session, nil
}

// ResendConfirmation は確認メールを再送する。
// 未登録アドレス・確認済みアドレスに対してもエラーを返さない
// （アカウント列挙を防ぐため）。古い未使用トークンは失効させる。
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.Confirmed() {
		return nil
	}

	if err := s.tokenRepo.InvalidateByUserAndPurpose(ctx, user.ID, model.TokenPurposeSignupConfirmation); err != nil {
		return fmt.Errorf("failed to invalidate old tokens: %w", err)
	}

	if err := s.sendConfirmationMail(ctx, user); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	slog.Info("confirmation email resent",
		slog.String("user_id", user.ID),
	)
	return nil
}

// RequestPasswordReset はパスワードリセットメールを送信する。
// 未登録アドレスに対してもエラーを返さない。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil
	}

	if err := s.tokenRepo.InvalidateByUserAndPurpose(ctx, user.ID, model.TokenPurposePasswordReset); err != nil {
		return fmt.Errorf("failed to invalidate old tokens: %w", err)
	}

	code, err := s.issueToken(ctx, user.ID, model.TokenPurposePasswordReset, s.config.PasswordResetTokenTTL)
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password?token_hash=%s", s.config.BaseURL, code)
	if err := s.mail.SendPasswordReset(user.Email, resetURL); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	slog.Info("password reset requested",
		slog.String("user_id", user.ID),
	)
	return nil
}

// ResetPassword はワンタイムコードを検証してパスワードを更新する。
// 成功時は該当ユーザーの全セッションを失効させる。
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	if newPassword == "" {
		return model.NewValidationError("mot de passe requis")
	}

	token, err := s.consumeToken(ctx, code, model.TokenPurposePasswordReset)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, token.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	slog.Info("password reset completed",
		slog.String("user_id", token.UserID),
	)
	return nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// sendConfirmationMail は確認トークンを発行してメールを送信する。
func (s *Service) sendConfirmationMail(ctx context.Context, user *model.User) error {
	code, err := s.issueToken(ctx, user.ID, model.TokenPurposeSignupConfirmation, s.config.ConfirmationTokenTTL)
	if err != nil {
		return err
	}

	confirmURL := fmt.Sprintf("%s/auth/confirm?token_hash=%s&type=signup", s.config.BaseURL, code)
	return s.mail.SendConfirmation(user.Email, confirmURL)
}

// issueToken はワンタイムコードを生成し、そのSHA-256ハッシュを永続化する。
// 戻り値はメールに埋め込む平文コード。平文はDBに保存しない。
func (s *Service) issueToken(ctx context.Context, userID string, purpose model.TokenPurpose, ttl time.Duration) (string, error) {
	code, err := generateSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	token := &model.AuthToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashSecret(code),
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return code, nil
}

// consumeToken はワンタイムコードを検証し、アトミックに使用済みにする。
// 不正・期限切れ・使用済みをそれぞれ別のエラー種別で返す。
// MarkUsedがused_at IS NULLを条件とするため、同一コードの同時使用は
// 片方だけが成功する。
func (s *Service) consumeToken(ctx context.Context, code string, purpose model.TokenPurpose) (*model.AuthToken, error) {
	if code == "" {
		return nil, model.NewInvalidTokenError()
	}

	token, err := s.tokenRepo.FindByHash(ctx, hashSecret(code))
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if token == nil || token.Purpose != purpose {
		return nil, model.NewInvalidTokenError()
	}
	if token.UsedAt != nil {
		return nil, model.NewTokenUsedError()
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, model.NewTokenExpiredError()
	}

	ok, err := s.tokenRepo.MarkUsed(ctx, token.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark token used: %w", err)
	}
	if !ok {
		return nil, model.NewTokenUsedError()
	}

	return token, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSecret は暗号的に安全な256ビットのシークレットを生成する。
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSecret はシークレットのSHA-256ハッシュを16進文字列で返す。
func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// failureReason はメトリクスラベル用にエラー種別を短い文字列へ変換する。
func failureReason(err error) string {
	apiErr, ok := err.(*model.APIError)
	if !ok {
		return "internal"
	}
	switch apiErr.Code {
	case model.ErrCodeInvalidToken:
		return "invalid_token"
	case model.ErrCodeTokenExpired:
		return "token_expired"
	case model.ErrCodeTokenUsed:
		return "token_used"
	default:
		return "other"
	}
}
