package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// プロバイダー境界でエラー種別に変換し、下流コードはCodeでのみ分岐する。
// メッセージ文字列の部分一致による判定は行わない。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（ユーザー向け、フランス語）
	Category string // カテゴリ: auth, validation, profile, research, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailNotConfirmed   = "EMAIL_NOT_CONFIRMED"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeTokenUsed           = "TOKEN_USED"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodePublicationNotFound = "PUBLICATION_NOT_FOUND"
	ErrCodeProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メール未登録とパスワード不一致は区別せず、同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Email ou mot de passe incorrect",
		Category: "auth",
		Action:   "Vérifiez vos identifiants et réessayez.",
	}
}

// NewEmailNotConfirmedError はメール未確認エラーを生成する。
func NewEmailNotConfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotConfirmed,
		Message:  "Veuillez confirmer votre email avant de vous connecter",
		Category: "auth",
		Action:   "Vérifiez votre boîte de réception ou demandez un nouvel email de confirmation.",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Un compte existe déjà avec cette adresse email.",
		Category: "auth",
		Action:   "Connectez-vous ou utilisez la récupération de mot de passe.",
	}
}

// NewRateLimitedError はレート制限エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Trop de tentatives de connexion. Veuillez patienter quelques minutes.",
		Category: "auth",
		Action:   "Attendez quelques minutes avant de réessayer.",
	}
}

// NewInvalidTokenError は不正なワンタイムトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Lien de confirmation invalide",
		Category: "auth",
		Action:   "Demandez un nouvel email de confirmation.",
	}
}

// NewTokenExpiredError は期限切れトークンエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "Le lien de confirmation a expiré.",
		Category: "auth",
		Action:   "Demandez un nouvel email de confirmation.",
	}
}

// NewTokenUsedError は使用済みトークンエラーを生成する。
// ワンタイムトークンは厳密に1回しか使用できない。
func NewTokenUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenUsed,
		Message:  "Ce lien de confirmation a déjà été utilisé.",
		Category: "auth",
		Action:   "Connectez-vous directement ou demandez un nouveau lien.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Utilisateur introuvable.",
		Category: "auth",
		Action:   "Reconnectez-vous.",
	}
}

// NewProfileNotFoundError はプロフィールが見つからない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "Profil introuvable.",
		Category: "profile",
		Action:   "Complétez votre profil depuis la page dédiée.",
	}
}

// NewPublicationNotFoundError は出版物が見つからない場合のエラーを生成する。
func NewPublicationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodePublicationNotFound,
		Message:  fmt.Sprintf("Publication introuvable : %s", id),
		Category: "research",
		Action:   "Vérifiez l'identifiant de la publication.",
	}
}

// NewProjectNotFoundError は研究プロジェクトが見つからない場合のエラーを生成する。
func NewProjectNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("Projet de recherche introuvable : %s", id),
		Category: "research",
		Action:   "Vérifiez l'identifiant du projet.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Vous n'êtes pas autorisé à effectuer cette action.",
		Category: "auth",
		Action:   "Seul le propriétaire de la ressource ou un administrateur peut la modifier.",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("Champs invalides : %s", reason),
		Category: "validation",
		Action:   "Corrigez les champs indiqués et réessayez.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Une erreur interne est survenue.",
		Category: "system",
		Action:   "Réessayez dans quelques instants.",
	}
}
