// Package model はドメインモデルを定義する。
package model

import "time"

// User は認証アカウントを表す。
// メール確認が完了するまでEmailConfirmedAtはnilのまま。
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	EmailConfirmedAt *time.Time
	Metadata         SignupMetadata
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Confirmed はメール確認が完了しているかどうかを返す。
func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}

// SignupMetadata はサインアップ時に提出されたプロフィール情報を表す。
// プロフィール行はメール確認後のブートストラップ時に初めて作成されるため、
// それまでの間ここに保持する。
type SignupMetadata struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Laboratory string `json:"laboratory"`
	Phone      string `json:"phone"`
	Bio        string `json:"bio"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPurpose はワンタイムトークンの用途を表す。
type TokenPurpose string

const (
	// TokenPurposeSignupConfirmation はサインアップ時のメール確認用トークン。
	TokenPurposeSignupConfirmation TokenPurpose = "signup_confirmation"
	// TokenPurposePasswordReset はパスワードリセット用トークン。
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// AuthToken はメールで送付されるワンタイムトークンを表す。
// 平文のシークレットは保存せず、SHA-256ハッシュのみを保持する。
// UsedAtが設定されたトークンは二度と使用できない。
type AuthToken struct {
	ID        string
	UserID    string
	TokenHash string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
