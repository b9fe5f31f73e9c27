// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/ugresearch/internal/model"
)

// ErrDuplicateKey は一意制約違反を表す。
// 同一ユーザーのプロフィールを複数の入口から同時に作成しようとした場合など、
// 呼び出し側が良性の競合として扱うべきエラー。
var ErrDuplicateKey = errors.New("duplicate key violation")

// UserRepository は認証アカウントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateKeyを返す。
	Create(ctx context.Context, user *model.User) error

	// SetEmailConfirmed はメール確認日時を現在時刻に設定する。
	SetEmailConfirmed(ctx context.Context, id string) error

	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、auth_tokens、profileはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// AuthTokenRepository はワンタイムトークンの永続化インターフェース。
type AuthTokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.AuthToken) error

	// FindByHash はトークンハッシュでトークンを検索する。見つからない場合はnilを返す。
	// 使用済み・期限切れの判定は呼び出し側で行う。
	FindByHash(ctx context.Context, tokenHash string) (*model.AuthToken, error)

	// MarkUsed は未使用のトークンを使用済みにする。
	// すでに使用済みだった場合はfalseを返す（競合した二重使用の検出）。
	MarkUsed(ctx context.Context, id string) (bool, error)

	// InvalidateByUserAndPurpose は指定ユーザー・用途の未使用トークンを全て無効化する。
	// 確認メールの再送前に呼び出し、古いリンクを失効させる。
	InvalidateByUserAndPurpose(ctx context.Context, userID string, purpose model.TokenPurpose) error
}

// ProfileRepository は研究者プロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Insert はプロフィールを作成する。
	// 同一IDの行がすでに存在する場合はErrDuplicateKeyを返す。
	Insert(ctx context.Context, profile *model.Profile) error

	// Update はプロフィールを更新する。
	Update(ctx context.Context, profile *model.Profile) error

	// List は検索条件に一致するプロフィール一覧を返す。
	List(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error)
}

// PublicationRepository は出版物の永続化インターフェース。
type PublicationRepository interface {
	// FindByID は指定IDの出版物を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Publication, error)

	// Create は出版物を作成する。
	Create(ctx context.Context, pub *model.Publication) error

	// Update は出版物を更新する。
	Update(ctx context.Context, pub *model.Publication) error

	// Delete は指定IDの出版物を削除する。
	Delete(ctx context.Context, id string) error

	// List は検索条件に一致する出版物一覧をyear降順で返す。
	List(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error)

	// DeleteByAuthorID は指定著者の全出版物を削除する。退会処理で使用する。
	DeleteByAuthorID(ctx context.Context, authorID string) error
}

// ProjectRepository は研究プロジェクトの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ResearchProject, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.ResearchProject) error

	// Update はプロジェクトを更新する。
	Update(ctx context.Context, project *model.ResearchProject) error

	// Delete は指定IDのプロジェクトを削除する。
	Delete(ctx context.Context, id string) error

	// List は検索条件に一致するプロジェクト一覧をstart_date降順で返す。
	List(ctx context.Context, filter model.ProjectFilter) ([]*model.ResearchProject, error)

	// DeleteByPIID は指定研究責任者の全プロジェクトを削除する。退会処理で使用する。
	DeleteByPIID(ctx context.Context, piID string) error
}
