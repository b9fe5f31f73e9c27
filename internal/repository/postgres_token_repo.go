package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ugresearch/internal/model"
)

// PostgresAuthTokenRepo はPostgreSQLを使用したワンタイムトークンリポジトリ。
type PostgresAuthTokenRepo struct {
	db *sql.DB
}

// NewPostgresAuthTokenRepo はPostgresAuthTokenRepoを生成する。
func NewPostgresAuthTokenRepo(db *sql.DB) *PostgresAuthTokenRepo {
	return &PostgresAuthTokenRepo{db: db}
}

// Create はトークンを作成する。
func (r *PostgresAuthTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, user_id, token_hash, purpose, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.UserID, token.TokenHash, token.Purpose,
		token.ExpiresAt, token.UsedAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auth token: %w", err)
	}
	return nil
}

// FindByHash はトークンハッシュでトークンを検索する。見つからない場合はnilを返す。
// 使用済み・期限切れの判定は呼び出し側で行う。
func (r *PostgresAuthTokenRepo) FindByHash(ctx context.Context, tokenHash string) (*model.AuthToken, error) {
	token := &model.AuthToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, purpose, expires_at, used_at, created_at
		 FROM auth_tokens
		 WHERE token_hash = $1`,
		tokenHash,
	).Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Purpose,
		&token.ExpiresAt, &token.UsedAt, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find auth token: %w", err)
	}

	return token, nil
}

// MarkUsed は未使用のトークンを使用済みにする。
// used_at IS NULL を条件にした単一UPDATEのため、同一トークンの
// 二重使用は片方しか成功しない。
func (r *PostgresAuthTokenRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE auth_tokens SET used_at = now()
		 WHERE id = $1 AND used_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark auth token used: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// InvalidateByUserAndPurpose は指定ユーザー・用途の未使用トークンを全て無効化する。
func (r *PostgresAuthTokenRepo) InvalidateByUserAndPurpose(ctx context.Context, userID string, purpose model.TokenPurpose) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_tokens SET used_at = now()
		 WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL`,
		userID, purpose,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate auth tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AuthTokenRepository = (*PostgresAuthTokenRepo)(nil)
