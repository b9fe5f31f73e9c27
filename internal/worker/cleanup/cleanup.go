// Package cleanup は期限切れセッションと使用済みワンタイムトークンの
// 自動削除ジョブを提供する。日次バッチとして実行され、冪等な削除処理を保証する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// DeletionRecorder は削除件数のメトリクス記録インターフェース。
type DeletionRecorder interface {
	RecordCleanupDeleted(kind string, count int64)
}

// CleanupJob は認証データの自動削除ジョブ。
// 期限切れセッションは即座に、ワンタイムトークンは保持期間経過後に削除する。
// トークンを一定期間残すのは、使用済みリンクの再訪に対して
// TOKEN_USEDを区別して返せるようにするため。
type CleanupJob struct {
	db             Executor
	logger         *slog.Logger
	metrics        DeletionRecorder
	TokenRetention time.Duration // 期限切れ・使用済みトークンの保持期間（デフォルト: 30日）
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
// デフォルトのトークン保持期間は30日。
func NewCleanupJob(db Executor, logger *slog.Logger, metrics DeletionRecorder) *CleanupJob {
	return &CleanupJob{
		db:             db,
		logger:         logger,
		metrics:        metrics,
		TokenRetention: 30 * 24 * time.Hour,
	}
}

// Run は期限切れセッションと保持期間を超過したトークンを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionsDeleted, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	tokensDeleted, err := j.deleteStaleTokens(ctx)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	j.logger.Info("認証データクリーンアップジョブが完了しました",
		slog.Int64("sessions_deleted", sessionsDeleted),
		slog.Int64("tokens_deleted", tokensDeleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteExpiredSessions は有効期限を過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordCleanupDeleted("sessions", deleted)
	}
	return deleted, nil
}

// deleteStaleTokens は保持期間を超過した期限切れ・使用済みトークンを削除する。
func (j *CleanupJob) deleteStaleTokens(ctx context.Context) (int64, error) {
	interval := fmt.Sprintf("%d seconds", int(j.TokenRetention.Seconds()))

	query := `DELETE FROM auth_tokens
		WHERE (expires_at < now() - $1::interval)
		   OR (used_at IS NOT NULL AND used_at < now() - $1::interval)`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("古いトークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("古いトークンの削除に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordCleanupDeleted("auth_tokens", deleted)
	}
	return deleted, nil
}
