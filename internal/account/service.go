// Package account はアカウント退会処理のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
)

// PublicationDeleter は出版物の一括削除インターフェース。
type PublicationDeleter interface {
	DeleteByAuthorID(ctx context.Context, authorID string) error
}

// ProjectDeleter は研究プロジェクトの一括削除インターフェース。
type ProjectDeleter interface {
	DeleteByPIID(ctx context.Context, piID string) error
}

// Service はアカウント管理のサービス層。
// 設定ページからの退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	pubDeleter  PublicationDeleter
	projDeleter ProjectDeleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	pubDeleter PublicationDeleter,
	projDeleter ProjectDeleter,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		pubDeleter:  pubDeleter,
		projDeleter: projDeleter,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: publications → research_projects → sessions → user
// （+ CASCADE: profile, auth_tokens）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("account withdrawal started",
		slog.String("user_id", userID),
	)

	// 1. 出版物を削除
	if s.pubDeleter != nil {
		if err := s.pubDeleter.DeleteByAuthorID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete publications: %w", err)
		}
	}

	// 2. 研究プロジェクトを削除
	if s.projDeleter != nil {
		if err := s.projDeleter.DeleteByPIID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete projects: %w", err)
		}
	}

	// 3. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
	}

	// 4. ユーザーを削除（profileとauth_tokensはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("account withdrawal completed",
		slog.String("user_id", userID),
	)

	return nil
}
