// Package profile は研究者プロフィールのブートストラップと管理を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
	"github.com/hitoshi/ugresearch/internal/security"
)

// BootstrapRecorder はブートストラップ結果のメトリクス記録インターフェース。
type BootstrapRecorder interface {
	RecordBootstrap(outcome string)
}

// Service は研究者プロフィールのサービス層。
// EnsureProfileが「ユーザーごとに高々1つのプロフィール行」という
// 不変条件を守る唯一の作成経路となる。データベーストリガーによる
// 自動作成は行わない。
type Service struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	sanitizer   security.ContentSanitizerService
	metrics     BootstrapRecorder

	// group は同一ユーザーIDへの同時ブートストラップを1回に合流させる。
	// APIルート・サインイン・確認リダイレクトの複数入口から同時に
	// 呼び出されても冗長なDBアクセスを発生させない。
	group singleflight.Group
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	metrics BootstrapRecorder,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
	}
}

// EnsureProfile は認証済みユーザーのプロフィール行の存在を保証する。
// 冪等であり、複数の入口から同時に呼び出しても安全。
//   - 行が存在する場合はそのまま返す。
//   - 存在しない場合はサインアップ時のmetadataから新規作成する。
//   - 作成が一意制約違反で失敗した場合は良性の競合として再取得する。
//
// その他のエラーはブートストラップ失敗として呼び出し側へ伝播する。
// 自動リトライは行わない。
func (s *Service) EnsureProfile(ctx context.Context, userID string) (*model.Profile, error) {
	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		// 合流した呼び出し側は最初の呼び出しのキャンセルに巻き込まれては
		// ならないため、値は引き継ぎつつキャンセルを切り離したコンテキストで実行する。
		return s.ensureProfile(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Profile), nil
}

func (s *Service) ensureProfile(ctx context.Context, userID string) (*model.Profile, error) {
	existing, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}
	if existing != nil {
		s.record("existing")
		return existing, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for bootstrap: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	newProfile := profileFromMetadata(user)

	if err := s.profileRepo.Insert(ctx, newProfile); err != nil {
		if err == repository.ErrDuplicateKey {
			// 別の入口が先に作成した。良性の競合として勝者の行を再取得する。
			winner, refetchErr := s.profileRepo.FindByID(ctx, userID)
			if refetchErr != nil {
				return nil, fmt.Errorf("failed to refetch profile after conflict: %w", refetchErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("profile disappeared after duplicate key conflict: %s", userID)
			}
			s.record("conflict_refetched")
			return winner, nil
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.record("created")
	slog.Info("profile bootstrapped",
		slog.String("user_id", userID),
		slog.String("role", string(newProfile.Role)),
	)

	return newProfile, nil
}

// profileFromMetadata はサインアップ時のmetadataからプロフィールを構築する。
// 役割が未指定・不正な場合はresearcherにフォールバックする。
func profileFromMetadata(user *model.User) *model.Profile {
	role := model.Role(user.Metadata.Role)
	if !model.ValidRole(role) {
		role = model.RoleResearcher
	}

	now := time.Now()
	return &model.Profile{
		ID:                user.ID,
		Email:             user.Email,
		FirstName:         user.Metadata.FirstName,
		LastName:          user.Metadata.LastName,
		Role:              role,
		Title:             user.Metadata.Title,
		Department:        user.Metadata.Department,
		Laboratory:        user.Metadata.Laboratory,
		Phone:             user.Metadata.Phone,
		Bio:               user.Metadata.Bio,
		ResearchInterests: []string{},
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// GetProfile は指定ユーザーのプロフィールを取得する。
// 見つからない場合はPROFILE_NOT_FOUNDを返す（ブートストラップは行わない）。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return p, nil
}

// UpdateProfile はプロフィールを更新する。
// Bioはサニタイズしてから保存する。役割とメールアドレスは変更できない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, updated *model.Profile) (*model.Profile, error) {
	current, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	current.FirstName = updated.FirstName
	current.LastName = updated.LastName
	current.Title = updated.Title
	current.Department = updated.Department
	current.Laboratory = updated.Laboratory
	current.Phone = updated.Phone
	current.Bio = s.sanitizer.Sanitize(updated.Bio)
	current.ResearchInterests = updated.ResearchInterests
	current.OrcidID = updated.OrcidID

	if err := s.profileRepo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return current, nil
}

// ListResearchers は研究者ディレクトリの検索を行う。
func (s *Service) ListResearchers(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error) {
	if filter.Role != "" && !model.ValidRole(filter.Role) {
		return nil, model.NewValidationError("rôle inconnu")
	}

	profiles, err := s.profileRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list researchers: %w", err)
	}
	return profiles, nil
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBootstrap(outcome)
	}
}
