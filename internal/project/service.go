// Package project は研究プロジェクト管理のドメインロジックを提供する。
package project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
	"github.com/hitoshi/ugresearch/internal/security"
)

// Service は研究プロジェクト管理のサービス層。
type Service struct {
	projectRepo repository.ProjectRepository
	profileRepo repository.ProfileRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	projectRepo repository.ProjectRepository,
	profileRepo repository.ProfileRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		projectRepo: projectRepo,
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
	}
}

// Create は研究プロジェクトを作成する。研究責任者は操作ユーザー自身に固定される。
func (s *Service) Create(ctx context.Context, userID string, project *model.ResearchProject) (*model.ResearchProject, error) {
	if project.Title == "" {
		return nil, model.NewValidationError("titre requis")
	}
	if project.Status == "" {
		project.Status = model.ProjectPlanned
	}
	if !model.ValidProjectStatus(project.Status) {
		return nil, model.NewValidationError("statut de projet inconnu")
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, model.NewValidationError("la date de fin précède la date de début")
	}

	now := time.Now()
	project.ID = uuid.New().String()
	project.PrincipalInvestigatorID = userID
	project.Description = s.sanitizer.Sanitize(project.Description)
	project.CreatedAt = now
	project.UpdatedAt = now

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// Get は指定IDのプロジェクトを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.ResearchProject, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	return project, nil
}

// Update はプロジェクトを更新する。研究責任者本人または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, userID string, project *model.ResearchProject) (*model.ResearchProject, error) {
	current, err := s.Get(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, current.PrincipalInvestigatorID); err != nil {
		return nil, err
	}
	if project.Status != "" && !model.ValidProjectStatus(project.Status) {
		return nil, model.NewValidationError("statut de projet inconnu")
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, model.NewValidationError("la date de fin précède la date de début")
	}

	current.Title = project.Title
	current.Description = s.sanitizer.Sanitize(project.Description)
	if project.Status != "" {
		current.Status = project.Status
	}
	current.StartDate = project.StartDate
	current.EndDate = project.EndDate
	current.Budget = project.Budget
	current.FundingSource = project.FundingSource

	if err := s.projectRepo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return current, nil
}

// Delete はプロジェクトを削除する。研究責任者本人または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, userID, current.PrincipalInvestigatorID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// List は検索条件に一致するプロジェクト一覧を返す。
func (s *Service) List(ctx context.Context, filter model.ProjectFilter) ([]*model.ResearchProject, error) {
	if filter.Status != "" && !model.ValidProjectStatus(filter.Status) {
		return nil, model.NewValidationError("statut de projet inconnu")
	}

	projects, err := s.projectRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// authorize は操作ユーザーがリソース所有者または管理者であることを検証する。
func (s *Service) authorize(ctx context.Context, userID, ownerID string) error {
	if userID == ownerID {
		return nil
	}
	p, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if p != nil && p.Role == model.RoleAdmin {
		return nil
	}
	return model.NewForbiddenError()
}
