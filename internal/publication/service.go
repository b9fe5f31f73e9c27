// Package publication は出版物管理のドメインロジックを提供する。
package publication

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
	"github.com/hitoshi/ugresearch/internal/security"
)

// Service は出版物管理のサービス層。
type Service struct {
	pubRepo     repository.PublicationRepository
	profileRepo repository.ProfileRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	pubRepo repository.PublicationRepository,
	profileRepo repository.ProfileRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		pubRepo:     pubRepo,
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
	}
}

// Create は出版物を作成する。著者は操作ユーザー自身に固定される。
func (s *Service) Create(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
	if pub.Title == "" {
		return nil, model.NewValidationError("titre requis")
	}
	if pub.Type == "" {
		pub.Type = model.PublicationArticle
	}
	if !model.ValidPublicationType(pub.Type) {
		return nil, model.NewValidationError("type de publication inconnu")
	}

	now := time.Now()
	pub.ID = uuid.New().String()
	pub.AuthorID = userID
	pub.Abstract = s.sanitizer.Sanitize(pub.Abstract)
	pub.CreatedAt = now
	pub.UpdatedAt = now

	if err := s.pubRepo.Create(ctx, pub); err != nil {
		return nil, fmt.Errorf("failed to create publication: %w", err)
	}
	return pub, nil
}

// Get は指定IDの出版物を取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Publication, error) {
	pub, err := s.pubRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find publication: %w", err)
	}
	if pub == nil {
		return nil, model.NewPublicationNotFoundError(id)
	}
	return pub, nil
}

// Update は出版物を更新する。著者本人または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
	current, err := s.Get(ctx, pub.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, current.AuthorID); err != nil {
		return nil, err
	}
	if pub.Type != "" && !model.ValidPublicationType(pub.Type) {
		return nil, model.NewValidationError("type de publication inconnu")
	}

	current.Title = pub.Title
	current.Abstract = s.sanitizer.Sanitize(pub.Abstract)
	if pub.Type != "" {
		current.Type = pub.Type
	}
	current.Journal = pub.Journal
	current.Year = pub.Year
	current.DOI = pub.DOI
	current.Pages = pub.Pages
	current.Citations = pub.Citations

	if err := s.pubRepo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update publication: %w", err)
	}
	return current, nil
}

// Delete は出版物を削除する。著者本人または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, userID, current.AuthorID); err != nil {
		return err
	}

	if err := s.pubRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete publication: %w", err)
	}
	return nil
}

// List は検索条件に一致する出版物一覧を返す。
func (s *Service) List(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error) {
	if filter.Type != "" && !model.ValidPublicationType(filter.Type) {
		return nil, model.NewValidationError("type de publication inconnu")
	}

	pubs, err := s.pubRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	return pubs, nil
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
