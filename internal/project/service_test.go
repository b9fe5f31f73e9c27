package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
)

type mockProjectRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.ResearchProject, error)
	createFn       func(ctx context.Context, project *model.ResearchProject) error
	updateFn       func(ctx context.Context, project *model.ResearchProject) error
	deleteFn       func(ctx context.Context, id string) error
	listFn         func(ctx context.Context, filter model.ProjectFilter) ([]*model.ResearchProject, error)
	deleteByPIIDFn func(ctx context.Context, piID string) error
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*model.ResearchProject, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProjectRepo) Create(ctx context.Context, project *model.ResearchProject) error {
	if m.createFn != nil {
		return m.createFn(ctx, project)
	}
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *model.ResearchProject) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, project)
	}
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProjectRepo) List(ctx context.Context, filter model.ProjectFilter) ([]*model.ResearchProject, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockProjectRepo) DeleteByPIID(ctx context.Context, piID string) error {
	if m.deleteByPIIDFn != nil {
		return m.deleteByPIIDFn(ctx, piID)
	}
	return nil
}

var _ repository.ProjectRepository = (*mockProjectRepo)(nil)

type mockProfileRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Profile, error)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileRepo) Insert(ctx context.Context, profile *model.Profile) error { return nil }

func (m *mockProfileRepo) Update(ctx context.Context, profile *model.Profile) error { return nil }

func (m *mockProfileRepo) List(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error) {
	return nil, nil
}

var _ repository.ProfileRepository = (*mockProfileRepo)(nil)

type noopSanitizer struct{}

func (noopSanitizer) Sanitize(rawHTML string) string { return rawHTML }

func existingProject() *model.ResearchProject {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.ResearchProject{
		ID:                      "proj-1",
		PrincipalInvestigatorID: "owner-1",
		Title:                   "Projet initial",
		Status:                  model.ProjectActive,
		StartDate:               &start,
	}
}

func TestCreate_SetsPIAndDefaultStatus(t *testing.T) {
	var created *model.ResearchProject
	repo := &mockProjectRepo{
		createFn: func(ctx context.Context, project *model.ResearchProject) error {
			created = project
			return nil
		},
	}
	svc := NewService(repo, &mockProfileRepo{}, noopSanitizer{})

	out, err := svc.Create(context.Background(), "user-1", &model.ResearchProject{
		Title: "Cartographie du microbiome marin",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created == nil {
		t.Fatal("repository Create was not called")
	}
	if out.PrincipalInvestigatorID != "user-1" {
		t.Errorf("PI = %q, want user-1", out.PrincipalInvestigatorID)
	}
	if out.Status != model.ProjectPlanned {
		t.Errorf("status = %q, want default planned", out.Status)
	}
	if out.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestCreate_EndBeforeStart_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockProjectRepo{}, &mockProfileRepo{}, noopSanitizer{})

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "user-1", &model.ResearchProject{
		Title:     "x",
		StartDate: &start,
		EndDate:   &end,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestCreate_UnknownStatus_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockProjectRepo{}, &mockProfileRepo{}, noopSanitizer{})

	_, err := svc.Create(context.Background(), "user-1", &model.ResearchProject{
		Title:  "x",
		Status: "archived",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(&mockProjectRepo{}, &mockProfileRepo{}, noopSanitizer{})

	_, err := svc.Get(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeProjectNotFound {
		t.Errorf("expected PROJECT_NOT_FOUND, got %v", err)
	}
}

func TestUpdate_OwnerCanUpdate(t *testing.T) {
	repo := &mockProjectRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.ResearchProject, error) {
			return existingProject(), nil
		},
	}
	svc := NewService(repo, &mockProfileRepo{}, noopSanitizer{})

	out, err := svc.Update(context.Background(), "owner-1", &model.ResearchProject{
		ID:     "proj-1",
		Title:  "Projet révisé",
		Status: model.ProjectCompleted,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if out.Title != "Projet révisé" || out.Status != model.ProjectCompleted {
		t.Errorf("unexpected result: %+v", out)
	}
	if out.PrincipalInvestigatorID != "owner-1" {
		t.Errorf("PI must not change, got %q", out.PrincipalInvestigatorID)
	}
}

func TestUpdate_NonOwnerNonAdmin_Forbidden(t *testing.T) {
	repo := &mockProjectRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.ResearchProject, error) {
			return existingProject(), nil
		},
	}
	profileRepo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, Role: model.RoleStudent}, nil
		},
	}
	svc := NewService(repo, profileRepo, noopSanitizer{})

	_, err := svc.Update(context.Background(), "intruder", &model.ResearchProject{ID: "proj-1", Title: "x"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
}

func TestDelete_AdminCanDeleteAnyProject(t *testing.T) {
	var deletedID string
	repo := &mockProjectRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.ResearchProject, error) {
			return existingProject(), nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	profileRepo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, Role: model.RoleAdmin}, nil
		},
	}
	svc := NewService(repo, profileRepo, noopSanitizer{})

	if err := svc.Delete(context.Background(), "admin-1", "proj-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if deletedID != "proj-1" {
		t.Errorf("deleted id = %q, want proj-1", deletedID)
	}
}

func TestList_InvalidStatusFilter(t *testing.T) {
	svc := NewService(&mockProjectRepo{}, &mockProfileRepo{}, noopSanitizer{})

	_, err := svc.List(context.Background(), model.ProjectFilter{Status: "archived"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}
