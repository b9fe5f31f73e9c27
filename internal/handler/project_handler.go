package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ugresearch/internal/middleware"
	"github.com/hitoshi/ugresearch/internal/model"
)

// ProjectServiceInterface は研究プロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Create(ctx context.Context, userID string, project *model.ResearchProject) (*model.ResearchProject, error)
	Get(ctx context.Context, id string) (*model.ResearchProject, error)
	Update(ctx context.Context, userID string, project *model.ResearchProject) (*model.ResearchProject, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, filter model.ProjectFilter) ([]*model.ResearchProject, error)
}

// ProjectHandler は研究プロジェクトのHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{
		service: service,
	}
}

// projectRequest は研究プロジェクトの作成・更新リクエストボディ。
// 日付はYYYY-MM-DD形式。
type projectRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Budget        float64 `json:"budget"`
	FundingSource string  `json:"funding_source"`
}

// projectResponse は研究プロジェクトのAPIレスポンス。
type projectResponse struct {
	ID                      string  `json:"id"`
	PrincipalInvestigatorID string  `json:"principal_investigator_id"`
	Title                   string  `json:"title"`
	Description             string  `json:"description,omitempty"`
	Status                  string  `json:"status"`
	StartDate               string  `json:"start_date,omitempty"`
	EndDate                 string  `json:"end_date,omitempty"`
	Budget                  float64 `json:"budget"`
	FundingSource           string  `json:"funding_source,omitempty"`
	CreatedAt               string  `json:"created_at"`
	UpdatedAt               string  `json:"updated_at"`
}

// Create は研究プロジェクトを登録する。研究責任者は常にリクエストしたユーザーになる。
// POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("corps de requête invalide"))
		return
	}

	project, err := projectFromRequest(&req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), userID, project)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(created))
}

// Get は研究プロジェクトを1件取得する。
// GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

// Update は研究プロジェクトを更新する。研究責任者本人または管理者のみ実行できる。
// PUT /api/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("corps de requête invalide"))
		return
	}

	project, err := projectFromRequest(&req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	project.ID = chi.URLParam(r, "id")

	updated, err := h.service.Update(r.Context(), userID, project)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(updated))
}

// Delete は研究プロジェクトを削除する。研究責任者本人または管理者のみ実行できる。
// DELETE /api/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List は研究プロジェクトの一覧を検索する。
// GET /api/projects?pi_id=xxx&status=active&limit=20&offset=0
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.ProjectFilter{
		PrincipalInvestigatorID: q.Get("pi_id"),
		Status:                  model.ProjectStatus(q.Get("status")),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	projects, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		responses = append(responses, toProjectResponse(p))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projects": responses,
		"count":    len(responses),
	})
}

// projectFromRequest はリクエストボディからmodel.ResearchProjectに変換する。
// 日付のパースに失敗した場合はVALIDATION_FAILEDを返す。
func projectFromRequest(req *projectRequest) (*model.ResearchProject, error) {
	project := &model.ResearchProject{
		Title:         req.Title,
		Description:   req.Description,
		Status:        model.ProjectStatus(req.Status),
		Budget:        req.Budget,
		FundingSource: req.FundingSource,
	}

	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, model.NewValidationError("start_date doit être au format AAAA-MM-JJ")
		}
		project.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, model.NewValidationError("end_date doit être au format AAAA-MM-JJ")
		}
		project.EndDate = &t
	}

	return project, nil
}

// toProjectResponse はmodel.ResearchProjectからAPIレスポンスに変換する。
func toProjectResponse(p *model.ResearchProject) projectResponse {
	resp := projectResponse{
		ID:                      p.ID,
		PrincipalInvestigatorID: p.PrincipalInvestigatorID,
		Title:                   p.Title,
		Description:             p.Description,
		Status:                  string(p.Status),
		Budget:                  p.Budget,
		FundingSource:           p.FundingSource,
		CreatedAt:               p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:               p.UpdatedAt.Format(time.RFC3339),
	}
	if p.StartDate != nil {
		resp.StartDate = p.StartDate.Format("2006-01-02")
	}
	if p.EndDate != nil {
		resp.EndDate = p.EndDate.Format("2006-01-02")
	}
	return resp
}
