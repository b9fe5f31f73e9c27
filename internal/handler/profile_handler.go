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

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// EnsureProfile はプロフィール行の存在を保証する。
	// 行が無ければサインアップ時のmetadataから作成する。冪等。
	EnsureProfile(ctx context.Context, userID string) (*model.Profile, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, updated *model.Profile) (*model.Profile, error)
	ListResearchers(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error)
}

// ProfileHandler は研究者プロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		service: service,
	}
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	FullName          string   `json:"full_name"`
	Role              string   `json:"role"`
	Title             string   `json:"title,omitempty"`
	Department        string   `json:"department,omitempty"`
	Laboratory        string   `json:"laboratory,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	ResearchInterests []string `json:"research_interests"`
	OrcidID           string   `json:"orcid_id,omitempty"`
	IsActive          bool     `json:"is_active"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// CheckProfile はプロフィール行の有無を返す。作成は行わない。
// GET /api/check-profile
func (h *ProfileHandler) CheckProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		if apiErr, ok := err.(*model.APIError); ok && apiErr.Code == model.ErrCodeProfileNotFound {
			writeJSON(w, http.StatusOK, map[string]interface{}{"exists": false})
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exists":  true,
		"profile": toProfileResponse(profile),
	})
}

// EnsureProfile はプロフィール行の存在を保証する（無ければ作成）。
// POST /api/ensure-profile
// POST /api/create-profile（互換エイリアス）
// 冪等であり、何度呼んでも同じプロフィールを返す。
func (h *ProfileHandler) EnsureProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.EnsureProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Me は現在のユーザーのプロフィールを返す。
// GET /api/profiles/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// updateProfileRequest はプロフィール更新のリクエストボディ。
// email、roleは含まない（このエンドポイントでは不変）。
type updateProfileRequest struct {
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Title             string   `json:"title"`
	Department        string   `json:"department"`
	Laboratory        string   `json:"laboratory"`
	Phone             string   `json:"phone"`
	Bio               string   `json:"bio"`
	ResearchInterests []string `json:"research_interests"`
	OrcidID           string   `json:"orcid_id"`
}

// UpdateMe は現在のユーザーのプロフィールを更新する。
// PUT /api/profiles/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("corps de requête invalide"))
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, &model.Profile{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Title:             req.Title,
		Department:        req.Department,
		Laboratory:        req.Laboratory,
		Phone:             req.Phone,
		Bio:               req.Bio,
		ResearchInterests: req.ResearchInterests,
		OrcidID:           req.OrcidID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ListResearchers は研究者ディレクトリを検索する。
// GET /api/researchers?q=neuro&department=Biologie&role=researcher&limit=20&offset=0
func (h *ProfileHandler) ListResearchers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.ResearcherFilter{
		Query:      q.Get("q"),
		Department: q.Get("department"),
		Role:       model.Role(q.Get("role")),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	profiles, err := h.service.ListResearchers(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		responses = append(responses, toProfileResponse(p))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"researchers": responses,
		"count":       len(responses),
	})
}

// GetResearcher は指定IDの研究者プロフィールを返す。
// GET /api/researchers/{id}
// 研究者詳細ページが使用する。見つからない場合は404。
func (h *ProfileHandler) GetResearcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		handleServiceError(w, model.NewValidationError("identifiant de chercheur manquant"))
		return
	}

	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(p *model.Profile) profileResponse {
	interests := p.ResearchInterests
	if interests == nil {
		interests = []string{}
	}
	return profileResponse{
		ID:                p.ID,
		Email:             p.Email,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		FullName:          p.FullName(),
		Role:              string(p.Role),
		Title:             p.Title,
		Department:        p.Department,
		Laboratory:        p.Laboratory,
		Phone:             p.Phone,
		Bio:               p.Bio,
		ResearchInterests: interests,
		OrcidID:           p.OrcidID,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}
