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

// PublicationServiceInterface は出版物ハンドラーが必要とするサービスインターフェース。
type PublicationServiceInterface interface {
	Create(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error)
	Get(ctx context.Context, id string) (*model.Publication, error)
	Update(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error)
}

// PublicationHandler は出版物のHTTPハンドラー。
type PublicationHandler struct {
	service PublicationServiceInterface
}

// NewPublicationHandler はPublicationHandlerを生成する。
func NewPublicationHandler(service PublicationServiceInterface) *PublicationHandler {
	return &PublicationHandler{
		service: service,
	}
}

// publicationRequest は出版物の作成・更新リクエストボディ。
type publicationRequest struct {
	Title     string `json:"title"`
	Abstract  string `json:"abstract"`
	Type      string `json:"type"`
	Journal   string `json:"journal"`
	Year      int    `json:"year"`
	DOI       string `json:"doi"`
	Pages     string `json:"pages"`
	Citations int    `json:"citations"`
}

// publicationResponse は出版物のAPIレスポンス。
type publicationResponse struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract,omitempty"`
	Type      string `json:"type"`
	Journal   string `json:"journal,omitempty"`
	Year      int    `json:"year"`
	DOI       string `json:"doi,omitempty"`
	Pages     string `json:"pages,omitempty"`
	Citations int    `json:"citations"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Create は出版物を登録する。著者は常にリクエストしたユーザーになる。
// POST /api/publications
func (h *PublicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req publicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("corps de requête invalide"))
		return
	}

	pub, err := h.service.Create(r.Context(), userID, publicationFromRequest(&req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPublicationResponse(pub))
}

// Get は出版物を1件取得する。
// GET /api/publications/{id}
func (h *PublicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	pub, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPublicationResponse(pub))
}

// Update は出版物を更新する。著者本人または管理者のみ実行できる。
// PUT /api/publications/{id}
func (h *PublicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req publicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationError("corps de requête invalide"))
		return
	}

	pub := publicationFromRequest(&req)
	pub.ID = chi.URLParam(r, "id")

	updated, err := h.service.Update(r.Context(), userID, pub)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPublicationResponse(updated))
}

// Delete は出版物を削除する。著者本人または管理者のみ実行できる。
// DELETE /api/publications/{id}
func (h *PublicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// List は出版物の一覧を検索する。
// GET /api/publications?author_id=xxx&type=article&year=2024&limit=20&offset=0
func (h *PublicationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.PublicationFilter{
		AuthorID: q.Get("author_id"),
		Type:     model.PublicationType(q.Get("type")),
	}
	if year, err := strconv.Atoi(q.Get("year")); err == nil {
		filter.Year = year
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	pubs, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]publicationResponse, 0, len(pubs))
	for _, pub := range pubs {
		responses = append(responses, toPublicationResponse(pub))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"publications": responses,
		"count":        len(responses),
	})
}

// publicationFromRequest はリクエストボディからmodel.Publicationに変換する。
func publicationFromRequest(req *publicationRequest) *model.Publication {
	return &model.Publication{
		Title:     req.Title,
		Abstract:  req.Abstract,
		Type:      model.PublicationType(req.Type),
		Journal:   req.Journal,
		Year:      req.Year,
		DOI:       req.DOI,
		Pages:     req.Pages,
		Citations: req.Citations,
	}
}

// toPublicationResponse はmodel.PublicationからAPIレスポンスに変換する。
func toPublicationResponse(pub *model.Publication) publicationResponse {
	return publicationResponse{
		ID:        pub.ID,
		AuthorID:  pub.AuthorID,
		Title:     pub.Title,
		Abstract:  pub.Abstract,
		Type:      string(pub.Type),
		Journal:   pub.Journal,
		Year:      pub.Year,
		DOI:       pub.DOI,
		Pages:     pub.Pages,
		Citations: pub.Citations,
		CreatedAt: pub.CreatedAt.Format(time.RFC3339),
		UpdatedAt: pub.UpdatedAt.Format(time.RFC3339),
	}
}
