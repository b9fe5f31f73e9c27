package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ugresearch/internal/model"
)

type mockPublicationService struct {
	createFn func(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error)
	getFn    func(ctx context.Context, id string) (*model.Publication, error)
	updateFn func(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error)
	deleteFn func(ctx context.Context, userID, id string) error
	listFn   func(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error)
}

func (m *mockPublicationService) Create(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, pub)
	}
	out := *pub
	out.ID = "pub-1"
	out.AuthorID = userID
	return &out, nil
}

func (m *mockPublicationService) Get(ctx context.Context, id string) (*model.Publication, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return testPublication(id), nil
}

func (m *mockPublicationService) Update(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, pub)
	}
	return pub, nil
}

func (m *mockPublicationService) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockPublicationService) List(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

var _ PublicationServiceInterface = (*mockPublicationService)(nil)

func testPublication(id string) *model.Publication {
	return &model.Publication{
		ID:        id,
		AuthorID:  "user-1",
		Title:     "Étude des réseaux de neurones",
		Type:      model.PublicationArticle,
		Year:      2024,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// withURLParam はchiのパスパラメータをリクエストに注入する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPublicationCreate_UsesAuthenticatedUserAsAuthor(t *testing.T) {
	var receivedUserID string
	svc := &mockPublicationService{
		createFn: func(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
			receivedUserID = userID
			out := *pub
			out.ID = "pub-1"
			out.AuthorID = userID
			return &out, nil
		},
	}
	h := NewPublicationHandler(svc)

	body := `{"title":"Étude des réseaux de neurones","type":"article","year":2024,"author_id":"someone-else"}`
	rec := httptest.NewRecorder()
	h.Create(rec, authenticatedRequest(http.MethodPost, "/api/publications", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if receivedUserID != "user-1" {
		t.Errorf("author userID = %q, want user-1", receivedUserID)
	}

	var resp publicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.AuthorID != "user-1" {
		t.Errorf("author_id = %q, want user-1", resp.AuthorID)
	}
}

func TestPublicationCreate_Unauthenticated_Returns401(t *testing.T) {
	h := NewPublicationHandler(&mockPublicationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/publications", nil)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestPublicationCreate_ValidationError_Returns400(t *testing.T) {
	svc := &mockPublicationService{
		createFn: func(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
			return nil, model.NewValidationError("le titre est obligatoire")
		},
	}
	h := NewPublicationHandler(svc)

	rec := httptest.NewRecorder()
	h.Create(rec, authenticatedRequest(http.MethodPost, "/api/publications", `{"type":"article"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPublicationGet_NotFound_Returns404(t *testing.T) {
	svc := &mockPublicationService{
		getFn: func(ctx context.Context, id string) (*model.Publication, error) {
			return nil, model.NewPublicationNotFoundError(id)
		},
	}
	h := NewPublicationHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/publications/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPublicationUpdate_NotOwner_Returns403(t *testing.T) {
	svc := &mockPublicationService{
		updateFn: func(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewPublicationHandler(svc)

	req := withURLParam(authenticatedRequest(http.MethodPut, "/api/publications/pub-1", `{"title":"x","type":"article","year":2024}`), "id", "pub-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestPublicationUpdate_PassesPathIDToService(t *testing.T) {
	var receivedID string
	svc := &mockPublicationService{
		updateFn: func(ctx context.Context, userID string, pub *model.Publication) (*model.Publication, error) {
			receivedID = pub.ID
			return pub, nil
		},
	}
	h := NewPublicationHandler(svc)

	req := withURLParam(authenticatedRequest(http.MethodPut, "/api/publications/pub-7", `{"title":"x","type":"article","year":2024}`), "id", "pub-7")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if receivedID != "pub-7" {
		t.Errorf("id = %q, want pub-7", receivedID)
	}
}

func TestPublicationDelete_Returns204(t *testing.T) {
	var deletedID string
	svc := &mockPublicationService{
		deleteFn: func(ctx context.Context, userID, id string) error {
			deletedID = id
			return nil
		},
	}
	h := NewPublicationHandler(svc)

	req := withURLParam(authenticatedRequest(http.MethodDelete, "/api/publications/pub-1", ""), "id", "pub-1")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if deletedID != "pub-1" {
		t.Errorf("deleted id = %q, want pub-1", deletedID)
	}
}

func TestPublicationList_PassesFilter(t *testing.T) {
	var receivedFilter model.PublicationFilter
	svc := &mockPublicationService{
		listFn: func(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error) {
			receivedFilter = filter
			return []*model.Publication{testPublication("pub-1")}, nil
		},
	}
	h := NewPublicationHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/publications?author_id=user-1&type=article&year=2024&limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if receivedFilter.AuthorID != "user-1" || receivedFilter.Type != model.PublicationArticle {
		t.Errorf("unexpected filter: %+v", receivedFilter)
	}
	if receivedFilter.Year != 2024 || receivedFilter.Limit != 5 {
		t.Errorf("year/limit = %d/%d, want 2024/5", receivedFilter.Year, receivedFilter.Limit)
	}
}
