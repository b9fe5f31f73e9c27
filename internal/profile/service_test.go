package profile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/ugresearch/internal/model"
	"github.com/hitoshi/ugresearch/internal/repository"
	"github.com/hitoshi/ugresearch/internal/security"
)

// --- モック定義 ---

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile

	findByIDFn func(ctx context.Context, id string) (*model.Profile, error)
	insertFn   func(ctx context.Context, profile *model.Profile) error
	updateFn   func(ctx context.Context, profile *model.Profile) error
	listFn     func(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error)

	insertCalls int
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[id], nil
}

func (m *mockProfileRepo) Insert(ctx context.Context, profile *model.Profile) error {
	m.mu.Lock()
	m.insertCalls++
	m.mu.Unlock()
	if m.insertFn != nil {
		return m.insertFn(ctx, profile)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[profile.ID]; exists {
		return repository.ErrDuplicateKey
	}
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, profile)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) List(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error { return nil }

func (m *mockUserRepo) SetEmailConfirmed(_ context.Context, _ string) error { return nil }

func (m *mockUserRepo) UpdatePassword(_ context.Context, _, _ string) error { return nil }

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error { return nil }

// passthroughSanitizer は入力をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(html string) string { return html }

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingMetrics) RecordBootstrap(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.outcomes {
		if o == outcome {
			n++
		}
	}
	return n
}

// --- compile-time interface checks ---
var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ security.ContentSanitizerService = passthroughSanitizer{}
var _ BootstrapRecorder = (*recordingMetrics)(nil)

func confirmedUser(id string) *model.User {
	return &model.User{
		ID:    id,
		Email: id + "@example.edu",
		Metadata: model.SignupMetadata{
			FirstName:  "Pierre",
			LastName:   "Durand",
			Department: "Chimie",
		},
	}
}

// --- テスト ---

func TestEnsureProfile_ExistingRow_ReturnsWithoutInsert(t *testing.T) {
	repo := newMockProfileRepo()
	repo.profiles["user-1"] = &model.Profile{ID: "user-1", Role: model.RoleStudent}

	metrics := &recordingMetrics{}
	svc := NewService(repo, &mockUserRepo{}, passthroughSanitizer{}, metrics)

	p, err := svc.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}

	if p.Role != model.RoleStudent {
		t.Errorf("role = %q, want %q", p.Role, model.RoleStudent)
	}
	if repo.insertCalls != 0 {
		t.Errorf("insert calls = %d, want 0", repo.insertCalls)
	}
	if metrics.count("existing") != 1 {
		t.Errorf("existing outcome = %d, want 1", metrics.count("existing"))
	}
}

func TestEnsureProfile_MissingRow_CreatesFromMetadata(t *testing.T) {
	repo := newMockProfileRepo()
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return confirmedUser(id), nil
		},
	}
	metrics := &recordingMetrics{}
	svc := NewService(repo, userRepo, passthroughSanitizer{}, metrics)

	p, err := svc.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}

	if p.FirstName != "Pierre" || p.LastName != "Durand" {
		t.Errorf("name = %q %q, want Pierre Durand", p.FirstName, p.LastName)
	}
	if p.Department != "Chimie" {
		t.Errorf("department = %q, want %q", p.Department, "Chimie")
	}
	// 役割未指定時はresearcherにフォールバックすること
	if p.Role != model.RoleResearcher {
		t.Errorf("role = %q, want %q", p.Role, model.RoleResearcher)
	}
	if !p.IsActive {
		t.Error("bootstrapped profile must be active")
	}
	if p.ResearchInterests == nil {
		t.Error("research interests must be an empty slice, not nil")
	}
	if metrics.count("created") != 1 {
		t.Errorf("created outcome = %d, want 1", metrics.count("created"))
	}
}

func TestEnsureProfile_InvalidMetadataRole_FallsBackToResearcher(t *testing.T) {
	repo := newMockProfileRepo()
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			u := confirmedUser(id)
			u.Metadata.Role = "super_admin"
			return u, nil
		},
	}
	svc := NewService(repo, userRepo, passthroughSanitizer{}, nil)

	p, err := svc.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if p.Role != model.RoleResearcher {
		t.Errorf("role = %q, want fallback %q", p.Role, model.RoleResearcher)
	}
}

func TestEnsureProfile_DuplicateKeyConflict_RefetchesWinner(t *testing.T) {
	winner := &model.Profile{ID: "user-1", FirstName: "Gagnant", Role: model.RoleResearcher}

	firstFind := true
	repo := newMockProfileRepo()
	repo.findByIDFn = func(ctx context.Context, id string) (*model.Profile, error) {
		// 1回目の存在チェックでは行が無く、Insert後の再取得では
		// 競合に勝った行が見える
		if firstFind {
			firstFind = false
			return nil, nil
		}
		return winner, nil
	}
	repo.insertFn = func(ctx context.Context, profile *model.Profile) error {
		return repository.ErrDuplicateKey
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return confirmedUser(id), nil
		},
	}
	metrics := &recordingMetrics{}
	svc := NewService(repo, userRepo, passthroughSanitizer{}, metrics)

	p, err := svc.EnsureProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v, duplicate key must be a benign conflict", err)
	}
	if p.FirstName != "Gagnant" {
		t.Errorf("expected winner row, got %+v", p)
	}
	if metrics.count("conflict_refetched") != 1 {
		t.Errorf("conflict_refetched outcome = %d, want 1", metrics.count("conflict_refetched"))
	}
}

func TestEnsureProfile_UnknownUser_ReturnsUserNotFound(t *testing.T) {
	svc := NewService(newMockProfileRepo(), &mockUserRepo{}, passthroughSanitizer{}, nil)

	_, err := svc.EnsureProfile(context.Background(), "ghost")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestEnsureProfile_ConcurrentCalls_InsertOnce(t *testing.T) {
	repo := newMockProfileRepo()
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return confirmedUser(id), nil
		},
	}
	svc := NewService(repo, userRepo, passthroughSanitizer{}, nil)

	// 複数の入口（サインイン、確認リダイレクト、APIルート）からの
	// 同時呼び出しを模す
	const goroutines = 10
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.EnsureProfile(context.Background(), "user-1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("EnsureProfile() error = %v", err)
	}

	// 重複行エラーがユーザーに漏れず、行は1つだけ作られること
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.profiles) != 1 {
		t.Errorf("profiles created = %d, want 1", len(repo.profiles))
	}
}

func TestEnsureProfile_FirstCallerCancelled_CoalescedCallerSucceeds(t *testing.T) {
	repo := newMockProfileRepo()
	entered := make(chan struct{})
	release := make(chan struct{})
	repo.insertFn = func(ctx context.Context, profile *model.Profile) error {
		close(entered)
		<-release
		// 合流実行は個々の呼び出しのキャンセルから切り離されていること
		if err := ctx.Err(); err != nil {
			return err
		}
		repo.mu.Lock()
		defer repo.mu.Unlock()
		repo.profiles[profile.ID] = profile
		return nil
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return confirmedUser(id), nil
		},
	}
	svc := NewService(repo, userRepo, passthroughSanitizer{}, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// 1人目はキャンセルされるため結果は問わない
		_, _ = svc.EnsureProfile(firstCtx, "user-1")
	}()
	<-entered

	var secondProfile *model.Profile
	var secondErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		secondProfile, secondErr = svc.EnsureProfile(context.Background(), "user-1")
	}()

	// 2人目が実行中の作成に合流してから1人目をキャンセルする
	time.Sleep(10 * time.Millisecond)
	cancel()
	close(release)
	wg.Wait()

	if secondErr != nil {
		t.Fatalf("coalesced caller error = %v, must not inherit first caller's cancellation", secondErr)
	}
	if secondProfile == nil || secondProfile.ID != "user-1" {
		t.Errorf("coalesced caller profile = %+v, want user-1", secondProfile)
	}
}

func TestGetProfile_Missing_ReturnsProfileNotFound(t *testing.T) {
	svc := NewService(newMockProfileRepo(), &mockUserRepo{}, passthroughSanitizer{}, nil)

	_, err := svc.GetProfile(context.Background(), "user-1")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeProfileNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeProfileNotFound)
	}
}

func TestUpdateProfile_RoleAndEmailImmutable(t *testing.T) {
	repo := newMockProfileRepo()
	repo.profiles["user-1"] = &model.Profile{
		ID:    "user-1",
		Email: "marie@example.edu",
		Role:  model.RoleLabDirector,
	}
	svc := NewService(repo, &mockUserRepo{}, passthroughSanitizer{}, nil)

	updated, err := svc.UpdateProfile(context.Background(), "user-1", &model.Profile{
		FirstName: "Marie",
		Email:     "hacked@example.edu",
		Role:      model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if updated.Email != "marie@example.edu" {
		t.Errorf("email = %q, must not change", updated.Email)
	}
	if updated.Role != model.RoleLabDirector {
		t.Errorf("role = %q, must not change", updated.Role)
	}
	if updated.FirstName != "Marie" {
		t.Errorf("first name = %q, want %q", updated.FirstName, "Marie")
	}
}

func TestListResearchers_InvalidRole_ReturnsValidationError(t *testing.T) {
	svc := NewService(newMockProfileRepo(), &mockUserRepo{}, passthroughSanitizer{}, nil)

	_, err := svc.ListResearchers(context.Background(), model.ResearcherFilter{Role: "wizard"})

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
}
