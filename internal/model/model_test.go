package model

import (
	"errors"
	"testing"
	"time"
)

func TestUser_Confirmed(t *testing.T) {
	u := &User{}
	if u.Confirmed() {
		t.Error("user without EmailConfirmedAt must not be confirmed")
	}

	now := time.Now()
	u.EmailConfirmedAt = &now
	if !u.Confirmed() {
		t.Error("user with EmailConfirmedAt must be confirmed")
	}
}

func TestProfile_FullName(t *testing.T) {
	tests := []struct {
		firstName string
		lastName  string
		want      string
	}{
		{"Marie", "Dupont", "Marie Dupont"},
		{"Marie", "", "Marie"},
		{"", "Dupont", "Dupont"},
		{"", "", ""},
	}
	for _, tt := range tests {
		p := &Profile{FirstName: tt.firstName, LastName: tt.lastName}
		if got := p.FullName(); got != tt.want {
			t.Errorf("FullName(%q, %q) = %q, want %q", tt.firstName, tt.lastName, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RoleResearcher, RoleStudent, RoleLabDirector, RoleAdmin} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%q) = false, want true", r)
		}
	}
	for _, r := range []Role{"", "professor", "ADMIN"} {
		if ValidRole(r) {
			t.Errorf("ValidRole(%q) = true, want false", r)
		}
	}
}

func TestValidPublicationType(t *testing.T) {
	for _, ty := range []PublicationType{PublicationArticle, PublicationConference, PublicationBook, PublicationChapter, PublicationThesis, PublicationPatent} {
		if !ValidPublicationType(ty) {
			t.Errorf("ValidPublicationType(%q) = false, want true", ty)
		}
	}
	if ValidPublicationType("poster") {
		t.Error("ValidPublicationType(poster) = true, want false")
	}
}

func TestValidProjectStatus(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectPlanned, ProjectActive, ProjectSuspended, ProjectCompleted} {
		if !ValidProjectStatus(s) {
			t.Errorf("ValidProjectStatus(%q) = false, want true", s)
		}
	}
	if ValidProjectStatus("archived") {
		t.Error("ValidProjectStatus(archived) = true, want false")
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewInvalidCredentialsError()
	want := "[INVALID_CREDENTIALS] Email ou mot de passe incorrect"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAPIError_ErrorsAs(t *testing.T) {
	var wrapped error = NewTokenExpiredError()

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As must match *APIError")
	}
	if apiErr.Code != ErrCodeTokenExpired {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeTokenExpired)
	}
}

func TestNewInvalidCredentialsError_DoesNotLeakAccountExistence(t *testing.T) {
	// 未登録メールとパスワード不一致で同一のエラーを返すこと
	first := NewInvalidCredentialsError()
	second := NewInvalidCredentialsError()
	if first.Message != second.Message || first.Code != second.Code {
		t.Error("invalid credentials errors must be indistinguishable")
	}
}
