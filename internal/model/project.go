package model

import "time"

// ProjectStatus は研究プロジェクトの状態を表す。
type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectSuspended ProjectStatus = "suspended"
	ProjectCompleted ProjectStatus = "completed"
)

// ValidProjectStatus は既知のプロジェクト状態かどうかを判定する。
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectPlanned, ProjectActive, ProjectSuspended, ProjectCompleted:
		return true
	}
	return false
}

// ResearchProject は研究プロジェクトを表す。
// PrincipalInvestigatorIDはprofilesテーブルへの外部キー。
type ResearchProject struct {
	ID                      string
	PrincipalInvestigatorID string
	Title                   string
	Description             string
	Status                  ProjectStatus
	StartDate               *time.Time
	EndDate                 *time.Time
	Budget                  float64
	FundingSource           string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ProjectFilter は研究プロジェクト一覧の検索条件を表す。
type ProjectFilter struct {
	PrincipalInvestigatorID string
	Status                  ProjectStatus
	Limit                   int
	Offset                  int
}
