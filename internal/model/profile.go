package model

import "time"

// Role は研究者プロフィールの役割を表す。
type Role string

const (
	// RoleResearcher は一般の研究者。ブートストラップ時のデフォルト。
	RoleResearcher Role = "researcher"
	// RoleStudent は学生（博士課程・修士課程）。
	RoleStudent Role = "student"
	// RoleLabDirector は研究室責任者。
	RoleLabDirector Role = "lab_director"
	// RoleAdmin はシステム管理者。全リソースへのアクセス権を持つ。
	RoleAdmin Role = "admin"
)

// ValidRole は既知の役割かどうかを判定する。
func ValidRole(r Role) bool {
	switch r {
	case RoleResearcher, RoleStudent, RoleLabDirector, RoleAdmin:
		return true
	}
	return false
}

// Profile はアプリケーションが所有する研究者レコードを表す。
// IDはusersテーブルのIDと1:1で対応する（主キーかつ外部キー）。
// 行が存在する == ブートストラップ完了、という不変条件を持つ。
type Profile struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	Role              Role
	Title             string
	Department        string
	Laboratory        string
	Phone             string
	Bio               string
	ResearchInterests []string
	OrcidID           string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName は表示用のフルネームを返す。
func (p *Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ResearcherFilter は研究者ディレクトリの検索条件を表す。
// ゼロ値は全件を意味する。
type ResearcherFilter struct {
	Query      string // 氏名・研究キーワードの部分一致
	Department string
	Role       Role
	Limit      int
	Offset     int
}
