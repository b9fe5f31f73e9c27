package model

import "time"

// PublicationType は論文・出版物の種別を表す。
type PublicationType string

const (
	PublicationArticle    PublicationType = "article"
	PublicationConference PublicationType = "conference"
	PublicationBook       PublicationType = "book"
	PublicationChapter    PublicationType = "chapter"
	PublicationThesis     PublicationType = "thesis"
	PublicationPatent     PublicationType = "patent"
)

// ValidPublicationType は既知の出版物種別かどうかを判定する。
func ValidPublicationType(t PublicationType) bool {
	switch t {
	case PublicationArticle, PublicationConference, PublicationBook,
		PublicationChapter, PublicationThesis, PublicationPatent:
		return true
	}
	return false
}

// Publication は研究者の出版物を表す。
// AuthorIDはprofilesテーブルへの外部キー。
type Publication struct {
	ID        string
	AuthorID  string
	Title     string
	Abstract  string
	Type      PublicationType
	Journal   string
	Year      int
	DOI       string
	Pages     string
	Citations int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicationFilter は出版物一覧の検索条件を表す。
type PublicationFilter struct {
	AuthorID string
	Type     PublicationType
	Year     int
	Limit    int
	Offset   int
}
