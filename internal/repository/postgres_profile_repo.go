package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/ugresearch/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, email, first_name, last_name, role, title, department,
	laboratory, phone, bio, research_interests, orcid_id, is_active, created_at, updated_at`

func scanProfile(row interface{ Scan(...interface{}) error }) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.Title,
		&p.Department, &p.Laboratory, &p.Phone, &p.Bio,
		pq.Array(&p.ResearchInterests), &p.OrcidID, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// Insert はプロフィールを作成する。
// 同一IDの行がすでに存在する場合はErrDuplicateKeyを返す。
// 主キー制約がプロフィール重複作成の最終防衛線となる。
func (r *PostgresProfileRepo) Insert(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, first_name, last_name, role, title, department,
		 laboratory, phone, bio, research_interests, orcid_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		profile.ID, profile.Email, profile.FirstName, profile.LastName, profile.Role,
		profile.Title, profile.Department, profile.Laboratory, profile.Phone, profile.Bio,
		pq.Array(profile.ResearchInterests), profile.OrcidID, profile.IsActive,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Update はプロフィールを更新する。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET first_name = $2, last_name = $3, title = $4, department = $5,
		 laboratory = $6, phone = $7, bio = $8, research_interests = $9, orcid_id = $10,
		 is_active = $11, updated_at = now()
		 WHERE id = $1`,
		profile.ID, profile.FirstName, profile.LastName, profile.Title, profile.Department,
		profile.Laboratory, profile.Phone, profile.Bio,
		pq.Array(profile.ResearchInterests), profile.OrcidID, profile.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", profile.ID)
	}
	return nil
}

// List は検索条件に一致するプロフィール一覧をlast_name昇順で返す。
// Queryは氏名・研究キーワードに対する部分一致（大文字小文字区別なし）。
func (r *PostgresProfileRepo) List(ctx context.Context, filter model.ResearcherFilter) ([]*model.Profile, error) {
	var conds []string
	var args []interface{}

	conds = append(conds, "is_active = true")

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds,
			`(first_name ILIKE $`+n+` OR last_name ILIKE $`+n+
				` OR EXISTS (SELECT 1 FROM unnest(research_interests) i WHERE i ILIKE $`+n+`))`)
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conds = append(conds, `department = $`+strconv.Itoa(len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, `role = $`+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	limitClause += ` OFFSET $` + strconv.Itoa(len(args))

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` +
		strings.Join(conds, " AND ") +
		` ORDER BY last_name, first_name` + limitClause

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
