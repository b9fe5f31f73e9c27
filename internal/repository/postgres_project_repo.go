package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hitoshi/ugresearch/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用した研究プロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, principal_investigator_id, title, description, status,
	start_date, end_date, budget, funding_source, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*model.ResearchProject, error) {
	p := &model.ResearchProject{}
	err := row.Scan(&p.ID, &p.PrincipalInvestigatorID, &p.Title, &p.Description, &p.Status,
		&p.StartDate, &p.EndDate, &p.Budget, &p.FundingSource, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.ResearchProject, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM research_projects WHERE id = $1`,
		id,
	)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return p, nil
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.ResearchProject) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO research_projects (id, principal_investigator_id, title, description,
		 status, start_date, end_date, budget, funding_source, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		project.ID, project.PrincipalInvestigatorID, project.Title, project.Description,
		project.Status, project.StartDate, project.EndDate, project.Budget,
		project.FundingSource, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// Update はプロジェクトを更新する。
func (r *PostgresProjectRepo) Update(ctx context.Context, project *model.ResearchProject) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE research_projects SET title = $2, description = $3, status = $4,
		 start_date = $5, end_date = $6, budget = $7, funding_source = $8, updated_at = now()
		 WHERE id = $1`,
		project.ID, project.Title, project.Description, project.Status,
		project.StartDate, project.EndDate, project.Budget, project.FundingSource,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

// Delete は指定IDのプロジェクトを削除する。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM research_projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// List は検索条件に一致するプロジェクト一覧をstart_date降順で返す。
func (r *PostgresProjectRepo) List(ctx context.Context, filter model.ProjectFilter) ([]*model.ResearchProject, error) {
	conds := []string{"true"}
	var args []interface{}

	if filter.PrincipalInvestigatorID != "" {
		args = append(args, filter.PrincipalInvestigatorID)
		conds = append(conds, `principal_investigator_id = $`+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, `status = $`+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	limitClause += ` OFFSET $` + strconv.Itoa(len(args))

	query := `SELECT ` + projectColumns + ` FROM research_projects WHERE ` +
		strings.Join(conds, " AND ") +
		` ORDER BY start_date DESC NULLS LAST, created_at DESC` + limitClause

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.ResearchProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// DeleteByPIID は指定研究責任者の全プロジェクトを削除する。
func (r *PostgresProjectRepo) DeleteByPIID(ctx context.Context, piID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM research_projects WHERE principal_investigator_id = $1`,
		piID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete projects by principal investigator: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
