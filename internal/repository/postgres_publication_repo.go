package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hitoshi/ugresearch/internal/model"
)

// PostgresPublicationRepo はPostgreSQLを使用した出版物リポジトリ。
type PostgresPublicationRepo struct {
	db *sql.DB
}

// NewPostgresPublicationRepo はPostgresPublicationRepoを生成する。
func NewPostgresPublicationRepo(db *sql.DB) *PostgresPublicationRepo {
	return &PostgresPublicationRepo{db: db}
}

const publicationColumns = `id, author_id, title, abstract, type, journal, year,
	doi, pages, citations, created_at, updated_at`

func scanPublication(row interface{ Scan(...interface{}) error }) (*model.Publication, error) {
	p := &model.Publication{}
	err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Abstract, &p.Type, &p.Journal,
		&p.Year, &p.DOI, &p.Pages, &p.Citations, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの出版物を取得する。見つからない場合はnilを返す。
func (r *PostgresPublicationRepo) FindByID(ctx context.Context, id string) (*model.Publication, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE id = $1`,
		id,
	)
	p, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find publication: %w", err)
	}
	return p, nil
}

// Create は出版物を作成する。
func (r *PostgresPublicationRepo) Create(ctx context.Context, pub *model.Publication) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publications (id, author_id, title, abstract, type, journal, year,
		 doi, pages, citations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pub.ID, pub.AuthorID, pub.Title, pub.Abstract, pub.Type, pub.Journal,
		pub.Year, pub.DOI, pub.Pages, pub.Citations, pub.CreatedAt, pub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert publication: %w", err)
	}
	return nil
}

// Update は出版物を更新する。
func (r *PostgresPublicationRepo) Update(ctx context.Context, pub *model.Publication) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE publications SET title = $2, abstract = $3, type = $4, journal = $5,
		 year = $6, doi = $7, pages = $8, citations = $9, updated_at = now()
		 WHERE id = $1`,
		pub.ID, pub.Title, pub.Abstract, pub.Type, pub.Journal,
		pub.Year, pub.DOI, pub.Pages, pub.Citations,
	)
	if err != nil {
		return fmt.Errorf("failed to update publication: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("publication not found: %s", pub.ID)
	}
	return nil
}

// Delete は指定IDの出版物を削除する。
func (r *PostgresPublicationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM publications WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete publication: %w", err)
	}
	return nil
}

// List は検索条件に一致する出版物一覧をyear降順で返す。
func (r *PostgresPublicationRepo) List(ctx context.Context, filter model.PublicationFilter) ([]*model.Publication, error) {
	conds := []string{"true"}
	var args []interface{}

	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, `author_id = $`+strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, `type = $`+strconv.Itoa(len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conds = append(conds, `year = $`+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	limitClause += ` OFFSET $` + strconv.Itoa(len(args))

	query := `SELECT ` + publicationColumns + ` FROM publications WHERE ` +
		strings.Join(conds, " AND ") +
		` ORDER BY year DESC, created_at DESC` + limitClause

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	var pubs []*model.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publications: %w", err)
	}

	return pubs, nil
}

// DeleteByAuthorID は指定著者の全出版物を削除する。
func (r *PostgresPublicationRepo) DeleteByAuthorID(ctx context.Context, authorID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM publications WHERE author_id = $1`,
		authorID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete publications by author: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PublicationRepository = (*PostgresPublicationRepo)(nil)
