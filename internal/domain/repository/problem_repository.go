package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, problem *model.Problem) error
	// SaveProblem writes next only if the stored record is live and still in the expected status.
	SaveProblem(ctx context.Context, next *model.Problem, expected model.ProblemStatus) (*model.Problem, error)
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListProblems(ctx context.Context, filter model.ProblemFilter) ([]model.Problem, int, error)
	// CountProblems counts the problems matching filter, ignoring paging.
	CountProblems(ctx context.Context, filter model.ProblemFilter) (int, error)
}

const problemColumns = `p.id, p.title, p.slug, p.summary, p.content, p.category, p.problem_type, p.difficulty,
	p.tags, p.status, p.created_by, p.reviewed_by, p.reviewed_at, p.rejection_reason, p.deleted_at,
	p.created_at, p.updated_at`

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func problemDest(p *model.Problem) []interface{} {
	return []interface{}{
		&p.ID, &p.Title, &p.Slug, &p.Summary, &p.Content, &p.Category, &p.ProblemType, &p.Difficulty,
		textArray(&p.Tags), &p.Status, &p.CreatedByID, &p.ReviewedByID, &p.ReviewedAt, &p.RejectionReason, &p.DeletedAt,
		&p.CreatedAt, &p.UpdatedAt,
	}
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	p := &model.Problem{}
	if err := row.Scan(problemDest(p)...); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, summary, content, category, problem_type, difficulty,
	              tags, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Summary, p.Content, p.Category, p.ProblemType,
		p.Difficulty, stringsOrEmpty(p.Tags), p.Status, p.CreatedByID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) { // Unique constraint for slug
			return fmt.Errorf("problem with slug %q already exists: %w", p.Slug, common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) SaveProblem(ctx context.Context, p *model.Problem, expected model.ProblemStatus) (*model.Problem, error) {
	query := `UPDATE problems p SET
	              title = $1, slug = $2, summary = $3, content = $4, category = $5, problem_type = $6,
	              difficulty = $7, tags = $8, status = $9, reviewed_by = $10, reviewed_at = $11,
	              rejection_reason = $12, deleted_at = $13, updated_at = $14
	          WHERE p.id = $15 AND p.status = $16 AND p.deleted_at IS NULL
	          RETURNING ` + problemColumns

	saved, err := scanProblem(r.db.QueryRowContext(ctx, query,
		p.Title, p.Slug, p.Summary, p.Content, p.Category, p.ProblemType,
		p.Difficulty, stringsOrEmpty(p.Tags), p.Status, p.ReviewedByID, p.ReviewedAt,
		p.RejectionReason, p.DeletedAt, p.UpdatedAt,
		p.ID, expected,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleWrite
		}
		if common.IsUniqueViolation(err) {
			return nil, fmt.Errorf("problem with slug %q already exists: %w", p.Slug, common.ErrConflict)
		}
		return nil, fmt.Errorf("pgProblemRepository.SaveProblem: %w", err)
	}
	return saved, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.id = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.slug = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemBySlug: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM problems WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgProblemRepository.SlugExists: %w", err)
	}
	return exists, nil
}

// problemConditions renders the filter predicates onto b. Soft-deleted rows never match.
func problemConditions(b *queryBuilder, f model.ProblemFilter) {
	b.where("p.deleted_at IS NULL")
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		b.where("p.status = ANY(" + b.arg(statuses) + ")")
	}
	if f.OwnerID != "" {
		b.where("p.created_by = " + b.arg(f.OwnerID))
	}
	if f.Category != "" {
		b.where("p.category = " + b.arg(strings.ToUpper(f.Category)))
	}
	if f.ProblemType != "" {
		b.where("p.problem_type = " + b.arg(strings.ToUpper(f.ProblemType)))
	}
	if f.Difficulty != "" {
		b.where("p.difficulty = " + b.arg(f.Difficulty))
	}
	if len(f.Tags) > 0 {
		b.where("p.tags && " + b.arg(f.Tags))
	}
	if f.Search != "" {
		like := b.arg("%" + f.Search + "%")
		b.where(fmt.Sprintf("(p.title ILIKE %[1]s OR p.summary ILIKE %[1]s OR p.content ILIKE %[1]s OR array_to_string(p.tags, ' ') ILIKE %[1]s)", like))
	}
	if f.SavedBy != "" {
		b.where("EXISTS (SELECT 1 FROM saved_problems sp WHERE sp.problem_id = p.id AND sp.user_id = " + b.arg(f.SavedBy) + ")")
	}
}

func countProblemsQuery(f model.ProblemFilter) (string, []interface{}) {
	var b queryBuilder
	problemConditions(&b, f)
	return `SELECT COUNT(*) FROM problems p` + b.clause(), b.args
}

// listProblemsQuery selects one page, newest first.
func listProblemsQuery(f model.ProblemFilter) (string, []interface{}) {
	var b queryBuilder
	problemConditions(&b, f)
	query := `SELECT ` + problemColumns + ` FROM problems p` + b.clause() +
		` ORDER BY p.created_at DESC, p.id` + b.page(f.Limit, f.Offset)
	return query, b.args
}

func (r *pgProblemRepository) CountProblems(ctx context.Context, f model.ProblemFilter) (int, error) {
	query, args := countProblemsQuery(f)
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.CountProblems: %w", err)
	}
	return total, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, f model.ProblemFilter) ([]model.Problem, int, error) {
	// Count total matching problems (without limit/offset)
	total, err := r.CountProblems(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	query, args := listProblemsQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}

	return problems, total, nil
}
