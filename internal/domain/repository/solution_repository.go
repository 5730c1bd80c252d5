package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

type SolutionRepository interface {
	CreateSolution(ctx context.Context, solution *model.Solution) error
	// SaveSolution writes next only if the stored record is still in the expected status.
	SaveSolution(ctx context.Context, next *model.Solution, expected model.SolutionStatus) (*model.Solution, error)
	DeleteSolution(ctx context.Context, id string) error
	FindSolutionByID(ctx context.Context, id string) (*model.Solution, error)
	// ToggleVisibility flips is_public in place and returns the new record.
	ToggleVisibility(ctx context.Context, id string) (*model.Solution, error)
	// SetVisibility stores is_public as given, whatever it was before.
	SetVisibility(ctx context.Context, id string, public bool) (*model.Solution, error)
	// ToggleUpvote adds or removes userID from the upvoter set and recounts, atomically.
	ToggleUpvote(ctx context.Context, solutionID, userID string) (*model.UpvoteResult, error)
	HasUpvoted(ctx context.Context, solutionID, userID string) (bool, error)
	// ListSolutions annotates each row with whether viewerID has upvoted it. An empty viewerID never has.
	ListSolutions(ctx context.Context, filter model.SolutionFilter, viewerID string) ([]model.SolutionView, int, error)
	// FindSolutionView loads one solution annotated like ListSolutions rows.
	FindSolutionView(ctx context.Context, id, viewerID string) (*model.SolutionView, error)
	CountSolutions(ctx context.Context, filter model.SolutionFilter) (int, error)
}

const solutionColumns = `s.id, s.user_id, s.problem_id, s.repository_url, s.live_demo_url, s.content, s.tech_stack,
	s.status, s.is_public, s.reviewed_by, s.reviewed_at, s.rejection_reason, s.upvote_count, s.created_at, s.updated_at`

type pgSolutionRepository struct {
	db *sql.DB
}

func NewPgSolutionRepository(db *sql.DB) SolutionRepository {
	return &pgSolutionRepository{db: db}
}

func solutionDest(s *model.Solution) []interface{} {
	return []interface{}{
		&s.ID, &s.UserID, &s.ProblemID, &s.RepositoryURL, &s.LiveDemoURL, &s.Content, textArray(&s.TechStack),
		&s.Status, &s.IsPublic, &s.ReviewedByID, &s.ReviewedAt, &s.RejectionReason, &s.UpvoteCount, &s.CreatedAt, &s.UpdatedAt,
	}
}

func scanSolution(row rowScanner) (*model.Solution, error) {
	s := &model.Solution{}
	if err := row.Scan(solutionDest(s)...); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgSolutionRepository) CreateSolution(ctx context.Context, s *model.Solution) error {
	query := `INSERT INTO solutions (id, user_id, problem_id, repository_url, live_demo_url, content, tech_stack,
	              status, is_public, upvote_count, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)`

	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.ProblemID, s.RepositoryURL, s.LiveDemoURL, s.Content,
		stringsOrEmpty(s.TechStack), s.Status, s.IsPublic, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) { // (user_id, problem_id)
			return common.ErrDuplicateSolution
		}
		return fmt.Errorf("pgSolutionRepository.CreateSolution: %w", err)
	}
	return nil
}

func (r *pgSolutionRepository) SaveSolution(ctx context.Context, s *model.Solution, expected model.SolutionStatus) (*model.Solution, error) {
	query := `UPDATE solutions s SET
	              repository_url = $1, live_demo_url = $2, content = $3, tech_stack = $4, status = $5,
	              reviewed_by = $6, reviewed_at = $7, rejection_reason = $8, updated_at = $9
	          WHERE s.id = $10 AND s.status = $11
	          RETURNING ` + solutionColumns

	saved, err := scanSolution(r.db.QueryRowContext(ctx, query,
		s.RepositoryURL, s.LiveDemoURL, s.Content, stringsOrEmpty(s.TechStack), s.Status,
		s.ReviewedByID, s.ReviewedAt, s.RejectionReason, s.UpdatedAt,
		s.ID, expected,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleWrite
		}
		return nil, fmt.Errorf("pgSolutionRepository.SaveSolution: %w", err)
	}
	return saved, nil
}

func (r *pgSolutionRepository) DeleteSolution(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM solutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.DeleteSolution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.DeleteSolution rows: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSolutionRepository) FindSolutionByID(ctx context.Context, id string) (*model.Solution, error) {
	s, err := scanSolution(r.db.QueryRowContext(ctx, `SELECT `+solutionColumns+` FROM solutions s WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.FindSolutionByID: %w", err)
	}
	return s, nil
}

func (r *pgSolutionRepository) ToggleVisibility(ctx context.Context, id string) (*model.Solution, error) {
	query := `UPDATE solutions s SET is_public = NOT s.is_public, updated_at = NOW()
	          WHERE s.id = $1 RETURNING ` + solutionColumns
	s, err := scanSolution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.ToggleVisibility: %w", err)
	}
	return s, nil
}

func (r *pgSolutionRepository) SetVisibility(ctx context.Context, id string, public bool) (*model.Solution, error) {
	query := `UPDATE solutions s SET is_public = $1, updated_at = NOW()
	          WHERE s.id = $2 RETURNING ` + solutionColumns
	s, err := scanSolution(r.db.QueryRowContext(ctx, query, public, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.SetVisibility: %w", err)
	}
	return s, nil
}

func (r *pgSolutionRepository) ToggleUpvote(ctx context.Context, solutionID, userID string) (*model.UpvoteResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	// Row lock serializes concurrent toggles on the same solution.
	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM solutions WHERE id = $1 FOR UPDATE`, solutionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote lock: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM solution_upvotes WHERE solution_id = $1 AND user_id = $2`, solutionID, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote delete: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote rows: %w", err)
	}
	if removed == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO solution_upvotes (solution_id, user_id, created_at)
		                              VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING`, solutionID, userID)
		if err != nil {
			return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote insert: %w", err)
		}
	}

	result := &model.UpvoteResult{SolutionID: solutionID, Upvoted: removed == 0}
	query := `UPDATE solutions SET upvote_count = (SELECT COUNT(*) FROM solution_upvotes WHERE solution_id = $1)
	          WHERE id = $1 RETURNING upvote_count`
	if err := tx.QueryRowContext(ctx, query, solutionID).Scan(&result.UpvoteCount); err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote recount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.ToggleUpvote commit: %w", err)
	}
	return result, nil
}

func (r *pgSolutionRepository) HasUpvoted(ctx context.Context, solutionID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM solution_upvotes WHERE solution_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, solutionID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgSolutionRepository.HasUpvoted: %w", err)
	}
	return exists, nil
}

// solutionConditions renders the filter predicates onto b.
func solutionConditions(b *queryBuilder, f model.SolutionFilter) {
	if f.ProblemID != "" {
		b.where("s.problem_id = " + b.arg(f.ProblemID))
	}
	if f.UserID != "" {
		b.where("s.user_id = " + b.arg(f.UserID))
	}
	if f.PublicOnly {
		b.where("s.is_public = TRUE")
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		b.where("s.status = ANY(" + b.arg(statuses) + ")")
	}
}

// Author and problem are joined for display; the EXISTS column answers has_liked for the viewer.
const solutionViewJoins = ` LEFT JOIN users au ON au.id = s.user_id LEFT JOIN problems pr ON pr.id = s.problem_id`

func solutionViewColumns(viewer string) string {
	return solutionColumns + `,
	    EXISTS (SELECT 1 FROM solution_upvotes uv WHERE uv.solution_id = s.id AND uv.user_id = ` + viewer + `) AS has_liked,
	    COALESCE(au.name, ''), COALESCE(pr.title, ''), COALESCE(pr.slug, '')`
}

func scanSolutionView(row rowScanner) (*model.SolutionView, error) {
	v := &model.SolutionView{}
	dest := append(solutionDest(&v.Solution), &v.HasLiked, &v.AuthorName, &v.ProblemTitle, &v.ProblemSlug)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return v, nil
}

func countSolutionsQuery(f model.SolutionFilter) (string, []interface{}) {
	var b queryBuilder
	solutionConditions(&b, f)
	return `SELECT COUNT(*) FROM solutions s` + b.clause(), b.args
}

// listSolutionsQuery binds the viewer as $1, then the filter, then LIMIT/OFFSET.
func listSolutionsQuery(f model.SolutionFilter, viewerID string) (string, []interface{}) {
	var b queryBuilder
	viewer := b.arg(viewerID)
	solutionConditions(&b, f)

	order := ` ORDER BY s.created_at DESC, s.id`
	if f.Sort == model.SortTopUpvoted {
		order = ` ORDER BY s.upvote_count DESC, s.created_at DESC, s.id`
	}
	query := `SELECT ` + solutionViewColumns(viewer) + ` FROM solutions s` + solutionViewJoins +
		b.clause() + order + b.page(f.Limit, f.Offset)
	return query, b.args
}

func (r *pgSolutionRepository) CountSolutions(ctx context.Context, f model.SolutionFilter) (int, error) {
	query, args := countSolutionsQuery(f)
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("pgSolutionRepository.CountSolutions: %w", err)
	}
	return total, nil
}

func (r *pgSolutionRepository) ListSolutions(ctx context.Context, f model.SolutionFilter, viewerID string) ([]model.SolutionView, int, error) {
	total, err := r.CountSolutions(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	query, args := listSolutionsQuery(f, viewerID)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSolutionRepository.ListSolutions query: %w", err)
	}
	defer rows.Close()

	views := []model.SolutionView{}
	for rows.Next() {
		v, err := scanSolutionView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgSolutionRepository.ListSolutions scan: %w", err)
		}
		views = append(views, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSolutionRepository.ListSolutions rows.Err: %w", err)
	}
	return views, total, nil
}

func (r *pgSolutionRepository) FindSolutionView(ctx context.Context, id, viewerID string) (*model.SolutionView, error) {
	query := `SELECT ` + solutionViewColumns("$1") + ` FROM solutions s` + solutionViewJoins + ` WHERE s.id = $2`
	v, err := scanSolutionView(r.db.QueryRowContext(ctx, query, viewerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.FindSolutionView: %w", err)
	}
	return v, nil
}
