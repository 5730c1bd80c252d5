package repository

import (
	"context"
	"database/sql"
	"fmt"

	"designhub/internal/domain/model"
)

type SavedProblemRepository interface {
	// ToggleSave stores candidate if the user has not saved the problem yet, otherwise removes
	// the existing record. It reports whether the problem is saved afterwards.
	ToggleSave(ctx context.Context, candidate *model.SavedProblem) (bool, error)
	IsSaved(ctx context.Context, userID, problemID string) (bool, error)
	// ListSaved returns the user's saved problems, most recently saved first, with the problem attached.
	ListSaved(ctx context.Context, userID string) ([]model.SavedProblem, error)
	SavedProblemIDs(ctx context.Context, userID string, problemIDs []string) (map[string]bool, error)
}

type pgSavedProblemRepository struct {
	db *sql.DB
}

func NewPgSavedProblemRepository(db *sql.DB) SavedProblemRepository {
	return &pgSavedProblemRepository{db: db}
}

func (r *pgSavedProblemRepository) ToggleSave(ctx context.Context, c *model.SavedProblem) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("pgSavedProblemRepository.ToggleSave begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM saved_problems WHERE user_id = $1 AND problem_id = $2`, c.UserID, c.ProblemID)
	if err != nil {
		return false, fmt.Errorf("pgSavedProblemRepository.ToggleSave delete: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSavedProblemRepository.ToggleSave rows: %w", err)
	}
	if removed == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO saved_problems (id, user_id, problem_id, saved_at)
		                              VALUES ($1, $2, $3, $4) ON CONFLICT (user_id, problem_id) DO NOTHING`,
			c.ID, c.UserID, c.ProblemID, c.SavedAt)
		if err != nil {
			return false, fmt.Errorf("pgSavedProblemRepository.ToggleSave insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("pgSavedProblemRepository.ToggleSave commit: %w", err)
	}
	return removed == 0, nil
}

func (r *pgSavedProblemRepository) IsSaved(ctx context.Context, userID, problemID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM saved_problems WHERE user_id = $1 AND problem_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, userID, problemID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgSavedProblemRepository.IsSaved: %w", err)
	}
	return exists, nil
}

func (r *pgSavedProblemRepository) ListSaved(ctx context.Context, userID string) ([]model.SavedProblem, error) {
	query := `SELECT sp.id, sp.user_id, sp.problem_id, sp.saved_at, ` + problemColumns + `
	          FROM saved_problems sp JOIN problems p ON p.id = sp.problem_id
	          WHERE sp.user_id = $1
	          ORDER BY sp.saved_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSavedProblemRepository.ListSaved query: %w", err)
	}
	defer rows.Close()

	saved := []model.SavedProblem{}
	for rows.Next() {
		var sp model.SavedProblem
		p := &model.Problem{}
		dest := append([]interface{}{&sp.ID, &sp.UserID, &sp.ProblemID, &sp.SavedAt}, problemDest(p)...)
		err := rows.Scan(dest...)
		if err != nil {
			return nil, fmt.Errorf("pgSavedProblemRepository.ListSaved scan: %w", err)
		}
		sp.Problem = p
		saved = append(saved, sp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSavedProblemRepository.ListSaved rows.Err: %w", err)
	}
	return saved, nil
}

func (r *pgSavedProblemRepository) SavedProblemIDs(ctx context.Context, userID string, problemIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(problemIDs))
	if userID == "" || len(problemIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT problem_id FROM saved_problems WHERE user_id = $1 AND problem_id = ANY($2)`,
		userID, problemIDs)
	if err != nil {
		return nil, fmt.Errorf("pgSavedProblemRepository.SavedProblemIDs query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgSavedProblemRepository.SavedProblemIDs scan: %w", err)
		}
		out[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSavedProblemRepository.SavedProblemIDs rows.Err: %w", err)
	}
	return out, nil
}
