package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

type MetadataRepository interface {
	CreateMetadata(ctx context.Context, m *model.Metadata) error
	UpdateMetadata(ctx context.Context, m *model.Metadata) error
	FindMetadataByID(ctx context.Context, id string) (*model.Metadata, error)
	// ListMetadata orders by sort order then key. An empty type lists every type.
	ListMetadata(ctx context.Context, typ model.MetadataType, activeOnly bool) ([]model.Metadata, error)
}

const metadataColumns = `id, type, key, label, description, is_active, sort_order, created_at, updated_at`

type pgMetadataRepository struct {
	db *sql.DB
}

func NewPgMetadataRepository(db *sql.DB) MetadataRepository {
	return &pgMetadataRepository{db: db}
}

func scanMetadata(row rowScanner) (*model.Metadata, error) {
	m := &model.Metadata{}
	err := row.Scan(&m.ID, &m.Type, &m.Key, &m.Label, &m.Description, &m.IsActive, &m.Order, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMetadataRepository) CreateMetadata(ctx context.Context, m *model.Metadata) error {
	query := `INSERT INTO metadata (` + metadataColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.Type, m.Key, m.Label, m.Description, m.IsActive, m.Order,
		m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("%s %q already exists: %w", m.Type, m.Key, common.ErrConflict)
		}
		return fmt.Errorf("pgMetadataRepository.CreateMetadata: %w", err)
	}
	return nil
}

// UpdateMetadata rewrites the mutable fields. Type and key are fixed once created.
func (r *pgMetadataRepository) UpdateMetadata(ctx context.Context, m *model.Metadata) error {
	query := `UPDATE metadata SET label = $1, description = $2, is_active = $3, sort_order = $4, updated_at = $5
	          WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, m.Label, m.Description, m.IsActive, m.Order, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("pgMetadataRepository.UpdateMetadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgMetadataRepository.UpdateMetadata rows: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgMetadataRepository) FindMetadataByID(ctx context.Context, id string) (*model.Metadata, error) {
	m, err := scanMetadata(r.db.QueryRowContext(ctx, `SELECT `+metadataColumns+` FROM metadata WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgMetadataRepository.FindMetadataByID: %w", err)
	}
	return m, nil
}

func (r *pgMetadataRepository) ListMetadata(ctx context.Context, typ model.MetadataType, activeOnly bool) ([]model.Metadata, error) {
	var b queryBuilder
	if typ != "" {
		b.where("type = " + b.arg(typ))
	}
	if activeOnly {
		b.where("is_active = TRUE")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+metadataColumns+` FROM metadata`+b.clause()+` ORDER BY type, sort_order, key`, b.args...)
	if err != nil {
		return nil, fmt.Errorf("pgMetadataRepository.ListMetadata query: %w", err)
	}
	defer rows.Close()

	items := []model.Metadata{}
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("pgMetadataRepository.ListMetadata scan: %w", err)
		}
		items = append(items, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgMetadataRepository.ListMetadata rows.Err: %w", err)
	}
	return items, nil
}
