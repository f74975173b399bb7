package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conceptColumns = `id, ontology_id, name, definition, category, position_x, position_y, created_at, updated_at`

type conceptRepository struct {
	pool *pgxpool.Pool
}

// NewConceptRepository wires a repository backed by pgxpool.
func NewConceptRepository(pool *pgxpool.Pool) ConceptRepository {
	return &conceptRepository{pool: pool}
}

func (r *conceptRepository) Load(ctx context.Context, ontologyID int64) ([]domain.Concept, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+conceptColumns+` FROM concepts WHERE ontology_id = $1 ORDER BY id`,
		ontologyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}
	defer rows.Close()
	return scanConcepts(rows)
}

func (r *conceptRepository) LoadByIDs(ctx context.Context, ids []int64) ([]domain.Concept, error) {
	if len(ids) == 0 {
		return []domain.Concept{}, nil
	}
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+conceptColumns+` FROM concepts WHERE id = ANY($1) ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts by ids: %w", err)
	}
	defer rows.Close()
	return scanConcepts(rows)
}

func (r *conceptRepository) ExistsByName(ctx context.Context, ontologyID int64, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM concepts WHERE ontology_id = $1 AND name = $2)`,
		ontologyID,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check concept name: %w", err)
	}
	return exists, nil
}

func (r *conceptRepository) Insert(ctx context.Context, concept domain.Concept) (domain.Concept, error) {
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO concepts (ontology_id, name, definition, category, position_x, position_y)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		concept.OntologyID,
		concept.Name,
		concept.Definition,
		concept.Category,
		concept.PositionX,
		concept.PositionY,
	).Scan(&concept.ID, &concept.CreatedAt, &concept.UpdatedAt)
	if err != nil {
		return domain.Concept{}, fmt.Errorf("failed to insert concept: %w", err)
	}
	return concept, nil
}

func (r *conceptRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM concepts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete concept: %w", err)
	}
	return nil
}

func scanConcepts(rows pgx.Rows) ([]domain.Concept, error) {
	concepts := []domain.Concept{}
	for rows.Next() {
		var c domain.Concept
		if err := rows.Scan(
			&c.ID,
			&c.OntologyID,
			&c.Name,
			&c.Definition,
			&c.Category,
			&c.PositionX,
			&c.PositionY,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate concepts: %w", err)
	}
	return concepts, nil
}
