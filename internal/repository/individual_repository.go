package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const individualColumns = `id, ontology_id, concept_id, name, description, created_at, updated_at`

type individualRepository struct {
	pool *pgxpool.Pool
}

// NewIndividualRepository wires a repository backed by pgxpool.
func NewIndividualRepository(pool *pgxpool.Pool) IndividualRepository {
	return &individualRepository{pool: pool}
}

func (r *individualRepository) Load(ctx context.Context, ontologyID int64) ([]domain.Individual, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+individualColumns+` FROM individuals WHERE ontology_id = $1 ORDER BY id`,
		ontologyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load individuals: %w", err)
	}
	defer rows.Close()
	return scanIndividuals(rows)
}

func (r *individualRepository) LoadByIDs(ctx context.Context, ids []int64) ([]domain.Individual, error) {
	if len(ids) == 0 {
		return []domain.Individual{}, nil
	}
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+individualColumns+` FROM individuals WHERE id = ANY($1) ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load individuals by ids: %w", err)
	}
	defer rows.Close()
	return scanIndividuals(rows)
}

func (r *individualRepository) ExistsByName(ctx context.Context, ontologyID int64, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM individuals WHERE ontology_id = $1 AND name = $2)`,
		ontologyID,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check individual name: %w", err)
	}
	return exists, nil
}

func (r *individualRepository) Insert(ctx context.Context, individual domain.Individual) (domain.Individual, error) {
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO individuals (ontology_id, concept_id, name, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		individual.OntologyID,
		individual.ConceptID,
		individual.Name,
		individual.Description,
	).Scan(&individual.ID, &individual.CreatedAt, &individual.UpdatedAt)
	if err != nil {
		return domain.Individual{}, fmt.Errorf("failed to insert individual: %w", err)
	}
	return individual, nil
}

func (r *individualRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM individuals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete individual: %w", err)
	}
	return nil
}

func scanIndividuals(rows pgx.Rows) ([]domain.Individual, error) {
	individuals := []domain.Individual{}
	for rows.Next() {
		var ind domain.Individual
		if err := rows.Scan(
			&ind.ID,
			&ind.OntologyID,
			&ind.ConceptID,
			&ind.Name,
			&ind.Description,
			&ind.CreatedAt,
			&ind.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan individual: %w", err)
		}
		individuals = append(individuals, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate individuals: %w", err)
	}
	return individuals, nil
}
