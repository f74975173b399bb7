package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ontologyRepository struct {
	pool *pgxpool.Pool
}

// NewOntologyRepository wires a repository backed by pgxpool.
func NewOntologyRepository(pool *pgxpool.Pool) OntologyRepository {
	return &ontologyRepository{pool: pool}
}

func (r *ontologyRepository) Create(ctx context.Context, ontology domain.Ontology) (domain.Ontology, error) {
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO ontologies (name, description)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		ontology.Name,
		ontology.Description,
	).Scan(&ontology.ID, &ontology.CreatedAt)
	if err != nil {
		return domain.Ontology{}, fmt.Errorf("failed to create ontology: %w", err)
	}
	return ontology, nil
}

func (r *ontologyRepository) GetByID(ctx context.Context, id int64) (domain.Ontology, error) {
	var ontology domain.Ontology
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, name, description, created_at FROM ontologies WHERE id = $1`,
		id,
	).Scan(&ontology.ID, &ontology.Name, &ontology.Description, &ontology.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ontology{}, fmt.Errorf("ontology %d: %w", id, domain.ErrNotFound)
		}
		return domain.Ontology{}, fmt.Errorf("failed to get ontology: %w", err)
	}
	return ontology, nil
}

func (r *ontologyRepository) List(ctx context.Context) ([]domain.Ontology, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, name, description, created_at FROM ontologies ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ontologies: %w", err)
	}
	defer rows.Close()

	ontologies := []domain.Ontology{}
	for rows.Next() {
		var ontology domain.Ontology
		if scanErr := rows.Scan(&ontology.ID, &ontology.Name, &ontology.Description, &ontology.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ontology: %w", scanErr)
		}
		ontologies = append(ontologies, ontology)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate ontologies: %w", rowsErr)
	}
	return ontologies, nil
}

func (r *ontologyRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM ontologies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete ontology: %w", err)
	}
	return nil
}
