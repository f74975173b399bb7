package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const relationshipColumns = `id, ontology_id, source_concept_id, target_concept_id, relation_type, created_at, updated_at`

type relationshipRepository struct {
	pool *pgxpool.Pool
}

// NewRelationshipRepository wires a repository backed by pgxpool.
func NewRelationshipRepository(pool *pgxpool.Pool) RelationshipRepository {
	return &relationshipRepository{pool: pool}
}

func (r *relationshipRepository) Load(ctx context.Context, ontologyID int64) ([]domain.Relationship, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE ontology_id = $1 ORDER BY id`,
		ontologyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func (r *relationshipRepository) LoadByIDs(ctx context.Context, ids []int64) ([]domain.Relationship, error) {
	if len(ids) == 0 {
		return []domain.Relationship{}, nil
	}
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = ANY($1) ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships by ids: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// ExistsMatching is the relationship analogue of a name lookup: two
// relationships are the "same" when source, target and type coincide.
func (r *relationshipRepository) ExistsMatching(ctx context.Context, ontologyID, sourceConceptID, targetConceptID int64, relationType string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM relationships
		   WHERE ontology_id = $1 AND source_concept_id = $2 AND target_concept_id = $3 AND relation_type = $4
		 )`,
		ontologyID,
		sourceConceptID,
		targetConceptID,
		relationType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return exists, nil
}

func (r *relationshipRepository) Insert(ctx context.Context, relationship domain.Relationship) (domain.Relationship, error) {
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO relationships (ontology_id, source_concept_id, target_concept_id, relation_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		relationship.OntologyID,
		relationship.SourceConceptID,
		relationship.TargetConceptID,
		relationship.RelationType,
	).Scan(&relationship.ID, &relationship.CreatedAt, &relationship.UpdatedAt)
	if err != nil {
		return domain.Relationship{}, fmt.Errorf("failed to insert relationship: %w", err)
	}
	return relationship, nil
}

func (r *relationshipRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM relationships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

func scanRelationships(rows pgx.Rows) ([]domain.Relationship, error) {
	relationships := []domain.Relationship{}
	for rows.Next() {
		var rel domain.Relationship
		if err := rows.Scan(
			&rel.ID,
			&rel.OntologyID,
			&rel.SourceConceptID,
			&rel.TargetConceptID,
			&rel.RelationType,
			&rel.CreatedAt,
			&rel.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationships: %w", err)
	}
	return relationships, nil
}
