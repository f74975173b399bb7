package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/ontograph/internal/db"
	"github.com/rpattn/ontograph/internal/domain"

	"github.com/jackc/pgx/v5"
)

type graphRepository struct {
	conn *db.Connection
}

// NewGraphRepository wires the destructive graph reconstruction path.
func NewGraphRepository(conn *db.Connection) GraphRepository {
	return &graphRepository{conn: conn}
}

// ReplaceGraph runs delete-then-recreate as one transaction so a failure at
// any point leaves the previous graph intact. Deletes run in dependency
// order (restrictions, individuals, relationships, concepts); recreation
// runs in reverse with concepts batch-inserted first to obtain the
// old-to-new id map for cross-reference resolution.
func (r *graphRepository) ReplaceGraph(ctx context.Context, plan domain.RestorePlan) (domain.RestoreOutcome, error) {
	outcome := domain.RestoreOutcome{
		Concepts:      []domain.Concept{},
		Relationships: []domain.Relationship{},
		Individuals:   []domain.Individual{},
		ConceptIDMap:  map[int64]int64{},
	}

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		deletes := []string{
			`DELETE FROM concept_restrictions WHERE ontology_id = $1`,
			`DELETE FROM individuals WHERE ontology_id = $1`,
			`DELETE FROM relationships WHERE ontology_id = $1`,
			`DELETE FROM concepts WHERE ontology_id = $1`,
		}
		for _, stmt := range deletes {
			if _, err := tx.Exec(ctx, stmt, plan.OntologyID); err != nil {
				return fmt.Errorf("failed to clear graph tables: %w", err)
			}
		}

		// The graph must be empty before recreation starts.
		var remaining int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM concepts WHERE ontology_id = $1`, plan.OntologyID).Scan(&remaining); err != nil {
			return fmt.Errorf("failed to verify graph deletion: %w", err)
		}
		if remaining != 0 {
			return fmt.Errorf("%d concepts remained after deletion: %w", remaining, domain.ErrGraphNotCleared)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if len(plan.Concepts) > 0 {
			batch := &pgx.Batch{}
			for _, seed := range plan.Concepts {
				batch.Queue(
					`INSERT INTO concepts (ontology_id, name, definition, category, position_x, position_y)
					 VALUES ($1, $2, $3, $4, $5, $6)
					 RETURNING id, created_at, updated_at`,
					plan.OntologyID,
					seed.Concept.Name,
					seed.Concept.Definition,
					seed.Concept.Category,
					seed.Concept.PositionX,
					seed.Concept.PositionY,
				)
			}
			results := tx.SendBatch(ctx, batch)
			for _, seed := range plan.Concepts {
				restored := seed.Concept
				restored.OntologyID = plan.OntologyID
				if err := results.QueryRow().Scan(&restored.ID, &restored.CreatedAt, &restored.UpdatedAt); err != nil {
					results.Close()
					return fmt.Errorf("failed to recreate concept %d: %w", seed.OldID, err)
				}
				outcome.ConceptIDMap[seed.OldID] = restored.ID
				outcome.Concepts = append(outcome.Concepts, restored)
			}
			if err := results.Close(); err != nil {
				return fmt.Errorf("failed to finish concept batch: %w", err)
			}
		}

		relationships, skippedRels := domain.ResolveRelationshipSeeds(plan.OntologyID, plan.Relationships, outcome.ConceptIDMap)
		outcome.Skipped = append(outcome.Skipped, skippedRels...)
		if len(relationships) > 0 {
			batch := &pgx.Batch{}
			for _, rel := range relationships {
				batch.Queue(
					`INSERT INTO relationships (ontology_id, source_concept_id, target_concept_id, relation_type)
					 VALUES ($1, $2, $3, $4)
					 RETURNING id, created_at, updated_at`,
					rel.OntologyID,
					rel.SourceConceptID,
					rel.TargetConceptID,
					rel.RelationType,
				)
			}
			results := tx.SendBatch(ctx, batch)
			for _, rel := range relationships {
				if err := results.QueryRow().Scan(&rel.ID, &rel.CreatedAt, &rel.UpdatedAt); err != nil {
					results.Close()
					return fmt.Errorf("failed to recreate relationship: %w", err)
				}
				outcome.Relationships = append(outcome.Relationships, rel)
			}
			if err := results.Close(); err != nil {
				return fmt.Errorf("failed to finish relationship batch: %w", err)
			}
		}

		individuals, skippedInds := domain.ResolveIndividualSeeds(plan.OntologyID, plan.Individuals, outcome.ConceptIDMap)
		outcome.Skipped = append(outcome.Skipped, skippedInds...)
		if len(individuals) > 0 {
			batch := &pgx.Batch{}
			for _, ind := range individuals {
				batch.Queue(
					`INSERT INTO individuals (ontology_id, concept_id, name, description)
					 VALUES ($1, $2, $3, $4)
					 RETURNING id, created_at, updated_at`,
					ind.OntologyID,
					ind.ConceptID,
					ind.Name,
					ind.Description,
				)
			}
			results := tx.SendBatch(ctx, batch)
			for _, ind := range individuals {
				if err := results.QueryRow().Scan(&ind.ID, &ind.CreatedAt, &ind.UpdatedAt); err != nil {
					results.Close()
					return fmt.Errorf("failed to recreate individual: %w", err)
				}
				outcome.Individuals = append(outcome.Individuals, ind)
			}
			if err := results.Close(); err != nil {
				return fmt.Errorf("failed to finish individual batch: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return domain.RestoreOutcome{}, err
	}
	return outcome, nil
}
