package repository

import (
	"context"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/google/uuid"
)

// OntologyRepository defines the interface for ontology operations
type OntologyRepository interface {
	Create(ctx context.Context, ontology domain.Ontology) (domain.Ontology, error)
	GetByID(ctx context.Context, id int64) (domain.Ontology, error)
	List(ctx context.Context) ([]domain.Ontology, error)
	Delete(ctx context.Context, id int64) error
}

// ConceptRepository defines the interface for concept operations
type ConceptRepository interface {
	Load(ctx context.Context, ontologyID int64) ([]domain.Concept, error)
	LoadByIDs(ctx context.Context, ids []int64) ([]domain.Concept, error)
	ExistsByName(ctx context.Context, ontologyID int64, name string) (bool, error)
	Insert(ctx context.Context, concept domain.Concept) (domain.Concept, error)
	Delete(ctx context.Context, id int64) error
}

// RelationshipRepository defines the interface for relationship operations
type RelationshipRepository interface {
	Load(ctx context.Context, ontologyID int64) ([]domain.Relationship, error)
	LoadByIDs(ctx context.Context, ids []int64) ([]domain.Relationship, error)
	ExistsMatching(ctx context.Context, ontologyID, sourceConceptID, targetConceptID int64, relationType string) (bool, error)
	Insert(ctx context.Context, relationship domain.Relationship) (domain.Relationship, error)
	Delete(ctx context.Context, id int64) error
}

// IndividualRepository defines the interface for individual operations
type IndividualRepository interface {
	Load(ctx context.Context, ontologyID int64) ([]domain.Individual, error)
	LoadByIDs(ctx context.Context, ids []int64) ([]domain.Individual, error)
	ExistsByName(ctx context.Context, ontologyID int64, name string) (bool, error)
	Insert(ctx context.Context, individual domain.Individual) (domain.Individual, error)
	Delete(ctx context.Context, id int64) error
}

// ActivityRepository stores the append-only per-ontology activity log.
// Records are write-once; no update or delete path exists.
type ActivityRepository interface {
	// Record inserts an activity record. A zero VersionNumber is assigned
	// the next monotonic version for the ontology, safely under concurrent
	// writers. The record's ID, VersionNumber and CreatedAt are filled in.
	Record(ctx context.Context, record *domain.ActivityRecord) error
	CurrentVersion(ctx context.Context, ontologyID int64) (int64, error)
	HasVersion(ctx context.Context, ontologyID, versionNumber int64) (bool, error)
	GetByID(ctx context.Context, id int64) (domain.ActivityRecord, error)
	List(ctx context.Context, ontologyID int64, filter *domain.ActivityFilter, limit, offset int) ([]domain.ActivityRecord, int, error)
	ListByEntity(ctx context.Context, ontologyID int64, kind domain.EntityKind, entityID int64) ([]domain.ActivityRecord, error)
	ListUpToVersion(ctx context.Context, ontologyID, versionNumber int64) ([]domain.ActivityRecord, error)
	Stats(ctx context.Context, ontologyID int64) (domain.VersionStats, error)
}

// SnapshotRepository persists frozen base snapshots for merge requests.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot domain.BaseSnapshot) (domain.BaseSnapshot, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.BaseSnapshot, error)
	ListByOntology(ctx context.Context, ontologyID int64) ([]domain.BaseSnapshot, error)
}

// GraphRepository performs the revert engine's destructive reconstruction.
type GraphRepository interface {
	// ReplaceGraph atomically deletes all live rows for the plan's ontology
	// in dependency order and recreates the planned rows with fresh
	// surrogate ids. Cross-references are remapped; seeds referencing an
	// unrestored concept are reported as skipped.
	ReplaceGraph(ctx context.Context, plan domain.RestorePlan) (domain.RestoreOutcome, error)
}
