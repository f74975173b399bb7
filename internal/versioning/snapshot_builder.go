package versioning

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"

	"github.com/google/uuid"
)

// SnapshotBuilder captures a full, frozen copy of an ontology's graph. The
// resulting blob is the diff engine's baseline and carries no live
// references.
type SnapshotBuilder struct {
	concepts      repository.ConceptRepository
	relationships repository.RelationshipRepository
	individuals   repository.IndividualRepository
	snapshots     repository.SnapshotRepository
	now           func() time.Time
}

// NewSnapshotBuilder wires the builder over the entity repositories.
func NewSnapshotBuilder(
	concepts repository.ConceptRepository,
	relationships repository.RelationshipRepository,
	individuals repository.IndividualRepository,
	snapshots repository.SnapshotRepository,
) *SnapshotBuilder {
	return &SnapshotBuilder{
		concepts:      concepts,
		relationships: relationships,
		individuals:   individuals,
		snapshots:     snapshots,
		now:           time.Now,
	}
}

// CreateSnapshot loads the current graph and persists it as one timestamped
// base snapshot owned by the given merge request (nil for ad hoc captures).
func (b *SnapshotBuilder) CreateSnapshot(ctx context.Context, ontologyID int64, mergeRequestID *uuid.UUID) (domain.BaseSnapshot, error) {
	set, err := b.loadGraph(ctx, ontologyID)
	if err != nil {
		return domain.BaseSnapshot{}, err
	}

	capturedAt := b.now()
	payload, err := domain.EncodeGraphSet(ontologyID, set, capturedAt)
	if err != nil {
		return domain.BaseSnapshot{}, fmt.Errorf("failed to build base snapshot: %w", err)
	}

	snapshot := domain.BaseSnapshot{
		ID:             uuid.New(),
		OntologyID:     ontologyID,
		MergeRequestID: mergeRequestID,
		Payload:        payload,
		CreatedAt:      capturedAt,
	}
	if b.snapshots == nil {
		return snapshot, nil
	}
	return b.snapshots.Create(ctx, snapshot)
}

func (b *SnapshotBuilder) loadGraph(ctx context.Context, ontologyID int64) (domain.GraphSet, error) {
	concepts, err := b.concepts.Load(ctx, ontologyID)
	if err != nil {
		return domain.GraphSet{}, fmt.Errorf("failed to load concepts for snapshot: %w", err)
	}
	relationships, err := b.relationships.Load(ctx, ontologyID)
	if err != nil {
		return domain.GraphSet{}, fmt.Errorf("failed to load relationships for snapshot: %w", err)
	}
	individuals, err := b.individuals.Load(ctx, ontologyID)
	if err != nil {
		return domain.GraphSet{}, fmt.Errorf("failed to load individuals for snapshot: %w", err)
	}
	return domain.GraphSet{
		Concepts:      concepts,
		Relationships: relationships,
		Individuals:   individuals,
	}, nil
}
