package versioning

import (
	"context"
	"log"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/graphloader"
	"github.com/rpattn/ontograph/internal/repository"
)

// ConflictCheck pairs a change record with its conflict verdict.
type ConflictCheck struct {
	Change      domain.ChangeRecord `json:"change"`
	HasConflict bool                `json:"has_conflict"`
	Reason      string              `json:"reason,omitempty"`
}

// ConflictDetector checks whether a change-set still applies cleanly against
// the live graph. Detection fails open: an internal error during a check is
// logged and reported as no conflict, so a flaky store never blocks a merge.
type ConflictDetector struct {
	loaders       *graphloader.Loaders
	concepts      repository.ConceptRepository
	relationships repository.RelationshipRepository
	individuals   repository.IndividualRepository
}

// NewConflictDetector wires the detector over batched loaders and the entity
// repositories.
func NewConflictDetector(
	loaders *graphloader.Loaders,
	concepts repository.ConceptRepository,
	relationships repository.RelationshipRepository,
	individuals repository.IndividualRepository,
) *ConflictDetector {
	return &ConflictDetector{
		loaders:       loaders,
		concepts:      concepts,
		relationships: relationships,
		individuals:   individuals,
	}
}

// CheckAll evaluates every record of a change-set, preserving order.
func (d *ConflictDetector) CheckAll(ctx context.Context, changes []domain.ChangeRecord) []ConflictCheck {
	checks := make([]ConflictCheck, len(changes))
	for i, change := range changes {
		conflict, reason := d.Check(ctx, change)
		checks[i] = ConflictCheck{Change: change, HasConflict: conflict, Reason: reason}
	}
	return checks
}

// Check evaluates one change record. An addition conflicts when an equivalent
// entity already exists live; a modification or deletion conflicts when its
// target no longer exists live.
func (d *ConflictDetector) Check(ctx context.Context, change domain.ChangeRecord) (bool, string) {
	switch change.ChangeType {
	case domain.ChangeAdd:
		return d.checkAddition(ctx, change)
	case domain.ChangeModify, domain.ChangeDelete:
		return d.checkTargetPresence(ctx, change)
	default:
		log.Printf("[Conflict] unknown change type %q for %s %d, assuming no conflict",
			change.ChangeType, change.EntityKind, change.EntityID)
		return false, ""
	}
}

func (d *ConflictDetector) checkAddition(ctx context.Context, change domain.ChangeRecord) (bool, string) {
	if change.After == nil {
		log.Printf("[Conflict] addition for %s %d carries no state, assuming no conflict",
			change.EntityKind, change.EntityID)
		return false, ""
	}

	switch change.EntityKind {
	case domain.KindConcept:
		concept, err := domain.DecodeConcept(*change.After)
		if err != nil {
			return d.failOpen(change, err)
		}
		exists, err := d.concepts.ExistsByName(ctx, change.OntologyID, concept.Name)
		if err != nil {
			return d.failOpen(change, err)
		}
		if exists {
			return true, "a concept with this name already exists"
		}
	case domain.KindRelationship:
		rel, err := domain.DecodeRelationship(*change.After)
		if err != nil {
			return d.failOpen(change, err)
		}
		exists, err := d.relationships.ExistsMatching(ctx, change.OntologyID, rel.SourceConceptID, rel.TargetConceptID, rel.RelationType)
		if err != nil {
			return d.failOpen(change, err)
		}
		if exists {
			return true, "an equivalent relationship already exists"
		}
	case domain.KindIndividual:
		ind, err := domain.DecodeIndividual(*change.After)
		if err != nil {
			return d.failOpen(change, err)
		}
		exists, err := d.individuals.ExistsByName(ctx, change.OntologyID, ind.Name)
		if err != nil {
			return d.failOpen(change, err)
		}
		if exists {
			return true, "an individual with this name already exists"
		}
	}
	return false, ""
}

func (d *ConflictDetector) checkTargetPresence(ctx context.Context, change domain.ChangeRecord) (bool, string) {
	var (
		found bool
		err   error
	)
	switch change.EntityKind {
	case domain.KindConcept:
		_, found, err = d.loaders.ConceptByID(ctx, change.EntityID)
	case domain.KindRelationship:
		_, found, err = d.loaders.RelationshipByID(ctx, change.EntityID)
	case domain.KindIndividual:
		_, found, err = d.loaders.IndividualByID(ctx, change.EntityID)
	default:
		return false, ""
	}
	if err != nil {
		return d.failOpen(change, err)
	}
	if !found {
		return true, "the target entity no longer exists"
	}
	return false, ""
}

func (d *ConflictDetector) failOpen(change domain.ChangeRecord, err error) (bool, string) {
	log.Printf("[Conflict] check failed for %s %s %d, assuming no conflict: %v",
		change.ChangeType, change.EntityKind, change.EntityID, err)
	return false, ""
}
