package domain

import "fmt"

// Revert rebuilds live graph tables from historical snapshots. The plan is
// assembled fully in memory first: concepts are inserted as a batch with
// fresh surrogate ids, and cross-references are resolved afterwards through
// the returned old-id map rather than interleaving per-row inserts.

// ConceptSeed is one concept to recreate, keyed by its historical id.
type ConceptSeed struct {
	OldID   int64
	Concept Concept
}

// RelationshipSeed is one relationship to recreate. Endpoints reference
// historical concept ids and must be translated before insert.
type RelationshipSeed struct {
	OldID        int64
	OldSourceID  int64
	OldTargetID  int64
	RelationType string
}

// IndividualSeed is one individual to recreate. The owning concept id
// references the historical concept id.
type IndividualSeed struct {
	OldID        int64
	OldConceptID int64
	Name         string
	Description  string
}

// RestorePlan is the full in-memory arena for one graph reconstruction.
type RestorePlan struct {
	OntologyID    int64
	Concepts      []ConceptSeed
	Relationships []RelationshipSeed
	Individuals   []IndividualSeed
}

// SkippedReference records a seed that could not be recreated because a
// referenced concept was not restored.
type SkippedReference struct {
	Kind   EntityKind `json:"kind"`
	OldID  int64      `json:"old_id"`
	Reason string     `json:"reason"`
}

// RestoreOutcome reports the rows a graph reconstruction produced.
type RestoreOutcome struct {
	Concepts      []Concept
	Relationships []Relationship
	Individuals   []Individual
	ConceptIDMap  map[int64]int64
	Skipped       []SkippedReference
}

// ResolveRelationshipSeeds translates relationship endpoints through the
// old-to-new concept id map. Seeds referencing an unrestored endpoint are
// skipped, never inserted dangling.
func ResolveRelationshipSeeds(ontologyID int64, seeds []RelationshipSeed, idMap map[int64]int64) ([]Relationship, []SkippedReference) {
	resolved := make([]Relationship, 0, len(seeds))
	var skipped []SkippedReference
	for _, seed := range seeds {
		sourceID, sourceOK := idMap[seed.OldSourceID]
		targetID, targetOK := idMap[seed.OldTargetID]
		if !sourceOK || !targetOK {
			skipped = append(skipped, SkippedReference{
				Kind:   KindRelationship,
				OldID:  seed.OldID,
				Reason: fmt.Sprintf("relationship %d references unrestored concept", seed.OldID),
			})
			continue
		}
		resolved = append(resolved, Relationship{
			OntologyID:      ontologyID,
			SourceConceptID: sourceID,
			TargetConceptID: targetID,
			RelationType:    seed.RelationType,
		})
	}
	return resolved, skipped
}

// ResolveIndividualSeeds translates owning-concept ids through the
// old-to-new concept id map, skipping seeds whose concept was not restored.
func ResolveIndividualSeeds(ontologyID int64, seeds []IndividualSeed, idMap map[int64]int64) ([]Individual, []SkippedReference) {
	resolved := make([]Individual, 0, len(seeds))
	var skipped []SkippedReference
	for _, seed := range seeds {
		conceptID, ok := idMap[seed.OldConceptID]
		if !ok {
			skipped = append(skipped, SkippedReference{
				Kind:   KindIndividual,
				OldID:  seed.OldID,
				Reason: fmt.Sprintf("individual %d references unrestored concept", seed.OldID),
			})
			continue
		}
		resolved = append(resolved, Individual{
			OntologyID:  ontologyID,
			ConceptID:   conceptID,
			Name:        seed.Name,
			Description: seed.Description,
		})
	}
	return resolved, skipped
}
