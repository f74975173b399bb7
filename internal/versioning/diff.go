package versioning

import (
	"context"
	"fmt"
	"sort"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"

	"github.com/google/uuid"
)

// ChangeDetector compares a frozen base snapshot against live state and
// produces the ordered change-set a merge request reviews.
type ChangeDetector struct {
	concepts      repository.ConceptRepository
	relationships repository.RelationshipRepository
	individuals   repository.IndividualRepository
}

// NewChangeDetector wires the detector over the entity repositories.
func NewChangeDetector(
	concepts repository.ConceptRepository,
	relationships repository.RelationshipRepository,
	individuals repository.IndividualRepository,
) *ChangeDetector {
	return &ChangeDetector{
		concepts:      concepts,
		relationships: relationships,
		individuals:   individuals,
	}
}

// DetectAllChanges diffs the base snapshot blob against live state. Records
// are ordered concepts, then relationships, then individuals; within a kind
// additions, deletions, modifications. Running it twice against the same
// pair yields an identical list.
func (d *ChangeDetector) DetectAllChanges(ctx context.Context, ontologyID int64, basePayload string, mergeRequestID uuid.UUID) ([]domain.ChangeRecord, error) {
	base, err := domain.DecodeGraphSet(basePayload)
	if err != nil {
		return nil, fmt.Errorf("%w: base snapshot unreadable: %v", domain.ErrValidation, err)
	}

	currentConcepts, err := d.concepts.Load(ctx, ontologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load live concepts: %w", err)
	}
	currentRelationships, err := d.relationships.Load(ctx, ontologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load live relationships: %w", err)
	}
	currentIndividuals, err := d.individuals.Load(ctx, ontologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load live individuals: %w", err)
	}

	names := conceptNameIndex(base.Concepts, currentConcepts)

	records := DiffConcepts(base.Concepts, currentConcepts)
	records = append(records, DiffRelationships(base.Relationships, currentRelationships, names)...)
	records = append(records, DiffIndividuals(base.Individuals, currentIndividuals, names)...)

	for i := range records {
		records[i].ID = uuid.New()
		records[i].MergeRequestID = mergeRequestID
		records[i].OntologyID = ontologyID
		records[i].OrderIndex = i
	}
	return records, nil
}

// DiffConcepts computes Add/Delete/Modify records for the concept kind.
// Concepts compare name, definition, category and position.
func DiffConcepts(base, current []domain.Concept) []domain.ChangeRecord {
	baseByID := make(map[int64]domain.Concept, len(base))
	for _, c := range base {
		baseByID[c.ID] = c
	}
	currentByID := make(map[int64]domain.Concept, len(current))
	for _, c := range current {
		currentByID[c.ID] = c
	}

	var added, deleted, modified []domain.ChangeRecord

	for _, id := range sortedConceptIDs(currentByID) {
		c := currentByID[id]
		if _, ok := baseByID[id]; ok {
			continue
		}
		added = append(added, domain.ChangeRecord{
			EntityKind: domain.KindConcept,
			EntityID:   id,
			ChangeType: domain.ChangeAdd,
			EntityName: c.Name,
			Summary:    domain.AddSummary(domain.KindConcept, c.Name),
			After:      encodeConcept(c),
		})
	}

	for _, id := range sortedConceptIDs(baseByID) {
		c := baseByID[id]
		if _, ok := currentByID[id]; ok {
			continue
		}
		deleted = append(deleted, domain.ChangeRecord{
			EntityKind: domain.KindConcept,
			EntityID:   id,
			ChangeType: domain.ChangeDelete,
			EntityName: c.Name,
			Summary:    domain.DeleteSummary(domain.KindConcept, c.Name),
			Before:     encodeConcept(c),
		})
	}

	for _, id := range sortedConceptIDs(baseByID) {
		before, ok := baseByID[id]
		if !ok {
			continue
		}
		after, ok := currentByID[id]
		if !ok {
			continue
		}
		changes := domain.ConceptChanges(before, after)
		if len(changes) == 0 {
			continue
		}
		modified = append(modified, domain.ChangeRecord{
			EntityKind:   domain.KindConcept,
			EntityID:     id,
			ChangeType:   domain.ChangeModify,
			EntityName:   after.Name,
			Summary:      domain.JoinFieldChanges(changes),
			FieldChanges: changes,
			Before:       encodeConcept(before),
			After:        encodeConcept(after),
		})
	}

	return append(append(added, deleted...), modified...)
}

// DiffRelationships computes Add/Delete/Modify records for the relationship
// kind. Display names derive from related concept names.
func DiffRelationships(base, current []domain.Relationship, names map[int64]string) []domain.ChangeRecord {
	baseByID := make(map[int64]domain.Relationship, len(base))
	for _, r := range base {
		baseByID[r.ID] = r
	}
	currentByID := make(map[int64]domain.Relationship, len(current))
	for _, r := range current {
		currentByID[r.ID] = r
	}

	var added, deleted, modified []domain.ChangeRecord

	for _, id := range sortedRelationshipIDs(currentByID) {
		r := currentByID[id]
		if _, ok := baseByID[id]; ok {
			continue
		}
		name := relationshipDisplayName(r, names)
		added = append(added, domain.ChangeRecord{
			EntityKind: domain.KindRelationship,
			EntityID:   id,
			ChangeType: domain.ChangeAdd,
			EntityName: name,
			Summary:    domain.AddSummary(domain.KindRelationship, name),
			After:      encodeRelationship(r),
		})
	}

	for _, id := range sortedRelationshipIDs(baseByID) {
		r := baseByID[id]
		if _, ok := currentByID[id]; ok {
			continue
		}
		name := relationshipDisplayName(r, names)
		deleted = append(deleted, domain.ChangeRecord{
			EntityKind: domain.KindRelationship,
			EntityID:   id,
			ChangeType: domain.ChangeDelete,
			EntityName: name,
			Summary:    domain.DeleteSummary(domain.KindRelationship, name),
			Before:     encodeRelationship(r),
		})
	}

	for _, id := range sortedRelationshipIDs(baseByID) {
		before, ok := baseByID[id]
		if !ok {
			continue
		}
		after, ok := currentByID[id]
		if !ok {
			continue
		}
		changes := domain.RelationshipChanges(before, after)
		if len(changes) == 0 {
			continue
		}
		name := relationshipDisplayName(after, names)
		modified = append(modified, domain.ChangeRecord{
			EntityKind:   domain.KindRelationship,
			EntityID:     id,
			ChangeType:   domain.ChangeModify,
			EntityName:   name,
			Summary:      domain.JoinFieldChanges(changes),
			FieldChanges: changes,
			Before:       encodeRelationship(before),
			After:        encodeRelationship(after),
		})
	}

	return append(append(added, deleted...), modified...)
}

// DiffIndividuals computes Add/Delete/Modify records for the individual
// kind. Display names carry the owning concept's name.
func DiffIndividuals(base, current []domain.Individual, names map[int64]string) []domain.ChangeRecord {
	baseByID := make(map[int64]domain.Individual, len(base))
	for _, i := range base {
		baseByID[i.ID] = i
	}
	currentByID := make(map[int64]domain.Individual, len(current))
	for _, i := range current {
		currentByID[i.ID] = i
	}

	var added, deleted, modified []domain.ChangeRecord

	for _, id := range sortedIndividualIDs(currentByID) {
		ind := currentByID[id]
		if _, ok := baseByID[id]; ok {
			continue
		}
		name := individualDisplayName(ind, names)
		added = append(added, domain.ChangeRecord{
			EntityKind: domain.KindIndividual,
			EntityID:   id,
			ChangeType: domain.ChangeAdd,
			EntityName: name,
			Summary:    domain.AddSummary(domain.KindIndividual, name),
			After:      encodeIndividual(ind),
		})
	}

	for _, id := range sortedIndividualIDs(baseByID) {
		ind := baseByID[id]
		if _, ok := currentByID[id]; ok {
			continue
		}
		name := individualDisplayName(ind, names)
		deleted = append(deleted, domain.ChangeRecord{
			EntityKind: domain.KindIndividual,
			EntityID:   id,
			ChangeType: domain.ChangeDelete,
			EntityName: name,
			Summary:    domain.DeleteSummary(domain.KindIndividual, name),
			Before:     encodeIndividual(ind),
		})
	}

	for _, id := range sortedIndividualIDs(baseByID) {
		before, ok := baseByID[id]
		if !ok {
			continue
		}
		after, ok := currentByID[id]
		if !ok {
			continue
		}
		changes := domain.IndividualChanges(before, after)
		if len(changes) == 0 {
			continue
		}
		name := individualDisplayName(after, names)
		modified = append(modified, domain.ChangeRecord{
			EntityKind:   domain.KindIndividual,
			EntityID:     id,
			ChangeType:   domain.ChangeModify,
			EntityName:   name,
			Summary:      domain.JoinFieldChanges(changes),
			FieldChanges: changes,
			Before:       encodeIndividual(before),
			After:        encodeIndividual(after),
		})
	}

	return append(append(added, deleted...), modified...)
}

// conceptNameIndex prefers live names over baseline names so display names
// track renames.
func conceptNameIndex(base, current []domain.Concept) map[int64]string {
	names := make(map[int64]string, len(base)+len(current))
	for _, c := range base {
		names[c.ID] = c.Name
	}
	for _, c := range current {
		names[c.ID] = c.Name
	}
	return names
}

func relationshipDisplayName(r domain.Relationship, names map[int64]string) string {
	source, ok := names[r.SourceConceptID]
	if !ok {
		source = domain.UnresolvedConceptName
	}
	target, ok := names[r.TargetConceptID]
	if !ok {
		target = domain.UnresolvedConceptName
	}
	return fmt.Sprintf("%s %s %s", source, r.RelationType, target)
}

func individualDisplayName(i domain.Individual, names map[int64]string) string {
	concept, ok := names[i.ConceptID]
	if !ok {
		concept = domain.UnresolvedConceptName
	}
	return fmt.Sprintf("%s (%s)", i.Name, concept)
}

func sortedConceptIDs(m map[int64]domain.Concept) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func sortedRelationshipIDs(m map[int64]domain.Relationship) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func sortedIndividualIDs(m map[int64]domain.Individual) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Snapshot encoding over these field maps cannot fail; a nil pointer is
// only possible if it somehow does, and the record then simply carries no
// state blob.
func encodeConcept(c domain.Concept) *string {
	s, err := domain.EncodeConcept(c)
	if err != nil {
		return nil
	}
	return &s
}

func encodeRelationship(r domain.Relationship) *string {
	s, err := domain.EncodeRelationship(r)
	if err != nil {
		return nil
	}
	return &s
}

func encodeIndividual(i domain.Individual) *string {
	s, err := domain.EncodeIndividual(i)
	if err != nil {
		return nil
	}
	return &s
}
