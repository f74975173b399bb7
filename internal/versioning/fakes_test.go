package versioning

import (
	"context"
	"fmt"
	"sync"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/google/uuid"
)

type fakeConceptRepo struct {
	concepts  []domain.Concept
	loadErr   error
	existsErr error
}

func (f *fakeConceptRepo) Load(ctx context.Context, ontologyID int64) ([]domain.Concept, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.concepts, nil
}

func (f *fakeConceptRepo) LoadByIDs(ctx context.Context, ids []int64) ([]domain.Concept, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	byID := make(map[int64]domain.Concept, len(f.concepts))
	for _, c := range f.concepts {
		byID[c.ID] = c
	}
	var out []domain.Concept
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConceptRepo) ExistsByName(ctx context.Context, ontologyID int64, name string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, c := range f.concepts {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConceptRepo) Insert(ctx context.Context, concept domain.Concept) (domain.Concept, error) {
	return concept, nil
}

func (f *fakeConceptRepo) Delete(ctx context.Context, id int64) error { return nil }

type fakeRelationshipRepo struct {
	relationships []domain.Relationship
	loadErr       error
	existsErr     error
}

func (f *fakeRelationshipRepo) Load(ctx context.Context, ontologyID int64) ([]domain.Relationship, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.relationships, nil
}

func (f *fakeRelationshipRepo) LoadByIDs(ctx context.Context, ids []int64) ([]domain.Relationship, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	byID := make(map[int64]domain.Relationship, len(f.relationships))
	for _, r := range f.relationships {
		byID[r.ID] = r
	}
	var out []domain.Relationship
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRelationshipRepo) ExistsMatching(ctx context.Context, ontologyID, sourceConceptID, targetConceptID int64, relationType string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.relationships {
		if r.SourceConceptID == sourceConceptID && r.TargetConceptID == targetConceptID && r.RelationType == relationType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRelationshipRepo) Insert(ctx context.Context, relationship domain.Relationship) (domain.Relationship, error) {
	return relationship, nil
}

func (f *fakeRelationshipRepo) Delete(ctx context.Context, id int64) error { return nil }

type fakeIndividualRepo struct {
	individuals []domain.Individual
	loadErr     error
	existsErr   error
}

func (f *fakeIndividualRepo) Load(ctx context.Context, ontologyID int64) ([]domain.Individual, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.individuals, nil
}

func (f *fakeIndividualRepo) LoadByIDs(ctx context.Context, ids []int64) ([]domain.Individual, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	byID := make(map[int64]domain.Individual, len(f.individuals))
	for _, i := range f.individuals {
		byID[i.ID] = i
	}
	var out []domain.Individual
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeIndividualRepo) ExistsByName(ctx context.Context, ontologyID int64, name string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, i := range f.individuals {
		if i.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeIndividualRepo) Insert(ctx context.Context, individual domain.Individual) (domain.Individual, error) {
	return individual, nil
}

func (f *fakeIndividualRepo) Delete(ctx context.Context, id int64) error { return nil }

type fakeActivityRepo struct {
	mu        sync.Mutex
	records   []domain.ActivityRecord
	recorded  []domain.ActivityRecord
	recordErr error
	listErr   error
}

func (f *fakeActivityRepo) Record(ctx context.Context, record *domain.ActivityRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.VersionNumber == 0 {
		record.VersionNumber = f.maxVersionLocked() + 1
	}
	record.ID = int64(len(f.records) + len(f.recorded) + 1)
	f.recorded = append(f.recorded, *record)
	return nil
}

func (f *fakeActivityRepo) maxVersionLocked() int64 {
	var max int64
	for _, r := range f.records {
		if r.VersionNumber > max {
			max = r.VersionNumber
		}
	}
	for _, r := range f.recorded {
		if r.VersionNumber > max {
			max = r.VersionNumber
		}
	}
	return max
}

func (f *fakeActivityRepo) CurrentVersion(ctx context.Context, ontologyID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxVersionLocked(), nil
}

func (f *fakeActivityRepo) HasVersion(ctx context.Context, ontologyID, versionNumber int64) (bool, error) {
	for _, r := range f.records {
		if r.OntologyID == ontologyID && r.VersionNumber == versionNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeActivityRepo) GetByID(ctx context.Context, id int64) (domain.ActivityRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ActivityRecord{}, fmt.Errorf("%w: activity record %d", domain.ErrNotFound, id)
}

func (f *fakeActivityRepo) List(ctx context.Context, ontologyID int64, filter *domain.ActivityFilter, limit, offset int) ([]domain.ActivityRecord, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var matched []domain.ActivityRecord
	for _, r := range f.records {
		if r.OntologyID != ontologyID {
			continue
		}
		if filter != nil && filter.EntityKind != nil && r.EntityKind != *filter.EntityKind {
			continue
		}
		if filter != nil && filter.ActorID != nil && (r.ActorID == nil || *r.ActorID != *filter.ActorID) {
			continue
		}
		matched = append(matched, r)
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeActivityRepo) ListByEntity(ctx context.Context, ontologyID int64, kind domain.EntityKind, entityID int64) ([]domain.ActivityRecord, error) {
	var out []domain.ActivityRecord
	for _, r := range f.records {
		if r.OntologyID == ontologyID && r.EntityKind == kind && r.EntityID != nil && *r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) ListUpToVersion(ctx context.Context, ontologyID, versionNumber int64) ([]domain.ActivityRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.ActivityRecord
	for _, r := range f.records {
		if r.OntologyID == ontologyID && r.VersionNumber <= versionNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) Stats(ctx context.Context, ontologyID int64) (domain.VersionStats, error) {
	stats := domain.VersionStats{
		ByActivity:   map[domain.ActivityType]int64{},
		ByEntityKind: map[domain.EntityKind]int64{},
	}
	for _, r := range f.records {
		if r.OntologyID != ontologyID {
			continue
		}
		stats.TotalRecords++
		if r.VersionNumber > stats.MaxVersion {
			stats.MaxVersion = r.VersionNumber
		}
		stats.ByActivity[r.ActivityType]++
		stats.ByEntityKind[r.EntityKind]++
	}
	return stats, nil
}

type fakeGraphRepo struct {
	plan       domain.RestorePlan
	replaceErr error
	nextID     int64
	called     bool
}

func (f *fakeGraphRepo) ReplaceGraph(ctx context.Context, plan domain.RestorePlan) (domain.RestoreOutcome, error) {
	f.called = true
	if f.replaceErr != nil {
		return domain.RestoreOutcome{}, f.replaceErr
	}
	if f.nextID == 0 {
		// Fresh surrogate ids come from a live sequence that never reuses
		// historical ids; start past every id used in the fixtures.
		f.nextID = 1000
	}
	f.plan = plan

	outcome := domain.RestoreOutcome{ConceptIDMap: map[int64]int64{}}
	for _, seed := range plan.Concepts {
		f.nextID++
		concept := seed.Concept
		concept.ID = f.nextID
		concept.OntologyID = plan.OntologyID
		outcome.Concepts = append(outcome.Concepts, concept)
		outcome.ConceptIDMap[seed.OldID] = concept.ID
	}

	relationships, skippedRels := domain.ResolveRelationshipSeeds(plan.OntologyID, plan.Relationships, outcome.ConceptIDMap)
	for i := range relationships {
		f.nextID++
		relationships[i].ID = f.nextID
	}
	outcome.Relationships = relationships
	outcome.Skipped = append(outcome.Skipped, skippedRels...)

	individuals, skippedInds := domain.ResolveIndividualSeeds(plan.OntologyID, plan.Individuals, outcome.ConceptIDMap)
	for i := range individuals {
		f.nextID++
		individuals[i].ID = f.nextID
	}
	outcome.Individuals = individuals
	outcome.Skipped = append(outcome.Skipped, skippedInds...)

	return outcome, nil
}

type fakeSnapshotRepo struct {
	snapshots map[uuid.UUID]domain.BaseSnapshot
	createErr error
}

func (f *fakeSnapshotRepo) Create(ctx context.Context, snapshot domain.BaseSnapshot) (domain.BaseSnapshot, error) {
	if f.createErr != nil {
		return domain.BaseSnapshot{}, f.createErr
	}
	if f.snapshots == nil {
		f.snapshots = map[uuid.UUID]domain.BaseSnapshot{}
	}
	f.snapshots[snapshot.ID] = snapshot
	return snapshot, nil
}

func (f *fakeSnapshotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.BaseSnapshot, error) {
	if s, ok := f.snapshots[id]; ok {
		return s, nil
	}
	return domain.BaseSnapshot{}, fmt.Errorf("%w: snapshot %s", domain.ErrNotFound, id)
}

func (f *fakeSnapshotRepo) ListByOntology(ctx context.Context, ontologyID int64) ([]domain.BaseSnapshot, error) {
	var out []domain.BaseSnapshot
	for _, s := range f.snapshots {
		if s.OntologyID == ontologyID {
			out = append(out, s)
		}
	}
	return out, nil
}
