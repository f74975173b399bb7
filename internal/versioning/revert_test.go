package versioning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rpattn/ontograph/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func snapshotOf(t *testing.T, encode func() (string, error)) *string {
	t.Helper()
	text, err := encode()
	if err != nil {
		t.Fatalf("failed to encode snapshot: %v", err)
	}
	return &text
}

// revertHistory builds a six-version history for ontology 7:
//
//	v1 CREATE concept 1 "Animal"
//	v2 CREATE concept 2 "Dog"
//	v3 CREATE relationship 10 (Dog is_a Animal)
//	v4 UPDATE concept 2 renamed to "Canine"
//	v5 DELETE concept 1
//	v6 CREATE individual 20 "Rex" of concept 2
func revertHistory(t *testing.T) []domain.ActivityRecord {
	t.Helper()

	animal := domain.Concept{ID: 1, Name: "Animal"}
	dog := domain.Concept{ID: 2, Name: "Dog"}
	canine := domain.Concept{ID: 2, Name: "Canine"}
	isA := domain.Relationship{ID: 10, SourceConceptID: 2, TargetConceptID: 1, RelationType: "is_a"}
	rex := domain.Individual{ID: 20, ConceptID: 2, Name: "Rex"}

	return []domain.ActivityRecord{
		{ID: 1, OntologyID: 7, VersionNumber: 1, ActivityType: domain.ActivityCreate, EntityKind: domain.KindConcept,
			EntityID: int64Ptr(1), EntityName: "Animal",
			AfterSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeConcept(animal) })},
		{ID: 2, OntologyID: 7, VersionNumber: 2, ActivityType: domain.ActivityCreate, EntityKind: domain.KindConcept,
			EntityID: int64Ptr(2), EntityName: "Dog",
			AfterSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeConcept(dog) })},
		{ID: 3, OntologyID: 7, VersionNumber: 3, ActivityType: domain.ActivityCreate, EntityKind: domain.KindRelationship,
			EntityID: int64Ptr(10), EntityName: "Dog is_a Animal",
			AfterSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeRelationship(isA) })},
		{ID: 4, OntologyID: 7, VersionNumber: 4, ActivityType: domain.ActivityUpdate, EntityKind: domain.KindConcept,
			EntityID: int64Ptr(2), EntityName: "Canine",
			BeforeSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeConcept(dog) }),
			AfterSnapshot:  snapshotOf(t, func() (string, error) { return domain.EncodeConcept(canine) })},
		{ID: 5, OntologyID: 7, VersionNumber: 5, ActivityType: domain.ActivityDelete, EntityKind: domain.KindConcept,
			EntityID: int64Ptr(1), EntityName: "Animal",
			BeforeSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeConcept(animal) })},
		{ID: 6, OntologyID: 7, VersionNumber: 6, ActivityType: domain.ActivityCreate, EntityKind: domain.KindIndividual,
			EntityID: int64Ptr(20), EntityName: "Rex",
			AfterSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeIndividual(rex) })},
	}
}

func newRevertEngine(activity *fakeActivityRepo, graph *fakeGraphRepo) *RevertEngine {
	return NewRevertEngine(activity, graph, &fakeConceptRepo{}, &fakeRelationshipRepo{}, &fakeIndividualRepo{})
}

func TestRevertToVersionRestoresStateAsOfVersion(t *testing.T) {
	activity := &fakeActivityRepo{records: revertHistory(t)}
	graph := &fakeGraphRepo{}
	engine := newRevertEngine(activity, graph)

	result, err := engine.RevertToVersion(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Concepts != 2 || result.Relationships != 1 || result.Individuals != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}

	// As of v3 the dog concept still carries its original name.
	names := map[string]bool{}
	for _, seed := range graph.plan.Concepts {
		names[seed.Concept.Name] = true
	}
	if !names["Animal"] || !names["Dog"] || names["Canine"] {
		t.Errorf("unexpected planned concepts: %+v", graph.plan.Concepts)
	}

	if len(graph.plan.Relationships) != 1 || graph.plan.Relationships[0].RelationType != "is_a" {
		t.Errorf("unexpected planned relationships: %+v", graph.plan.Relationships)
	}
	if len(graph.plan.Individuals) != 0 {
		t.Errorf("individuals created after v3 must not be restored: %+v", graph.plan.Individuals)
	}

	if len(result.Graph.Concepts) != 2 || len(result.Graph.Relationships) != 1 {
		t.Errorf("result must carry the reconstructed graph, got %+v", result.Graph)
	}
	for _, concept := range result.Graph.Concepts {
		if concept.ID == 1 || concept.ID == 2 {
			t.Errorf("restored concept kept its old id: %+v", concept)
		}
	}

	if len(activity.recorded) != 1 {
		t.Fatalf("expected one appended audit record, got %d", len(activity.recorded))
	}
	audit := activity.recorded[0]
	if audit.ActivityType != domain.ActivityRevert {
		t.Errorf("expected REVERT record, got %s", audit.ActivityType)
	}
	if audit.VersionNumber != 7 {
		t.Errorf("expected the revert to claim version 7, got %d", audit.VersionNumber)
	}
	if audit.BeforeSnapshot == nil || audit.AfterSnapshot == nil {
		t.Error("revert record must carry both before and after graph payloads")
	}
	if result.NewVersion != 7 {
		t.Errorf("expected new version 7, got %d", result.NewVersion)
	}
}

func TestRevertToVersionAfterDeleteSkipsDanglingReferences(t *testing.T) {
	activity := &fakeActivityRepo{records: revertHistory(t)}
	graph := &fakeGraphRepo{}
	engine := newRevertEngine(activity, graph)

	// As of v6, concept 1 is deleted but relationship 10 still references it
	// in history; the relationship must be skipped rather than recreated
	// dangling.
	result, err := engine.RevertToVersion(context.Background(), 7, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Concepts != 1 {
		t.Errorf("expected only the surviving concept, got %d", result.Concepts)
	}
	if result.Relationships != 0 {
		t.Errorf("expected dangling relationship to be skipped, got %d restored", result.Relationships)
	}
	if result.Individuals != 1 {
		t.Errorf("expected individual Rex restored, got %d", result.Individuals)
	}

	found := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "unrestored concept") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skip warning, got %v", result.Warnings)
	}
}

func TestRevertToVersionWithoutEntitySnapshots(t *testing.T) {
	// An ontology whose history holds only informational records never had
	// entity tracking on; reverting must refuse instead of committing an
	// empty graph.
	activity := &fakeActivityRepo{records: []domain.ActivityRecord{
		{ID: 1, OntologyID: 7, VersionNumber: 1, ActivityType: domain.ActivityCreate,
			EntityKind: domain.KindOntology, EntityName: "Taxonomy",
			Description: "Created ontology"},
	}}
	graph := &fakeGraphRepo{}
	engine := newRevertEngine(activity, graph)

	_, err := engine.RevertToVersion(context.Background(), 7, 1)
	if !errors.Is(err, domain.ErrNoSnapshots) {
		t.Fatalf("expected ErrNoSnapshots, got %v", err)
	}
	if graph.called {
		t.Error("the swap must not run when no entity snapshots exist")
	}
	if len(activity.recorded) != 0 {
		t.Error("no audit record must be written for a refused revert")
	}
}

func TestRevertToVersionWhereEverythingWasDeleted(t *testing.T) {
	// A history that deletes every entity is still restorable; the target
	// state is a legitimately empty graph.
	animal := domain.Concept{ID: 1, Name: "Animal"}
	activity := &fakeActivityRepo{records: []domain.ActivityRecord{
		{ID: 1, OntologyID: 7, VersionNumber: 1, ActivityType: domain.ActivityCreate,
			EntityKind: domain.KindConcept, EntityID: int64Ptr(1), EntityName: "Animal",
			AfterSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeConcept(animal) })},
		{ID: 2, OntologyID: 7, VersionNumber: 2, ActivityType: domain.ActivityDelete,
			EntityKind: domain.KindConcept, EntityID: int64Ptr(1), EntityName: "Animal",
			BeforeSnapshot: snapshotOf(t, func() (string, error) { return domain.EncodeConcept(animal) })},
	}}
	graph := &fakeGraphRepo{}
	engine := newRevertEngine(activity, graph)

	result, err := engine.RevertToVersion(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !graph.called {
		t.Fatal("expected the swap to run")
	}
	if result.Concepts != 0 || result.Relationships != 0 || result.Individuals != 0 {
		t.Errorf("expected an empty restored graph, got %+v", result)
	}
}

func TestRevertToVersionUnknownVersion(t *testing.T) {
	activity := &fakeActivityRepo{records: revertHistory(t)}
	engine := newRevertEngine(activity, &fakeGraphRepo{})

	_, err := engine.RevertToVersion(context.Background(), 7, 99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevertToVersionReplaceFailure(t *testing.T) {
	activity := &fakeActivityRepo{records: revertHistory(t)}
	graph := &fakeGraphRepo{replaceErr: errors.New("deadlock detected")}
	engine := newRevertEngine(activity, graph)

	_, err := engine.RevertToVersion(context.Background(), 7, 3)
	if !errors.Is(err, domain.ErrRestoreFailed) {
		t.Fatalf("expected ErrRestoreFailed, got %v", err)
	}
	if len(activity.recorded) != 0 {
		t.Error("no audit record must be written when the swap fails")
	}
}

func TestRevertToVersionAuditFailureIsWarning(t *testing.T) {
	activity := &fakeActivityRepo{records: revertHistory(t), recordErr: errors.New("log table unavailable")}
	graph := &fakeGraphRepo{}
	engine := newRevertEngine(activity, graph)

	result, err := engine.RevertToVersion(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("a failed audit write must not fail the revert: %v", err)
	}
	if result.NewVersion != 0 {
		t.Errorf("expected no new version when the audit write fails, got %d", result.NewVersion)
	}

	found := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "audit record") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an audit warning, got %v", result.Warnings)
	}
}

func TestRevertToVersionCancelledContext(t *testing.T) {
	activity := &fakeActivityRepo{records: revertHistory(t)}
	graph := &fakeGraphRepo{}
	engine := newRevertEngine(activity, graph)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.RevertToVersion(ctx, 7, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(graph.plan.Concepts) != 0 {
		t.Error("the swap must not run once the context is cancelled")
	}
}
