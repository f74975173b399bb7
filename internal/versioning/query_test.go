package versioning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rpattn/ontograph/internal/domain"
)

func queryHistory(t *testing.T) *fakeActivityRepo {
	t.Helper()
	return &fakeActivityRepo{records: revertHistory(t)}
}

func TestHistoryPagination(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	page, err := query.History(context.Background(), 7, nil, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 6 {
		t.Errorf("expected total 6, got %d", page.Total)
	}
	if len(page.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(page.Records))
	}
	if page.Limit != 2 || page.Offset != 0 {
		t.Errorf("unexpected page bounds: %+v", page)
	}
}

func TestHistoryDefaultsAndClamping(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	page, err := query.History(context.Background(), 7, nil, 0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Limit != defaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", defaultHistoryLimit, page.Limit)
	}
	if page.Offset != 0 {
		t.Errorf("negative offset must clamp to zero, got %d", page.Offset)
	}

	page, err = query.History(context.Background(), 7, nil, maxHistoryLimit*10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Limit != maxHistoryLimit {
		t.Errorf("expected clamped limit %d, got %d", maxHistoryLimit, page.Limit)
	}
}

func TestHistoryEntityKindFilter(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	kind := domain.KindConcept
	page, err := query.History(context.Background(), 7, &domain.ActivityFilter{EntityKind: &kind}, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("expected 4 concept records, got %d", page.Total)
	}
	for _, record := range page.Records {
		if record.EntityKind != domain.KindConcept {
			t.Errorf("filter leaked record of kind %s", record.EntityKind)
		}
	}
}

func TestEntityHistory(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	records, err := query.EntityHistory(context.Background(), 7, domain.KindConcept, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for concept 2, got %d", len(records))
	}
}

func TestCurrentVersion(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	version, err := query.CurrentVersion(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 6 {
		t.Errorf("expected current version 6, got %d", version)
	}
}

func TestStats(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	stats, err := query.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRecords != 6 || stats.MaxVersion != 6 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ByActivity[domain.ActivityCreate] != 4 {
		t.Errorf("expected 4 creates, got %d", stats.ByActivity[domain.ActivityCreate])
	}
	if stats.ByEntityKind[domain.KindConcept] != 4 {
		t.Errorf("expected 4 concept records, got %d", stats.ByEntityKind[domain.KindConcept])
	}
}

func TestCompareVersionsRename(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	// Record 2 created "Dog"; record 4 renamed it to "Canine".
	comparison, err := query.CompareVersions(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comparison.EntityKind != domain.KindConcept {
		t.Errorf("expected concept comparison, got %s", comparison.EntityKind)
	}
	if len(comparison.Diffs) != 1 {
		t.Fatalf("expected one field diff, got %v", comparison.Diffs)
	}
	diff := comparison.Diffs[0]
	if diff.Field != "name" || diff.Kind != domain.FieldModified || diff.Old != "Dog" || diff.New != "Canine" {
		t.Errorf("unexpected diff: %+v", diff)
	}
	if comparison.Summary != "name changed" {
		t.Errorf("unexpected summary: %q", comparison.Summary)
	}
}

func TestCompareVersionsAcrossDeletion(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	// Record 5 deleted concept 1 and only carries a before image; comparing
	// against its creation must still render using that image.
	comparison, err := query.CompareVersions(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comparison.Diffs) != 0 {
		t.Errorf("identical images must yield no diffs, got %v", comparison.Diffs)
	}
	if comparison.Summary != "no differences" {
		t.Errorf("unexpected summary: %q", comparison.Summary)
	}
}

func TestCompareVersionsUnknownRecord(t *testing.T) {
	query := NewVersionQuery(queryHistory(t))

	_, err := query.CompareVersions(context.Background(), 1, 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompareVersionsRequiresAnEntity(t *testing.T) {
	payload := `{"concepts": []}`
	records := []domain.ActivityRecord{
		{ID: 1, OntologyID: 7, VersionNumber: 1, ActivityType: domain.ActivityRevert, EntityKind: domain.KindOntology,
			BeforeSnapshot: &payload, AfterSnapshot: &payload},
		{ID: 2, OntologyID: 7, VersionNumber: 2, ActivityType: domain.ActivityRevert, EntityKind: domain.KindOntology,
			BeforeSnapshot: &payload, AfterSnapshot: &payload},
	}
	query := NewVersionQuery(&fakeActivityRepo{records: records})

	_, err := query.CompareVersions(context.Background(), 1, 2)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestHistoryStoreError(t *testing.T) {
	repo := queryHistory(t)
	repo.listErr = errors.New("connection reset")
	query := NewVersionQuery(repo)

	_, err := query.History(context.Background(), 7, nil, 10, 0)
	if err == nil || !strings.Contains(err.Error(), "failed to load history") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
