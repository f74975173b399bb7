package versioning

import (
	"context"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"
)

// HistoryPage is one page of an ontology's activity log plus the total count
// for pagination.
type HistoryPage struct {
	Records []domain.ActivityRecord `json:"records"`
	Total   int                     `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

// VersionComparison is the field-level diff between two recorded versions of
// the same entity.
type VersionComparison struct {
	BaseRecord   domain.ActivityRecord `json:"base_record"`
	TargetRecord domain.ActivityRecord `json:"target_record"`
	EntityKind   domain.EntityKind     `json:"entity_kind"`
	Diffs        []domain.FieldDiff    `json:"diffs"`
	Summary      string                `json:"summary"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// VersionQuery answers read-only questions about an ontology's recorded
// history.
type VersionQuery struct {
	activity repository.ActivityRepository
}

// NewVersionQuery wires the query service over the activity log.
func NewVersionQuery(activity repository.ActivityRepository) *VersionQuery {
	return &VersionQuery{activity: activity}
}

// History returns one page of activity, newest first, optionally filtered by
// entity kind and actor. Limits are clamped to a sane window.
func (q *VersionQuery) History(ctx context.Context, ontologyID int64, filter *domain.ActivityFilter, limit, offset int) (HistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	records, total, err := q.activity.List(ctx, ontologyID, filter, limit, offset)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("failed to load history: %w", err)
	}
	return HistoryPage{Records: records, Total: total, Limit: limit, Offset: offset}, nil
}

// EntityHistory returns every recorded change to one entity, newest first.
func (q *VersionQuery) EntityHistory(ctx context.Context, ontologyID int64, kind domain.EntityKind, entityID int64) ([]domain.ActivityRecord, error) {
	records, err := q.activity.ListByEntity(ctx, ontologyID, kind, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity history: %w", err)
	}
	return records, nil
}

// Stats aggregates an ontology's recorded history.
func (q *VersionQuery) Stats(ctx context.Context, ontologyID int64) (domain.VersionStats, error) {
	return q.activity.Stats(ctx, ontologyID)
}

// CurrentVersion reports the highest version number recorded for the
// ontology, zero when no history exists.
func (q *VersionQuery) CurrentVersion(ctx context.Context, ontologyID int64) (int64, error) {
	return q.activity.CurrentVersion(ctx, ontologyID)
}

// CompareVersions diffs the snapshots of two activity records field by field.
// Each record contributes its best available image: the after snapshot when
// present, otherwise the before snapshot, otherwise an empty field set, so a
// comparison spanning a deletion still renders.
func (q *VersionQuery) CompareVersions(ctx context.Context, baseRecordID, targetRecordID int64) (VersionComparison, error) {
	base, err := q.activity.GetByID(ctx, baseRecordID)
	if err != nil {
		return VersionComparison{}, fmt.Errorf("failed to load base record: %w", err)
	}
	target, err := q.activity.GetByID(ctx, targetRecordID)
	if err != nil {
		return VersionComparison{}, fmt.Errorf("failed to load target record: %w", err)
	}

	if base.EntityID == nil && target.EntityID == nil {
		return VersionComparison{}, fmt.Errorf("%w: neither record identifies an entity to compare", domain.ErrValidation)
	}

	baseFields, err := recordFields(base)
	if err != nil {
		return VersionComparison{}, err
	}
	targetFields, err := recordFields(target)
	if err != nil {
		return VersionComparison{}, err
	}

	kind := base.EntityKind
	if base.EntityID == nil {
		kind = target.EntityKind
	}

	diffs := domain.CompareSnapshotFields(kind, baseFields, targetFields)
	return VersionComparison{
		BaseRecord:   base,
		TargetRecord: target,
		EntityKind:   kind,
		Diffs:        diffs,
		Summary:      domain.FieldDiffSummary(diffs),
	}, nil
}

func recordFields(record domain.ActivityRecord) (map[string]any, error) {
	text := record.AfterSnapshot
	if text == nil {
		text = record.BeforeSnapshot
	}
	if text == nil {
		return map[string]any{}, nil
	}
	fields, err := domain.SnapshotFields(*text)
	if err != nil {
		return nil, fmt.Errorf("record %d snapshot unreadable: %w", record.ID, err)
	}
	return fields, nil
}
