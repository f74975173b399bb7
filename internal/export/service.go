package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"
	"github.com/rpattn/ontograph/internal/versioning"
)

// historyExportLimit caps one workbook at a single large page. Histories
// beyond this are expected to be consumed through the paged API.
const historyExportLimit = 10000

// Service renders version history and change-sets as spreadsheet workbooks
// for offline review.
type Service struct {
	activity  repository.ActivityRepository
	ontology  repository.OntologyRepository
	snapshots repository.SnapshotRepository
	detector  *versioning.ChangeDetector
	conflicts *versioning.ConflictDetector
}

func NewService(
	activity repository.ActivityRepository,
	ontology repository.OntologyRepository,
	snapshots repository.SnapshotRepository,
	detector *versioning.ChangeDetector,
	conflicts *versioning.ConflictDetector,
) *Service {
	return &Service{
		activity:  activity,
		ontology:  ontology,
		snapshots: snapshots,
		detector:  detector,
		conflicts: conflicts,
	}
}

// HistoryWorkbook renders an ontology's activity log, newest first, as one
// "History" sheet.
func (s *Service) HistoryWorkbook(ctx context.Context, ontologyID int64, filter *domain.ActivityFilter) (*excelize.File, error) {
	ontology, err := s.ontology.GetByID(ctx, ontologyID)
	if err != nil {
		return nil, err
	}
	records, _, err := s.activity.List(ctx, ontologyID, filter, historyExportLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for export: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "History"
	f.SetSheetName("Sheet1", sheet)

	header := []any{"Version", "Recorded At", "Activity", "Entity Kind", "Entity ID", "Entity Name", "Description", "Actor", "Notes"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, record := range records {
		entityID := ""
		if record.EntityID != nil {
			entityID = fmt.Sprintf("%d", *record.EntityID)
		}
		row := []any{
			record.VersionNumber,
			record.CreatedAt.Format(time.RFC3339),
			string(record.ActivityType),
			string(record.EntityKind),
			entityID,
			record.EntityName,
			record.Description,
			actorLabel(record),
			record.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write history row: %w", err)
		}
	}

	f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("%s version history", ontology.Name),
		Created: time.Now().UTC().Format(time.RFC3339),
	})
	return f, nil
}

// ChangeSetWorkbook recomputes a base snapshot's change-set with conflict
// verdicts and renders it as one "Changes" sheet.
func (s *Service) ChangeSetWorkbook(ctx context.Context, ontologyID int64, snapshot domain.BaseSnapshot) (*excelize.File, error) {
	if snapshot.OntologyID != ontologyID {
		return nil, fmt.Errorf("%w: snapshot belongs to a different ontology", domain.ErrValidation)
	}

	mergeRequestID := snapshot.ID
	if snapshot.MergeRequestID != nil {
		mergeRequestID = *snapshot.MergeRequestID
	}
	changes, err := s.detector.DetectAllChanges(ctx, ontologyID, snapshot.Payload, mergeRequestID)
	if err != nil {
		return nil, err
	}
	checks := s.conflicts.CheckAll(ctx, changes)

	f := excelize.NewFile()
	const sheet = "Changes"
	f.SetSheetName("Sheet1", sheet)

	header := []any{"Order", "Change", "Entity Kind", "Entity ID", "Entity Name", "Summary", "Conflict", "Conflict Reason"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, check := range checks {
		conflict := "no"
		if check.HasConflict {
			conflict = "yes"
		}
		row := []any{
			check.Change.OrderIndex + 1,
			string(check.Change.ChangeType),
			string(check.Change.EntityKind),
			check.Change.EntityID,
			check.Change.EntityName,
			check.Change.Summary,
			conflict,
			check.Reason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write change row: %w", err)
		}
	}
	return f, nil
}

func actorLabel(record domain.ActivityRecord) string {
	if record.ActorName != "" {
		return record.ActorName
	}
	if record.ActorID != nil {
		return fmt.Sprintf("user %d", *record.ActorID)
	}
	return "anonymous"
}
