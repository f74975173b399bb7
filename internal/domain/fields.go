package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldChange describes one differing field between two versions of the same
// entity. Name-like fields render with their old and new values; all other
// fields only report that they changed, so snapshots never leak full field
// contents into summaries.
type FieldChange struct {
	Field      string `json:"field"`
	Old        string `json:"old,omitempty"`
	New        string `json:"new,omitempty"`
	ShowValues bool   `json:"-"`
}

// Summary renders the change for a change-record summary line.
func (fc FieldChange) Summary() string {
	if fc.ShowValues {
		return fmt.Sprintf("%s: '%s' → '%s'", fc.Field, fc.Old, fc.New)
	}
	return fc.Field + " changed"
}

// JoinFieldChanges renders a comma-joined modification summary.
func JoinFieldChanges(changes []FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, fc := range changes {
		parts = append(parts, fc.Summary())
	}
	return strings.Join(parts, ", ")
}

// ConceptChanges compares the semantic fields of two concept versions.
// Position counts as one comparable field.
func ConceptChanges(base, current Concept) []FieldChange {
	var changes []FieldChange
	if base.Name != current.Name {
		changes = append(changes, FieldChange{Field: "name", Old: base.Name, New: current.Name, ShowValues: true})
	}
	if base.Definition != current.Definition {
		changes = append(changes, FieldChange{Field: "definition"})
	}
	if base.Category != current.Category {
		changes = append(changes, FieldChange{Field: "category"})
	}
	if base.PositionX != current.PositionX || base.PositionY != current.PositionY {
		changes = append(changes, FieldChange{Field: "position"})
	}
	return changes
}

// RelationshipChanges compares the semantic fields of two relationship
// versions. Position is not compared for relationships.
func RelationshipChanges(base, current Relationship) []FieldChange {
	var changes []FieldChange
	if base.RelationType != current.RelationType {
		changes = append(changes, FieldChange{Field: "type", Old: base.RelationType, New: current.RelationType, ShowValues: true})
	}
	if base.SourceConceptID != current.SourceConceptID {
		changes = append(changes, FieldChange{Field: "source"})
	}
	if base.TargetConceptID != current.TargetConceptID {
		changes = append(changes, FieldChange{Field: "target"})
	}
	return changes
}

// IndividualChanges compares the semantic fields of two individual versions.
func IndividualChanges(base, current Individual) []FieldChange {
	var changes []FieldChange
	if base.Name != current.Name {
		changes = append(changes, FieldChange{Field: "name", Old: base.Name, New: current.Name, ShowValues: true})
	}
	if base.Description != current.Description {
		changes = append(changes, FieldChange{Field: "description"})
	}
	if base.ConceptID != current.ConceptID {
		changes = append(changes, FieldChange{Field: "concept"})
	}
	return changes
}

// FieldDiffKind classifies one field difference between two snapshots.
type FieldDiffKind string

const (
	FieldAdded    FieldDiffKind = "ADDED"
	FieldModified FieldDiffKind = "MODIFIED"
	FieldRemoved  FieldDiffKind = "REMOVED"
)

// FieldDiff is one field-level difference produced by version comparison.
type FieldDiff struct {
	Field string        `json:"field"`
	Kind  FieldDiffKind `json:"kind"`
	Old   string        `json:"old,omitempty"`
	New   string        `json:"new,omitempty"`
}

// snapshotFieldOrder lists each kind's known snapshot keys in canonical
// order. Comparison walks these first, then falls back to a sorted walk of
// any remaining keys so legacy snapshots with retired fields still diff.
var snapshotFieldOrder = map[EntityKind][]string{
	KindConcept:      {"name", "definition", "category", "position_x", "position_y"},
	KindRelationship: {"source_id", "target_id", "relation_type"},
	KindIndividual:   {"concept_id", "name", "description"},
}

// CompareSnapshotFields diffs two snapshot field maps, classifying each
// differing field as added, modified or removed. The surrogate id key is
// excluded; it identifies the entity rather than describing it.
func CompareSnapshotFields(kind EntityKind, base, target map[string]any) []FieldDiff {
	seen := map[string]bool{"id": true}
	ordered := make([]string, 0, len(base)+len(target))
	for _, key := range snapshotFieldOrder[kind] {
		if !seen[key] {
			seen[key] = true
			ordered = append(ordered, key)
		}
	}

	var leftover []string
	for key := range base {
		if !seen[key] {
			seen[key] = true
			leftover = append(leftover, key)
		}
	}
	for key := range target {
		if !seen[key] {
			seen[key] = true
			leftover = append(leftover, key)
		}
	}
	sort.Strings(leftover)
	ordered = append(ordered, leftover...)

	var diffs []FieldDiff
	for _, key := range ordered {
		baseValue, inBase := base[key]
		targetValue, inTarget := target[key]
		switch {
		case inBase && !inTarget:
			diffs = append(diffs, FieldDiff{Field: key, Kind: FieldRemoved, Old: formatFieldValue(baseValue)})
		case !inBase && inTarget:
			diffs = append(diffs, FieldDiff{Field: key, Kind: FieldAdded, New: formatFieldValue(targetValue)})
		case inBase && inTarget:
			baseText := formatFieldValue(baseValue)
			targetText := formatFieldValue(targetValue)
			if baseText != targetText {
				diffs = append(diffs, FieldDiff{Field: key, Kind: FieldModified, Old: baseText, New: targetText})
			}
		}
	}
	return diffs
}

// FieldDiffSummary renders a comma-joined description of field differences.
func FieldDiffSummary(diffs []FieldDiff) string {
	if len(diffs) == 0 {
		return "no differences"
	}
	parts := make([]string, 0, len(diffs))
	for _, d := range diffs {
		switch d.Kind {
		case FieldAdded:
			parts = append(parts, d.Field+" added")
		case FieldRemoved:
			parts = append(parts, d.Field+" removed")
		default:
			parts = append(parts, d.Field+" changed")
		}
	}
	return strings.Join(parts, ", ")
}

func formatFieldValue(value any) string {
	if value == nil {
		return "null"
	}
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}
