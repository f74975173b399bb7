package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ChangeType classifies one entry of a computed change-set.
type ChangeType string

const (
	ChangeAdd    ChangeType = "ADD"
	ChangeModify ChangeType = "MODIFY"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeRecord is one reviewable difference between a merge request's base
// snapshot and the live graph. Records are computed on demand and not
// persisted; OrderIndex reflects detection order (concepts, then
// relationships, then individuals; within a kind additions, deletions,
// modifications).
type ChangeRecord struct {
	ID             uuid.UUID     `json:"id"`
	MergeRequestID uuid.UUID     `json:"merge_request_id"`
	OntologyID     int64         `json:"ontology_id"`
	EntityKind     EntityKind    `json:"entity_kind"`
	EntityID       int64         `json:"entity_id"`
	ChangeType     ChangeType    `json:"change_type"`
	EntityName     string        `json:"entity_name"`
	Summary        string        `json:"summary"`
	FieldChanges   []FieldChange `json:"field_changes,omitempty"`
	Before         *string       `json:"before,omitempty"`
	After          *string       `json:"after,omitempty"`
	OrderIndex     int           `json:"order_index"`
}

// UnresolvedConceptName is the placeholder used when a display name cannot be
// derived because a referenced concept is missing from both snapshot and
// live state.
const UnresolvedConceptName = "(unknown concept)"

// AddSummary renders the summary line for an addition.
func AddSummary(kind EntityKind, name string) string {
	return fmt.Sprintf("Added %s '%s'", kindLabel(kind), name)
}

// DeleteSummary renders the summary line for a deletion.
func DeleteSummary(kind EntityKind, name string) string {
	return fmt.Sprintf("Deleted %s '%s'", kindLabel(kind), name)
}

func kindLabel(kind EntityKind) string {
	switch kind {
	case KindConcept:
		return "concept"
	case KindRelationship:
		return "relationship"
	case KindIndividual:
		return "individual"
	default:
		return "entity"
	}
}
