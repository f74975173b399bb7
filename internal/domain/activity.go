package domain

import (
	"fmt"
	"time"
)

// ActivityType classifies one audit-log entry.
type ActivityType string

const (
	ActivityCreate ActivityType = "CREATE"
	ActivityUpdate ActivityType = "UPDATE"
	ActivityDelete ActivityType = "DELETE"
	ActivityRevert ActivityType = "REVERT"
)

// EntityKind names the graph table an activity record touches.
type EntityKind string

const (
	KindConcept      EntityKind = "CONCEPT"
	KindRelationship EntityKind = "RELATIONSHIP"
	KindIndividual   EntityKind = "INDIVIDUAL"
	// KindOntology marks informational records that touch no single entity.
	KindOntology EntityKind = "ONTOLOGY"
)

// ActivityRecord is one immutable audit entry in an ontology's history.
// Version numbers are unique per ontology and may contain gaps, never repeats.
type ActivityRecord struct {
	ID             int64        `json:"id"`
	OntologyID     int64        `json:"ontology_id"`
	VersionNumber  int64        `json:"version_number"`
	ActivityType   ActivityType `json:"activity_type"`
	EntityKind     EntityKind   `json:"entity_kind"`
	EntityID       *int64       `json:"entity_id,omitempty"`
	EntityName     string       `json:"entity_name"`
	Description    string       `json:"description"`
	ActorID        *int64       `json:"actor_id,omitempty"`
	ActorName      string       `json:"actor_name"`
	BeforeSnapshot *string      `json:"before_snapshot,omitempty"`
	AfterSnapshot  *string      `json:"after_snapshot,omitempty"`
	Notes          string       `json:"notes"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Validate enforces the snapshot invariants for each activity type:
// CREATE carries no before image, DELETE no after image, and UPDATE/REVERT
// carry both.
func (r ActivityRecord) Validate() error {
	if r.OntologyID == 0 {
		return fmt.Errorf("%w: activity record requires an ontology id", ErrValidation)
	}
	switch r.ActivityType {
	case ActivityCreate:
		if r.BeforeSnapshot != nil {
			return fmt.Errorf("%w: create record must not carry a before snapshot", ErrValidation)
		}
	case ActivityDelete:
		if r.AfterSnapshot != nil {
			return fmt.Errorf("%w: delete record must not carry an after snapshot", ErrValidation)
		}
	case ActivityUpdate, ActivityRevert:
		if r.BeforeSnapshot == nil || r.AfterSnapshot == nil {
			return fmt.Errorf("%w: %s record requires both before and after snapshots", ErrValidation, r.ActivityType)
		}
	default:
		return fmt.Errorf("%w: unknown activity type %q", ErrValidation, r.ActivityType)
	}
	return nil
}

// ActivityFilter narrows history reads by entity kind and/or actor.
type ActivityFilter struct {
	EntityKind *EntityKind
	ActorID    *int64
}

// VersionStats aggregates one ontology's recorded history.
type VersionStats struct {
	TotalRecords   int64                  `json:"total_records"`
	MaxVersion     int64                  `json:"max_version"`
	FirstRecorded  *time.Time             `json:"first_recorded,omitempty"`
	LastRecorded   *time.Time             `json:"last_recorded,omitempty"`
	DistinctActors int64                  `json:"distinct_actors"`
	ByActivity     map[ActivityType]int64 `json:"by_activity"`
	ByEntityKind   map[EntityKind]int64   `json:"by_entity_kind"`
}
