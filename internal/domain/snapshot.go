package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BaseSnapshot is a frozen full graph copy used as a diff baseline. It is
// created once when a merge request opens and read-only thereafter.
type BaseSnapshot struct {
	ID             uuid.UUID  `json:"id"`
	OntologyID     int64      `json:"ontology_id"`
	MergeRequestID *uuid.UUID `json:"merge_request_id,omitempty"`
	Payload        string     `json:"payload"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Entity snapshots are stored as self-describing JSON objects. Decoding is
// best-effort: each field is read with a safe-get that tolerates missing
// keys, nulls and type mismatches by substituting a zero value, so snapshots
// written before a schema change stay decodable.

// EncodeConcept serializes a concept's semantic fields, omitting absent
// optionals.
func EncodeConcept(c Concept) (string, error) {
	m := map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"position_x": c.PositionX,
		"position_y": c.PositionY,
	}
	if c.Definition != "" {
		m["definition"] = c.Definition
	}
	if c.Category != "" {
		m["category"] = c.Category
	}
	return encodeSnapshot(m)
}

// DecodeConcept reconstructs a concept from snapshot text.
func DecodeConcept(text string) (Concept, error) {
	m, err := SnapshotFields(text)
	if err != nil {
		return Concept{}, err
	}
	return Concept{
		ID:         snapshotInt(m, "id"),
		Name:       snapshotString(m, "name"),
		Definition: snapshotString(m, "definition"),
		Category:   snapshotString(m, "category"),
		PositionX:  snapshotFloat(m, "position_x"),
		PositionY:  snapshotFloat(m, "position_y"),
	}, nil
}

// EncodeRelationship serializes a relationship's semantic fields.
func EncodeRelationship(r Relationship) (string, error) {
	return encodeSnapshot(map[string]any{
		"id":            r.ID,
		"source_id":     r.SourceConceptID,
		"target_id":     r.TargetConceptID,
		"relation_type": r.RelationType,
	})
}

// DecodeRelationship reconstructs a relationship from snapshot text.
func DecodeRelationship(text string) (Relationship, error) {
	m, err := SnapshotFields(text)
	if err != nil {
		return Relationship{}, err
	}
	return Relationship{
		ID:              snapshotInt(m, "id"),
		SourceConceptID: snapshotInt(m, "source_id"),
		TargetConceptID: snapshotInt(m, "target_id"),
		RelationType:    snapshotString(m, "relation_type"),
	}, nil
}

// EncodeIndividual serializes an individual's semantic fields, omitting
// absent optionals.
func EncodeIndividual(i Individual) (string, error) {
	m := map[string]any{
		"id":         i.ID,
		"concept_id": i.ConceptID,
		"name":       i.Name,
	}
	if i.Description != "" {
		m["description"] = i.Description
	}
	return encodeSnapshot(m)
}

// DecodeIndividual reconstructs an individual from snapshot text.
func DecodeIndividual(text string) (Individual, error) {
	m, err := SnapshotFields(text)
	if err != nil {
		return Individual{}, err
	}
	return Individual{
		ID:          snapshotInt(m, "id"),
		ConceptID:   snapshotInt(m, "concept_id"),
		Name:        snapshotString(m, "name"),
		Description: snapshotString(m, "description"),
	}, nil
}

// SnapshotFields parses snapshot text into its raw field map. Used by the
// version comparison path, which works over untyped fields so records from
// older schema revisions remain comparable.
func SnapshotFields(text string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return m, nil
}

type graphSetPayload struct {
	OntologyID int64            `json:"ontology_id"`
	CapturedAt time.Time        `json:"captured_at"`
	Concepts   []map[string]any `json:"concepts"`
	Relations  []map[string]any `json:"relationships"`
	Members    []map[string]any `json:"individuals"`
}

// EncodeGraphSet serializes a full graph capture as one opaque, timestamped
// blob with no live references.
func EncodeGraphSet(ontologyID int64, set GraphSet, capturedAt time.Time) (string, error) {
	payload := graphSetPayload{
		OntologyID: ontologyID,
		CapturedAt: capturedAt.UTC(),
		Concepts:   make([]map[string]any, 0, len(set.Concepts)),
		Relations:  make([]map[string]any, 0, len(set.Relationships)),
		Members:    make([]map[string]any, 0, len(set.Individuals)),
	}
	for _, c := range set.Concepts {
		payload.Concepts = append(payload.Concepts, conceptFieldMap(c))
	}
	for _, r := range set.Relationships {
		payload.Relations = append(payload.Relations, relationshipFieldMap(r))
	}
	for _, i := range set.Individuals {
		payload.Members = append(payload.Members, individualFieldMap(i))
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode graph set: %w", err)
	}
	return string(encoded), nil
}

// DecodeGraphSet reconstructs a graph capture with the same safe-get
// tolerance as the per-entity codecs.
func DecodeGraphSet(text string) (GraphSet, error) {
	var payload graphSetPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return GraphSet{}, fmt.Errorf("failed to parse graph set: %w", err)
	}

	set := GraphSet{
		Concepts:      make([]Concept, 0, len(payload.Concepts)),
		Relationships: make([]Relationship, 0, len(payload.Relations)),
		Individuals:   make([]Individual, 0, len(payload.Members)),
	}
	for _, m := range payload.Concepts {
		set.Concepts = append(set.Concepts, Concept{
			ID:         snapshotInt(m, "id"),
			OntologyID: payload.OntologyID,
			Name:       snapshotString(m, "name"),
			Definition: snapshotString(m, "definition"),
			Category:   snapshotString(m, "category"),
			PositionX:  snapshotFloat(m, "position_x"),
			PositionY:  snapshotFloat(m, "position_y"),
		})
	}
	for _, m := range payload.Relations {
		set.Relationships = append(set.Relationships, Relationship{
			ID:              snapshotInt(m, "id"),
			OntologyID:      payload.OntologyID,
			SourceConceptID: snapshotInt(m, "source_id"),
			TargetConceptID: snapshotInt(m, "target_id"),
			RelationType:    snapshotString(m, "relation_type"),
		})
	}
	for _, m := range payload.Members {
		set.Individuals = append(set.Individuals, Individual{
			ID:          snapshotInt(m, "id"),
			OntologyID:  payload.OntologyID,
			ConceptID:   snapshotInt(m, "concept_id"),
			Name:        snapshotString(m, "name"),
			Description: snapshotString(m, "description"),
		})
	}
	return set, nil
}

func conceptFieldMap(c Concept) map[string]any {
	m := map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"position_x": c.PositionX,
		"position_y": c.PositionY,
	}
	if c.Definition != "" {
		m["definition"] = c.Definition
	}
	if c.Category != "" {
		m["category"] = c.Category
	}
	return m
}

func relationshipFieldMap(r Relationship) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"source_id":     r.SourceConceptID,
		"target_id":     r.TargetConceptID,
		"relation_type": r.RelationType,
	}
}

func individualFieldMap(i Individual) map[string]any {
	m := map[string]any{
		"id":         i.ID,
		"concept_id": i.ConceptID,
		"name":       i.Name,
	}
	if i.Description != "" {
		m["description"] = i.Description
	}
	return m
}

func encodeSnapshot(m map[string]any) (string, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(encoded), nil
}

func snapshotString(m map[string]any, key string) string {
	value, ok := m[key]
	if !ok || value == nil {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return s
}

func snapshotFloat(m map[string]any, key string) float64 {
	value, ok := m[key]
	if !ok || value == nil {
		return 0
	}
	f, ok := value.(float64)
	if !ok {
		return 0
	}
	return f
}

func snapshotInt(m map[string]any, key string) int64 {
	value, ok := m[key]
	if !ok || value == nil {
		return 0
	}
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
