package domain

import "time"

// Ontology is the top-level owned graph of concepts, relationships and individuals.
type Ontology struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Concept is a named class node in an ontology graph.
type Concept struct {
	ID         int64     `json:"id"`
	OntologyID int64     `json:"ontology_id"`
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	Category   string    `json:"category"`
	PositionX  float64   `json:"position_x"`
	PositionY  float64   `json:"position_y"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Relationship is a typed, directed edge between two concepts.
type Relationship struct {
	ID              int64     `json:"id"`
	OntologyID      int64     `json:"ontology_id"`
	SourceConceptID int64     `json:"source_concept_id"`
	TargetConceptID int64     `json:"target_concept_id"`
	RelationType    string    `json:"relation_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Individual is a named instance typed by its owning concept.
type Individual struct {
	ID          int64     `json:"id"`
	OntologyID  int64     `json:"ontology_id"`
	ConceptID   int64     `json:"concept_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GraphSet is a full value copy of one ontology's graph tables.
type GraphSet struct {
	Concepts      []Concept      `json:"concepts"`
	Relationships []Relationship `json:"relationships"`
	Individuals   []Individual   `json:"individuals"`
}

// ConceptsByID indexes the set's concepts by surrogate id.
func (g GraphSet) ConceptsByID() map[int64]Concept {
	out := make(map[int64]Concept, len(g.Concepts))
	for _, c := range g.Concepts {
		out[c.ID] = c
	}
	return out
}

// RelationshipsByID indexes the set's relationships by surrogate id.
func (g GraphSet) RelationshipsByID() map[int64]Relationship {
	out := make(map[int64]Relationship, len(g.Relationships))
	for _, r := range g.Relationships {
		out[r.ID] = r
	}
	return out
}

// IndividualsByID indexes the set's individuals by surrogate id.
func (g GraphSet) IndividualsByID() map[int64]Individual {
	out := make(map[int64]Individual, len(g.Individuals))
	for _, i := range g.Individuals {
		out[i.ID] = i
	}
	return out
}
