package versioning

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rpattn/ontograph/internal/auth"
	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"
)

// RevertResult reports what a completed revert produced, including the
// reconstructed graph with its fresh surrogate ids.
type RevertResult struct {
	OntologyID    int64           `json:"ontology_id"`
	TargetVersion int64           `json:"target_version"`
	Concepts      int             `json:"concepts_restored"`
	Relationships int             `json:"relationships_restored"`
	Individuals   int             `json:"individuals_restored"`
	Graph         domain.GraphSet `json:"graph"`
	NewVersion    int64           `json:"new_version"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// RevertEngine rebuilds an ontology's live graph to match its state as of a
// recorded version. The target state is assembled fully in memory from
// historical snapshots before any row is touched; the destructive swap then
// runs in a single transaction.
type RevertEngine struct {
	activity      repository.ActivityRepository
	graph         repository.GraphRepository
	concepts      repository.ConceptRepository
	relationships repository.RelationshipRepository
	individuals   repository.IndividualRepository
	now           func() time.Time
}

// NewRevertEngine wires the engine over the activity log and graph stores.
func NewRevertEngine(
	activity repository.ActivityRepository,
	graph repository.GraphRepository,
	concepts repository.ConceptRepository,
	relationships repository.RelationshipRepository,
	individuals repository.IndividualRepository,
) *RevertEngine {
	return &RevertEngine{
		activity:      activity,
		graph:         graph,
		concepts:      concepts,
		relationships: relationships,
		individuals:   individuals,
		now:           time.Now,
	}
}

// RevertToVersion restores the graph to its state as of versionNumber. The
// restored rows carry fresh surrogate ids; cross-references are remapped and
// references to unrestorable concepts are skipped with a warning rather than
// inserted dangling. A REVERT activity record is appended after the swap; a
// failure there is reported as a warning, not a rollback.
func (e *RevertEngine) RevertToVersion(ctx context.Context, ontologyID, versionNumber int64) (RevertResult, error) {
	ok, err := e.activity.HasVersion(ctx, ontologyID, versionNumber)
	if err != nil {
		return RevertResult{}, fmt.Errorf("failed to check version: %w", err)
	}
	if !ok {
		return RevertResult{}, fmt.Errorf("%w: ontology %d has no version %d", domain.ErrNotFound, ontologyID, versionNumber)
	}

	records, err := e.activity.ListUpToVersion(ctx, ontologyID, versionNumber)
	if err != nil {
		return RevertResult{}, fmt.Errorf("failed to load history: %w", err)
	}

	plan, warnings, err := e.buildPlan(ontologyID, records)
	if err != nil {
		return RevertResult{}, err
	}

	beforePayload, err := e.captureLiveGraph(ctx, ontologyID)
	if err != nil {
		return RevertResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return RevertResult{}, err
	}

	outcome, err := e.graph.ReplaceGraph(ctx, plan)
	if err != nil {
		return RevertResult{}, fmt.Errorf("%w: %v", domain.ErrRestoreFailed, err)
	}
	for _, skipped := range outcome.Skipped {
		warnings = append(warnings, skipped.Reason)
	}

	result := RevertResult{
		OntologyID:    ontologyID,
		TargetVersion: versionNumber,
		Concepts:      len(outcome.Concepts),
		Relationships: len(outcome.Relationships),
		Individuals:   len(outcome.Individuals),
		Graph: domain.GraphSet{
			Concepts:      outcome.Concepts,
			Relationships: outcome.Relationships,
			Individuals:   outcome.Individuals,
		},
		Warnings: warnings,
	}

	newVersion, err := e.recordRevert(ctx, ontologyID, versionNumber, beforePayload, outcome)
	if err != nil {
		// The graph swap already committed; the audit entry is best-effort.
		log.Printf("[Revert] ontology %d restored to version %d but audit record failed: %v", ontologyID, versionNumber, err)
		result.Warnings = append(result.Warnings, "revert succeeded but the audit record could not be written")
		return result, nil
	}
	result.NewVersion = newVersion
	return result, nil
}

// buildPlan replays history ascending and keeps, per entity, its latest state
// at or before the target version. Entities whose last record is a deletion
// are omitted. A history with no entity-bearing records at all means nothing
// was ever tracked, and the revert must refuse rather than swap in an empty
// graph. A kind with restorable candidates but no decodable snapshot
// escalates to a restore failure.
func (e *RevertEngine) buildPlan(ontologyID int64, records []domain.ActivityRecord) (domain.RestorePlan, []string, error) {
	type key struct {
		kind domain.EntityKind
		id   int64
	}
	latest := make(map[key]domain.ActivityRecord)
	var order []key
	for _, record := range records {
		if record.EntityID == nil {
			continue
		}
		switch record.EntityKind {
		case domain.KindConcept, domain.KindRelationship, domain.KindIndividual:
		default:
			continue
		}
		k := key{kind: record.EntityKind, id: *record.EntityID}
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = record
	}

	if len(order) == 0 {
		return domain.RestorePlan{}, nil, fmt.Errorf("%w: no entity snapshots recorded for ontology %d", domain.ErrNoSnapshots, ontologyID)
	}

	plan := domain.RestorePlan{OntologyID: ontologyID}
	var warnings []string
	candidates := map[domain.EntityKind]int{}
	decoded := map[domain.EntityKind]int{}

	for _, k := range order {
		record := latest[k]
		if record.ActivityType == domain.ActivityDelete || record.AfterSnapshot == nil {
			continue
		}
		candidates[k.kind]++
		switch k.kind {
		case domain.KindConcept:
			concept, err := domain.DecodeConcept(*record.AfterSnapshot)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("concept %d snapshot unreadable, skipped", k.id))
				continue
			}
			concept.OntologyID = ontologyID
			plan.Concepts = append(plan.Concepts, domain.ConceptSeed{OldID: k.id, Concept: concept})
			decoded[k.kind]++
		case domain.KindRelationship:
			rel, err := domain.DecodeRelationship(*record.AfterSnapshot)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("relationship %d snapshot unreadable, skipped", k.id))
				continue
			}
			plan.Relationships = append(plan.Relationships, domain.RelationshipSeed{
				OldID:        k.id,
				OldSourceID:  rel.SourceConceptID,
				OldTargetID:  rel.TargetConceptID,
				RelationType: rel.RelationType,
			})
			decoded[k.kind]++
		case domain.KindIndividual:
			ind, err := domain.DecodeIndividual(*record.AfterSnapshot)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("individual %d snapshot unreadable, skipped", k.id))
				continue
			}
			plan.Individuals = append(plan.Individuals, domain.IndividualSeed{
				OldID:        k.id,
				OldConceptID: ind.ConceptID,
				Name:         ind.Name,
				Description:  ind.Description,
			})
			decoded[k.kind]++
		}
	}

	for kind, n := range candidates {
		if n > 0 && decoded[kind] == 0 {
			return domain.RestorePlan{}, nil, fmt.Errorf("%w: no %s snapshot could be decoded", domain.ErrRestoreFailed, kind)
		}
	}
	return plan, warnings, nil
}

func (e *RevertEngine) captureLiveGraph(ctx context.Context, ontologyID int64) (string, error) {
	concepts, err := e.concepts.Load(ctx, ontologyID)
	if err != nil {
		return "", fmt.Errorf("failed to capture live concepts: %w", err)
	}
	relationships, err := e.relationships.Load(ctx, ontologyID)
	if err != nil {
		return "", fmt.Errorf("failed to capture live relationships: %w", err)
	}
	individuals, err := e.individuals.Load(ctx, ontologyID)
	if err != nil {
		return "", fmt.Errorf("failed to capture live individuals: %w", err)
	}
	set := domain.GraphSet{Concepts: concepts, Relationships: relationships, Individuals: individuals}
	return domain.EncodeGraphSet(ontologyID, set, e.now())
}

func (e *RevertEngine) recordRevert(ctx context.Context, ontologyID, versionNumber int64, beforePayload string, outcome domain.RestoreOutcome) (int64, error) {
	afterSet := domain.GraphSet{
		Concepts:      outcome.Concepts,
		Relationships: outcome.Relationships,
		Individuals:   outcome.Individuals,
	}
	afterPayload, err := domain.EncodeGraphSet(ontologyID, afterSet, e.now())
	if err != nil {
		return 0, fmt.Errorf("failed to encode restored graph: %w", err)
	}

	actor, _ := auth.ActorFromContext(ctx)
	record := domain.ActivityRecord{
		OntologyID:     ontologyID,
		ActivityType:   domain.ActivityRevert,
		EntityKind:     domain.KindOntology,
		EntityName:     fmt.Sprintf("version %d", versionNumber),
		Description:    fmt.Sprintf("Reverted ontology to version %d", versionNumber),
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		BeforeSnapshot: &beforePayload,
		AfterSnapshot:  &afterPayload,
	}
	if err := e.activity.Record(ctx, &record); err != nil {
		return 0, err
	}
	return record.VersionNumber, nil
}
