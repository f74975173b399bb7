package versioning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"
)

// Handler exposes the versioning engine over REST. Paths are rooted at
// /api/ontologies/{id}/ and dispatched by suffix:
//
//	GET  .../history                          paged activity log
//	GET  .../entities/{kind}/{id}/history     one entity's record trail
//	GET  .../versions/current                 highest recorded version
//	GET  .../versions/stats                   history aggregates
//	GET  .../versions/compare?base=&target=   field-level record diff
//	POST .../snapshots                        capture a base snapshot
//	POST .../changes                          diff a snapshot against live state
//	POST .../revert                           restore a recorded version
type Handler struct {
	snapshots repository.SnapshotRepository
	builder   *SnapshotBuilder
	detector  *ChangeDetector
	conflicts *ConflictDetector
	reverter  *RevertEngine
	query     *VersionQuery
}

func NewHTTPHandler(
	snapshots repository.SnapshotRepository,
	builder *SnapshotBuilder,
	detector *ChangeDetector,
	conflicts *ConflictDetector,
	reverter *RevertEngine,
	query *VersionQuery,
) http.Handler {
	return &Handler{
		snapshots: snapshots,
		builder:   builder,
		detector:  detector,
		conflicts: conflicts,
		reverter:  reverter,
		query:     query,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ontologyID, rest, err := splitOntologyPath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodGet && rest == "history":
		h.handleHistory(w, r, ontologyID)
	case r.Method == http.MethodGet && strings.HasPrefix(rest, "entities/") && strings.HasSuffix(rest, "/history"):
		h.handleEntityHistory(w, r, ontologyID, rest)
	case r.Method == http.MethodGet && rest == "versions/current":
		h.handleCurrentVersion(w, r, ontologyID)
	case r.Method == http.MethodGet && rest == "versions/stats":
		h.handleStats(w, r, ontologyID)
	case r.Method == http.MethodGet && rest == "versions/compare":
		h.handleCompare(w, r)
	case r.Method == http.MethodPost && rest == "snapshots":
		h.handleCreateSnapshot(w, r, ontologyID)
	case r.Method == http.MethodPost && rest == "changes":
		h.handleDetectChanges(w, r, ontologyID)
	case r.Method == http.MethodPost && rest == "revert":
		h.handleRevert(w, r, ontologyID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	query := r.URL.Query()

	var filter domain.ActivityFilter
	if raw := strings.ToUpper(strings.TrimSpace(query.Get("entityKind"))); raw != "" {
		kind := domain.EntityKind(raw)
		switch kind {
		case domain.KindConcept, domain.KindRelationship, domain.KindIndividual, domain.KindOntology:
			filter.EntityKind = &kind
		default:
			http.Error(w, fmt.Sprintf("unknown entityKind %q", raw), http.StatusBadRequest)
			return
		}
	}
	if raw := strings.TrimSpace(query.Get("actorId")); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "actorId must be an integer", http.StatusBadRequest)
			return
		}
		filter.ActorID = &actorID
	}

	limit, err := parseBoundedInt(query.Get("limit"), 0)
	if err != nil {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	offset, err := parseBoundedInt(query.Get("offset"), 0)
	if err != nil {
		http.Error(w, "offset must be zero or positive", http.StatusBadRequest)
		return
	}

	page, err := h.query.History(r.Context(), ontologyID, &filter, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleEntityHistory(w http.ResponseWriter, r *http.Request, ontologyID int64, rest string) {
	// rest is entities/{kind}/{entityId}/history
	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	kind, ok := parseEntityKind(parts[1])
	if !ok {
		http.Error(w, fmt.Sprintf("unknown entity kind %q", parts[1]), http.StatusBadRequest)
		return
	}
	entityID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		http.Error(w, "invalid entity id", http.StatusBadRequest)
		return
	}

	records, err := h.query.EntityHistory(r.Context(), ontologyID, kind, entityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleCurrentVersion(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	version, err := h.query.CurrentVersion(r.Context(), ontologyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"ontology_id": ontologyID, "current_version": version})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	stats, err := h.query.Stats(r.Context(), ontologyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	baseID, err := strconv.ParseInt(strings.TrimSpace(query.Get("base")), 10, 64)
	if err != nil {
		http.Error(w, "base must be an activity record id", http.StatusBadRequest)
		return
	}
	targetID, err := strconv.ParseInt(strings.TrimSpace(query.Get("target")), 10, 64)
	if err != nil {
		http.Error(w, "target must be an activity record id", http.StatusBadRequest)
		return
	}

	comparison, err := h.query.CompareVersions(r.Context(), baseID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

type createSnapshotPayload struct {
	MergeRequestID *string `json:"mergeRequestId"`
}

func (h *Handler) handleCreateSnapshot(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	defer r.Body.Close()
	// An empty body means an ad hoc capture with no merge request.
	var payload createSnapshotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	var mergeRequestID *uuid.UUID
	if payload.MergeRequestID != nil && strings.TrimSpace(*payload.MergeRequestID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*payload.MergeRequestID))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid mergeRequestId: %v", err), http.StatusBadRequest)
			return
		}
		mergeRequestID = &id
	}

	snapshot, err := h.builder.CreateSnapshot(r.Context(), ontologyID, mergeRequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

type detectChangesPayload struct {
	BaseSnapshotID string  `json:"baseSnapshotId"`
	MergeRequestID *string `json:"mergeRequestId"`
}

type changeSetResponse struct {
	OntologyID     int64           `json:"ontology_id"`
	BaseSnapshotID uuid.UUID       `json:"base_snapshot_id"`
	Changes        []ConflictCheck `json:"changes"`
	Conflicts      int             `json:"conflicts"`
}

func (h *Handler) handleDetectChanges(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	defer r.Body.Close()
	var payload detectChangesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	snapshotID, err := uuid.Parse(strings.TrimSpace(payload.BaseSnapshotID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid baseSnapshotId: %v", err), http.StatusBadRequest)
		return
	}

	snapshot, err := h.snapshots.GetByID(r.Context(), snapshotID)
	if err != nil {
		writeError(w, err)
		return
	}
	if snapshot.OntologyID != ontologyID {
		http.Error(w, "snapshot belongs to a different ontology", http.StatusBadRequest)
		return
	}

	mergeRequestID := uuid.Nil
	if payload.MergeRequestID != nil && strings.TrimSpace(*payload.MergeRequestID) != "" {
		mergeRequestID, err = uuid.Parse(strings.TrimSpace(*payload.MergeRequestID))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid mergeRequestId: %v", err), http.StatusBadRequest)
			return
		}
	} else if snapshot.MergeRequestID != nil {
		mergeRequestID = *snapshot.MergeRequestID
	}

	changes, err := h.detector.DetectAllChanges(r.Context(), ontologyID, snapshot.Payload, mergeRequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	checks := h.conflicts.CheckAll(r.Context(), changes)

	conflicts := 0
	for _, check := range checks {
		if check.HasConflict {
			conflicts++
		}
	}
	writeJSON(w, http.StatusOK, changeSetResponse{
		OntologyID:     ontologyID,
		BaseSnapshotID: snapshotID,
		Changes:        checks,
		Conflicts:      conflicts,
	})
}

type revertPayload struct {
	Version int64 `json:"version"`
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	defer r.Body.Close()
	var payload revertPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if payload.Version <= 0 {
		http.Error(w, "version must be a positive integer", http.StatusBadRequest)
		return
	}

	result, err := h.reverter.RevertToVersion(r.Context(), ontologyID, payload.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// splitOntologyPath extracts the ontology id and trailing route from a path
// shaped like /api/ontologies/{id}/{rest...}.
func splitOntologyPath(path string) (int64, string, error) {
	const marker = "/ontologies/"
	idx := strings.Index(path, marker)
	if idx == -1 {
		return 0, "", fmt.Errorf("missing ontology identifier")
	}
	tail := strings.Trim(path[idx+len(marker):], "/")
	segment, rest, _ := strings.Cut(tail, "/")
	ontologyID, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || ontologyID <= 0 {
		return 0, "", fmt.Errorf("invalid ontology identifier %q", segment)
	}
	return ontologyID, rest, nil
}

func parseEntityKind(raw string) (domain.EntityKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CONCEPT", "CONCEPTS":
		return domain.KindConcept, true
	case "RELATIONSHIP", "RELATIONSHIPS":
		return domain.KindRelationship, true
	case "INDIVIDUAL", "INDIVIDUALS":
		return domain.KindIndividual, true
	default:
		return "", false
	}
}

func parseBoundedInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return parsed, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNoSnapshots):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
