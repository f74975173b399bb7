package export

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves workbook downloads:
//
//	GET /api/ontologies/{id}/export/history                 history workbook
//	GET /api/ontologies/{id}/export/changes?snapshotId=...  change-set workbook
type Handler struct {
	service   *Service
	snapshots repository.SnapshotRepository
}

func NewHTTPHandler(service *Service, snapshots repository.SnapshotRepository) http.Handler {
	return &Handler{service: service, snapshots: snapshots}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ontologyID, err := parseOntologyID(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/export/history"):
		h.handleHistory(w, r, ontologyID)
	case strings.HasSuffix(r.URL.Path, "/export/changes"):
		h.handleChanges(w, r, ontologyID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	var filter domain.ActivityFilter
	if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("entityKind"))); raw != "" {
		kind := domain.EntityKind(raw)
		switch kind {
		case domain.KindConcept, domain.KindRelationship, domain.KindIndividual, domain.KindOntology:
			filter.EntityKind = &kind
		default:
			http.Error(w, fmt.Sprintf("unknown entityKind %q", raw), http.StatusBadRequest)
			return
		}
	}

	workbook, err := h.service.HistoryWorkbook(r.Context(), ontologyID, &filter)
	if err != nil {
		writeError(w, err)
		return
	}
	defer workbook.Close()

	serveWorkbook(w, workbook, fmt.Sprintf("ontology-%d-history.xlsx", ontologyID))
}

func (h *Handler) handleChanges(w http.ResponseWriter, r *http.Request, ontologyID int64) {
	raw := strings.TrimSpace(r.URL.Query().Get("snapshotId"))
	if raw == "" {
		http.Error(w, "snapshotId is required", http.StatusBadRequest)
		return
	}
	snapshotID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid snapshotId: %v", err), http.StatusBadRequest)
		return
	}

	snapshot, err := h.snapshots.GetByID(r.Context(), snapshotID)
	if err != nil {
		writeError(w, err)
		return
	}
	workbook, err := h.service.ChangeSetWorkbook(r.Context(), ontologyID, snapshot)
	if err != nil {
		writeError(w, err)
		return
	}
	defer workbook.Close()

	serveWorkbook(w, workbook, fmt.Sprintf("ontology-%d-changes-%s.xlsx", ontologyID, snapshotID))
}

func serveWorkbook(w http.ResponseWriter, workbook *excelize.File, filename string) {
	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := workbook.WriteTo(w); err != nil {
		log.Printf("[Export] failed to stream %s: %v", filename, err)
	}
}

func parseOntologyID(path string) (int64, error) {
	const marker = "/ontologies/"
	idx := strings.Index(path, marker)
	if idx == -1 {
		return 0, fmt.Errorf("missing ontology identifier")
	}
	tail := strings.Trim(path[idx+len(marker):], "/")
	segment, _, _ := strings.Cut(tail, "/")
	ontologyID, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || ontologyID <= 0 {
		return 0, fmt.Errorf("invalid ontology identifier %q", segment)
	}
	return ontologyID, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
