package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/papertrend/papertrend/internal/readinglist"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// writeError sends an error body in the {"detail": ...} shape.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeServiceError maps reading list errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, readinglist.ErrDuplicateItem):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, readinglist.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, readinglist.ErrInvalidImportFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, readinglist.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Reading list error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.db.Summary()
	if err != nil {
		log.Printf("Summary query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) apiTrendingKeywords(w http.ResponseWriter, r *http.Request) {
	trending, err := s.db.TrendingKeywords()
	if err != nil {
		log.Printf("Trending keywords query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": trending})
}

func (s *Server) apiWordCloud(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	limit := queryInt(r, "limit", 50)

	counts, err := s.db.KeywordCounts(days, limit)
	if err != nil {
		log.Printf("Word cloud query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": counts})
}

func (s *Server) apiSearchPapers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	papers, total, err := s.db.SearchPapers(query, offset, limit)
	if err != nil {
		log.Printf("Paper search failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"papers": papers,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) apiReadingList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    s.list.Items(),
		"settings": s.list.Settings(),
	})
}

func (s *Server) apiReadingListStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.list.Stats())
}

type addItemRequest struct {
	PaperID    int64    `json:"paper_id"`
	Notes      string   `json:"notes"`
	Priority   string   `json:"priority"`
	ReadStatus string   `json:"read_status"`
	Tags       []string `json:"tags"`
}

func (s *Server) apiReadingListAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	paper, err := s.db.GetPaper(req.PaperID)
	if err != nil {
		log.Printf("Paper lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if paper == nil {
		writeError(w, http.StatusNotFound, "paper not found")
		return
	}

	item, err := s.list.Add(paper.Snapshot(), &readinglist.AddOptions{
		Notes:      req.Notes,
		Priority:   req.Priority,
		ReadStatus: req.ReadStatus,
		Tags:       req.Tags,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type patchItemRequest struct {
	Notes      *string   `json:"notes"`
	Priority   *string   `json:"priority"`
	ReadStatus *string   `json:"readStatus"`
	Tags       *[]string `json:"tags"`
}

func (s *Server) apiReadingListItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/reading-list/items/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req patchItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := s.list.Update(id, readinglist.Patch{
			Notes:      req.Notes,
			Priority:   req.Priority,
			ReadStatus: req.ReadStatus,
			Tags:       req.Tags,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.list.Remove(id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type bulkStatusRequest struct {
	ItemIDs []int64 `json:"item_ids"`
	Status  string  `json:"status"`
}

func (s *Server) apiBulkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.list.BulkUpdateStatus(req.ItemIDs, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.list.Stats())
}

type bulkRemoveRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

func (s *Server) apiBulkRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bulkRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.list.BulkRemove(req.ItemIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.list.Stats())
}

func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="reading-list-export.json"`)
	if err := s.list.Export(w); err != nil {
		log.Printf("Export failed: %v", err)
	}
}

func (s *Server) apiImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = readinglist.ImportMerge
	}
	if strategy != readinglist.ImportMerge && strategy != readinglist.ImportReplace {
		writeError(w, http.StatusBadRequest, "strategy must be 'merge' or 'replace'")
		return
	}

	if err := s.list.Import(r.Body, strategy); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": len(s.list.Items()),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
