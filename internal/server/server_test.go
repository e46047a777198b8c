package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/papertrend/papertrend/internal/catalog"
	"github.com/papertrend/papertrend/internal/readinglist"
)

func testEnv(t *testing.T) (*catalog.DB, *readinglist.List) {
	t.Helper()
	dir := t.TempDir()

	db, err := catalog.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	list := readinglist.NewList(readinglist.NewStore(filepath.Join(dir, readinglist.FileName)))
	t.Cleanup(list.Close)
	return db, list
}

func testServer(t *testing.T) (*Server, *catalog.DB, *readinglist.List) {
	t.Helper()
	db, list := testEnv(t)
	srv, err := New(db, list)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, db, list
}

func insertTestPaper(t *testing.T, db *catalog.DB, arxivID, title string) int64 {
	t.Helper()
	id, err := db.InsertPaper(arxivID, title, []string{"Test Author"},
		"A summary about language models.", time.Now().UTC().Add(-20*time.Hour))
	if err != nil {
		t.Fatalf("failed to insert paper: %v", err)
	}
	return id
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dashboard") {
		t.Error("expected 'Dashboard' in response body")
	}
}

func TestSearchPage(t *testing.T) {
	srv, db, _ := testServer(t)
	insertTestPaper(t, db, "2401.00001v1", "Scaling Laws for Neural Language Models")

	req := httptest.NewRequest("GET", "/papers?q=scaling", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Scaling Laws") {
		t.Error("expected paper title in response")
	}
}

func TestReadingListAddForm(t *testing.T) {
	srv, db, list := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")

	body := strings.NewReader(fmt.Sprintf("paper_id=%d", paperID))
	req := httptest.NewRequest("POST", "/reading-list/add", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if !list.IsInList(paperID) {
		t.Error("expected paper in reading list after form add")
	}
}

func TestAPIAddAndList(t *testing.T) {
	srv, db, _ := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")

	rec := doJSON(t, srv, "POST", "/api/v1/reading-list/items", map[string]any{
		"paper_id": paperID,
		"notes":    "read me first",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var item readinglist.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("failed to decode item: %v", err)
	}
	if item.PaperID != paperID || item.Notes != "read me first" {
		t.Errorf("unexpected item: %+v", item)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/reading-list", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listResp struct {
		Items []readinglist.Item `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listResp.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(listResp.Items))
	}
}

func TestAPIAddDuplicateConflicts(t *testing.T) {
	srv, db, _ := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")

	rec := doJSON(t, srv, "POST", "/api/v1/reading-list/items", map[string]any{"paper_id": paperID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/reading-list/items", map[string]any{"paper_id": paperID})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on duplicate add, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "detail") {
		t.Error("expected detail field in error body")
	}
}

func TestAPIAddUnknownPaper(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doJSON(t, srv, "POST", "/api/v1/reading-list/items", map[string]any{"paper_id": 12345})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown paper, got %d", rec.Code)
	}
}

func TestAPIPatchAndDelete(t *testing.T) {
	srv, db, list := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")

	paper, _ := db.GetPaper(paperID)
	item, err := list.Add(paper.Snapshot(), nil)
	if err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	rec := doJSON(t, srv, "PATCH", fmt.Sprintf("/api/v1/reading-list/items/%d", item.ID), map[string]any{
		"readStatus": "completed",
		"notes":      "done",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated readinglist.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode item: %v", err)
	}
	if updated.ReadStatus != "completed" || updated.Notes != "done" {
		t.Errorf("patch not applied: %+v", updated)
	}

	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/v1/reading-list/items/%d", item.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/v1/reading-list/items/%d", item.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestAPIPatchRejectsUnknownStatus(t *testing.T) {
	srv, db, list := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")
	paper, _ := db.GetPaper(paperID)
	item, err := list.Add(paper.Snapshot(), nil)
	if err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	rec := doJSON(t, srv, "PATCH", fmt.Sprintf("/api/v1/reading-list/items/%d", item.ID), map[string]any{
		"readStatus": "banana",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "detail") {
		t.Error("expected detail field in error body")
	}

	got := list.ItemFor(paperID)
	if got == nil || got.ReadStatus != readinglist.StatusUnread {
		t.Errorf("rejected status reached the item: %+v", got)
	}
}

func TestFormStatusActionRejectsUnknownStatus(t *testing.T) {
	srv, db, list := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")
	paper, _ := db.GetPaper(paperID)
	item, err := list.Add(paper.Snapshot(), nil)
	if err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	body := strings.NewReader("status=banana")
	req := httptest.NewRequest("POST", fmt.Sprintf("/reading-list/%d/status", item.ID), body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	got := list.ItemFor(paperID)
	if got == nil || got.ReadStatus != readinglist.StatusUnread {
		t.Errorf("rejected status reached the item: %+v", got)
	}
}

func TestAPIBulkStatus(t *testing.T) {
	srv, db, list := testServer(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		paperID := insertTestPaper(t, db, fmt.Sprintf("2401.0000%dv1", i+1), fmt.Sprintf("Paper %d", i+1))
		paper, _ := db.GetPaper(paperID)
		item, err := list.Add(paper.Snapshot(), nil)
		if err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
		ids = append(ids, item.ID)
	}

	rec := doJSON(t, srv, "POST", "/api/v1/reading-list/bulk/status", map[string]any{
		"item_ids": ids[:2],
		"status":   "completed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats readinglist.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Completed != 2 || stats.Unread != 1 {
		t.Errorf("unexpected stats after bulk update: %+v", stats)
	}
}

func TestAPIExportImportRoundTrip(t *testing.T) {
	srv, db, list := testServer(t)
	paperID := insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")
	paper, _ := db.GetPaper(paperID)
	if _, err := list.Add(paper.Snapshot(), nil); err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	rec := doJSON(t, srv, "GET", "/api/v1/reading-list/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	exported := rec.Body.Bytes()

	// Clear the list, then import the export back.
	items := list.Items()
	if err := list.Remove(items[0].ID); err != nil {
		t.Fatalf("failed to clear list: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/reading-list/import?strategy=replace", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !list.IsInList(paperID) {
		t.Error("expected paper restored after import")
	}
}

func TestAPIImportRejectsMalformed(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("POST", "/api/v1/reading-list/import?strategy=replace",
		strings.NewReader(`{"version":"1.0","items":[{"title":"no paper id"}]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed import, got %d", rec.Code)
	}
}

func TestAPISearchRequiresQuery(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := doJSON(t, srv, "GET", "/api/v1/papers/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without query, got %d", rec.Code)
	}
}

func TestAPISummary(t *testing.T) {
	srv, db, _ := testServer(t)
	insertTestPaper(t, db, "2401.00001v1", "Scaling Laws")

	rec := doJSON(t, srv, "GET", "/api/v1/dashboard/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary catalog.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.TotalPapers != 1 {
		t.Errorf("expected 1 paper in summary, got %d", summary.TotalPapers)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-family") {
		t.Error("expected CSS content")
	}
}
