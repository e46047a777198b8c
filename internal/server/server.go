package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/papertrend/papertrend/internal/catalog"
	"github.com/papertrend/papertrend/internal/readinglist"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the dashboard and the JSON API. Reading
// list mutations go through the facade so page views stay in sync with
// CLI mutations made while the server runs.
type Server struct {
	db    *catalog.DB
	list  *readinglist.List
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(db *catalog.DB, list *readinglist.List) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"joinAuthors": func(authors []string) string {
			return strings.Join(authors, ", ")
		},
		"shortDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "search.html", "reading.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, list: list, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/papers", s.handleSearch)
	s.mux.HandleFunc("/reading-list", s.handleReadingList)
	s.mux.HandleFunc("/reading-list/add", s.handleReadingListAdd)
	s.mux.HandleFunc("/reading-list/", s.handleReadingListAction)

	// JSON API
	s.mux.HandleFunc("/api/v1/dashboard/summary", s.apiSummary)
	s.mux.HandleFunc("/api/v1/dashboard/trending-keywords", s.apiTrendingKeywords)
	s.mux.HandleFunc("/api/v1/keywords/word-cloud", s.apiWordCloud)
	s.mux.HandleFunc("/api/v1/papers/search", s.apiSearchPapers)
	s.mux.HandleFunc("/api/v1/reading-list", s.apiReadingList)
	s.mux.HandleFunc("/api/v1/reading-list/stats", s.apiReadingListStats)
	s.mux.HandleFunc("/api/v1/reading-list/items", s.apiReadingListAdd)
	s.mux.HandleFunc("/api/v1/reading-list/items/", s.apiReadingListItem)
	s.mux.HandleFunc("/api/v1/reading-list/bulk/status", s.apiBulkStatus)
	s.mux.HandleFunc("/api/v1/reading-list/bulk/remove", s.apiBulkRemove)
	s.mux.HandleFunc("/api/v1/reading-list/export", s.apiExport)
	s.mux.HandleFunc("/api/v1/reading-list/import", s.apiImport)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	summary, err := s.db.Summary()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	trending, _ := s.db.TrendingKeywords()

	s.render(w, "index.html", map[string]any{
		"Summary":  summary,
		"Trending": trending,
		"Stats":    s.list.Stats(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var papers []catalog.Paper
	var total int
	if query != "" {
		var err error
		papers, total, err = s.db.SearchPapers(query, 0, 50)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	saved := make(map[int64]bool, len(papers))
	for _, p := range papers {
		saved[p.ID] = s.list.IsInList(p.ID)
	}

	s.render(w, "search.html", map[string]any{
		"Query":  query,
		"Papers": papers,
		"Total":  total,
		"Saved":  saved,
	})
}

func (s *Server) handleReadingList(w http.ResponseWriter, r *http.Request) {
	s.render(w, "reading.html", map[string]any{
		"Items": s.list.Items(),
		"Stats": s.list.Stats(),
	})
}

func (s *Server) handleReadingListAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/reading-list", http.StatusFound)
		return
	}

	paperID, err := strconv.ParseInt(r.FormValue("paper_id"), 10, 64)
	if err == nil {
		if paper, perr := s.db.GetPaper(paperID); perr == nil && paper != nil {
			if _, aerr := s.list.Add(paper.Snapshot(), nil); aerr != nil {
				log.Printf("Failed to add paper %d: %v", paperID, aerr)
			}
		}
	}

	back := r.FormValue("back")
	if back == "" {
		back = "/reading-list"
	}
	http.Redirect(w, r, back, http.StatusFound)
}

func (s *Server) handleReadingListAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/reading-list", http.StatusFound)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/reading-list/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		http.Redirect(w, r, "/reading-list", http.StatusFound)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Redirect(w, r, "/reading-list", http.StatusFound)
		return
	}

	var actionErr error
	switch parts[1] {
	case "status":
		status := r.FormValue("status")
		_, actionErr = s.list.Update(id, readinglist.Patch{ReadStatus: &status})
	case "priority":
		priority := r.FormValue("priority")
		_, actionErr = s.list.Update(id, readinglist.Patch{Priority: &priority})
	case "notes":
		notes := strings.TrimSpace(r.FormValue("notes"))
		_, actionErr = s.list.Update(id, readinglist.Patch{Notes: &notes})
	case "delete":
		actionErr = s.list.Remove(id)
	}
	if actionErr != nil {
		log.Printf("Failed to %s item %d: %v", parts[1], id, actionErr)
	}

	http.Redirect(w, r, "/reading-list", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *catalog.DB, list *readinglist.List, port int) error {
	srv, err := New(db, list)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
