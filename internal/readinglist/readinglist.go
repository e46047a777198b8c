// Package readinglist implements the locally persisted reading list: a
// single versioned JSON document of saved paper snapshots with personal
// metadata, mutated through a load-mutate-save service and observed through
// an in-memory facade.
package readinglist

import (
	"sync"
	"time"
)

// Version is the current schema version of the persisted document.
const Version = "1.0"

// Priority levels for a reading list item.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Read status values for a reading list item.
const (
	StatusUnread    = "unread"
	StatusReading   = "reading"
	StatusCompleted = "completed"
)

// validPriority reports whether p is one of the allowed priority levels.
func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// validStatus reports whether s is one of the allowed read statuses.
func validStatus(s string) bool {
	switch s {
	case StatusUnread, StatusReading, StatusCompleted:
		return true
	}
	return false
}

// Paper is the snapshot of a catalog paper taken at add time. The reading
// list copies these fields and never syncs them with the catalog afterward.
type Paper struct {
	ID          int64
	ArxivID     string
	Title       string
	Authors     []string
	Summary     string
	PublishedAt time.Time
	ArxivURL    string
}

// Item is one saved paper with personal metadata.
type Item struct {
	ID          int64     `json:"id"`
	PaperID     int64     `json:"paperId"`
	ArxivID     string    `json:"arxivId"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"publishedAt"`
	ArxivURL    string    `json:"arxivUrl"`
	AddedAt     time.Time `json:"addedAt"`
	Notes       string    `json:"notes,omitempty"`
	Priority    string    `json:"priority"`
	ReadStatus  string    `json:"readStatus"`
	Tags        []string  `json:"tags,omitempty"`
}

// Settings are the default-view preferences embedded in the document.
type Settings struct {
	DefaultSort   string `json:"defaultSort"`
	DefaultFilter string `json:"defaultFilter"`
	ItemsPerPage  int    `json:"itemsPerPage"`
}

// DefaultSettings returns the view settings for a fresh document.
func DefaultSettings() Settings {
	return Settings{
		DefaultSort:   "addedAt",
		DefaultFilter: "all",
		ItemsPerPage:  20,
	}
}

// Document is the single persisted aggregate. Items are kept newest-first:
// Add prepends, and the order is part of the document, not a view-time sort.
type Document struct {
	Items       []Item    `json:"items"`
	LastUpdated time.Time `json:"lastUpdated"`
	Version     string    `json:"version"`
	Settings    Settings  `json:"settings"`
}

// NewDocument returns a fresh empty document at the current schema version.
func NewDocument() *Document {
	return &Document{
		Items:       []Item{},
		LastUpdated: time.Now().UTC(),
		Version:     Version,
		Settings:    DefaultSettings(),
	}
}

// itemIndex returns the position of the item with the given id, or -1.
func (d *Document) itemIndex(itemID int64) int {
	for i := range d.Items {
		if d.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// hasPaper reports whether any item references the given paper id.
func (d *Document) hasPaper(paperID int64) bool {
	for i := range d.Items {
		if d.Items[i].PaperID == paperID {
			return true
		}
	}
	return false
}

// Stats are derived counts over the current item list. They are recomputed
// on demand and never persisted.
type Stats struct {
	Total        int `json:"total"`
	Unread       int `json:"unread"`
	Reading      int `json:"reading"`
	Completed    int `json:"completed"`
	HighPriority int `json:"highPriority"`
}

// ComputeStats aggregates stats for a document.
func ComputeStats(doc *Document) Stats {
	s := Stats{Total: len(doc.Items)}
	for i := range doc.Items {
		switch doc.Items[i].ReadStatus {
		case StatusUnread:
			s.Unread++
		case StatusReading:
			s.Reading++
		case StatusCompleted:
			s.Completed++
		}
		if doc.Items[i].Priority == PriorityHigh {
			s.HighPriority++
		}
	}
	return s
}

var (
	idMu   sync.Mutex
	lastID int64
)

// nextItemID generates a unique item id: the current millisecond timestamp
// scaled to leave room for a sequence component, bumped past the previous
// id when calls land in the same millisecond.
func nextItemID() int64 {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().UnixMilli() * 1000
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}
