package readinglist

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Service holds the invariant-preserving mutations over the document. It is
// stateless between calls: every mutation loads the current document,
// changes an in-memory copy, and saves the whole thing back.
type Service struct {
	store *Store
}

// NewService returns a service over the given store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// AddOptions override the defaults applied to a newly added item.
type AddOptions struct {
	Notes      string
	Priority   string
	ReadStatus string
	Tags       []string
}

// Add creates an item from a paper snapshot and prepends it to the list.
// Returns ErrDuplicateItem if the paper is already saved; the list holds at
// most one item per paper.
func (s *Service) Add(paper Paper, opts *AddOptions) (*Item, error) {
	doc, _ := s.store.Load()

	if doc.hasPaper(paper.ID) {
		return nil, fmt.Errorf("%w: paper %d", ErrDuplicateItem, paper.ID)
	}

	item := Item{
		ID:          nextItemID(),
		PaperID:     paper.ID,
		ArxivID:     paper.ArxivID,
		Title:       paper.Title,
		Authors:     paper.Authors,
		Summary:     paper.Summary,
		PublishedAt: paper.PublishedAt,
		ArxivURL:    paper.ArxivURL,
		AddedAt:     time.Now().UTC(),
		Priority:    PriorityMedium,
		ReadStatus:  StatusUnread,
	}
	if opts != nil {
		item.Notes = opts.Notes
		if opts.Priority != "" {
			if !validPriority(opts.Priority) {
				return nil, fmt.Errorf("%w: priority %q", ErrInvalidValue, opts.Priority)
			}
			item.Priority = opts.Priority
		}
		if opts.ReadStatus != "" {
			if !validStatus(opts.ReadStatus) {
				return nil, fmt.Errorf("%w: read status %q", ErrInvalidValue, opts.ReadStatus)
			}
			item.ReadStatus = opts.ReadStatus
		}
		if len(opts.Tags) > 0 {
			item.Tags = opts.Tags
		}
	}

	// Newest-first is a document invariant, not a view-time sort.
	doc.Items = append([]Item{item}, doc.Items...)

	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove deletes the item with the given id. Returns ErrNotFound if no
// item has that id.
func (s *Service) Remove(itemID int64) error {
	doc, _ := s.store.Load()

	idx := doc.itemIndex(itemID)
	if idx == -1 {
		return fmt.Errorf("%w: %d", ErrNotFound, itemID)
	}

	doc.Items = append(doc.Items[:idx], doc.Items[idx+1:]...)
	return s.store.Save(doc)
}

// Patch lists the mutable item fields. Identity fields (id, paperId) and
// snapshot fields are not expressible here, so they cannot be changed.
type Patch struct {
	Notes      *string
	Priority   *string
	ReadStatus *string
	Tags       *[]string
}

// Update applies a patch to the item with the given id and returns the
// updated item. Returns ErrNotFound if no item has that id and
// ErrInvalidValue if the patch carries an unknown priority or status.
func (s *Service) Update(itemID int64, patch Patch) (*Item, error) {
	if patch.Priority != nil && !validPriority(*patch.Priority) {
		return nil, fmt.Errorf("%w: priority %q", ErrInvalidValue, *patch.Priority)
	}
	if patch.ReadStatus != nil && !validStatus(*patch.ReadStatus) {
		return nil, fmt.Errorf("%w: read status %q", ErrInvalidValue, *patch.ReadStatus)
	}

	doc, _ := s.store.Load()

	idx := doc.itemIndex(itemID)
	if idx == -1 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, itemID)
	}

	item := &doc.Items[idx]
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
	if patch.Priority != nil {
		item.Priority = *patch.Priority
	}
	if patch.ReadStatus != nil {
		item.ReadStatus = *patch.ReadStatus
	}
	if patch.Tags != nil {
		item.Tags = *patch.Tags
	}

	updated := *item
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return &updated, nil
}

// BulkUpdateStatus sets the read status on every listed item that exists.
// Ids without a matching item are skipped; this is a convenience bulk op,
// not a transaction.
func (s *Service) BulkUpdateStatus(itemIDs []int64, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: read status %q", ErrInvalidValue, status)
	}

	doc, _ := s.store.Load()

	for _, id := range itemIDs {
		if idx := doc.itemIndex(id); idx != -1 {
			doc.Items[idx].ReadStatus = status
		}
	}
	return s.store.Save(doc)
}

// BulkRemove deletes every listed item that exists; unknown ids are
// ignored.
func (s *Service) BulkRemove(itemIDs []int64) error {
	doc, _ := s.store.Load()

	drop := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}

	kept := doc.Items[:0]
	for _, item := range doc.Items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	doc.Items = kept
	return s.store.Save(doc)
}

// Stats aggregates counts over the current document without mutating it.
func (s *Service) Stats() Stats {
	doc, _ := s.store.Load()
	return ComputeStats(doc)
}

// exportDocument is the on-disk export shape: the document plus export
// metadata.
type exportDocument struct {
	Document
	ExportedAt    time.Time `json:"exportedAt"`
	ExportVersion string    `json:"exportVersion"`
}

// Export writes the full document plus export metadata as indented JSON.
func (s *Service) Export(w io.Writer) error {
	doc, _ := s.store.Load()

	out := exportDocument{
		Document:      *doc,
		ExportedAt:    time.Now().UTC(),
		ExportVersion: Version,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// Import strategies.
const (
	ImportReplace = "replace"
	ImportMerge   = "merge"
)

// Import reads an exported document and applies it. Under replace the
// current document is overwritten wholesale; under merge only items whose
// paper is not already in the list are appended, and existing items are
// untouched. Malformed input fails with ErrInvalidImportFormat.
func (s *Service) Import(r io.Reader, strategy string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading import: %w", err)
	}

	imported, err := parseImport(data)
	if err != nil {
		return err
	}

	if strategy == ImportReplace {
		return s.store.Save(imported)
	}

	doc, _ := s.store.Load()
	seen := make(map[int64]bool, len(doc.Items))
	for _, item := range doc.Items {
		seen[item.PaperID] = true
	}
	for _, item := range imported.Items {
		if !seen[item.PaperID] {
			doc.Items = append(doc.Items, item)
			seen[item.PaperID] = true
		}
	}
	return s.store.Save(doc)
}

// parseImport decodes and structurally validates an import payload: every
// item must carry a numeric paper id, a string title, and an author array.
func parseImport(data []byte) (*Document, error) {
	var shape struct {
		Items []map[string]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportFormat, err)
	}
	if shape.Items == nil {
		return nil, fmt.Errorf("%w: missing items array", ErrInvalidImportFormat)
	}
	for i, raw := range shape.Items {
		if !isJSONNumber(raw["paperId"]) {
			return nil, fmt.Errorf("%w: item %d has no numeric paperId", ErrInvalidImportFormat, i)
		}
		if !isJSONString(raw["title"]) {
			return nil, fmt.Errorf("%w: item %d has no title", ErrInvalidImportFormat, i)
		}
		if !isJSONArray(raw["authors"]) {
			return nil, fmt.Errorf("%w: item %d has no authors array", ErrInvalidImportFormat, i)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportFormat, err)
	}
	if doc.Items == nil {
		doc.Items = []Item{}
	}
	if doc.Settings == (Settings{}) {
		doc.Settings = DefaultSettings()
	}
	return &doc, nil
}

// The pointer targets distinguish a real value from JSON null, which
// unmarshals into a plain target as a no-op.
func isJSONNumber(raw json.RawMessage) bool {
	var n *float64
	return raw != nil && json.Unmarshal(raw, &n) == nil && n != nil
}

func isJSONString(raw json.RawMessage) bool {
	var s *string
	return raw != nil && json.Unmarshal(raw, &s) == nil && s != nil
}

func isJSONArray(raw json.RawMessage) bool {
	var a *[]json.RawMessage
	return raw != nil && json.Unmarshal(raw, &a) == nil && a != nil
}
