package readinglist

import (
	"io"
	"log"
	"sync"
	"time"
)

// List is the reactive facade over the service: an in-memory cache of the
// persisted document that notifies subscribers after every successful
// mutation, and optionally watches the store file for writes made by other
// processes. The cache is only ever replaced by a successful local mutation
// or a reload; a failed save leaves the last-known-good state in place.
type List struct {
	store *Store
	svc   *Service

	mu      sync.Mutex
	doc     *Document
	loaded  bool
	report  *LoadReport
	modTime time.Time

	subs    map[int]func()
	nextSub int

	stopWatch chan struct{}
	watchOnce sync.Once
	closeOnce sync.Once
}

// NewList returns a facade over the given store. The document is loaded
// lazily on first access.
func NewList(store *Store) *List {
	return &List{
		store: store,
		svc:   NewService(store),
		subs:  make(map[int]func()),
	}
}

// ensure loads the document into the cache on first use. Callers hold mu.
func (l *List) ensure() {
	if l.loaded {
		return
	}
	l.doc, l.report = l.store.Load()
	l.modTime = l.store.ModTime()
	l.loaded = true
}

// LoadReport returns the report from the initial load, if loading had to
// discard a corrupt or legacy document. It is cleared after the first call
// so the notice is shown once.
func (l *List) LoadReport() *LoadReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()
	r := l.report
	l.report = nil
	return r
}

// Subscribe registers a listener called after every cache change. The
// returned function removes the listener.
func (l *List) Subscribe(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// notify invokes all subscribers. Callers hold mu; listeners must not call
// back into the list from the same goroutine.
func (l *List) notify() {
	for _, fn := range l.subs {
		fn()
	}
}

// refresh reloads the cache from the store and records the file mtime.
// Callers hold mu.
func (l *List) refresh() {
	l.doc, _ = l.store.Load()
	l.modTime = l.store.ModTime()
	l.loaded = true
}

// Items returns a copy of the cached item list, newest first.
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	items := make([]Item, len(l.doc.Items))
	copy(items, l.doc.Items)
	return items
}

// Settings returns the cached document's view settings.
func (l *List) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()
	return l.doc.Settings
}

// IsInList reports whether the paper is saved, answering from the cache.
func (l *List) IsInList(paperID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()
	return l.doc.hasPaper(paperID)
}

// ItemFor returns the item referencing the paper, or nil. Answers from the
// cache with no I/O.
func (l *List) ItemFor(paperID int64) *Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	for i := range l.doc.Items {
		if l.doc.Items[i].PaperID == paperID {
			item := l.doc.Items[i]
			return &item
		}
	}
	return nil
}

// Stats aggregates counts over the cached document.
func (l *List) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()
	return ComputeStats(l.doc)
}

// Add saves a paper snapshot to the list.
func (l *List) Add(paper Paper, opts *AddOptions) (*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	item, err := l.svc.Add(paper, opts)
	if err != nil {
		return nil, err
	}
	l.refresh()
	l.notify()
	return item, nil
}

// Remove deletes an item by id.
func (l *List) Remove(itemID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	if err := l.svc.Remove(itemID); err != nil {
		return err
	}
	l.refresh()
	l.notify()
	return nil
}

// Update patches an item's mutable fields and returns the result.
func (l *List) Update(itemID int64, patch Patch) (*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	item, err := l.svc.Update(itemID, patch)
	if err != nil {
		return nil, err
	}
	l.refresh()
	l.notify()
	return item, nil
}

// BulkUpdateStatus sets the read status on every listed item that exists.
func (l *List) BulkUpdateStatus(itemIDs []int64, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	if err := l.svc.BulkUpdateStatus(itemIDs, status); err != nil {
		return err
	}
	l.refresh()
	l.notify()
	return nil
}

// BulkRemove deletes every listed item that exists.
func (l *List) BulkRemove(itemIDs []int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	if err := l.svc.BulkRemove(itemIDs); err != nil {
		return err
	}
	l.refresh()
	l.notify()
	return nil
}

// Export writes the document plus export metadata to w.
func (l *List) Export(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()
	return l.svc.Export(w)
}

// Import applies an exported document under the given strategy.
func (l *List) Import(r io.Reader, strategy string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	if err := l.svc.Import(r, strategy); err != nil {
		return err
	}
	l.refresh()
	l.notify()
	return nil
}

// Refresh reloads the cache from the store and notifies subscribers.
func (l *List) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refresh()
	l.notify()
}

// Watch starts polling the store file's mtime at the given interval and
// reloads the cache when another process wrote it. This is the only path
// by which the cache changes without a local mutation. Watch is a no-op
// after the first call; Close stops the watcher.
func (l *List) Watch(interval time.Duration) {
	l.watchOnce.Do(func() {
		l.stopWatch = make(chan struct{})
		go l.watchLoop(interval)
	})
}

func (l *List) watchLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopWatch:
			return
		case <-ticker.C:
			l.mu.Lock()
			mtime := l.store.ModTime()
			if !mtime.Equal(l.modTime) {
				log.Printf("reading list changed on disk, reloading")
				l.refresh()
				l.notify()
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the watcher, if one was started. Safe to call more than
// once.
func (l *List) Close() {
	l.closeOnce.Do(func() {
		if l.stopWatch != nil {
			close(l.stopWatch)
		}
	})
}
