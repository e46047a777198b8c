package arxiv

import (
	"log"

	"github.com/papertrend/papertrend/internal/catalog"
)

// Result holds the results of a fetch run.
type Result struct {
	TotalFound int
	NewPapers  int
	Duplicates int
}

// Fetcher pulls papers from the arXiv API into the catalog.
type Fetcher struct {
	client *Client
	db     *catalog.DB
}

// NewFetcher creates a fetcher storing into the given catalog.
func NewFetcher(client *Client, db *catalog.DB) *Fetcher {
	return &Fetcher{client: client, db: db}
}

// Fetch retrieves up to maxResults papers for the query and stores the new
// ones, linking extracted keywords. Papers already in the catalog count as
// duplicates.
func (f *Fetcher) Fetch(query string, maxResults int) (*Result, error) {
	entries, err := f.client.FetchAll(query, maxResults)
	if err != nil {
		return nil, err
	}

	r := &Result{TotalFound: len(entries)}
	for _, entry := range entries {
		id, err := f.db.InsertPaper(entry.ArxivID, entry.Title, entry.Authors, entry.Summary, entry.PublishedAt)
		if err != nil {
			log.Printf("Failed to store paper %s: %v", entry.ArxivID, err)
			continue
		}
		if id == 0 {
			r.Duplicates++
			continue
		}
		r.NewPapers++

		keywords := ExtractKeywords(entry.Title + " " + entry.Summary)
		if len(keywords) > 0 {
			if err := f.db.LinkKeywords(id, keywords); err != nil {
				log.Printf("Failed to link keywords for %s: %v", entry.ArxivID, err)
			}
		}
	}

	log.Printf("Fetch complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewPapers, r.Duplicates)
	return r, nil
}
