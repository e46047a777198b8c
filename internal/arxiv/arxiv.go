// Package arxiv fetches paper metadata from the arXiv Atom API and stores
// new papers into the catalog.
package arxiv

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// DefaultBaseURL is the arXiv API query endpoint.
const DefaultBaseURL = "http://export.arxiv.org/api/query"

// pageLimit is the API's maximum results per request.
const pageLimit = 1000

const maxAttempts = 3

// Entry is one parsed paper entry from the API feed.
type Entry struct {
	ArxivID     string
	Title       string
	Authors     []string
	Summary     string
	PublishedAt time.Time
}

// Client queries the arXiv API and parses its Atom responses.
type Client struct {
	baseURL   string
	http      *http.Client
	parser    *gofeed.Parser
	pageDelay time.Duration
}

// NewClient creates a client against the public arXiv API.
func NewClient() *Client {
	return &Client{
		baseURL:   DefaultBaseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		pageDelay: 3 * time.Second,
	}
}

// NewClientWithBase creates a client against a custom endpoint, used in
// tests.
func NewClientWithBase(baseURL string, pageDelay time.Duration) *Client {
	c := NewClient()
	c.baseURL = baseURL
	c.pageDelay = pageDelay
	return c
}

// FetchPage fetches one page of results for the search query.
func (c *Client) FetchPage(query string, start, maxResults int) ([]Entry, error) {
	if maxResults > pageLimit {
		maxResults = pageLimit
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	reqURL := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		entries, err := c.fetchOnce(reqURL)
		if err == nil {
			return entries, nil
		}
		lastErr = err
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("fetching arxiv page: %w", lastErr)
}

func (c *Client) fetchOnce(reqURL string) ([]Entry, error) {
	resp, err := c.http.Get(reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv api returned status %d", resp.StatusCode)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	var entries []Entry
	for _, item := range feed.Items {
		entry := parseItem(item)
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

// FetchAll pages through results until the API returns an empty page or
// maxResults entries have been collected. A delay between pages keeps the
// API happy.
func (c *Client) FetchAll(query string, maxResults int) ([]Entry, error) {
	var all []Entry
	start := 0

	for len(all) < maxResults {
		pageSize := maxResults - len(all)
		if pageSize > pageLimit {
			pageSize = pageLimit
		}

		log.Printf("Fetching arxiv papers at offset %d...", start)
		page, err := c.FetchPage(query, start, pageSize)
		if err != nil {
			return all, err
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		start += len(page)

		if len(all) < maxResults {
			time.Sleep(c.pageDelay)
		}
	}

	return all, nil
}

// parseItem converts a feed item into an Entry, or nil if the item lacks
// the fields a paper needs.
func parseItem(item *gofeed.Item) *Entry {
	// The Atom entry id is the abs URL; the arXiv id is its last segment.
	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" {
		return nil
	}
	parts := strings.Split(id, "/")
	arxivID := parts[len(parts)-1]
	if arxivID == "" {
		return nil
	}

	title := strings.Join(strings.Fields(item.Title), " ")
	if title == "" {
		return nil
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	} else {
		return nil
	}

	var authors []string
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	summary := strings.Join(strings.Fields(item.Description), " ")

	return &Entry{
		ArxivID:     arxivID,
		Title:       title,
		Authors:     authors,
		Summary:     summary,
		PublishedAt: published,
	}
}
