package catalog

import (
	"time"

	"github.com/papertrend/papertrend/internal/readinglist"
)

// Paper is a stored paper snapshot.
type Paper struct {
	ID          int64
	ArxivID     string
	Title       string
	Authors     []string
	Summary     string
	PublishedAt time.Time
	CreatedAt   *string
}

// ArxivURL returns the abstract page URL for the paper.
func (p *Paper) ArxivURL() string {
	return "https://arxiv.org/abs/" + p.ArxivID
}

// Snapshot converts the paper to the reading list's add-time snapshot.
func (p *Paper) Snapshot() readinglist.Paper {
	return readinglist.Paper{
		ID:          p.ID,
		ArxivID:     p.ArxivID,
		Title:       p.Title,
		Authors:     p.Authors,
		Summary:     p.Summary,
		PublishedAt: p.PublishedAt,
		ArxivURL:    p.ArxivURL(),
	}
}

// Summary contains aggregate catalog statistics for the dashboard.
type Summary struct {
	TotalPapers     int        `json:"total_papers"`
	TotalKeywords   int        `json:"total_keywords"`
	LatestPaperDate *time.Time `json:"latest_paper_date"`
	RecentPapers24h int        `json:"recent_papers_24h"`
	RecentPapers7d  int        `json:"recent_papers_7d"`
	RecentPapers30d int        `json:"recent_papers_30d"`
}

// TrendingKeyword is a keyword with recent-vs-previous growth figures.
type TrendingKeyword struct {
	Name              string  `json:"name"`
	RecentCount       int     `json:"recent_count"`
	PreviousCount     int     `json:"previous_count"`
	GrowthCount       int     `json:"growth_count"`
	GrowthRatePercent float64 `json:"growth_rate_percent"`
}

// KeywordCount is a keyword with its paper count over a window.
type KeywordCount struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}
