package catalog

import (
	"math"
	"sort"
	"time"
)

// Trending window bounds, matching the dashboard's definition of "recent"
// and "previous" periods.
const (
	trendingRecentDays   = 90
	trendingPreviousDays = 180
	trendingLimit        = 10
	minRecentCount       = 2
)

// LinkKeywords associates keyword names with a paper, creating keyword
// rows as needed. Existing links are left alone.
func (db *DB) LinkKeywords(paperID int64, names []string) error {
	for _, name := range names {
		if _, err := db.conn.Exec(
			"INSERT OR IGNORE INTO keywords (name) VALUES (?)", name,
		); err != nil {
			return err
		}

		var keywordID int64
		if err := db.conn.QueryRow(
			"SELECT id FROM keywords WHERE name = ?", name,
		).Scan(&keywordID); err != nil {
			return err
		}

		if _, err := db.conn.Exec(
			"INSERT OR IGNORE INTO paper_keywords (paper_id, keyword_id) VALUES (?, ?)",
			paperID, keywordID,
		); err != nil {
			return err
		}
	}
	return nil
}

// TrendingKeywords compares each keyword's paper count in the recent
// window against the previous window and returns the top growers.
func (db *DB) TrendingKeywords() ([]TrendingKeyword, error) {
	now := time.Now().UTC()
	recentSince := now.AddDate(0, 0, -trendingRecentDays).Format(time.RFC3339)
	previousSince := now.AddDate(0, 0, -trendingPreviousDays).Format(time.RFC3339)

	rows, err := db.conn.Query(
		`SELECT k.name,
			SUM(CASE WHEN p.published_at >= ? THEN 1 ELSE 0 END) AS recent_count,
			SUM(CASE WHEN p.published_at >= ? AND p.published_at < ? THEN 1 ELSE 0 END) AS previous_count
		FROM keywords k
		JOIN paper_keywords pk ON k.id = pk.keyword_id
		JOIN papers p ON pk.paper_id = p.id
		WHERE p.published_at >= ?
		GROUP BY k.name
		HAVING SUM(CASE WHEN p.published_at >= ? THEN 1 ELSE 0 END) >= ?`,
		recentSince, previousSince, recentSince, previousSince, recentSince, minRecentCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trending []TrendingKeyword
	for rows.Next() {
		var tk TrendingKeyword
		if err := rows.Scan(&tk.Name, &tk.RecentCount, &tk.PreviousCount); err != nil {
			return nil, err
		}
		tk.GrowthCount = tk.RecentCount - tk.PreviousCount
		if tk.PreviousCount > 0 {
			rate := float64(tk.GrowthCount) / float64(tk.PreviousCount) * 100
			tk.GrowthRatePercent = math.Round(rate*100) / 100
		} else {
			// No previous mentions: scale by growth instead of dividing by zero.
			tk.GrowthRatePercent = float64(tk.GrowthCount * 100)
		}
		trending = append(trending, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(trending, func(i, j int) bool {
		if trending[i].GrowthCount != trending[j].GrowthCount {
			return trending[i].GrowthCount > trending[j].GrowthCount
		}
		return trending[i].RecentCount > trending[j].RecentCount
	})

	if len(trending) > trendingLimit {
		trending = trending[:trendingLimit]
	}
	return trending, nil
}

// KeywordCounts returns the most frequent keywords over the last `days`
// days, up to `limit` entries. This feeds the word-cloud endpoint.
func (db *DB) KeywordCounts(days, limit int) ([]KeywordCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := db.conn.Query(
		`SELECT k.name, COUNT(pk.paper_id) AS count
		FROM keywords k
		JOIN paper_keywords pk ON k.id = pk.keyword_id
		JOIN papers p ON pk.paper_id = p.id
		WHERE p.published_at >= ?
		GROUP BY k.name
		ORDER BY count DESC
		LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []KeywordCount
	for rows.Next() {
		var kc KeywordCount
		if err := rows.Scan(&kc.Text, &kc.Value); err != nil {
			return nil, err
		}
		counts = append(counts, kc)
	}
	return counts, rows.Err()
}
