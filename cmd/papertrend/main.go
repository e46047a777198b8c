package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papertrend/papertrend/internal/arxiv"
	"github.com/papertrend/papertrend/internal/catalog"
	"github.com/papertrend/papertrend/internal/config"
	"github.com/papertrend/papertrend/internal/readinglist"
	"github.com/papertrend/papertrend/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "papertrend",
	Short:   "arXiv paper trends and reading list",
	Long:    "papertrend fetches arXiv papers, tracks keyword trends, and keeps a personal reading list.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(readingCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("papertrend", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/papertrend/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the arXiv query and data directory.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog and reading list status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := db.Summary()
		if err != nil {
			return fmt.Errorf("getting summary: %w", err)
		}

		fmt.Println("Catalog:")
		fmt.Printf("  Papers: %d\n", summary.TotalPapers)
		fmt.Printf("  Keywords: %d\n", summary.TotalKeywords)
		if summary.LatestPaperDate != nil {
			fmt.Printf("  Latest paper: %s\n", summary.LatestPaperDate.Format("2006-01-02"))
		}
		fmt.Printf("  Last 24h: %d\n", summary.RecentPapers24h)
		fmt.Printf("  Last 7 days: %d\n", summary.RecentPapers7d)
		fmt.Printf("  Last 30 days: %d\n", summary.RecentPapers30d)

		list := openList()
		defer list.Close()
		printLoadReport(list)

		stats := list.Stats()
		fmt.Println("\nReading list:")
		fmt.Printf("  Saved: %d\n", stats.Total)
		fmt.Printf("  Unread: %d\n", stats.Unread)
		fmt.Printf("  Reading: %d\n", stats.Reading)
		fmt.Printf("  Completed: %d\n", stats.Completed)
		fmt.Printf("  High priority: %d\n", stats.HighPriority)
		return nil
	},
}

// --- fetch command ---

var (
	fetchMax   int
	fetchQuery string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch papers from the arXiv API into the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		maxResults := cfg.Arxiv.MaxResults
		if fetchMax > 0 {
			maxResults = fetchMax
		}
		query := cfg.Arxiv.Query
		if fetchQuery != "" {
			query = fetchQuery
		}

		fmt.Printf("Fetching up to %d papers for query: %s\n", maxResults, query)

		fetcher := arxiv.NewFetcher(arxiv.NewClient(), db)
		result, err := fetcher.Fetch(query, maxResults)
		if err != nil {
			return fmt.Errorf("fetching papers: %w", err)
		}

		fmt.Println("\nFetch complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New papers: %d\n", result.NewPapers)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchMax, "max-results", 0, "Override max papers to fetch")
	fetchCmd.Flags().StringVar(&fetchQuery, "query", "", "Override the configured arXiv query")
}

// --- search command ---

var (
	searchLimit  int
	searchOffset int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the paper catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		papers, total, err := db.SearchPapers(args[0], searchOffset, searchLimit)
		if err != nil {
			return fmt.Errorf("searching papers: %w", err)
		}

		if total == 0 {
			fmt.Println("No matching papers.")
			return nil
		}

		fmt.Printf("%d match(es):\n\n", total)
		for _, p := range papers {
			fmt.Printf("  [%d] %s\n", p.ID, p.Title)
			fmt.Printf("      %s | %s | %s\n",
				p.ArxivID, p.PublishedAt.Format("2006-01-02"), strings.Join(p.Authors, ", "))
		}
		if total > searchOffset+len(papers) {
			fmt.Printf("\nShowing %d-%d of %d. Use --offset to page.\n",
				searchOffset+1, searchOffset+len(papers), total)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Max results to show")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Results to skip")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		list := openList()
		defer list.Close()
		printLoadReport(list)
		list.Watch(2 * time.Second)

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, list, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func openDB() (*catalog.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return catalog.Open(filepath.Join(dataDir, "papertrend.db"))
}

func openList() *readinglist.List {
	path := filepath.Join(cfg.GetDataDir(), readinglist.FileName)
	store := readinglist.NewStore(path)
	seedSettings(store)
	return readinglist.NewList(store)
}

// seedSettings writes a fresh document carrying the configured view settings
// when no reading list file exists yet. An existing document keeps its own
// settings.
func seedSettings(store *readinglist.Store) {
	if !store.ModTime().IsZero() {
		return
	}
	doc := readinglist.NewDocument()
	doc.Settings = readinglist.Settings{
		DefaultSort:   cfg.ReadingList.DefaultSort,
		DefaultFilter: cfg.ReadingList.DefaultFilter,
		ItemsPerPage:  cfg.ReadingList.ItemsPerPage,
	}
	if err := store.Save(doc); err != nil {
		log.Printf("Failed to create reading list file: %v", err)
	}
}

// printLoadReport surfaces a one-time notice when the reading list file was
// corrupt or from an old schema and had to be discarded.
func printLoadReport(list *readinglist.List) {
	report := list.LoadReport()
	if report == nil {
		return
	}
	if report.Corrupt {
		fmt.Fprintf(os.Stderr, "Warning: reading list file was unreadable and has been reset (%v)\n", report.Err)
		return
	}
	if report.MigratedFrom != "" {
		fmt.Fprintf(os.Stderr, "Warning: reading list from schema %q could not be migrated; starting empty\n", report.MigratedFrom)
	}
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item ID: %s", arg)
	}
	return id, nil
}
