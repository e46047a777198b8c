package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papertrend/papertrend/internal/readinglist"
)

var readingCmd = &cobra.Command{
	Use:   "reading",
	Short: "Manage the reading list",
}

func init() {
	readingCmd.AddCommand(readingAddCmd)
	readingCmd.AddCommand(readingListCmd)
	readingCmd.AddCommand(readingRemoveCmd)
	readingCmd.AddCommand(readingNoteCmd)
	readingCmd.AddCommand(readingMarkCmd)
	readingCmd.AddCommand(readingPriorityCmd)
	readingCmd.AddCommand(readingTagCmd)
	readingCmd.AddCommand(readingStatsCmd)
	readingCmd.AddCommand(readingExportCmd)
	readingCmd.AddCommand(readingImportCmd)
}

// --- reading add ---

var (
	addNotes    string
	addPriority string
	addStatus   string
	addTags     []string
)

var readingAddCmd = &cobra.Command{
	Use:   "add [arxiv-id]",
	Short: "Save a catalog paper to the reading list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		paper, err := db.GetPaperByArxivID(args[0])
		if err != nil {
			return err
		}
		if paper == nil {
			return fmt.Errorf("paper %s not in catalog; run 'papertrend fetch' first", args[0])
		}

		list := openList()
		defer list.Close()
		printLoadReport(list)

		item, err := list.Add(paper.Snapshot(), &readinglist.AddOptions{
			Notes:      addNotes,
			Priority:   addPriority,
			ReadStatus: addStatus,
			Tags:       addTags,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Saved [%d]: %s\n", item.ID, item.Title)
		return nil
	},
}

func init() {
	readingAddCmd.Flags().StringVar(&addNotes, "notes", "", "Initial notes")
	readingAddCmd.Flags().StringVar(&addPriority, "priority", "", "Priority: low, medium, high")
	readingAddCmd.Flags().StringVar(&addStatus, "status", "", "Read status: unread, reading, completed")
	readingAddCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tags (repeatable)")
}

// --- reading list ---

var (
	listStatus   string
	listPriority string
	listTag      string
)

var readingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved papers, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		list := openList()
		defer list.Close()
		printLoadReport(list)

		items := list.Items()
		shown := 0
		for _, item := range items {
			if listStatus != "" && item.ReadStatus != listStatus {
				continue
			}
			if listPriority != "" && item.Priority != listPriority {
				continue
			}
			if listTag != "" && !hasTag(item.Tags, listTag) {
				continue
			}
			shown++

			fmt.Printf("  [%d] %s\n", item.ID, item.Title)
			fmt.Printf("      %s | %s | %s priority | added %s\n",
				item.ArxivID, item.ReadStatus, item.Priority, item.AddedAt.Format("2006-01-02"))
			if len(item.Tags) > 0 {
				fmt.Printf("      tags: %s\n", strings.Join(item.Tags, ", "))
			}
			if item.Notes != "" {
				note := item.Notes
				if len(note) > 70 {
					note = note[:70] + "..."
				}
				fmt.Printf("      %s\n", note)
			}
		}

		if shown == 0 {
			fmt.Println("No matching items. Save papers with: papertrend reading add <arxiv-id>")
		}
		return nil
	},
}

func init() {
	readingListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by read status")
	readingListCmd.Flags().StringVar(&listPriority, "priority", "", "Filter by priority")
	readingListCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// --- reading remove ---

var readingRemoveCmd = &cobra.Command{
	Use:   "remove [id...]",
	Short: "Remove items from the reading list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list := openList()
		defer list.Close()
		printLoadReport(list)

		if len(args) == 1 {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			if err := list.Remove(id); err != nil {
				return err
			}
			fmt.Printf("Removed item [%d]\n", id)
			return nil
		}

		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := parseItemID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if err := list.BulkRemove(ids); err != nil {
			return err
		}
		fmt.Printf("Removed %d item(s)\n", len(ids))
		return nil
	},
}

// --- reading note ---

var readingNoteCmd = &cobra.Command{
	Use:   "note [id] [text]",
	Short: "Set an item's notes (empty text clears them)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		notes := ""
		if len(args) > 1 {
			notes = args[1]
		}

		list := openList()
		defer list.Close()
		printLoadReport(list)

		item, err := list.Update(id, readinglist.Patch{Notes: &notes})
		if err != nil {
			return err
		}
		if notes == "" {
			fmt.Printf("Cleared notes on [%d]: %s\n", item.ID, item.Title)
		} else {
			fmt.Printf("Noted [%d]: %s\n", item.ID, item.Title)
		}
		return nil
	},
}

// --- reading mark ---

var readingMarkCmd = &cobra.Command{
	Use:   "mark [status] [id...]",
	Short: "Set read status on one or more items",
	Long:  "Set read status (unread, reading, completed) on one or more items by id.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := args[0]
		switch status {
		case readinglist.StatusUnread, readinglist.StatusReading, readinglist.StatusCompleted:
		default:
			return fmt.Errorf("invalid status %q: use unread, reading, or completed", status)
		}

		ids := make([]int64, 0, len(args)-1)
		for _, arg := range args[1:] {
			id, err := parseItemID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		list := openList()
		defer list.Close()
		printLoadReport(list)

		if err := list.BulkUpdateStatus(ids, status); err != nil {
			return err
		}
		fmt.Printf("Marked %d item(s) as %s\n", len(ids), status)
		return nil
	},
}

// --- reading priority ---

var readingPriorityCmd = &cobra.Command{
	Use:   "priority [id] [level]",
	Short: "Set an item's priority",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		level := args[1]
		switch level {
		case readinglist.PriorityLow, readinglist.PriorityMedium, readinglist.PriorityHigh:
		default:
			return fmt.Errorf("invalid priority %q: use low, medium, or high", level)
		}

		list := openList()
		defer list.Close()
		printLoadReport(list)

		item, err := list.Update(id, readinglist.Patch{Priority: &level})
		if err != nil {
			return err
		}
		fmt.Printf("Set [%d] %s to %s priority\n", item.ID, item.Title, level)
		return nil
	},
}

// --- reading tag ---

var readingTagCmd = &cobra.Command{
	Use:   "tag [id] [tag...]",
	Short: "Replace an item's tags (no tags clears them)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		tags := args[1:]

		list := openList()
		defer list.Close()
		printLoadReport(list)

		item, err := list.Update(id, readinglist.Patch{Tags: &tags})
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Printf("Cleared tags on [%d]: %s\n", item.ID, item.Title)
		} else {
			fmt.Printf("Tagged [%d] %s: %s\n", item.ID, item.Title, strings.Join(tags, ", "))
		}
		return nil
	},
}

// --- reading stats ---

var readingStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reading list statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		list := openList()
		defer list.Close()
		printLoadReport(list)

		stats := list.Stats()
		fmt.Println("Reading list:")
		fmt.Printf("  Total: %d\n", stats.Total)
		fmt.Printf("  Unread: %d\n", stats.Unread)
		fmt.Printf("  Reading: %d\n", stats.Reading)
		fmt.Printf("  Completed: %d\n", stats.Completed)
		fmt.Printf("  High priority: %d\n", stats.HighPriority)
		return nil
	},
}

// --- reading export / import ---

var exportOutput string

var readingExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the reading list as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		list := openList()
		defer list.Close()
		printLoadReport(list)

		if exportOutput == "" || exportOutput == "-" {
			return list.Export(os.Stdout)
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()

		if err := list.Export(f); err != nil {
			return err
		}
		fmt.Printf("Exported reading list to %s\n", exportOutput)
		return nil
	},
}

var importStrategy string

var readingImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a reading list export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importStrategy != readinglist.ImportMerge && importStrategy != readinglist.ImportReplace {
			return fmt.Errorf("invalid strategy %q: use merge or replace", importStrategy)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()

		list := openList()
		defer list.Close()
		printLoadReport(list)

		if err := list.Import(f, importStrategy); err != nil {
			return err
		}
		fmt.Printf("Imported reading list (%s): %d item(s)\n", importStrategy, len(list.Items()))
		return nil
	},
}

func init() {
	readingExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	readingImportCmd.Flags().StringVar(&importStrategy, "strategy", readinglist.ImportMerge, "Import strategy: merge or replace")
}
