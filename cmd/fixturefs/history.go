package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/config"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/manifest"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of generate and verify runs.

Each run is stored as one JSON file in the history directory
(history.path, default $XDG_DATA_HOME/fixturefs/history).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display a run by its ID. A unique prefix of the ID is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns a manifest rooted at the configured history directory.
func getManifest() (*manifest.Manifest, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	m, err := manifest.New(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return m, cfg, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, _ []string) error {
	m, _, err := getManifest()
	if err != nil {
		return err
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'fixturefs generate' to create a fixture.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%-38s  %-8s  %10s  %8s  %10s  %s\n", "ID", "TYPE", "ITEMS", "FOLDERS", "WRITTEN", "STATUS")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, e := range entries {
		fmt.Fprintf(w, "%-38s  %-8s  %10s  %8s  %10s  %s\n",
			truncateString(e.ID, 38),
			e.Operation,
			humanize.Comma(int64(e.Result.Items)),
			humanize.Comma(int64(e.Result.Folders)),
			types.FormatSize(e.Result.Bytes),
			entryStatus(e),
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 90))
	fmt.Fprintf(w, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(w, "Use 'fixturefs history show <id>' for details on a specific entry.")
	return nil
}

// runHistoryShow displays one run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, _, err := getManifest()
	if err != nil {
		return err
	}

	e, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\nRun Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:          %s\n", e.ID)
	fmt.Fprintf(w, "Timestamp:   %s\n", e.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:   %s\n", e.Operation)
	fmt.Fprintf(w, "Output:      %s\n", e.Params.Output)

	if e.Operation == manifest.OpGenerate {
		fmt.Fprintf(w, "Format:      %s\n", e.Params.Format)
		fmt.Fprintf(w, "Compression: %s\n", e.Params.Compression)
		fmt.Fprintf(w, "Target:      %s items, %s per folder\n",
			humanize.Comma(int64(e.Params.TotalItems)), humanize.Comma(int64(e.Params.MinPerFolder)))
		fmt.Fprintf(w, "Seed:        %d\n", e.Params.Seed)
		if e.Params.Now != "" {
			fmt.Fprintf(w, "Now:         %s\n", e.Params.Now)
		}
	}

	fmt.Fprintf(w, "Items:       %s (%s folders, %s files)\n",
		humanize.Comma(int64(e.Result.Items)),
		humanize.Comma(int64(e.Result.Folders)),
		humanize.Comma(int64(e.Result.Files)))
	if e.Result.Bytes > 0 {
		fmt.Fprintf(w, "Written:     %s\n", types.FormatSize(e.Result.Bytes))
	}
	if e.Result.TotalFileSize > 0 {
		fmt.Fprintf(w, "Synthesized: %s\n", types.FormatSize(e.Result.TotalFileSize))
	}
	fmt.Fprintf(w, "Elapsed:     %d ms\n", e.Result.ElapsedMS)
	if e.Operation == manifest.OpVerify {
		fmt.Fprintf(w, "Violations:  %d\n", e.Result.Violations)
	}
	if e.Result.Store != "" {
		fmt.Fprintf(w, "Store:       %s\n", e.Result.Store)
	}
	if e.Result.Upload != "" {
		fmt.Fprintf(w, "Upload:      %s\n", e.Result.Upload)
	}
	if e.Result.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", e.Result.Error)
	}
	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	m, cfg, err := getManifest()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries older than %d days.", removed, retentionDays)
	return nil
}

// entryStatus summarizes the outcome of a run in one word.
func entryStatus(e manifest.Entry) string {
	switch {
	case e.Result.Error != "":
		return "error"
	case e.Result.Violations > 0:
		return "violations"
	default:
		return "ok"
	}
}

// truncateString shortens s to maxLen runes, marking the cut with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
