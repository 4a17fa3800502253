package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/activity"
	"github.com/msalah0e/cloudcanvas/internal/state"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func actlogCmd() *cobra.Command {
	var (
		all   bool
		count int
	)

	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"activity", "history"},
		Short:   "Recent canvas gestures",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity log")

			ws := state.Current()
			if all {
				ws = ""
			}
			entries, err := activity.Read(ws, count)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity recorded yet.")
				fmt.Println("  Activity is logged for every gesture on a canvas.")
				return
			}
			printEntries(entries, all)
			fmt.Printf("\n  Showing %d most recent entries\n", len(entries))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include every workspace, not just the open one")
	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of entries")

	cmd.AddCommand(
		actlogSearchCmd(),
		actlogClearCmd(),
		actlogExportCmd(),
		actlogStatsCmd(),
	)

	return cmd
}

func printEntries(entries []activity.Entry, withWorkspace bool) {
	var rows [][]string
	for _, e := range entries {
		status := ui.StatusIcon(e.OK)
		row := []string{e.Timestamp.Local().Format("Jan 02 15:04"), status, e.Action}
		if withWorkspace {
			row = append(row, shortID(e.Workspace))
		}
		row = append(row, shortID(e.Node), truncateLog(e.Details, 36))
		rows = append(rows, row)
	}
	headers := []string{"Time", "", "Action"}
	if withWorkspace {
		headers = append(headers, "Workspace")
	}
	headers = append(headers, "Node", "Details")
	ui.Table(headers, rows)
}

func actlogSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search activity log entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			results, err := activity.Search(args[0], 50)
			if err != nil || len(results) == 0 {
				fmt.Printf("  No entries matching %q\n", args[0])
				return
			}

			ui.Banner("search results")
			printEntries(results, true)
			fmt.Printf("\n  %d results\n", len(results))
		},
	}
}

func actlogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the activity log",
		Run: func(cmd *cobra.Command, args []string) {
			if err := activity.Clear(); err != nil {
				ui.Bad.Printf("  Failed to clear: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Activity log cleared\n", ui.StatusIcon(true))
		},
	}
}

func actlogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export activity log as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := activity.Read("", 0)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			data, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func actlogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show activity statistics",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity stats")

			entries, err := activity.Read("", 0)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity data")
				return
			}

			actionCounts := make(map[string]int)
			workspaceCounts := make(map[string]int)
			failed := 0
			for _, e := range entries {
				actionCounts[e.Action]++
				if e.Workspace != "" {
					workspaceCounts[e.Workspace]++
				}
				if !e.OK {
					failed++
				}
			}

			fmt.Printf("  Total entries: %d", len(entries))
			if failed > 0 {
				fmt.Printf(" · %s", ui.Bad.Sprintf("%d unsaved", failed))
			}
			fmt.Println()

			printCounts("By action:", actionCounts)
			printCounts("By workspace:", workspaceCounts)
		},
	}
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Println("\n  " + title)
	for _, k := range keys {
		fmt.Printf("    %-20s %d\n", k, counts[k])
	}
}

func truncateLog(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
