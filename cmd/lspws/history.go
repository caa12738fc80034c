package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lspws/internal/ledger"
)

var (
	historyLimit  int
	historyFormat string
	historyPrune  int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded task runs",
	Long: `List the task runs recorded in the run ledger, newest first, or show one
run with its degradations.

Examples:
  lspws history              # Last 20 runs
  lspws history -n 100       # Last 100 runs
  lspws history <run-id>     # One run with its degradations
  lspws history --prune 50   # Keep only the newest 50 runs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "Delete all but the newest N runs")
	rootCmd.AddCommand(historyCmd)
}

// RunCLI is the output form of a recorded run.
type RunCLI struct {
	ID            string           `json:"id"`
	Task          string           `json:"task"`
	Status        string           `json:"status"`
	StartedAt     time.Time        `json:"startedAt"`
	DurationMs    int64            `json:"durationMs"`
	Modules       int              `json:"modules,omitempty"`
	Libraries     int              `json:"libraries,omitempty"`
	Degraded      int              `json:"degraded,omitempty"`
	KotlinVersion string           `json:"kotlinVersion,omitempty"`
	Error         string           `json:"error,omitempty"`
	Degradations  []DegradationCLI `json:"degradations,omitempty"`
}

// DegradationCLI is the output form of a degradation.
type DegradationCLI struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
	Error   string `json:"error,omitempty"`
}

func convertRun(r *ledger.Run) RunCLI {
	out := RunCLI{
		ID:            r.ID,
		Task:          r.Task,
		Status:        r.Status,
		StartedAt:     r.StartedAt,
		DurationMs:    r.Duration().Milliseconds(),
		Modules:       r.Modules,
		Libraries:     r.Libraries,
		Degraded:      r.Degraded,
		KotlinVersion: r.KotlinVersion,
		Error:         r.Error,
	}
	for _, d := range r.Degradations {
		dc := DegradationCLI{Stage: string(d.Stage), Subject: d.Subject, Reason: d.Reason}
		if d.Err != nil {
			dc.Error = d.Err.Error()
		}
		out.Degradations = append(out.Degradations, dc)
	}
	return out
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(historyFormat)
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if e.ledger == nil {
		return fmt.Errorf("run ledger is disabled or unavailable (ledger.enabled = %v)", e.cfg.Ledger.Enabled)
	}
	w := cmd.OutOrStdout()

	if historyPrune > 0 {
		n, err := e.ledger.Prune(historyPrune)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Pruned %d runs\n", n)
		return nil
	}

	if len(args) == 1 {
		run, err := e.ledger.Get(args[0])
		if err != nil {
			return err
		}
		r := convertRun(run)
		if format == FormatJSON {
			return printJSON(w, r)
		}
		printRunHuman(cmd, r)
		return nil
	}

	runs, err := e.ledger.List(historyLimit)
	if err != nil {
		return err
	}
	out := make([]RunCLI, 0, len(runs))
	for _, r := range runs {
		out = append(out, convertRun(r))
	}
	if format == FormatJSON {
		return printJSON(w, out)
	}

	if len(out) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-19s  %-28s  %-9s  %s\n", "ID", "STARTED", "TASK", "STATUS", "DETAILS")
	for _, r := range out {
		fmt.Fprintf(w, "%-36s  %-19s  %-28s  %-9s  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Task, r.Status, runDetails(r))
	}
	return nil
}

func runDetails(r RunCLI) string {
	var parts []string
	if r.Modules > 0 || r.Libraries > 0 {
		parts = append(parts, fmt.Sprintf("%d modules, %d libraries", r.Modules, r.Libraries))
	}
	if r.Degraded > 0 {
		parts = append(parts, fmt.Sprintf("%d degraded", r.Degraded))
	}
	if r.Error != "" {
		parts = append(parts, r.Error)
	}
	return strings.Join(parts, "; ")
}

func printRunHuman(cmd *cobra.Command, r RunCLI) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  Task:      %s\n", r.Task)
	fmt.Fprintf(w, "  Status:    %s\n", r.Status)
	fmt.Fprintf(w, "  Started:   %s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  Duration:  %dms\n", r.DurationMs)
	if r.KotlinVersion != "" {
		fmt.Fprintf(w, "  Kotlin:    %s\n", r.KotlinVersion)
	}
	if details := runDetails(r); details != "" {
		fmt.Fprintf(w, "  Details:   %s\n", details)
	}
	if len(r.Degradations) > 0 {
		fmt.Fprintln(w, "\nDegradations:")
		for _, d := range r.Degradations {
			line := fmt.Sprintf("  [%s] %s: %s", d.Stage, d.Subject, d.Reason)
			if d.Error != "" {
				line += ": " + d.Error
			}
			fmt.Fprintln(w, line)
		}
	}
}
