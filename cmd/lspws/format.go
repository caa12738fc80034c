package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"lspws/internal/pipeline"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatJSON, FormatHuman:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printResults writes one line per task, followed by its degradations.
func printResults(w io.Writer, results []pipeline.Result) {
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Fprintf(w, "- %-28s skipped\n", r.Task)
		case len(r.Degradations) > 0:
			fmt.Fprintf(w, "⚠ %-28s %s, %d degraded\n", r.Task, summarize(r.Stats), len(r.Degradations))
			for _, d := range r.Degradations {
				fmt.Fprintf(w, "    %s\n", d.String())
			}
		default:
			fmt.Fprintf(w, "✓ %-28s %s\n", r.Task, summarize(r.Stats))
		}
	}
}

func summarize(s pipeline.Stats) string {
	var parts []string
	if s.Modules > 0 {
		parts = append(parts, fmt.Sprintf("%d modules", s.Modules))
	}
	if s.Libraries > 0 {
		parts = append(parts, fmt.Sprintf("%d libraries", s.Libraries))
	}
	if s.KotlinVersion != "" {
		parts = append(parts, "kotlin "+s.KotlinVersion)
	}
	if len(parts) == 0 {
		return "done"
	}
	return strings.Join(parts, ", ")
}
