// Package report renders sync results for the terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/thoreinstein/conductor/internal/syncer"
)

// Format specifies the output format.
type Format string

const (
	// FormatText produces human-readable text output.
	FormatText Format = "text"
	// FormatJSON produces machine-readable JSON output.
	FormatJSON Format = "json"
)

// Reporter writes sync results.
type Reporter struct {
	out    io.Writer
	format Format
}

// NewReporter creates a new Reporter.
func NewReporter(out io.Writer, format Format) *Reporter {
	return &Reporter{
		out:    out,
		format: format,
	}
}

// Summary counts results by outcome.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Warnings  int `json:"warnings"`
}

// Summarize counts results.
func Summarize(results []*syncer.Result) Summary {
	var s Summary
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.Warnings += len(r.Warnings)
	}
	return s
}

// Report writes results to the output.
func (r *Reporter) Report(results []*syncer.Result) error {
	switch r.format {
	case FormatJSON:
		return r.reportJSON(results)
	default:
		return r.reportText(results)
	}
}

func (r *Reporter) reportJSON(results []*syncer.Result) error {
	if results == nil {
		results = []*syncer.Result{}
	}
	payload := struct {
		Results []*syncer.Result `json:"results"`
		Summary Summary          `json:"summary"`
	}{results, Summarize(results)}

	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(payload), "encoding JSON report")
}

func (r *Reporter) reportText(results []*syncer.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(r.out, "No clients to sync.")
		return nil
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		r.printResult(res)
	}

	s := Summarize(results)
	parts := []string{color.GreenString("%d synced", s.Succeeded)}
	if s.Failed > 0 {
		parts = append(parts, color.RedString("%d failed", s.Failed))
	}
	if s.Warnings > 0 {
		parts = append(parts, color.YellowString("%d warning(s)", s.Warnings))
	}
	fmt.Fprintf(r.out, "\n%s\n", strings.Join(parts, ", "))
	return nil
}

func (r *Reporter) printResult(res *syncer.Result) {
	dim := color.New(color.FgHiBlack)

	if res.Success {
		fmt.Fprintf(r.out, "%s %s: %d server(s)", color.GreenString("✓"), res.ClientID, res.ServersWritten)
	} else {
		fmt.Fprintf(r.out, "%s %s: %s", color.RedString("✗"), res.ClientID, res.Error)
	}
	if res.Path != "" {
		fmt.Fprint(r.out, dim.Sprintf(" (%s)", res.Path))
	}
	fmt.Fprintln(r.out)

	if res.RollbackError != "" {
		fmt.Fprintf(r.out, "  • %s %s\n", color.RedString("rollback failed:"), res.RollbackError)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(r.out, "  • %s %s\n", color.YellowString("warning:"), w)
	}
}
