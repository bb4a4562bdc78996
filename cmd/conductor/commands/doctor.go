package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/doctor"
	"github.com/thoreinstein/conductor/internal/errors"
)

var (
	doctorJSON    bool
	doctorQuiet   bool
	doctorVerbose bool
	doctorFix     bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorQuiet, "quiet", false,
		"suppress output, exit code only")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false,
		"show detailed check-by-check output")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"tighten permissions on client config files, then check again")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration issues",
	Long: `Run diagnostic checks on conductor and every installed client.

Checks that conductor's config.json parses, that the secret store answers
and holds every declared secret, which clients are installed, and that
each client's config file parses and is not readable by other users.

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --quiet     No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	PreRunE: validateDoctorFlags,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			return runDoctor(cmd, a)
		})
	},
}

// validateDoctorFlags ensures output flags are mutually exclusive.
func validateDoctorFlags(_ *cobra.Command, _ []string) error {
	count := 0
	if doctorJSON {
		count++
	}
	if doctorQuiet {
		count++
	}
	if doctorVerbose {
		count++
	}

	if count > 1 {
		return errors.NewUserError(
			errors.New("flags --json, --quiet, and --verbose are mutually exclusive"), "")
	}

	return nil
}

// doctorChecks builds the check list for a.
func doctorChecks(a *app.App) []doctor.Check {
	checks := []doctor.Check{
		doctor.NewStoreCheck(a.Store),
		doctor.NewSecretStoreCheck(a.Vault, a.Store),
		doctor.NewClientDetectionCheck(a.Clients),
	}
	for _, c := range a.Clients.Installed() {
		checks = append(checks, doctor.NewClientConfigCheck(c))
	}
	return checks
}

func runDoctor(cmd *cobra.Command, a *app.App) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	checks := doctorChecks(a)
	runner := doctor.NewRunner()
	for _, c := range checks {
		runner.AddCheck(c)
	}
	report := runner.Run(ctx)

	if doctorFix {
		if n := applyFixes(w, checks); n > 0 {
			report = runner.Run(ctx)
		}
	}

	if err := outputDoctorReport(w, report); err != nil {
		return err
	}

	// Determine exit code based on results
	if report.HasErrors() {
		return errors.NewExitError(nil, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(nil, errors.ExitUser)
	}
	return nil
}

// applyFixes runs every fixer that has work and returns how many fixes
// succeeded.
func applyFixes(w io.Writer, checks []doctor.Check) int {
	fixed := 0
	for _, c := range checks {
		f, ok := c.(doctor.Fixer)
		if !ok || !f.CanFix() {
			continue
		}
		for _, r := range f.Fix() {
			if r.Error != nil {
				if !doctorQuiet && !doctorJSON {
					fmt.Fprintf(w, "%s %s: %s\n", color.RedString("✗"), r.Path, r.Description)
				}
				continue
			}
			fixed++
			if !doctorQuiet && !doctorJSON {
				fmt.Fprintf(w, "%s %s: %s\n", color.GreenString("fixed"), r.Path, r.Description)
			}
		}
	}
	return fixed
}

func outputDoctorReport(w io.Writer, report *doctor.DoctorReport) error {
	if doctorQuiet {
		return nil
	}

	if doctorJSON {
		return app.WriteJSON(w, report)
	}

	outputDoctorText(w, report, doctorVerbose)
	return nil
}

func outputDoctorText(w io.Writer, report *doctor.DoctorReport, showAll bool) {
	hasOutput := false
	for _, result := range report.Results {
		if !showAll && result.Status != doctor.SeverityError && result.Status != doctor.SeverityWarning {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if result.FixHint != "" && (result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning) {
			hint := result.FixHint
			if result.Fixable {
				hint += " (or run: conductor doctor --fix)"
			}
			fmt.Fprintf(w, "  hint: %s\n", hint)
		}
	}

	if hasOutput || showAll {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}
