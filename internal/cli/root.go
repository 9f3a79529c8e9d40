// Package cli implements the planctl command line: offline scoring and
// rescheduling of plan files.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"planscore/internal/buildinfo"
	"planscore/internal/model"
	"planscore/internal/plan"
	"planscore/internal/scoring"
)

// App holds what the commands share.
type App struct {
	Log    zerolog.Logger
	Scorer *scoring.CharyparNagel
}

func NewApp(log zerolog.Logger) *App {
	return &App{Log: log, Scorer: scoring.NewCharyparNagel(log)}
}

// NewRootCmd creates the top-level "planctl" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	var noColor bool
	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Score and reschedule daily activity plans",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newScoreCmd(app),
		newRescheduleCmd(app),
		newBatchCmd(app),
		newValidateCmd(app),
		newExampleConfigCmd(),
	)
	return root
}

// loadPlan reads a plan file in the API's JSON form.
func loadPlan(path string) (plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plan.Plan{}, fmt.Errorf("reading plan: %w", err)
	}
	var in model.PlanIn
	if err := json.Unmarshal(data, &in); err != nil {
		return plan.Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	return in.ToPlan()
}

// loadConfig reads a YAML scoring config, or returns the example config
// when path is empty.
func loadConfig(path string) (scoring.Config, error) {
	if path == "" {
		return scoring.ExampleConfig(), nil
	}
	return scoring.LoadFile(path)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
