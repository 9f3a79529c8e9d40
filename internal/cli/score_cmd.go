package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"planscore/internal/model"
	"planscore/internal/scoring"
)

func newScoreCmd(app *App) *cobra.Command {
	var (
		planPath   string
		configPath string
		cost       float64
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlan(planPath)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			var planCost *float64
			if cmd.Flags().Changed("cost") {
				planCost = &cost
			}
			b, err := app.Scorer.Breakdown(p, cfg, planCost)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, model.ScoreResponse{PersonID: p.PersonID, Score: b.Total, Breakdown: b})
			}
			printBreakdown(cmd, p.PersonID, b)
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Plan file (JSON)")
	cmd.Flags().StringVar(&configPath, "config", "", "Scoring config file (YAML); defaults to the example config")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Monetary plan cost")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func printBreakdown(cmd *cobra.Command, person string, b scoring.Breakdown) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", cyan("Score"), person)
	fmt.Fprintf(out, "  Activities: %10.4f\n", b.Activities)
	fmt.Fprintf(out, "  Legs:       %10.4f\n", b.Legs)
	fmt.Fprintf(out, "  Monetary:   %10.4f\n", b.Monetary)
	fmt.Fprintf(out, "  Daily:      %10.4f\n", b.Daily)
	fmt.Fprintf(out, "  Total:      %s\n", signed(b.Total))
}

// signed colors a score green when positive and red when negative.
func signed(v float64) string {
	s := fmt.Sprintf("%10.4f", v)
	switch {
	case v > 0:
		return color.GreenString(s)
	case v < 0:
		return color.RedString(s)
	}
	return s
}
