package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"planscore/internal/scoring"
)

func newExampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example-config",
		Short: "Print the example scoring config as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := scoring.MarshalYAML(scoring.ExampleConfig())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newValidateCmd(app *App) *cobra.Command {
	var planPath, configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a plan, and optionally a scoring config, without scoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlan(planPath)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			if configPath != "" {
				cfg, err := scoring.LoadFile(configPath)
				if err != nil {
					return err
				}
				for _, a := range p.Activities() {
					if _, err := cfg.Activity(a.Act); err != nil {
						return err
					}
				}
				for _, m := range p.ModeClasses() {
					if _, err := cfg.Mode(m); err != nil {
						return err
					}
				}
			}
			app.Log.Debug().Str("person", p.PersonID).Int("elements", len(p.Day)).Msg("plan valid")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d activities, %d legs\n",
				color.GreenString("ok"), p.PersonID, len(p.Activities()), len(p.Legs()))
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Plan file (JSON)")
	cmd.Flags().StringVar(&configPath, "config", "", "Scoring config file (YAML)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
