package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"planscore/internal/model"
	"planscore/internal/opt"
)

func newRescheduleCmd(app *App) *cobra.Command {
	var (
		planPath    string
		configPath  string
		outPath     string
		seed        int64
		patience    int
		horizon     int
		sensitivity float64
		policy      string
		cost        float64
		samples     bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "reschedule",
		Short: "Search for better activity durations",
		Long: `Repeatedly perturbs the activity durations of a plan, keeping any
candidate that scores better, until the score stops improving or the
patience is spent. Interrupting the run keeps the best plan found so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlan(planPath)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			pol, err := opt.ParsePolicy(policy)
			if err != nil {
				return err
			}
			opts := opt.Options{
				Horizon:       horizon,
				Sensitivity:   sensitivity,
				Patience:      patience,
				Policy:        pol,
				RecordSamples: samples,
			}
			if cmd.Flags().Changed("cost") {
				opts.PlanCost = &cost
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			ctx = app.Log.WithContext(ctx)

			res, err := opt.Reschedule(ctx, p, app.Scorer, cfg, opts, rand.New(rand.NewSource(seed)))
			if err != nil && res.Metrics.Outcome != opt.OutcomeCancelled {
				return err
			}

			resp := model.RescheduleResponse{
				PersonID: res.Plan.PersonID,
				Plan:     model.FromPlan(res.Plan),
				Trace:    res.Trace,
				Samples:  res.Samples,
				Metrics:  res.Metrics,
			}
			if outPath != "" {
				data, err := json.MarshalIndent(resp.Plan, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("writing plan: %w", err)
				}
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			printRun(cmd, seed, resp)
			return nil
		},
	}

	d := opt.DefaultOptions()
	cmd.Flags().StringVar(&planPath, "plan", "", "Plan file (JSON)")
	cmd.Flags().StringVar(&configPath, "config", "", "Scoring config file (YAML); defaults to the example config")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the best plan to this file")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: time based)")
	cmd.Flags().IntVar(&patience, "patience", d.Patience, "Maximum candidates to evaluate")
	cmd.Flags().IntVar(&horizon, "horizon", d.Horizon, "Stopper window length")
	cmd.Flags().Float64Var(&sensitivity, "sensitivity", d.Sensitivity, "Minimum score gain across the window")
	cmd.Flags().StringVar(&policy, "policy", string(d.Policy), "Mutation policy (normalized|uniform)")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Monetary plan cost")
	cmd.Flags().BoolVar(&samples, "samples", false, "Record every candidate (JSON output only)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func printRun(cmd *cobra.Command, seed int64, resp model.RescheduleResponse) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	out := cmd.OutOrStdout()
	m := resp.Metrics

	outcome := string(m.Outcome)
	switch m.Outcome {
	case opt.OutcomeConverged:
		outcome = color.GreenString(outcome)
	case opt.OutcomeCancelled:
		outcome = color.YellowString(outcome)
	}

	fmt.Fprintf(out, "%s %s %s\n", cyan("Reschedule"), resp.PersonID, gray(fmt.Sprintf("(seed %d)", seed)))
	fmt.Fprintf(out, "  Outcome:      %s\n", outcome)
	fmt.Fprintf(out, "  Iterations:   %d\n", m.Iterations)
	fmt.Fprintf(out, "  Improvements: %d\n", m.Improvements)
	fmt.Fprintf(out, "  Score:        %.4f -> %.4f (%s)\n", m.InitialScore, m.BestScore, signed(m.BestScore-m.InitialScore))
	fmt.Fprintf(out, "  Elapsed:      %s\n", m.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(out)
	fmt.Fprintln(out, cyan("Trace"))
	for _, tp := range resp.Trace {
		hours := make([]string, len(tp.Durations))
		for i, h := range tp.Durations {
			hours[i] = fmt.Sprintf("%.2f", h)
		}
		fmt.Fprintf(out, "  %6d  %10.4f  %s\n", tp.Iteration, tp.Score, gray("["+strings.Join(hours, " ")+"]"))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, cyan("Best plan"))
	for _, e := range resp.Plan.Day {
		label := e.Act
		if e.Kind == model.KindLeg {
			label = gray(e.Mode)
		}
		fmt.Fprintf(out, "  %s-%s  %s\n", e.Start, e.End, label)
	}
}
