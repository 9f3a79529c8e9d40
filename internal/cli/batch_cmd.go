package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"planscore/internal/integrations/csvplans"
	"planscore/internal/model"
	"planscore/internal/opt"
)

func newBatchCmd(app *App) *cobra.Command {
	var (
		csvPath    string
		configPath string
		seed       int64
		patience   int
		workers    int
		policy     string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Reschedule every plan of a CSV population",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			ctx = app.Log.WithContext(ctx)

			plans, err := csvplans.Source{Path: csvPath}.FetchPlans(ctx)
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
			opts := opt.DefaultOptions()
			opts.Patience = patience
			opts.Policy = pol

			items := make([]model.BatchItem, len(plans))
			var (
				jobs  []opt.Job
				index []int
			)
			for i, in := range plans {
				items[i].PersonID = in.PersonID
				p, err := in.ToPlan()
				if err != nil {
					items[i].Error = err.Error()
					continue
				}
				jobs = append(jobs, opt.Job{Plan: p, Config: cfg})
				index = append(index, i)
			}
			results, err := opt.RescheduleAll(ctx, jobs, app.Scorer, opts, workers, seed)
			if err != nil && results == nil {
				return err
			}
			for j, jr := range results {
				i := index[j]
				if jr.Err != nil && jr.Result.Metrics.Outcome != opt.OutcomeCancelled {
					items[i].Error = jr.Err.Error()
					continue
				}
				m := jr.Result.Metrics
				items[i].BestScore = m.BestScore
				items[i].Metrics = &m
			}

			if asJSON {
				return writeJSON(cmd, model.BatchResponse{Items: items})
			}
			printBatch(cmd, items)
			return nil
		},
	}

	d := opt.DefaultOptions()
	cmd.Flags().StringVar(&csvPath, "csv", "", "Population CSV (person_id,kind,label,start,end,distance)")
	cmd.Flags().StringVar(&configPath, "config", "", "Scoring config file (YAML); defaults to the example config")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Base random seed; plan i uses seed+i")
	cmd.Flags().IntVar(&patience, "patience", d.Patience, "Maximum candidates per plan")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Plans searched in parallel")
	cmd.Flags().StringVar(&policy, "policy", string(d.Policy), "Mutation policy (normalized|uniform)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func printBatch(cmd *cobra.Command, items []model.BatchItem) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cyan("Batch"))
	failed := 0
	for _, it := range items {
		if it.Error != "" {
			failed++
			fmt.Fprintf(out, "  %-12s %s\n", it.PersonID, color.RedString(it.Error))
			continue
		}
		m := it.Metrics
		fmt.Fprintf(out, "  %-12s %10.4f -> %10.4f  %-9s %d iterations\n",
			it.PersonID, m.InitialScore, m.BestScore, m.Outcome, m.Iterations)
	}
	fmt.Fprintf(out, "%d plans, %d failed\n", len(items), failed)
}
