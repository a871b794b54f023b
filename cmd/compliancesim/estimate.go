package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/compliance-sim/internal/behavior"
)

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate one profile's compliance probability in a single context",
		RunE:  runEstimate,
	}
	f := cmd.Flags()
	f.String("strategy", "BoundedRational", "Decision strategy preset")
	f.Int64("seed", 1, "Random seed")
	f.Float64("enforcement", 0.3, "Enforcement probability")
	f.Float64("penalty", 300, "Penalty severity")
	f.Float64("benefit", 80, "Evasion benefit")
	f.Float64("cost", 20, "Compliance cost")
	f.Float64("norm", 0.5, "Share of peers who comply")
	f.Int("decisions", 20, "Also sample this many individual decisions")
	return cmd
}

func runEstimate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	f := cmd.Flags()
	name, _ := f.GetString("strategy")
	strategy, err := behavior.ParseStrategy(name)
	if err != nil {
		return err
	}
	seed, _ := f.GetInt64("seed")
	n, _ := f.GetInt("decisions")

	var ctx behavior.ComplianceContext
	ctx.StatuteID = "cli"
	ctx.EnforcementProbability, _ = f.GetFloat64("enforcement")
	ctx.PenaltySeverity, _ = f.GetFloat64("penalty")
	ctx.EvasionBenefit, _ = f.GetFloat64("benefit")
	ctx.ComplianceCost, _ = f.GetFloat64("cost")
	ctx.SocialNorm, _ = f.GetFloat64("norm")

	model := behavior.NewComplianceModel(behavior.ProfileFor(strategy), behavior.WithSeed(seed))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "strategy %s, expected penalty %.1f\n", strategy, ctx.ExpectedPenalty())
	fmt.Fprintf(out, "P(comply) = %.3f over %d trials\n", model.ComplianceProbability(ctx), behavior.EstimateTrials)

	if n > 0 {
		stats := behavior.NewComplianceStats(ctx.StatuteID)
		for i := 0; i < n; i++ {
			stats.Record(model.Decide(ctx), model.ComplianceProbability(ctx))
		}
		fmt.Fprintln(out, stats.Summary())
	}
	return nil
}
