package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/compliance-sim/internal/persistence"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <db>",
		Short: "Print stored per-period statistics from a report database",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().StringP("statute", "s", "", "Only this statute")
	cmd.Flags().Int("events", 0, "Also print the N most recent events")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	statute, _ := cmd.Flags().GetString("statute")
	nEvents, _ := cmd.Flags().GetInt("events")

	db, err := persistence.Open(args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	for _, key := range []string{"seed", "agents", "started_at", "last_period"} {
		v, err := db.GetMeta(key)
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-12s %s\n", key+":", v)
	}

	rows, err := db.PeriodStats(statute)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "no period statistics stored")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tDATE\tSTATUTE\tAGENTS\tCOMPLY\tEVADE\tUNAWARE\tGUIDANCE\tAVG P\tDETECTED\tPENALTIES")
	for _, r := range rows {
		evasion := 0.0
		if r.TotalAgents > 0 {
			evasion = float64(r.Evaded) / float64(r.TotalAgents)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f%%\t%.1f%%\t%s\t%s\t%.3f\t%s\t%s\n",
			r.Period, r.Date, r.StatuteID,
			humanize.Comma(int64(r.TotalAgents)),
			r.ComplianceRate()*100, evasion*100,
			humanize.Comma(int64(r.Unaware)),
			humanize.Comma(int64(r.SoughtGuidance)),
			r.AvgComplianceProb,
			humanize.Comma(int64(r.Detections)),
			humanize.Commaf(r.PenaltiesPaid),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if n, err := db.InteractionCount(); err == nil && n > 0 {
		fmt.Fprintf(out, "\n%s interactions stored\n", humanize.Comma(int64(n)))
	}

	if nEvents > 0 {
		events, err := db.RecentEvents(nEvents)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, e := range events {
			fmt.Fprintf(out, "[%d %s] %s: %s\n", e.Period, e.Date.Format("2006-01-02"), e.Category, e.Description)
		}
	}
	return nil
}
