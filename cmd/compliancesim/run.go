package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/talgya/compliance-sim/internal/api"
	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/config"
	"github.com/talgya/compliance-sim/internal/engine"
	"github.com/talgya/compliance-sim/internal/persistence"
	"github.com/talgya/compliance-sim/internal/population"
	"github.com/talgya/compliance-sim/internal/world"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and print per-statute compliance",
		RunE:  runSimulation,
	}
	cmd.Flags().Int64("seed", 0, "Override the random seed")
	cmd.Flags().Int("agents", 0, "Override the number of agents")
	cmd.Flags().Int("periods", 0, "Override the number of periods")
	cmd.Flags().String("db", "", "Write reports to this SQLite file")
	cmd.Flags().Int("port", 0, "Serve the status API on this port")
	cmd.Flags().Bool("serve", false, "Keep the API up after the last period until interrupted")
	return cmd
}

// applyRunFlags copies explicitly set flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("agents") {
		cfg.Agents, _ = f.GetInt("agents")
	}
	if f.Changed("periods") {
		cfg.Periods, _ = f.GetInt("periods")
	}
	if f.Changed("db") {
		cfg.Storage.DBPath, _ = f.GetString("db")
	}
	if f.Changed("port") {
		cfg.API.Port, _ = f.GetInt("port")
	}
	return cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	serve, _ := cmd.Flags().GetBool("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, eng, err := buildSimulation(cfg)
	if err != nil {
		return err
	}

	var db *persistence.DB
	if cfg.Storage.DBPath != "" {
		if dir := filepath.Dir(cfg.Storage.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err = persistence.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := saveRunMeta(db, cfg); err != nil {
			return err
		}
		slog.Info("database opened", "path", cfg.Storage.DBPath)
	}

	out := cmd.OutOrStdout()
	var saveErr error
	eng.OnPeriod = func(period int, date time.Time) {
		report := sim.Step(date)
		if db == nil {
			return
		}
		if !cfg.Storage.SaveInteractions {
			report.Interactions = nil
		}
		if err := db.SaveReport(report, sim.EventsForPeriod(period)); err != nil {
			saveErr = fmt.Errorf("period %d: %w", period, err)
			eng.Stop()
		}
	}
	eng.OnReport = func(period int, date time.Time) {
		if report, ok := sim.LatestReport(); ok {
			fmt.Fprintln(out, engine.PeriodLabel(period, date))
			for _, cs := range report.Stats {
				fmt.Fprintln(out, "  "+cs.Summary())
			}
		}
	}

	apiDone := make(chan error, 1)
	apiCtx, cancelAPI := context.WithCancel(ctx)
	defer cancelAPI()
	if cfg.API.Port > 0 {
		srv := api.NewServer(sim, eng, db, cfg.API.Port)
		go func() { apiDone <- srv.Serve(apiCtx) }()
	} else {
		apiDone <- nil
	}

	runErr := eng.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if saveErr != nil {
		runErr = errors.Join(runErr, saveErr)
	}
	printFinal(out, sim)

	if serve && cfg.API.Port > 0 && runErr == nil && ctx.Err() == nil {
		slog.Info("simulation finished, API still serving; interrupt to exit", "port", cfg.API.Port)
		<-ctx.Done()
	}
	cancelAPI()
	if err := <-apiDone; err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// buildSimulation generates the map, population, network and engine from cfg.
func buildSimulation(cfg *config.Config) (*engine.Simulation, *engine.Engine, error) {
	learning, err := cfg.LearningPolicy()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	start, err := cfg.Start()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: start date: %v", config.ErrInvalid, err)
	}

	gen := world.DefaultGenConfig()
	gen.Radius = cfg.Map.Radius
	gen.Seed = cfg.Seed
	gen.MinEnforcement = cfg.Map.MinEnforcement
	gen.MaxEnforcement = cfg.Map.MaxEnforcement
	m := world.Generate(gen)
	for regime, n := range world.RegimeCounts(m) {
		slog.Debug("regime", "type", world.RegimeName(regime), "regions", n)
	}

	spawn := population.DefaultSpawnConfig(cfg.Seed)
	spawn.HistoryLimit = cfg.Model.HistoryLimit
	spawn.Learning = learning
	spawn.EstimateWorkers = cfg.Model.EstimateWorkers
	spawn.Jitter = cfg.Model.Jitter
	spawn.InstitutionRate = cfg.Model.InstitutionRate
	residents := population.NewSpawner(spawn).Populate(m, cfg.Agents)

	netCfg := engine.DefaultNetworkConfig(cfg.Seed)
	netCfg.LocalLinks = cfg.Network.LocalLinks
	netCfg.RemoteLinks = cfg.Network.RemoteLinks
	netCfg.LocalTrust = cfg.Network.LocalTrust
	netCfg.RemoteTrust = cfg.Network.RemoteTrust
	net := engine.BuildNetwork(residents, m, netCfg)

	statutes := make([]engine.StatuteTerms, 0, len(cfg.Statutes))
	for _, st := range cfg.Statutes {
		statutes = append(statutes, engine.StatuteTerms{
			Statute:           behavior.Statute{ID: st.ID, Title: st.Title},
			EnforcementWeight: st.EnforcementWeight,
			PenaltySeverity:   st.PenaltySeverity,
			EvasionBenefit:    st.EvasionBenefit,
			ComplianceCost:    st.ComplianceCost,
		})
	}

	simCfg := engine.DefaultSimConfig(cfg.Seed)
	simCfg.PeriodLength = cfg.PeriodLength
	simCfg.MessageRetention = cfg.Network.MessageRetention
	simCfg.Communicate = cfg.Network.Communicate
	sim := engine.NewSimulation(simCfg, m, residents, net, statutes)

	eng := engine.NewEngine(start, cfg.PeriodLength)
	eng.MaxPeriods = cfg.Periods
	eng.Interval = cfg.Interval
	eng.ReportEvery = cfg.ReportEvery

	slog.Info("simulation ready",
		"seed", cfg.Seed,
		"regions", m.RegionCount(),
		"agents", len(residents),
		"edges", net.EdgeCount(),
		"statutes", len(statutes),
		"learning", learning,
	)
	return sim, eng, nil
}

func saveRunMeta(db *persistence.DB, cfg *config.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	meta := map[string]string{
		"seed":       strconv.FormatInt(cfg.Seed, 10),
		"agents":     strconv.Itoa(cfg.Agents),
		"started_at": time.Now().UTC().Format(time.RFC3339),
		"config":     string(raw),
		"version":    version,
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}
	return nil
}

func printFinal(out io.Writer, sim *engine.Simulation) {
	status := sim.Status()
	report, ok := sim.LatestReport()
	if !ok {
		fmt.Fprintln(out, "no periods were run")
		return
	}

	fmt.Fprintf(out, "\n%s: %s agents, %s network edges, %s live messages\n",
		engine.PeriodLabel(status.Period, status.Date),
		humanize.Comma(int64(status.Agents)),
		humanize.Comma(int64(status.Edges)),
		humanize.Comma(int64(status.Messages)),
	)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUTE\tCOMPLY\tEVADE\tUNAWARE\tGUIDANCE\tAVG P(COMPLY)")
	for _, cs := range report.Stats {
		fmt.Fprintf(tw, "%s\t%.1f%%\t%.1f%%\t%s\t%s\t%.3f\n",
			cs.StatuteID,
			cs.ComplianceRate()*100,
			cs.EvasionRate()*100,
			humanize.Comma(int64(cs.Unaware)),
			humanize.Comma(int64(cs.SoughtGuidance)),
			cs.AvgComplianceProb,
		)
	}
	tw.Flush()
}
