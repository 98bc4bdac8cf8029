package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"Watchtower/internal/calculator"
	"Watchtower/internal/jobs"
	"Watchtower/internal/model"
	"Watchtower/internal/recorder"
	"Watchtower/internal/scheduler"
	"Watchtower/internal/summary"
)

var (
	cfgFile  string
	briefDay string
	symbol   string
	quiet    bool
)

func main() {
	_ = godotenv.Load()

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}

	rootCmd := &cobra.Command{
		Use:   "watchtower",
		Short: "Watchlist signal engine with daily briefs",
		Long: `Watchtower refreshes market data for a watchlist, classifies each asset
against its entry/exit targets, records signal transitions and posts a
daily brief.

Examples:
  watchtower serve
  watchtower refresh
  watchtower brief --date 2026-02-19
  watchtower parity --symbol VOD.L`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultCfg, "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and chat command polling",
		RunE:  runServe,
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh market data once",
		RunE:  runRefresh,
	}
	refreshCmd.Flags().BoolVar(&quiet, "quiet", false, "hide the progress bar")

	briefCmd := &cobra.Command{
		Use:   "brief",
		Short: "Generate the daily brief",
		RunE:  runBrief,
	}
	briefCmd.Flags().StringVar(&briefDay, "date", "", "day to summarise (YYYY-MM-DD, default today)")

	overdueCmd := &cobra.Command{
		Use:   "overdue",
		Short: "Run the subscription overdue check once",
		RunE:  runOverdue,
	}

	signalsCmd := &cobra.Command{
		Use:   "signals",
		Short: "List assets in an active signal zone",
		RunE:  runSignals,
	}

	parityCmd := &cobra.Command{
		Use:   "parity",
		Short: "Show spreadsheet formula values from the latest snapshots",
		RunE:  runParity,
	}
	parityCmd.Flags().StringVar(&symbol, "symbol", "", "only show this symbol")

	rootCmd.AddCommand(serveCmd, refreshCmd, briefCmd, overdueCmd, signalsCmd, parityCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger.Component("main")
	log.Info().Msg("Watchtower starting...")

	sched := scheduler.NewScheduler(ctx, a.refresh, a.brief, a.overdue, a.rec, a.notifier, a.loc, a.logger)
	s := a.cfg.Schedule
	if err := sched.RegisterAll(s.RefreshCron, s.BriefCron, s.OverdueCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if s.RunOnStart {
		log.Info().Msg("run_on_start enabled, refreshing now")
		go sched.RunRefreshNow()
	}

	log.Info().Msg("Watchtower is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	return nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	if !quiet {
		a.refresh.SetProgressCallback(func(done, total int, sym string) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("Refreshing"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]█[reset]",
						SaucerHead:    "[green]█[reset]",
						SaucerPadding: "░",
						BarStart:      "[",
						BarEnd:        "]",
					}),
				)
			}
			bar.Describe(fmt.Sprintf("Refreshing %-10s", sym))
			bar.Set(done)
		})
	}

	res, err := a.refresh.Run(ctx)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	fmt.Printf("Processed %d, updated %d, skipped %d, failed %d, events %d\n\n",
		res.Processed, res.Updated, res.Skipped, res.Failed, res.EventsCreated)
	if len(res.Events) == 0 {
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Event", "From", "To", "Price"}),
	)
	for _, e := range res.Events {
		table.Append([]string{
			e.Symbol,
			string(e.EventType),
			string(e.FromState),
			string(e.ToState),
			formatNum(e.Price, 4),
		})
	}
	table.Render()
	return nil
}

func runBrief(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	day := time.Now()
	if briefDay != "" {
		day, err = summary.ParseDay(briefDay, a.loc)
		if err != nil {
			return err
		}
	}

	b, err := a.brief.Run(ctx, day)
	if err != nil {
		return fmt.Errorf("brief: %w", err)
	}

	p := b.Payload
	source := p.Model
	if p.IsFallback {
		source = "fallback"
	}
	fmt.Printf("Daily brief %s (%s, %s)\n\n", b.BriefDate.Format("2006-01-02"), b.Timezone, source)
	fmt.Println(p.Summary)
	fmt.Println()
	printList("Buy", p.Buy)
	printList("Sell", p.Sell)
	printList("New today", p.NewToday)
	printList("Dropped off", p.DroppedOff)
	for _, insight := range p.Insights {
		fmt.Printf("  • %s\n", insight)
	}
	return nil
}

func printList(label string, items []string) {
	if len(items) == 0 {
		fmt.Printf("%-12s -\n", label+":")
		return
	}
	fmt.Printf("%-12s %s\n", label+":", strings.Join(items, ", "))
}

func runOverdue(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.overdue.Run(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("overdue check: %w", err)
	}
	fmt.Printf("Scanned %d, flagged %d, notifications %d\n", res.Scanned, res.Flagged, res.Notifications)
	return nil
}

func runSignals(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := jobs.ActiveSignals(ctx, a.rec)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No active signals.")
	} else {
		fmt.Printf("%d active signals:\n\n", len(rows))
		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"Symbol", "Name", "State", "Price", "Change %", "Entry", "Exit", "As of"}),
		)
		for _, r := range rows {
			table.Append([]string{
				r.Symbol,
				shorten(r.Name, 18),
				string(r.State),
				formatNum(r.CurrentPrice, 4),
				formatNum(r.DailyChangePct, 2),
				formatNum(r.TargetEntry, 4),
				formatNum(r.TargetExit, 4),
				r.CapturedAt.In(a.loc).Format("2006-01-02 15:04"),
			})
		}
		table.Render()
	}

	assets, err := a.rec.ListActiveAssets(ctx)
	if err != nil {
		return err
	}
	p := calculator.SummarizePortfolio(assets, a.cfg.App.PortfolioSize)
	fmt.Printf("\nPortfolio £%.2f: invested £%.2f, value £%.2f, cash £%.2f, return %.2f%%\n",
		p.PortfolioSize, p.Invested, p.Value, p.Cash, p.ReturnPct)
	return nil
}

func runParity(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	assets, err := a.rec.ListActiveAssets(ctx)
	if err != nil {
		return err
	}

	shown := 0
	for _, asset := range assets {
		if symbol != "" && !strings.EqualFold(asset.Symbol, symbol) {
			continue
		}
		snap, err := a.rec.LatestSnapshot(ctx, asset.ID)
		if errors.Is(err, recorder.ErrNotFound) || (err == nil && snap.Parity == nil) {
			fmt.Printf("%s: no snapshot yet, run `watchtower refresh`\n\n", asset.Symbol)
			continue
		}
		if err != nil {
			return err
		}
		printParity(asset, snap)
		shown++
	}
	if symbol != "" && shown == 0 {
		return fmt.Errorf("no parity data for %s", symbol)
	}
	return nil
}

func printParity(asset model.Asset, snap *model.Snapshot) {
	fmt.Printf("%s (%s) %s, state %s\n", asset.Symbol, asset.Currency,
		snap.CapturedAt.Format(time.RFC3339), snap.SignalState)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Formula", "Spreadsheet", "Value"}),
	)
	for _, row := range calculator.ParityProof(*snap.Parity) {
		value := row.Value
		if value == "" {
			value = "-"
		}
		table.Append([]string{row.Label, shorten(row.Pattern, 48), value})
	}
	table.Render()
	fmt.Println()
}

func formatNum(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}
