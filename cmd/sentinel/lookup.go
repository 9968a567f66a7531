package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zoi/sentinel/pkg/cli"
	"zoi/sentinel/pkg/coordinator"
	"zoi/sentinel/pkg/providerfactory"
)

var lookupFlags struct {
	refresh bool
	backend string
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <product>",
	Short: "Look up the compliance record of a product",
	Long: `Resolve a product through the cache, the research backend, and the
reference knowledge base, exactly as the HTTP API does.

With --refresh the command waits for a research run, bounded by the research
deadline, and falls back to reference or placeholder data when it fails.
Background research scheduled by a plain lookup gets the server shutdown
timeout to finish before the command exits.

Examples:
  sentinel lookup acai
  sentinel lookup "Soja em grão" --refresh
  sentinel lookup cafe --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().BoolVarP(&lookupFlags.refresh, "refresh", "r", false, "force research and wait for the result")
	lookupCmd.Flags().StringVar(&lookupFlags.backend, "backend", "", "override research backend (manus, anthropic)")
	_ = lookupCmd.RegisterFlagCompletionFunc("backend", completeValues(providerfactory.Names...))
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if lookupFlags.backend != "" {
		cfg.Research.Backend = lookupFlags.backend
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return cli.NewCommandError("lookup", err)
	}
	defer a.closeTimeout(cfg.Server.ShutdownTimeout)

	product := strings.Join(args, " ")
	var res *coordinator.Result
	if lookupFlags.refresh && a.orch.Configured() {
		progress := cli.NewProgress(cmd.ErrOrStderr(), "researching "+product+"...", cfg.Research.Deadline)
		progress.Start()
		res = a.coord.Lookup(cmd.Context(), product, true)
		progress.Stop()
	} else {
		res = a.coord.Lookup(cmd.Context(), product, lookupFlags.refresh)
	}

	return printResult(p, res)
}

func printResult(p *cli.Printer, res *coordinator.Result) error {
	rec := res.Record
	pairs := [][2]string{
		{"Product", rec.ProductName},
		{"Key", res.Provenance.Key},
		{"Source", string(res.Provenance.Source)},
		{"NCM", rec.NCMCode},
		{"Status", string(rec.Status)},
		{"Risk", fmt.Sprintf("%d (%s)", rec.RiskScore, rec.RiskLevel)},
		{"Route", fmt.Sprintf("%s → %s", rec.TradeRoute.OriginName, rec.TradeRoute.DestinationName)},
	}
	if !rec.LastUpdated.IsZero() {
		pairs = append(pairs, [2]string{"Updated", rec.LastUpdated.Format("2006-01-02 15:04 MST")})
	}
	if res.Provenance.BackgroundScheduled {
		pairs = append(pairs, [2]string{"Research", "scheduled in background"})
	}
	if res.Provenance.RefreshReason != "" {
		pairs = append(pairs, [2]string{"Refresh failed", string(res.Provenance.RefreshReason)})
	}
	for _, alert := range rec.Alerts {
		pairs = append(pairs, [2]string{"Alert", alert})
	}
	return p.Fields(res, pairs...)
}
