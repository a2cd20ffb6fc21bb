package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/form13f/internal/edgar"
	"github.com/seenimoa/form13f/internal/reconcile"
	"github.com/seenimoa/form13f/internal/schedule"
	"github.com/seenimoa/form13f/pkg/utils"
)

// --- Lookup Command ---

var lookupCmd = &cobra.Command{
	Use:   "lookup [ticker]",
	Short: "Resolve a ticker to its SEC CIK",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.client.LookupTicker(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", m.Symbol, m.CIK, m.Name)
		return nil
	},
}

// --- Filings Command ---

var filingsCmd = &cobra.Command{
	Use:   "filings [cik|ticker]",
	Short: "List 13F filings grouped by report date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceFlag(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		cik, err := a.client.ResolveCIK(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		filings, err := a.client.ListFilings(cmd.Context(), cik, edgar.Query{FormType: cfg.EDGAR.FormType, Since: since})
		if err != nil {
			return err
		}
		groups, err := reconcile.Group(filings)
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Printf("%s  (%d filings)\n", utils.FormatDate(g.ReportDate), len(g.Filings))
			for _, f := range g.Filings {
				fmt.Printf("  %s  %-9s filed %s\n", f.AccessionNo, f.FormType, utils.FormatDate(f.FilingDate))
			}
		}
		return nil
	},
}

func init() {
	filingsCmd.Flags().String("since", "", "only report dates on or after this date (YYYY-MM-DD)")
}

// --- Feed Command ---

var feedCmd = &cobra.Command{
	Use:   "feed [cik|ticker]",
	Short: "Show the latest 13F filings from the EDGAR Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		cik, err := a.client.ResolveCIK(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		entries, err := a.client.RecentFilings(cmd.Context(), cik, cfg.EDGAR.FormType)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recent filings.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-9s %s\n", utils.FormatDate(e.FilingDate), e.FormType, e.AccessionNo)
		}
		return nil
	},
}

// --- Reconcile Command ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [cik|ticker]",
	Short: "Consolidate all 13F filings into one holdings table",
	Long: `Download every 13F filing of a manager, merge amendments per report date
and write the consolidated table to --out/--name. Amendments whose size
cannot be classified are written under the ambiguous directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := reconcileFlags(cmd, args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.reconcile(cmd.Context(), os.Stdout, req)
	},
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch [cik|ticker]",
	Short: "Rerun reconcile on a cron schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, _ := cmd.Flags().GetString("cron")
		if err := schedule.Validate(spec); err != nil {
			return err
		}
		req, err := reconcileFlags(cmd, args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		runner := schedule.New(log.Named("cron"), ctx)
		if _, err := runner.Add(spec, func(ctx context.Context) {
			start := time.Now()
			if err := a.scheduledRun(ctx, os.Stdout, req); err != nil {
				log.Error("scheduled reconcile failed", zap.String("target", req.Target), zap.Error(err))
				return
			}
			log.Info("scheduled reconcile done", zap.String("target", req.Target), zap.Duration("elapsed", time.Since(start)))
		}); err != nil {
			return err
		}

		runner.Start()
		next, err := schedule.NextRun(spec, time.Now())
		if err != nil {
			return err
		}
		log.Info("watching", zap.String("target", req.Target), zap.String("cron", spec), zap.Time("next", next))
		<-ctx.Done()
		runner.Stop()
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reconcileCmd, watchCmd} {
		c.Flags().String("out", "", "output directory (default: output.dir)")
		c.Flags().String("name", "holdings.csv", "output file name; also the base name of ambiguous tables")
		c.Flags().String("since", "", "only report dates on or after this date (YYYY-MM-DD)")
		c.Flags().Bool("summary", false, "print per-issuer totals")
		c.Flags().Int("top", 10, "issuers per period in the summary (0 for all)")
	}
	watchCmd.Flags().String("cron", "0 6 * * *", "cron schedule (minute hour dom month dow)")
}

func sinceFlag(cmd *cobra.Command) (time.Time, error) {
	s, _ := cmd.Flags().GetString("since")
	if s == "" {
		return time.Time{}, nil
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since: %w", err)
	}
	return t, nil
}

func reconcileFlags(cmd *cobra.Command, target string) (reconcileRequest, error) {
	since, err := sinceFlag(cmd)
	if err != nil {
		return reconcileRequest{}, err
	}
	req := reconcileRequest{Target: target, Since: since}
	req.OutDir, _ = cmd.Flags().GetString("out")
	req.Name, _ = cmd.Flags().GetString("name")
	req.Summary, _ = cmd.Flags().GetBool("summary")
	req.Top, _ = cmd.Flags().GetInt("top")
	if req.Name == "" {
		return reconcileRequest{}, fmt.Errorf("--name must not be empty")
	}
	return req, nil
}
