package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/form13f/internal/config"
	"github.com/seenimoa/form13f/internal/edgar"
	"github.com/seenimoa/form13f/internal/infra"
	"github.com/seenimoa/form13f/internal/metrics"
	"github.com/seenimoa/form13f/internal/output"
	"github.com/seenimoa/form13f/internal/pipeline"
	"github.com/seenimoa/form13f/internal/summary"
	"github.com/seenimoa/form13f/pkg/utils"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	client  *edgar.Client
	metrics *metrics.Recorder
	memory  *infra.MemoryCache
	closers []io.Closer
}

// newApp validates cfg and wires the EDGAR client with its cache and
// metrics.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	a.memory = infra.NewMemoryCache(cfg.Cache.TTL)
	var cache infra.ResponseCache = a.memory
	if cfg.Cache.Redis.Enabled {
		rc, err := infra.NewRedisCache(ctx, infra.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc)
		cache = infra.NewLayeredCache(cache, rc, cfg.Cache.TTL)
	}

	log.Debug("edgar identity", zap.String("user_agent", cfg.MaskedUserAgent()))
	fetcher := infra.NewFetcher(infra.FetcherOptions{
		UserAgent: cfg.EDGAR.UserAgent,
		Timeout:   cfg.EDGAR.Timeout,
		RateLimit: cfg.EDGAR.RateLimit,
		Cache:     cache,
		CacheTTL:  cfg.Cache.TTL,
		// Listings change when a new filing lands; archive documents never do.
		KindTTL: map[string]time.Duration{
			edgar.KindSubmissions: cfg.Cache.ListingTTL,
			edgar.KindFeed:        cfg.Cache.ListingTTL,
		},
		Observer: a.metrics,
		Logger:   log.Named("http"),
	})
	a.client = edgar.New(fetcher, cfg.EDGAR.BaseURL, cfg.EDGAR.DataURL, log.Named("edgar"))
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
}

// scheduledRun is one watch tick: a reconcile followed by a sweep of expired
// in-process cache entries, so a long-lived process does not accumulate them.
func (a *app) scheduledRun(ctx context.Context, w io.Writer, req reconcileRequest) error {
	defer a.memory.Cleanup()
	return a.reconcile(ctx, w, req)
}

// reconcileRequest is one reconcile run as given on the command line.
type reconcileRequest struct {
	Target  string // CIK or ticker
	OutDir  string
	Name    string
	Since   time.Time
	Summary bool
	Top     int
}

// pipelineOptions maps the configuration onto a pipeline run.
func pipelineOptions(cfg *config.Config, req reconcileRequest) pipeline.Options {
	return pipeline.Options{
		FormType:    cfg.EDGAR.FormType,
		Since:       req.Since,
		Upper:       cfg.Reconcile.UpperThreshold,
		Lower:       cfg.Reconcile.LowerThreshold,
		Strategy:    cfg.Reconcile.AttachmentStrategy,
		Index:       cfg.Reconcile.AttachmentIndex,
		Concurrency: cfg.Reconcile.Concurrency,
		BaseName:    req.Name,
	}
}

// reconcile runs the pipeline for req and writes its outputs. Progress goes
// to the logger; the run summary goes to w.
func (a *app) reconcile(ctx context.Context, w io.Writer, req reconcileRequest) error {
	cik, err := a.client.ResolveCIK(ctx, req.Target)
	if err != nil {
		return err
	}

	p := pipeline.New(a.client, pipelineOptions(a.cfg, req), a.metrics, a.log.Named("pipeline"))
	report, err := p.Run(ctx, cik)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", cik, err)
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = a.cfg.Output.Dir
	}
	paths, err := output.Write(outDir, req.Name, a.cfg.Output.AmbiguousDir, report.Aggregate)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "CIK %s: %d filings, %d periods, %d rows -> %s\n",
		cik, report.Filings, len(report.Aggregate.Results), len(report.Aggregate.Rows), paths.Main)
	for _, side := range paths.Ambiguous {
		fmt.Fprintf(w, "  ambiguous: %s\n", side)
	}
	for _, d := range report.Failures {
		fmt.Fprintf(w, "  failed:    %s (%s) %v\n", d.Filing.AccessionNo, utils.FormatDate(d.Filing.ReportDate), d.Err)
	}
	for _, err := range report.GroupErrors {
		fmt.Fprintf(w, "  skipped:   %v\n", err)
	}

	if req.Summary {
		fmt.Fprintln(w)
		if err := summary.Print(w, summary.Summarize(report.Aggregate.Rows), req.Top); err != nil {
			return err
		}
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(filepath.Clean(path)); err != nil {
			return err
		}
	}
	return nil
}
