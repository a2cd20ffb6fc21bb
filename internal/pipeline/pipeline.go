// Package pipeline runs a full reconciliation for one manager: list filings,
// group them by period, fetch and extract every information table, classify
// each period and combine the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/form13f/internal/edgar"
	"github.com/seenimoa/form13f/internal/extract"
	"github.com/seenimoa/form13f/internal/reconcile"
	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// Source lists filings and retrieves their attachments. *edgar.Client
// implements it.
type Source interface {
	ListFilings(ctx context.Context, cik string, q edgar.Query) ([]models.Filing, error)
	Attachments(ctx context.Context, f models.Filing) ([]models.Attachment, error)
	Download(ctx context.Context, a models.Attachment) ([]byte, error)
}

// Recorder receives run statistics. *metrics.Recorder implements it.
type Recorder interface {
	RecordClassification(class string)
	SetConsolidatedRows(n int)
}

// Options configures a Pipeline.
type Options struct {
	FormType    string
	Since       time.Time
	Upper       float64
	Lower       float64
	Strategy    string // edgar.StrategyPosition or edgar.StrategyType
	Index       int    // attachment index for the position strategy
	Concurrency int
	// BaseName names ambiguous artifacts, usually the output file name.
	BaseName string
}

// Report is the outcome of one run.
type Report struct {
	CIK       string
	Filings   int
	Aggregate *reconcile.Aggregate
	// Failures lists filings that could not be retrieved or extracted.
	Failures []reconcile.Decision
	// GroupErrors holds periods that could not be reconciled at all.
	GroupErrors []error
}

// Pipeline wires a Source to the reconciliation engine.
type Pipeline struct {
	src    Source
	opts   Options
	engine *reconcile.Engine
	rec    Recorder
	log    *zap.Logger
}

// New creates a Pipeline. rec and log may be nil.
func New(src Source, opts Options, rec Recorder, log *zap.Logger) *Pipeline {
	if opts.FormType == "" {
		opts.FormType = "13F-HR"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		src:    src,
		opts:   opts,
		engine: reconcile.NewEngine(opts.Upper, opts.Lower),
		rec:    rec,
		log:    log,
	}
}

// fetched is the table, or the error, of one filing.
type fetched struct {
	table *models.HoldingTable
	err   error
}

// Run reconciles every filing of cik. It fails only when no filings can be
// listed or the context ends; per-filing and per-period problems are recorded
// in the report.
func (p *Pipeline) Run(ctx context.Context, cik string) (*Report, error) {
	filings, err := p.src.ListFilings(ctx, cik, edgar.Query{FormType: p.opts.FormType, Since: p.opts.Since})
	if err != nil {
		return nil, fmt.Errorf("list filings: %w", err)
	}

	groups, err := reconcile.Group(filings)
	if err != nil {
		return nil, err
	}
	p.log.Info("filings grouped",
		zap.String("cik", cik),
		zap.Int("filings", len(filings)),
		zap.Int("periods", len(groups)))

	tables, err := p.fetchAll(ctx, groups)
	if err != nil {
		return nil, err
	}

	report := &Report{CIK: cik}
	var results []*reconcile.Result
	for _, g := range groups {
		report.Filings += len(g.Filings)
		res, err := p.engine.Reconcile(g, func(f models.Filing) (*models.HoldingTable, error) {
			r, ok := tables[f.AccessionNo]
			if !ok {
				return nil, fmt.Errorf("filing %s was not retrieved", f.AccessionNo)
			}
			return r.table, r.err
		})
		if err != nil {
			var internal *reconcile.InternalError
			if !errors.As(err, &internal) {
				return nil, err
			}
			p.log.Error("period skipped", zap.Error(err))
			report.GroupErrors = append(report.GroupErrors, err)
			continue
		}
		p.record(res)
		report.Failures = append(report.Failures, res.Failures()...)
		results = append(results, res)
	}

	report.Aggregate = reconcile.Combine(p.opts.BaseName, results)
	if p.rec != nil {
		p.rec.SetConsolidatedRows(len(report.Aggregate.Rows))
	}
	return report, nil
}

// fetchAll retrieves and extracts every filing concurrently. A failure is
// kept with its filing; only cancellation stops the fetch.
func (p *Pipeline) fetchAll(ctx context.Context, groups []models.PeriodGroup) (map[string]fetched, error) {
	var all []models.Filing
	for _, g := range groups {
		all = append(all, g.Filings...)
	}

	results := make([]fetched, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, f := range all {
		i, f := i, f
		g.Go(func() error {
			table, err := p.fetchOne(gctx, f)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.log.Warn("filing not extracted",
					zap.String("accession", f.AccessionNo),
					zap.String("report_date", utils.FormatDate(f.ReportDate)),
					zap.Error(err))
			}
			// Each goroutine owns its slot.
			results[i] = fetched{table: table, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch filings: %w", err)
	}

	byAccession := make(map[string]fetched, len(all))
	for i, f := range all {
		byAccession[f.AccessionNo] = results[i]
	}
	return byAccession, nil
}

func (p *Pipeline) fetchOne(ctx context.Context, f models.Filing) (*models.HoldingTable, error) {
	atts, err := p.src.Attachments(ctx, f)
	if err != nil {
		return nil, err
	}
	att, err := edgar.SelectInformationTable(atts, p.opts.Strategy, p.opts.Index)
	if err != nil {
		return nil, fmt.Errorf("select attachment of %s: %w", f.AccessionNo, err)
	}
	data, err := p.src.Download(ctx, att)
	if err != nil {
		return nil, err
	}
	return extract.Extract(f, data)
}

func (p *Pipeline) record(res *reconcile.Result) {
	for _, d := range res.Decisions {
		if p.rec != nil {
			p.rec.RecordClassification(string(d.Class))
		}
		fields := []zap.Field{
			zap.String("report_date", utils.FormatDate(res.Group.ReportDate)),
			zap.String("accession", d.Filing.AccessionNo),
			zap.String("filing_date", utils.FormatDate(d.Filing.FilingDate)),
			zap.String("class", string(d.Class)),
			zap.Int("rows", d.Rows),
			zap.Int("baseline_rows", res.BaselineRows),
		}
		if d.Err != nil {
			fields = append(fields, zap.Error(d.Err))
		}
		p.log.Debug("filing classified", fields...)
	}
	p.log.Info("period reconciled",
		zap.String("report_date", utils.FormatDate(res.Group.ReportDate)),
		zap.Int("filings", len(res.Group.Filings)),
		zap.Int("patches", len(res.Patches)),
		zap.Int("ambiguous", len(res.Ambiguous)),
		zap.Int("failed", len(res.Failures())),
		zap.Int("rows", len(res.Consolidated())))
}
