package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/db"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/spend"
	"github.com/sells-group/adreport-cli/internal/tabular"
	"github.com/sells-group/adreport-cli/internal/transform"
)

// TransformOptions controls the downstream export files.
type TransformOptions struct {
	WriteXLSX bool
}

// SpendOptions overrides the configured spend workbook settings.
type SpendOptions struct {
	Cutoff     model.Date
	ByAccount  *bool
	ByCampaign *bool
}

// requireDataset fails with dataset.ErrMissing when path is absent.
func requireDataset(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return eris.Wrapf(dataset.ErrMissing, "pipeline: %s", path)
		}
		return eris.Wrapf(err, "pipeline: stat %s", path)
	}
	return nil
}

// Transform writes the downstream CSV and, optionally, its XLSX twin.
func (p *Pipeline) Transform(ctx context.Context, opts TransformOptions) (*model.RunResult, error) {
	t, err := p.begin(ctx, "transform")
	if err != nil {
		return nil, err
	}
	return t.finish(ctx, p.transform(ctx, t, opts))
}

func (p *Pipeline) downstreamRows() ([]transform.Row, error) {
	path := p.cfg.Paths.Dataset
	if err := requireDataset(path); err != nil {
		return nil, err
	}
	src, err := transform.Load(path)
	if err != nil {
		return nil, err
	}
	renames := p.cfg.Transform.AccountRenames
	if renames == nil {
		renames = transform.DefaultAccountRenames
	}
	return transform.Build(src, renames), nil
}

func (p *Pipeline) transform(ctx context.Context, t *tracker, opts TransformOptions) error {
	return t.phase(ctx, "transform", func() (*model.PhaseResult, error) {
		rows, err := p.downstreamRows()
		if err != nil {
			return nil, err
		}
		csvPath := p.cfg.Paths.DownstreamCSV
		if err := transform.WriteCSV(csvPath, rows); err != nil {
			return nil, err
		}
		t.result.Artifacts = append(t.result.Artifacts, csvPath)

		if opts.WriteXLSX || p.cfg.Transform.WriteXLSX {
			xlsxPath := p.cfg.Paths.DownstreamXLSX
			if err := transform.WriteXLSX(xlsxPath, rows); err != nil {
				return nil, err
			}
			t.result.Artifacts = append(t.result.Artifacts, xlsxPath)
		}
		t.log.Info("pipeline: downstream table written",
			zap.String("path", csvPath),
			zap.Int("rows", len(rows)),
		)
		return &model.PhaseResult{Metadata: map[string]any{"rows": len(rows)}}, nil
	})
}

// Spend writes the monthly spend workbook.
func (p *Pipeline) Spend(ctx context.Context, opts SpendOptions) (*model.RunResult, error) {
	t, err := p.begin(ctx, "spend")
	if err != nil {
		return nil, err
	}
	return t.finish(ctx, p.spend(ctx, t, opts))
}

func (p *Pipeline) spendOptions(opts SpendOptions) (spend.Options, error) {
	out := spend.Options{
		Cutoff:     opts.Cutoff,
		ByAccount:  p.cfg.Spend.ByAccount,
		ByCampaign: p.cfg.Spend.ByCampaign,
	}
	if out.Cutoff.IsZero() && p.cfg.Spend.Cutoff != "" {
		cutoff, err := model.ParseDate(p.cfg.Spend.Cutoff)
		if err != nil {
			return out, eris.Wrapf(ErrPrecondition, "pipeline: spend cutoff %q", p.cfg.Spend.Cutoff)
		}
		out.Cutoff = cutoff
	}
	if opts.ByAccount != nil {
		out.ByAccount = *opts.ByAccount
	}
	if opts.ByCampaign != nil {
		out.ByCampaign = *opts.ByCampaign
	}
	return out, nil
}

func (p *Pipeline) spend(ctx context.Context, t *tracker, opts SpendOptions) error {
	return t.phase(ctx, "spend", func() (*model.PhaseResult, error) {
		sopts, err := p.spendOptions(opts)
		if err != nil {
			return nil, err
		}
		records, err := dataset.LoadRecords(p.cfg.Paths.Dataset)
		if err != nil {
			return nil, err
		}
		summary, err := spend.Aggregate(records, sopts)
		if err != nil {
			return nil, err
		}
		path := p.cfg.Paths.SpendXLSX
		if err := spend.WriteWorkbook(path, summary); err != nil {
			return nil, err
		}
		t.result.Artifacts = append(t.result.Artifacts, path)
		t.log.Info("pipeline: spend workbook written",
			zap.String("path", path),
			zap.String("cutoff", summary.Cutoff.String()),
			zap.Int("months", len(summary.Monthly)),
			zap.Float64("total_spend", summary.Total()),
		)
		return &model.PhaseResult{Metadata: map[string]any{
			"months":   len(summary.Monthly),
			"filtered": len(summary.Filtered),
		}}, nil
	})
}

// exportKeys is the warehouse table's primary key.
var exportKeys = []string{"account", "date_start", "campaign_id"}

// exportColumns defines the warehouse table.
const exportColumns = `
	account                text NOT NULL,
	date_start             date NOT NULL,
	date_stop              date,
	campaign_id            text NOT NULL,
	campaign_name          text,
	spend                  double precision,
	impressions            double precision,
	reach                  double precision,
	video_25pct            double precision,
	clicks_all             double precision,
	link_clicks            double precision,
	ctr                    double precision,
	unique_link_clicks_ctr double precision,
	first_replies          double precision,
	two_way_conversations  double precision,
	PRIMARY KEY (account, date_start, campaign_id)
`

// Export upserts the downstream table into Postgres.
func (p *Pipeline) Export(ctx context.Context) (*model.RunResult, error) {
	t, err := p.begin(ctx, "export")
	if err != nil {
		return nil, err
	}
	return t.finish(ctx, p.export(ctx, t))
}

func (p *Pipeline) export(ctx context.Context, t *tracker) error {
	if p.pool == nil {
		return eris.Wrap(ErrPrecondition, "pipeline: no warehouse connection configured")
	}
	table := p.cfg.Warehouse.Table
	return t.phase(ctx, "export", func() (*model.PhaseResult, error) {
		rows, err := p.downstreamRows()
		if err != nil {
			return nil, err
		}

		// The warehouse key cannot hold null dates, and account renames
		// can fold two labels onto one key.
		keyed := make([]transform.Row, 0, len(rows))
		for _, r := range rows {
			if r.DateStart.IsZero() {
				t.log.Warn("pipeline: skipping undated row",
					zap.String("account", r.Account),
					zap.String("campaign_id", r.CampaignID),
				)
				continue
			}
			keyed = append(keyed, r)
		}
		keyed = tabular.DedupLast(keyed, func(r transform.Row) model.RecordKey {
			return model.RecordKey{AccountLabel: r.Account, Date: r.DateStart, CampaignID: r.CampaignID}
		})

		existed, err := db.TableExists(ctx, p.pool, table)
		if err != nil {
			return nil, err
		}
		if !existed {
			if err := db.CreateTable(ctx, p.pool, table, exportColumns); err != nil {
				return nil, err
			}
			t.log.Info("pipeline: warehouse table created", zap.String("table", table))
		}

		values := make([][]any, 0, len(keyed))
		for _, r := range keyed {
			values = append(values, r.Values())
		}
		n, err := db.BulkUpsert(ctx, p.pool, db.UpsertConfig{
			Table:        table,
			Columns:      transform.Columns,
			ConflictKeys: exportKeys,
		}, values)
		if err != nil {
			return nil, err
		}
		t.result.ExportedRows = int(n)
		t.log.Info("pipeline: warehouse export complete",
			zap.String("table", table),
			zap.Int("rows", len(values)),
			zap.Int64("affected", n),
		)
		return &model.PhaseResult{Metadata: map[string]any{
			"table":    table,
			"created":  !existed,
			"rows":     len(values),
			"affected": n,
		}}, nil
	})
}
