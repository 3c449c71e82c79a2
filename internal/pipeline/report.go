package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/compare"
	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/period"
	"github.com/sells-group/adreport-cli/internal/render"
)

// ReportOptions selects the reporting period and output directory.
type ReportOptions struct {
	// Period is "next", "latest" or a label such as 2025_mayo_semana2.
	// Empty uses the configured default.
	Period string
	// OutDir overrides the configured insight directory.
	OutDir string
}

// Report renders the weekly comparison tables. A missing period or a
// rendering error is a warning: the datasets are never touched here.
func (p *Pipeline) Report(ctx context.Context, opts ReportOptions) (*model.RunResult, error) {
	t, err := p.begin(ctx, "report")
	if err != nil {
		return nil, err
	}
	return t.finish(ctx, p.report(ctx, t, opts))
}

func (p *Pipeline) report(ctx context.Context, t *tracker, opts ReportOptions) error {
	choice := opts.Period
	if choice == "" {
		choice = p.cfg.Report.Period
	}
	dir := opts.OutDir
	if dir == "" {
		dir = p.cfg.Paths.InsightDir
	}

	var records []model.PerformanceRecord
	err := t.phase(ctx, "load_dataset", func() (*model.PhaseResult, error) {
		var err error
		records, err = dataset.LoadRecords(p.cfg.Paths.Dataset)
		return &model.PhaseResult{Metadata: map[string]any{"rows": len(records)}}, err
	})
	if err != nil {
		return err
	}

	err = t.phase(ctx, "render_report", func() (*model.PhaseResult, error) {
		series := period.BuildWeekly(records)
		label, err := series.Pick(choice)
		if err != nil {
			return nil, err
		}
		t.result.Period = label
		t.log.Info("pipeline: reporting period",
			zap.String("period", label),
			zap.String("choice", choice),
			zap.Int("weeks", series.Len()),
		)

		pct, values, err := compare.Build(series, label)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: period %q", label)
		}

		render.Console(p.out, pct)
		render.Console(p.out, values)

		opts := render.DefaultImageOptions()
		if p.cfg.Report.Scale > 0 {
			opts.Scale = p.cfg.Report.Scale
		}
		pctPath, valPath, err := render.WriteReport(dir, pct, values, opts)
		if err != nil {
			return nil, err
		}
		t.result.Artifacts = append(t.result.Artifacts, pctPath, valPath)
		t.log.Info("pipeline: report written",
			zap.String("period", label),
			zap.String("percent_path", pctPath),
			zap.String("values_path", valPath),
		)
		return &model.PhaseResult{Metadata: map[string]any{
			"period": label,
			"weeks":  series.Len(),
		}}, nil
	})
	if err != nil {
		return Partial(eris.Wrap(err, "pipeline: report skipped"))
	}
	return nil
}
