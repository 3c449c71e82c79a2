package pipeline

import (
	"context"

	"github.com/sells-group/adreport-cli/internal/model"
)

// RunOptions configures a full run.
type RunOptions struct {
	Sync      SyncOptions
	Report    ReportOptions
	Transform TransformOptions
	Spend     SpendOptions
	Export    bool
}

// Run performs sync, report, transform and spend in order under one
// ledger run. A sync with no new rows ends the run. A failure in a later
// stage is logged and the remaining stages still run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*model.RunResult, error) {
	t, err := p.begin(ctx, "run")
	if err != nil {
		return nil, err
	}

	var warnings []error
	if err := p.sync(ctx, t, opts.Sync); err != nil {
		if !IsPartial(err) {
			return t.finish(ctx, err)
		}
		warnings = append(warnings, err)
	}

	stages := []func() error{
		func() error { return p.report(ctx, t, opts.Report) },
		func() error { return p.transform(ctx, t, opts.Transform) },
		func() error { return p.spend(ctx, t, opts.Spend) },
	}
	if opts.Export {
		stages = append(stages, func() error { return p.export(ctx, t) })
	}
	for _, stage := range stages {
		if ctx.Err() != nil {
			return t.finish(ctx, ctx.Err())
		}
		if err := stage(); err != nil {
			warnings = append(warnings, err)
		}
	}
	return t.finish(ctx, joinPartial(warnings))
}
