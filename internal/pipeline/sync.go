package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/extract"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/resilience"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

// SyncOptions overrides the automatic extraction window.
type SyncOptions struct {
	// Since and Until pin the window. Since alone spans Days days.
	Since model.Date
	Until model.Date
	// Days is the window length; zero uses the configured default.
	Days      int
	SkipVideo bool
}

// Sync fetches new insights, merges them into the datasets and records
// the run.
func (p *Pipeline) Sync(ctx context.Context, opts SyncOptions) (*model.RunResult, error) {
	t, err := p.begin(ctx, "sync")
	if err != nil {
		return nil, err
	}
	return t.finish(ctx, p.sync(ctx, t, opts))
}

// window resolves the extraction range against the existing records.
func (p *Pipeline) window(records []model.PerformanceRecord, opts SyncOptions) (dataset.Window, error) {
	days := opts.Days
	if days <= 0 {
		days = p.cfg.Sync.WindowDays
	}
	switch {
	case !opts.Since.IsZero() && !opts.Until.IsZero():
		return dataset.NewWindow(opts.Since, opts.Until)
	case !opts.Since.IsZero():
		return dataset.NewWindow(opts.Since, opts.Since.AddDays(days-1))
	case !opts.Until.IsZero():
		return dataset.Window{}, eris.Wrap(dataset.ErrNoWindow, "pipeline: --until needs --since")
	default:
		return dataset.NextWindow(records, days)
	}
}

func (p *Pipeline) retryConfig() resilience.RetryConfig {
	return resilience.LinearRetryConfig(p.cfg.Sync.MaxAttempts, p.cfg.Sync.Backoff())
}

func (p *Pipeline) sync(ctx context.Context, t *tracker, opts SyncOptions) error {
	if p.meta == nil {
		return eris.Wrap(ErrPrecondition, "pipeline: no insights client configured")
	}

	var existing []model.PerformanceRecord
	var w dataset.Window
	err := t.phase(ctx, "resolve_window", func() (*model.PhaseResult, error) {
		var err error
		existing, err = dataset.LoadRecords(p.cfg.Paths.Dataset)
		if err != nil {
			return nil, err
		}
		w, err = p.window(existing, opts)
		if err != nil {
			return nil, err
		}
		return &model.PhaseResult{Metadata: map[string]any{
			"existing_rows": len(existing),
			"since":         w.Since.String(),
			"until":         w.Until.String(),
		}}, nil
	})
	if err != nil {
		return err
	}
	t.result.Since, t.result.Until = w.Since, w.Until

	var campaigns []model.PerformanceRecord
	err = t.phase(ctx, "fetch_campaigns", func() (*model.PhaseResult, error) {
		f := newFetcher(p.meta, meta.LevelCampaign, extract.CampaignFields, p.cfg.Sync.CampaignPause(), p.retryConfig())
		var err error
		campaigns, err = fetchWindow(ctx, t, f, p.cfg.Accounts, w, extract.Campaign)
		return &model.PhaseResult{Metadata: map[string]any{"records": len(campaigns)}}, err
	})
	if err != nil {
		return err
	}
	t.result.CampaignRows = len(campaigns)

	if len(campaigns) == 0 {
		if t.result.FailedUnits > 0 {
			return Partial(eris.Errorf("pipeline: no rows fetched, %d units failed", t.result.FailedUnits))
		}
		t.log.Info("pipeline: no new rows for window, dataset left untouched", zap.Stringer("window", w))
		return eris.Wrapf(ErrNothingToDo, "pipeline: no new rows for %s", w)
	}

	var videos []model.VideoRecord
	if opts.SkipVideo || p.cfg.Sync.SkipVideo {
		_ = t.phase(ctx, "fetch_video", func() (*model.PhaseResult, error) {
			return skipped("disabled"), nil
		})
	} else {
		err = t.phase(ctx, "fetch_video", func() (*model.PhaseResult, error) {
			f := newFetcher(p.meta, meta.LevelAd, extract.VideoFields, p.cfg.Sync.VideoPause(), p.retryConfig())
			var err error
			videos, err = fetchWindow(ctx, t, f, p.cfg.Accounts, w, extract.Video)
			return &model.PhaseResult{Metadata: map[string]any{"records": len(videos)}}, err
		})
		if err != nil {
			return err
		}
	}

	// Nothing is written until every fetch has finished, so a rejected
	// credential never leaves a half-updated dataset.
	err = t.phase(ctx, "write_dataset", func() (*model.PhaseResult, error) {
		path := p.cfg.Paths.Dataset
		if backup, err := dataset.Backup(path); err != nil {
			t.log.Warn("pipeline: dataset backup failed", zap.String("path", path), zap.Error(err))
		} else {
			t.log.Info("pipeline: dataset backed up", zap.String("path", backup))
		}

		merged := dataset.MergeRecords(existing, campaigns)
		if err := dataset.WriteFile(path, merged); err != nil {
			return nil, err
		}
		t.result.DatasetRows = len(merged)
		t.log.Info("pipeline: dataset updated",
			zap.String("path", path),
			zap.Int("incoming", len(campaigns)),
			zap.Int("rows", len(merged)),
		)
		return &model.PhaseResult{Metadata: map[string]any{
			"incoming": len(campaigns),
			"rows":     len(merged),
		}}, nil
	})
	if err != nil {
		return err
	}

	err = t.phase(ctx, "write_video", func() (*model.PhaseResult, error) {
		if len(videos) == 0 {
			return skipped("no new rows"), nil
		}
		path := p.cfg.Paths.VideoDataset
		existingVideo, err := dataset.LoadVideo(path)
		if err != nil {
			return nil, err
		}
		merged := dataset.MergeVideo(existingVideo, videos)
		if err := dataset.WriteFile(path, merged); err != nil {
			return nil, err
		}
		t.result.VideoRows = len(videos)
		t.log.Info("pipeline: video dataset updated",
			zap.String("path", path),
			zap.Int("incoming", len(videos)),
			zap.Int("rows", len(merged)),
		)
		return &model.PhaseResult{Metadata: map[string]any{
			"incoming": len(videos),
			"rows":     len(merged),
		}}, nil
	})
	if err != nil {
		return err
	}

	if t.result.FailedUnits > 0 {
		return Partial(eris.Errorf("pipeline: %d fetch units failed", t.result.FailedUnits))
	}
	return nil
}
