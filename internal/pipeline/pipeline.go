// Package pipeline runs the sync, report, transform, spend and export
// stages and records every invocation in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/config"
	"github.com/sells-group/adreport-cli/internal/db"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/store"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
	meta  meta.Client
	pool  db.Pool
	out   io.Writer
}

// New creates a Pipeline. client is only needed by Sync and pool only by
// Export; either may be nil otherwise. Console tables go to out.
func New(cfg *config.Config, st store.Store, client meta.Client, pool db.Pool, out io.Writer) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{
		cfg:   cfg,
		store: st,
		meta:  client,
		pool:  pool,
		out:   out,
	}
}

// tracker records one ledger run and its phases.
type tracker struct {
	store  store.Store
	run    *model.Run
	result *model.RunResult
	log    *zap.Logger
}

func (p *Pipeline) begin(ctx context.Context, command string) (*tracker, error) {
	run, err := p.store.CreateRun(ctx, command)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("command", command), zap.String("run_id", run.ID))
	log.Info("pipeline: run started")
	return &tracker{
		store:  p.store,
		run:    run,
		result: &model.RunResult{RunID: run.ID},
		log:    log,
	}, nil
}

// phase runs fn as a named ledger phase.
func (t *tracker) phase(ctx context.Context, name string, fn func() (*model.PhaseResult, error)) error {
	phase, phaseErr := t.store.CreatePhase(ctx, t.run.ID, name)
	if phaseErr != nil {
		t.log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
	}

	start := time.Now()
	phaseResult, fnErr := fn()
	duration := time.Since(start).Milliseconds()

	if phaseResult == nil {
		phaseResult = &model.PhaseResult{}
	}
	phaseResult.Name = name
	phaseResult.Duration = duration

	if fnErr != nil {
		phaseResult.Status = model.PhaseStatusFailed
		phaseResult.Error = fnErr.Error()
		t.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(fnErr),
		)
	} else {
		if phaseResult.Status == "" {
			phaseResult.Status = model.PhaseStatusComplete
		}
		t.log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.String("status", string(phaseResult.Status)),
			zap.Int64("duration_ms", duration),
		)
	}

	if phase != nil {
		if err := t.store.CompletePhase(ctx, phase.ID, phaseResult); err != nil {
			t.log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
		}
	}
	t.result.Phases = append(t.result.Phases, *phaseResult)
	return fnErr
}

// skipped is a phase result for work that had nothing to do.
func skipped(reason string) *model.PhaseResult {
	return &model.PhaseResult{
		Status:   model.PhaseStatusSkipped,
		Metadata: map[string]any{"reason": reason},
	}
}

// statusFor maps a run error to its ledger status.
func statusFor(err error) model.RunStatus {
	switch {
	case err == nil:
		return model.RunStatusComplete
	case IsNothingToDo(err):
		return model.RunStatusNoop
	case IsPartial(err):
		return model.RunStatusPartial
	default:
		return model.RunStatusFailed
	}
}

// finish stores the run outcome and passes err through.
func (t *tracker) finish(ctx context.Context, err error) (*model.RunResult, error) {
	status := statusFor(err)
	if err != nil {
		t.result.Error = err.Error()
	}

	// The ledger write must land even when ctx was cancelled mid-run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if storeErr := t.store.UpdateRunResult(ctx, t.run.ID, status, t.result); storeErr != nil {
		t.log.Warn("pipeline: failed to store run result", zap.Error(storeErr))
	}

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.Int("campaign_rows", t.result.CampaignRows),
		zap.Int("video_rows", t.result.VideoRows),
		zap.Int("dataset_rows", t.result.DatasetRows),
		zap.Int("failed_units", t.result.FailedUnits),
	}
	switch status {
	case model.RunStatusFailed:
		t.log.Error("pipeline: run failed", append(fields, zap.Error(err))...)
	case model.RunStatusPartial:
		t.log.Warn("pipeline: run finished with warnings", append(fields, zap.Error(err))...)
	default:
		t.log.Info("pipeline: run finished", fields...)
	}
	return t.result, err
}

// joinPartial folds stage warnings into one PartialError.
func joinPartial(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return Partial(errors.Join(errs...))
}
