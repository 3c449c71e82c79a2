package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/adreport-cli/internal/config"
	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/extract"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/resilience"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

// fetcher paces and retries insights requests for one level.
type fetcher struct {
	client  meta.Client
	level   meta.Level
	fields  []string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func newFetcher(client meta.Client, level meta.Level, fields []string, pause time.Duration, retry resilience.RetryConfig) *fetcher {
	limit := rate.Inf
	if pause > 0 {
		limit = rate.Every(pause)
	}
	return &fetcher{
		client:  client,
		level:   level,
		fields:  fields,
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
	}
}

// day fetches one account-day. attempts counts the calls made.
func (f *fetcher) day(ctx context.Context, account config.Account, day model.Date) (rows []meta.Row, attempts int, err error) {
	q := meta.Query{
		AccountID: account.ID,
		Fields:    f.fields,
		Since:     day.String(),
		Until:     day.String(),
		Level:     f.level,
	}
	unit := []zap.Field{
		zap.String("level", string(f.level)),
		zap.String("account", account.Label),
		zap.String("day", day.String()),
	}
	retry := f.retry
	retry.OnRetry = resilience.RetryLogger("meta", "insights", unit...)
	retry.OnExhausted = func(attempts int, err error) {
		zap.L().Warn("pipeline: insights retries exhausted",
			append(unit, zap.Int("attempts", attempts), zap.Error(err))...)
	}
	rows, err = resilience.DoVal(ctx, retry, func(ctx context.Context) ([]meta.Row, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "pipeline: pacing wait")
		}
		attempts++
		return f.client.Insights(ctx, q)
	})
	return rows, attempts, err
}

// fetchWindow walks every account and day of w, extracting rows with fn.
// A failed unit is recorded and skipped; a rejected credential or a
// cancelled context aborts the walk.
func fetchWindow[T any](
	ctx context.Context,
	t *tracker,
	f *fetcher,
	accounts []config.Account,
	w dataset.Window,
	fn func(string, map[string]any) (T, error),
) ([]T, error) {
	var out []T
	for _, account := range accounts {
		t.log.Info("pipeline: fetching account",
			zap.String("level", string(f.level)),
			zap.String("account", account.Label),
			zap.String("account_id", account.ID),
			zap.Stringer("window", w),
		)
		for _, day := range w.Days() {
			rows, attempts, err := f.day(ctx, account, day)
			if err != nil {
				if IsAuth(err) {
					return nil, eris.Wrapf(err, "pipeline: %s insights for %s", f.level, account.Label)
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, eris.Wrap(ctxErr, "pipeline: fetch cancelled")
				}
				t.failUnit(ctx, f.level, account, day, attempts, err)
				continue
			}
			recs := extract.Batch(account.Label, rows, fn)
			t.log.Debug("pipeline: fetched day",
				zap.String("level", string(f.level)),
				zap.String("account", account.Label),
				zap.String("day", day.String()),
				zap.Int("rows", len(rows)),
				zap.Int("records", len(recs)),
			)
			out = append(out, recs...)
		}
	}
	return out, nil
}

// failUnit records a unit whose fetch gave up.
func (t *tracker) failUnit(ctx context.Context, level meta.Level, account config.Account, day model.Date, attempts int, err error) {
	t.result.FailedUnits++
	t.log.Warn("pipeline: fetch unit failed",
		zap.String("level", string(level)),
		zap.String("account", account.Label),
		zap.String("day", day.String()),
		zap.Int("attempts", attempts),
		zap.Bool("transient", resilience.IsTransient(err)),
		zap.Error(err),
	)
	unit := &model.FailedUnit{
		RunID:    t.run.ID,
		Level:    string(level),
		Account:  account.Label,
		Day:      day,
		Attempts: attempts,
		Error:    err.Error(),
	}
	if storeErr := t.store.RecordFailedUnit(ctx, unit); storeErr != nil && !errors.Is(storeErr, context.Canceled) {
		t.log.Warn("pipeline: failed to record fetch unit", zap.Error(storeErr))
	}
}
