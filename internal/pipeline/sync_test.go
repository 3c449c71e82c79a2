package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/resilience"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

func seedDataset(t *testing.T, path string) {
	t.Helper()
	writeDataset(t, path,
		record("tla", "2025-05-01", "c1", 10),
		record("tla", "2025-05-02", "c1", 11),
		record("tla", "2025-05-03", "c1", 12),
	)
}

func TestSync_AppendsNextWindow(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	st := newTestStore(t)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-04")).
		Return([]meta.Row{campaignRow("2025-05-04", "c1", "10.5")}, nil)
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-05")).
		Return([]meta.Row{campaignRow("2025-05-05", "c1", "11"), campaignRow("2025-05-05", "c2", "2")}, nil)
	m.On("Insights", mock.Anything, query(meta.LevelAd, "2025-05-04")).
		Return([]meta.Row{adRow("2025-05-04", "a1")}, nil)
	m.On("Insights", mock.Anything, query(meta.LevelAd, "2025-05-05")).
		Return([]meta.Row{adRow("2025-05-05", "a1")}, nil)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)
	m.AssertExpectations(t)

	assert.Equal(t, "2025-05-04", res.Since.String())
	assert.Equal(t, "2025-05-05", res.Until.String())
	assert.Equal(t, 3, res.CampaignRows)
	assert.Equal(t, 2, res.VideoRows)
	assert.Equal(t, 6, res.DatasetRows)
	assert.Zero(t, res.FailedUnits)

	got, err := dataset.LoadRecords(cfg.Paths.Dataset)
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, "2025-05-05", got[4].Date.String())
	assert.Equal(t, "c1", got[4].CampaignID)
	assert.Equal(t, "c2", got[5].CampaignID)
	assert.InDelta(t, 10.5, got[3].Spend, 1e-9)
	assert.Equal(t, int64(3), got[3].MessagingStarted)
	assert.Equal(t, int64(12), got[3].LinkClicks)

	assert.FileExists(t, dataset.BackupPath(cfg.Paths.Dataset))
	backup, err := dataset.LoadRecords(dataset.BackupPath(cfg.Paths.Dataset))
	require.NoError(t, err)
	assert.Len(t, backup, 3)

	videos, err := dataset.LoadVideo(cfg.Paths.VideoDataset)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, int64(400), videos[0].Video3sViews)

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "sync", run.Command)

	phases, err := st.ListPhases(context.Background(), res.RunID)
	require.NoError(t, err)
	names := make([]string, 0, len(phases))
	for _, ph := range phases {
		names = append(names, ph.Name)
	}
	assert.Equal(t, []string{"resolve_window", "fetch_campaigns", "fetch_video", "write_dataset", "write_video"}, names)
}

func TestSync_IncomingOverwritesExisting(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	st := newTestStore(t)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-03")).
		Return([]meta.Row{campaignRow("2025-05-03", "c1", "99")}, nil)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{
		Since:     model.MustParseDate("2025-05-03"),
		Until:     model.MustParseDate("2025-05-03"),
		SkipVideo: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.DatasetRows)

	got, err := dataset.LoadRecords(cfg.Paths.Dataset)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 99.0, got[2].Spend, 1e-9)
	m.AssertNotCalled(t, "Insights", mock.Anything, query(meta.LevelAd, "2025-05-03"))
}

func TestSync_TransientExhaustionRecordsFailedUnit(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	st := newTestStore(t)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-04")).
		Return(nil, resilience.NewTransientError(errors.New("meta: status 429 code 17: rate limited"), 429))
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-05")).
		Return([]meta.Row{campaignRow("2025-05-05", "c1", "11")}, nil)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{SkipVideo: true})
	require.Error(t, err)
	assert.True(t, IsPartial(err))
	assert.Equal(t, 1, res.FailedUnits)
	assert.Equal(t, 4, res.DatasetRows)
	m.AssertNumberOfCalls(t, "Insights", 3)

	units, err := st.ListFailedUnits(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "campaign", units[0].Level)
	assert.Equal(t, "tla", units[0].Account)
	assert.Equal(t, "2025-05-04", units[0].Day.String())
	assert.Equal(t, 2, units[0].Attempts)

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, run.Status)
}

func TestSync_PermanentAPIErrorIsNotRetried(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	st := newTestStore(t)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-04")).
		Return(nil, &meta.APIError{Status: 400, Code: 100, Message: "Invalid parameter"})
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-05")).
		Return([]meta.Row{campaignRow("2025-05-05", "c1", "11")}, nil)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{SkipVideo: true})
	require.Error(t, err)
	assert.True(t, IsPartial(err))
	assert.Equal(t, 1, res.FailedUnits)
	m.AssertNumberOfCalls(t, "Insights", 2)
}

func TestSync_AuthErrorAbortsWithoutWriting(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	before, err := os.ReadFile(cfg.Paths.Dataset)
	require.NoError(t, err)
	st := newTestStore(t)

	authErr := resilience.Permanent(&meta.AuthError{APIError: &meta.APIError{
		Status: 400, Code: 190, Message: "Error validating access token",
	}})
	m := &mockMeta{}
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-04")).
		Return([]meta.Row{campaignRow("2025-05-04", "c1", "1")}, nil)
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-05")).
		Return(nil, authErr)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.False(t, IsPartial(err))
	m.AssertNumberOfCalls(t, "Insights", 2)

	after, err := os.ReadFile(cfg.Paths.Dataset)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, dataset.BackupPath(cfg.Paths.Dataset))
	assert.NoFileExists(t, cfg.Paths.VideoDataset)

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}

func TestSync_AuthErrorDuringVideoAbortsBeforeAnyWrite(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	before, err := os.ReadFile(cfg.Paths.Dataset)
	require.NoError(t, err)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, mock.MatchedBy(func(q meta.Query) bool { return q.Level == meta.LevelCampaign })).
		Return([]meta.Row{campaignRow("2025-05-04", "c1", "1")}, nil)
	m.On("Insights", mock.Anything, mock.MatchedBy(func(q meta.Query) bool { return q.Level == meta.LevelAd })).
		Return(nil, &meta.AuthError{APIError: &meta.APIError{Code: 190, Message: "expired"}})

	p := New(cfg, newTestStore(t), m, nil, nil)
	_, err = p.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.True(t, IsAuth(err))

	after, err := os.ReadFile(cfg.Paths.Dataset)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSync_NoNewRowsLeavesDatasetUntouched(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)
	before, err := os.ReadFile(cfg.Paths.Dataset)
	require.NoError(t, err)
	st := newTestStore(t)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, mock.Anything).Return([]meta.Row{}, nil)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.True(t, IsNothingToDo(err))
	// Video is not fetched once the campaign level came back empty.
	m.AssertNumberOfCalls(t, "Insights", 2)

	after, err := os.ReadFile(cfg.Paths.Dataset)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, dataset.BackupPath(cfg.Paths.Dataset))

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusNoop, run.Status)
}

func TestSync_MalformedRowsAreDropped(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)

	m := &mockMeta{}
	m.On("Insights", mock.Anything, query(meta.LevelCampaign, "2025-05-04")).
		Return([]meta.Row{
			{"campaign_id": "c9"}, // no date_start
			campaignRow("2025-05-04", "c1", "1"),
		}, nil)

	p := New(cfg, newTestStore(t), m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{
		Since:     model.MustParseDate("2025-05-04"),
		Days:      1,
		SkipVideo: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CampaignRows)
	assert.Equal(t, 4, res.DatasetRows)
}

func TestSync_MissingDatasetIsPrecondition(t *testing.T) {
	cfg := testConfig(t)
	m := &mockMeta{}

	p := New(cfg, newTestStore(t), m, nil, nil)
	_, err := p.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	m.AssertNotCalled(t, "Insights", mock.Anything, mock.Anything)
}

func TestSync_EmptyDatasetHasNoWindow(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset)

	p := New(cfg, newTestStore(t), &mockMeta{}, nil, nil)
	_, err := p.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.True(t, errors.Is(err, dataset.ErrNoWindow))
}

func TestSync_NoClientIsPrecondition(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)

	p := New(cfg, newTestStore(t), nil, nil, nil)
	_, err := p.Sync(context.Background(), SyncOptions{})
	assert.True(t, IsPrecondition(err))
}

func TestWindow(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, nil, nil, nil)
	records := []model.PerformanceRecord{record("tla", "2025-05-03", "c1", 1)}

	tests := []struct {
		name      string
		opts      SyncOptions
		wantSince string
		wantUntil string
		wantErr   bool
	}{
		{name: "automatic", opts: SyncOptions{}, wantSince: "2025-05-04", wantUntil: "2025-05-05"},
		{name: "automatic custom days", opts: SyncOptions{Days: 7}, wantSince: "2025-05-04", wantUntil: "2025-05-10"},
		{
			name:      "explicit",
			opts:      SyncOptions{Since: model.MustParseDate("2025-04-01"), Until: model.MustParseDate("2025-04-03")},
			wantSince: "2025-04-01", wantUntil: "2025-04-03",
		},
		{name: "since only", opts: SyncOptions{Since: model.MustParseDate("2025-04-01")}, wantSince: "2025-04-01", wantUntil: "2025-04-02"},
		{name: "until only", opts: SyncOptions{Until: model.MustParseDate("2025-04-01")}, wantErr: true},
		{
			name:    "inverted",
			opts:    SyncOptions{Since: model.MustParseDate("2025-04-03"), Until: model.MustParseDate("2025-04-01")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := p.window(records, tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsPrecondition(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSince, w.Since.String())
			assert.Equal(t, tt.wantUntil, w.Until.String())
		})
	}
}

func TestSync_LedgerFailuresAreNotFatal(t *testing.T) {
	cfg := testConfig(t)
	seedDataset(t, cfg.Paths.Dataset)

	st := &mockStore{}
	st.On("CreateRun", mock.Anything, "sync").Return(&model.Run{ID: "run-1", Command: "sync"}, nil)
	st.On("CreatePhase", mock.Anything, "run-1", mock.Anything).Return(nil, errors.New("disk full"))
	st.On("UpdateRunResult", mock.Anything, "run-1", model.RunStatusComplete, mock.AnythingOfType("*model.RunResult")).
		Return(errors.New("disk full"))

	m := &mockMeta{}
	m.On("Insights", mock.Anything, mock.Anything).Return([]meta.Row{campaignRow("2025-05-04", "c1", "1")}, nil)

	p := New(cfg, st, m, nil, nil)
	res, err := p.Sync(context.Background(), SyncOptions{Days: 1, SkipVideo: true})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Len(t, res.Phases, 5)
	st.AssertExpectations(t)
	st.AssertNotCalled(t, "CompletePhase", mock.Anything, mock.Anything, mock.Anything)
}
