package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adreport-cli/internal/config"
	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/store"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

// --- Meta Mock ---

type mockMeta struct {
	mock.Mock
}

func (m *mockMeta) Insights(ctx context.Context, q meta.Query) ([]meta.Row, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]meta.Row), args.Error(1)
}

// query matches one account-day request at level l.
func query(l meta.Level, day string) any {
	return mock.MatchedBy(func(q meta.Query) bool {
		return q.Level == l && q.Since == day && q.Until == day
	})
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, command string) (*model.Run, error) {
	args := m.Called(ctx, command)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	args := m.Called(ctx, runID, status, result)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	args := m.Called(ctx, runID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunPhase), args.Error(1)
}

func (m *mockStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	args := m.Called(ctx, phaseID, result)
	return args.Error(0)
}

func (m *mockStore) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RunPhase), args.Error(1)
}

func (m *mockStore) RecordFailedUnit(ctx context.Context, unit *model.FailedUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *mockStore) ListFailedUnits(ctx context.Context, runID string) ([]model.FailedUnit, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FailedUnit), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Helpers ---

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Accounts: []config.Account{{ID: "act_1", Label: "tla"}},
		Paths: config.PathsConfig{
			Dataset:        filepath.Join(dir, "data", "campaign_1d.csv"),
			VideoDataset:   filepath.Join(dir, "data", "video_1d_ads.csv"),
			InsightDir:     filepath.Join(dir, "insight"),
			DownstreamCSV:  filepath.Join(dir, "powerbi", "primera_tabla.csv"),
			DownstreamXLSX: filepath.Join(dir, "powerbi", "primera_tabla.xlsx"),
			SpendXLSX:      filepath.Join(dir, "spend", "monthly.xlsx"),
		},
		Sync:      config.SyncConfig{WindowDays: 2, MaxAttempts: 2, BackoffMs: 1},
		Report:    config.ReportConfig{Period: "latest", Scale: 1},
		Transform: config.TransformConfig{AccountRenames: map[string]string{"illapa": "illa"}},
		Spend:     config.SpendConfig{Cutoff: "2025-01-01", ByAccount: true},
		Warehouse: config.WarehouseConfig{Table: "campaign_daily"},
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func record(account, day, campaign string, spend float64) model.PerformanceRecord {
	return model.PerformanceRecord{
		AccountLabel:        account,
		Date:                model.MustParseDate(day),
		CampaignID:          campaign,
		CampaignName:        "Campaign " + campaign,
		Spend:               spend,
		Impressions:         1000,
		ClicksAll:           20,
		LinkClicks:          10,
		CTR:                 2,
		UniqueLinkClicksCTR: 1,
		MessagingStarted:    4,
	}
}

func writeDataset(t *testing.T, path string, records ...model.PerformanceRecord) {
	t.Helper()
	require.NoError(t, dataset.WriteFile(path, records))
}

func campaignRow(day, campaign, spend string) meta.Row {
	return meta.Row{
		"date_start":    day,
		"campaign_id":   campaign,
		"campaign_name": "Campaign " + campaign,
		"spend":         spend,
		"impressions":   "1000",
		"clicks":        "25",
		"actions": []any{
			map[string]any{"action_type": "link_click", "value": "12"},
			map[string]any{"action_type": "onsite_conversion.messaging_first_reply", "value": "3"},
		},
	}
}

func adRow(day, ad string) meta.Row {
	return meta.Row{
		"date_start":  day,
		"ad_id":       ad,
		"campaign_id": "c1",
		"impressions": "2000",
		"video_play_actions": []any{
			map[string]any{"action_type": "video_view", "value": "1000"},
		},
		"video_play_curve_actions": []any{
			map[string]any{"action_type": "video_view", "value": []any{0, 10, 25, 40, 60}},
		},
	}
}
