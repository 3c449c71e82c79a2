// Package extract flattens raw insights rows into dataset records.
package extract

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/model"
)

// Action types read from the "actions" list.
const (
	ActionLinkClick       = "link_click"
	ActionVideoView       = "video_view"
	ActionTwoWayMessaging = "onsite_conversion.messaging_user_depth_2_message_send"
)

// MessagingStartedActions are the action types counted as a started
// conversation, in the order the API tends to report them.
var MessagingStartedActions = []string{
	"onsite_conversion.messaging_conversation_started_7d",
	"onsite_conversion.messaging_conversation_started",
	"onsite_conversion.messaging_first_reply",
}

// CampaignFields is the field list requested at campaign level.
var CampaignFields = []string{
	"date_start",
	"campaign_id", "campaign_name",
	"spend", "impressions", "reach",
	"video_p25_watched_actions",
	"clicks", "ctr", "unique_link_clicks_ctr",
	"actions",
}

// VideoFields is the field list requested at ad level.
var VideoFields = []string{
	"ad_id",
	"campaign_id",
	"date_start",
	"impressions",
	"video_play_actions",
	"video_play_curve_actions",
	"video_p100_watched_actions",
}

// ErrMalformed marks a row that cannot become a record.
var ErrMalformed = eris.New("extract: malformed row")

func isMessagingStarted(t string) bool {
	for _, m := range MessagingStartedActions {
		if t == m {
			return true
		}
	}
	return false
}

func rowDate(row map[string]any) (model.Date, error) {
	raw := toString(row["date_start"])
	if raw == "" {
		return model.Date{}, eris.Wrap(ErrMalformed, "extract: missing date_start")
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, eris.Wrapf(ErrMalformed, "extract: bad date_start %q", raw)
	}
	return d, nil
}

// Campaign flattens one campaign-level row for the given account label.
func Campaign(account string, row map[string]any) (model.PerformanceRecord, error) {
	date, err := rowDate(row)
	if err != nil {
		return model.PerformanceRecord{}, err
	}
	campaignID := toString(row["campaign_id"])
	if campaignID == "" {
		return model.PerformanceRecord{}, eris.Wrap(ErrMalformed, "extract: missing campaign_id")
	}

	rec := model.PerformanceRecord{
		AccountLabel:        account,
		Date:                date,
		CampaignID:          campaignID,
		CampaignName:        toString(row["campaign_name"]),
		Spend:               toFloat(row["spend"]),
		Impressions:         toInt(row["impressions"]),
		Reach:               toInt(row["reach"]),
		Video25Pct:          sumActions(row["video_p25_watched_actions"], ActionVideoView),
		ClicksAll:           toInt(row["clicks"]),
		CTR:                 toFloat(row["ctr"]),
		UniqueLinkClicksCTR: toFloat(row["unique_link_clicks_ctr"]),
	}

	for _, a := range actions(row["actions"]) {
		val := toInt(a.Value)
		switch {
		case a.Type == ActionLinkClick:
			rec.LinkClicks = val
		case isMessagingStarted(a.Type):
			// The first nonzero value sticks; later event types are not added.
			if rec.MessagingStarted == 0 {
				rec.MessagingStarted = val
			}
		case a.Type == ActionTwoWayMessaging:
			rec.TwoWayConversations = val
		}
	}
	return rec, nil
}

// curve3s returns the 3-second watch percentage: index 3 of the first
// video_view entry's curve. Shorter or missing curves give 0.
func curve3s(v any) float64 {
	list, ok := v.([]any)
	if !ok {
		return 0
	}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := m["action_type"].(string); t != ActionVideoView {
			continue
		}
		values, _ := m["value"].([]any)
		if len(values) > 3 {
			return toFloat(values[3])
		}
		return 0
	}
	return 0
}

// Video flattens one ad-level row for the given account label.
func Video(account string, row map[string]any) (model.VideoRecord, error) {
	date, err := rowDate(row)
	if err != nil {
		return model.VideoRecord{}, err
	}
	adID := toString(row["ad_id"])
	if adID == "" {
		return model.VideoRecord{}, eris.Wrap(ErrMalformed, "extract: missing ad_id")
	}

	impressions := toInt(row["impressions"])
	plays := sumActions(row["video_play_actions"], ActionVideoView)
	pct3s := curve3s(row["video_play_curve_actions"])
	full := sumActions(row["video_p100_watched_actions"], ActionVideoView)

	var views3s int64
	if plays > 0 && pct3s > 0 {
		views3s = int64(roundHalfEven(float64(plays)*(pct3s/100), 0))
	}

	rec := model.VideoRecord{
		Account:          account,
		AdID:             adID,
		CampaignID:       toString(row["campaign_id"]),
		DateStart:        date,
		Impressions:      impressions,
		VideoPlays:       plays,
		Video3sViews:     views3s,
		Video100PctViews: full,
		Thruplay:         full,
		Curve3sPctAPI:    pct3s,
	}
	if impressions > 0 {
		rec.Retention3sPct = float64(views3s) / float64(impressions)
	}
	if views3s > 0 {
		rec.RetentionCompletePct = float64(full) / float64(views3s)
	}
	return rec, nil
}

// Batch runs fn over rows, dropping the ones that fail with a warning.
func Batch[T any](account string, rows []map[string]any, fn func(string, map[string]any) (T, error)) []T {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		rec, err := fn(account, row)
		if err != nil {
			zap.L().Warn("extract: dropping row",
				zap.String("account", account),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, rec)
	}
	return out
}
