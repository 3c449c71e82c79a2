// Package transform reshapes the campaign dataset into the fixed column
// layout consumed by the BI dashboards.
package transform

import (
	"github.com/sells-group/adreport-cli/internal/dataset"
	"github.com/sells-group/adreport-cli/internal/model"
)

// Columns is the downstream column order.
var Columns = []string{
	"account", "date_start", "date_stop", "campaign_id", "campaign_name",
	"spend", "impressions", "reach", "video_25pct", "clicks_all", "link_clicks",
	"ctr", "unique_link_clicks_ctr", "first_replies", "two_way_conversations",
}

// DefaultAccountRenames is the label substitution applied downstream.
var DefaultAccountRenames = map[string]string{"illapa": "illa"}

// SourceRow is a loosely typed dataset row. Columns that are absent or
// hold non-numeric text decode as null instead of failing the load.
type SourceRow struct {
	AccountID           string          `csv:"account_id"`
	Account             string          `csv:"account"`
	Date                string          `csv:"date"`
	DateStart           string          `csv:"date_start"`
	CampaignID          string          `csv:"campaign_id"`
	CampaignName        string          `csv:"campaign_name"`
	Spend               model.NullFloat `csv:"spend"`
	Impressions         model.NullFloat `csv:"impressions"`
	Reach               model.NullFloat `csv:"reach"`
	Video25Pct          model.NullFloat `csv:"video_25pct"`
	ClicksAll           model.NullFloat `csv:"clicks_all"`
	LinkClicks          model.NullFloat `csv:"link_clicks"`
	CTR                 model.NullFloat `csv:"ctr"`
	UniqueLinkClicksCTR model.NullFloat `csv:"unique_link_clicks_ctr"`
	MessagingStarted    model.NullFloat `csv:"messaging_started"`
	FirstReplies        model.NullFloat `csv:"first_replies"`
	TwoWayConversations model.NullFloat `csv:"two_way_conversations"`
}

// Row is one downstream row.
type Row struct {
	Account             string          `csv:"account"`
	DateStart           model.Date      `csv:"date_start"`
	DateStop            model.Date      `csv:"date_stop"`
	CampaignID          string          `csv:"campaign_id"`
	CampaignName        string          `csv:"campaign_name"`
	Spend               model.NullFloat `csv:"spend"`
	Impressions         model.NullFloat `csv:"impressions"`
	Reach               model.NullFloat `csv:"reach"`
	Video25Pct          model.NullFloat `csv:"video_25pct"`
	ClicksAll           model.NullFloat `csv:"clicks_all"`
	LinkClicks          model.NullFloat `csv:"link_clicks"`
	CTR                 model.NullFloat `csv:"ctr"`
	UniqueLinkClicksCTR model.NullFloat `csv:"unique_link_clicks_ctr"`
	FirstReplies        model.NullFloat `csv:"first_replies"`
	TwoWayConversations model.NullFloat `csv:"two_way_conversations"`
}

// Values returns the row's cells in Columns order. Null numbers are nil.
func (r Row) Values() []any {
	out := []any{r.Account, nullDate(r.DateStart), nullDate(r.DateStop), r.CampaignID, r.CampaignName}
	for _, n := range r.metrics() {
		if n.Valid {
			out = append(out, n.Float64)
		} else {
			out = append(out, nil)
		}
	}
	return out
}

func (r Row) metrics() []model.NullFloat {
	return []model.NullFloat{
		r.Spend, r.Impressions, r.Reach, r.Video25Pct, r.ClicksAll, r.LinkClicks,
		r.CTR, r.UniqueLinkClicksCTR, r.FirstReplies, r.TwoWayConversations,
	}
}

func nullDate(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstValid(vals ...model.NullFloat) model.NullFloat {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return model.NullFloat{}
}

// Build reshapes source rows. date_start prefers an existing date_start
// column over date and is copied into date_stop; unparseable dates become
// null. renames substitutes whole account labels.
func Build(src []SourceRow, renames map[string]string) []Row {
	out := make([]Row, 0, len(src))
	for _, s := range src {
		account := firstNonEmpty(s.Account, s.AccountID)
		if to, ok := renames[account]; ok {
			account = to
		}
		date, err := model.ParseDate(firstNonEmpty(s.DateStart, s.Date))
		if err != nil {
			date = model.Date{}
		}
		out = append(out, Row{
			Account:             account,
			DateStart:           date,
			DateStop:            date,
			CampaignID:          s.CampaignID,
			CampaignName:        s.CampaignName,
			Spend:               s.Spend,
			Impressions:         s.Impressions,
			Reach:               s.Reach,
			Video25Pct:          s.Video25Pct,
			ClicksAll:           s.ClicksAll,
			LinkClicks:          s.LinkClicks,
			CTR:                 s.CTR,
			UniqueLinkClicksCTR: s.UniqueLinkClicksCTR,
			FirstReplies:        firstValid(s.FirstReplies, s.MessagingStarted),
			TwoWayConversations: s.TwoWayConversations,
		})
	}
	return out
}

// FromRecords converts typed dataset records into source rows.
func FromRecords(records []model.PerformanceRecord) []SourceRow {
	out := make([]SourceRow, 0, len(records))
	for _, r := range records {
		out = append(out, SourceRow{
			AccountID:           r.AccountLabel,
			Date:                r.Date.String(),
			CampaignID:          r.CampaignID,
			CampaignName:        r.CampaignName,
			Spend:               model.Float(r.Spend),
			Impressions:         model.Float(float64(r.Impressions)),
			Reach:               model.Float(float64(r.Reach)),
			Video25Pct:          model.Float(float64(r.Video25Pct)),
			ClicksAll:           model.Float(float64(r.ClicksAll)),
			LinkClicks:          model.Float(float64(r.LinkClicks)),
			CTR:                 model.Float(r.CTR),
			UniqueLinkClicksCTR: model.Float(r.UniqueLinkClicksCTR),
			MessagingStarted:    model.Float(float64(r.MessagingStarted)),
			TwoWayConversations: model.Float(float64(r.TwoWayConversations)),
		})
	}
	return out
}

// Load reads the campaign dataset loosely for reshaping.
func Load(path string) ([]SourceRow, error) {
	return dataset.ReadFile[SourceRow](path)
}

// WriteCSV writes rows to path with a header and byte order mark.
func WriteCSV(path string, rows []Row) error {
	return dataset.WriteFile(path, rows)
}
