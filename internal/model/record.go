// Package model defines the record types shared by every stage of the
// ads reporting pipeline.
package model

// PerformanceRecord is one campaign-day row of the durable dataset.
// AccountLabel is persisted under the historical column name account_id.
type PerformanceRecord struct {
	AccountLabel        string  `csv:"account_id" json:"account_id"`
	Date                Date    `csv:"date" json:"date"`
	CampaignID          string  `csv:"campaign_id" json:"campaign_id"`
	CampaignName        string  `csv:"campaign_name" json:"campaign_name"`
	Spend               float64 `csv:"spend" json:"spend"`
	Impressions         int64   `csv:"impressions" json:"impressions"`
	Reach               int64   `csv:"reach" json:"reach"`
	Video25Pct          int64   `csv:"video_25pct" json:"video_25pct"`
	ClicksAll           int64   `csv:"clicks_all" json:"clicks_all"`
	LinkClicks          int64   `csv:"link_clicks" json:"link_clicks"`
	CTR                 float64 `csv:"ctr" json:"ctr"`
	UniqueLinkClicksCTR float64 `csv:"unique_link_clicks_ctr" json:"unique_link_clicks_ctr"`
	MessagingStarted    int64   `csv:"messaging_started" json:"messaging_started"`
	TwoWayConversations int64   `csv:"two_way_conversations" json:"two_way_conversations"`
}

// RecordKey is the natural key of a PerformanceRecord.
type RecordKey struct {
	AccountLabel string
	Date         Date
	CampaignID   string
}

// Key returns the natural key.
func (r PerformanceRecord) Key() RecordKey {
	return RecordKey{AccountLabel: r.AccountLabel, Date: r.Date, CampaignID: r.CampaignID}
}

// Less orders records by (account_id, date, campaign_id).
func (r PerformanceRecord) Less(o PerformanceRecord) bool {
	if r.AccountLabel != o.AccountLabel {
		return r.AccountLabel < o.AccountLabel
	}
	if c := r.Date.Compare(o.Date); c != 0 {
		return c < 0
	}
	return r.CampaignID < o.CampaignID
}

// VideoRecord is one ad-day row of the ad-level video dataset.
type VideoRecord struct {
	Account              string  `csv:"account" json:"account"`
	AdID                 string  `csv:"ad_id" json:"ad_id"`
	CampaignID           string  `csv:"campaign_id" json:"campaign_id"`
	DateStart            Date    `csv:"date_start" json:"date_start"`
	Impressions          int64   `csv:"impressions" json:"impressions"`
	VideoPlays           int64   `csv:"video_plays" json:"video_plays"`
	Video3sViews         int64   `csv:"video_3s_views" json:"video_3s_views"`
	Video100PctViews     int64   `csv:"video_100pct_views" json:"video_100pct_views"`
	Retention3sPct       float64 `csv:"retention_3s_pct" json:"retention_3s_pct"`
	RetentionCompletePct float64 `csv:"retention_complete_pct" json:"retention_complete_pct"`
	Thruplay             int64   `csv:"thruplay" json:"thruplay"`
	Curve3sPctAPI        float64 `csv:"curve_3s_pct_api" json:"curve_3s_pct_api"`
}

// VideoKey is the natural key of a VideoRecord.
type VideoKey struct {
	Account    string
	AdID       string
	CampaignID string
	DateStart  Date
}

// Key returns the natural key.
func (r VideoRecord) Key() VideoKey {
	return VideoKey{Account: r.Account, AdID: r.AdID, CampaignID: r.CampaignID, DateStart: r.DateStart}
}

// Less orders video records by (account, date_start, campaign_id, ad_id).
func (r VideoRecord) Less(o VideoRecord) bool {
	if r.Account != o.Account {
		return r.Account < o.Account
	}
	if c := r.DateStart.Compare(o.DateStart); c != 0 {
		return c < 0
	}
	if r.CampaignID != o.CampaignID {
		return r.CampaignID < o.CampaignID
	}
	return r.AdID < o.AdID
}
