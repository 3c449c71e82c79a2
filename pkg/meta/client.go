// Package meta is a small client for the Meta Marketing API insights edge.
package meta

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/resilience"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v21.0"
	defaultPageLimit  = 500
	maxPages          = 1000
)

// Level is the aggregation level of an insights query.
type Level string

// Supported levels.
const (
	LevelCampaign Level = "campaign"
	LevelAd       Level = "ad"
)

// Row is one insights record: field name to scalar or action list.
// Numbers arrive as strings or json.Number.
type Row = map[string]any

// Query selects one account's insights for an inclusive date range.
type Query struct {
	AccountID string
	Fields    []string
	Since     string // YYYY-MM-DD
	Until     string // YYYY-MM-DD
	Level     Level
}

// Client fetches insights rows.
type Client interface {
	Insights(ctx context.Context, q Query) ([]Row, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Graph API host.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithAPIVersion overrides the Graph API version path segment.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		if v != "" {
			c.version = v
		}
	}
}

// WithAppSecret enables appsecret_proof signing of every request.
func WithAppSecret(secret string) Option {
	return func(c *httpClient) {
		c.appSecret = secret
	}
}

// WithPageLimit sets the page size requested from the API.
func WithPageLimit(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	accessToken string
	appSecret   string
	baseURL     string
	version     string
	pageLimit   int
	http        *http.Client
}

// NewClient creates an insights client authenticated with accessToken.
func NewClient(accessToken string, opts ...Option) Client {
	c := &httpClient{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		version:     defaultAPIVersion,
		pageLimit:   defaultPageLimit,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AppSecretProof returns the hex HMAC-SHA256 of token keyed by secret.
func AppSecretProof(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// AccountPath normalises an ad account id to its act_ form.
func AccountPath(id string) string {
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

func (c *httpClient) firstPageURL(q Query) (string, error) {
	if q.AccountID == "" {
		return "", eris.New("meta: account id is required")
	}
	timeRange, err := json.Marshal(map[string]string{"since": q.Since, "until": q.Until})
	if err != nil {
		return "", eris.Wrap(err, "meta: encode time range")
	}

	v := url.Values{}
	v.Set("fields", strings.Join(q.Fields, ","))
	v.Set("time_range", string(timeRange))
	v.Set("time_increment", "1")
	v.Set("limit", strconv.Itoa(c.pageLimit))
	if q.Level != "" {
		v.Set("level", string(q.Level))
	}
	v.Set("access_token", c.accessToken)
	if c.appSecret != "" {
		v.Set("appsecret_proof", AppSecretProof(c.accessToken, c.appSecret))
	}
	return fmt.Sprintf("%s/%s/%s/insights?%s", c.baseURL, c.version, AccountPath(q.AccountID), v.Encode()), nil
}

type page struct {
	Data   []Row `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func (c *httpClient) Insights(ctx context.Context, q Query) ([]Row, error) {
	next, err := c.firstPageURL(q)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for pages := 0; next != ""; pages++ {
		if pages >= maxPages {
			return nil, eris.Errorf("meta: more than %d pages for %s", maxPages, q.AccountID)
		}
		p, err := c.get(ctx, next)
		if err != nil {
			return nil, eris.Wrapf(err, "meta: insights %s %s..%s", AccountPath(q.AccountID), q.Since, q.Until)
		}
		rows = append(rows, p.Data...)
		next = p.Paging.Next
	}
	return rows, nil
}

func (c *httpClient) get(ctx context.Context, target string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "meta: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "meta: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "meta: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classify(resp.StatusCode, body)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var p page
	if err := dec.Decode(&p); err != nil {
		return nil, eris.Wrap(err, "meta: unmarshal response")
	}
	return &p, nil
}
