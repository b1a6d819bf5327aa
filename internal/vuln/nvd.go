package vuln

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cveorigin/internal/telemetry"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const nvdCVEURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// Public NVD limits: 5 requests per 30s without a key, 50 with one.
const (
	DefaultRate    = 5.0 / 30
	DefaultKeyRate = 50.0 / 30
)

// NVDClient queries the NVD CVE API 2.0.
type NVDClient struct {
	HTTPClient *http.Client
	APIURL     string
	APIKey     string
	Limiter    *rate.Limiter
}

// NewNVDClient creates a client allowing perSecond requests. A non-positive
// rate picks the public default for the presence of apiKey.
func NewNVDClient(apiKey string, perSecond float64) *NVDClient {
	if perSecond <= 0 {
		perSecond = DefaultRate
		if apiKey != "" {
			perSecond = DefaultKeyRate
		}
	}
	return &NVDClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIURL:     nvdCVEURL,
		APIKey:     apiKey,
		Limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// CWEs returns every weakness description value recorded for cveID, in
// document order.
func (c *NVDClient) CWEs(ctx context.Context, cveID string) ([]string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.APIURL + "?" + url.Values{"cveId": {cveID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build NVD request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("apiKey", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		telemetry.TrackNVDRequest("error")
		return nil, fmt.Errorf("NVD API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		telemetry.TrackNVDRequest("status")
		return nil, fmt.Errorf("NVD API returned status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.TrackNVDRequest("error")
		return nil, fmt.Errorf("failed to read NVD response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		telemetry.TrackNVDRequest("invalid")
		return nil, fmt.Errorf("NVD response for %s is not valid JSON", cveID)
	}
	telemetry.TrackNVDRequest("ok")

	values := []string{}
	for _, v := range gjson.GetBytes(body, "vulnerabilities.#.cve.weaknesses.#.description.#.value").Array() {
		for _, w := range v.Array() {
			for _, d := range w.Array() {
				values = append(values, d.String())
			}
		}
	}
	return values, nil
}

// Fetch looks up every CVE sequentially. A failed lookup is logged and the CVE
// is reported with no weaknesses; only cancellation stops the run.
func Fetch(ctx context.Context, lookup Lookup, cveIDs []string, logger *slog.Logger) ([]Weaknesses, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]Weaknesses, 0, len(cveIDs))
	for _, id := range cveIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		cwes, err := lookup.CWEs(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.Warn("CWE lookup failed", "cve", id, "error", err)
			telemetry.TrackError("nvd")
			cwes = nil
		}
		out = append(out, Weaknesses{CVEID: id, CWEs: cwes})
	}
	return out, nil
}
