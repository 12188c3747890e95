// Package yahoo implements the public QuoteProvider on the Yahoo Finance
// v8 chart API. No credentials are sent.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/microcosm-cc/bluemonday"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// DefaultBaseURL is the production chart API host.
const DefaultBaseURL = "https://query2.finance.yahoo.com"

const (
	userAgent      = "signalforge/1.0"
	maxBodyBytes   = 1 << 20
	maxDetailRunes = 300

	// maxCachedCharts bounds the revalidation cache.
	maxCachedCharts = 256
)

// ErrSymbolNotFound is reported when the upstream has no data for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Compile-time interface satisfaction check.
var _ driven.QuoteProvider = (*Client)(nil)

// Client is the public quote provider.
type Client struct {
	http      *http.Client
	baseURL   string
	sanitizer *bluemonday.Policy
}

// NewClient creates a Client on an httpcache transport. Every lookup still
// reaches the upstream; the cache only lets an unchanged chart be
// revalidated with a conditional request instead of downloaded again.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(&http.Client{
		Timeout:   timeout,
		Transport: httpcache.NewTransport(newBoundedCache(maxCachedCharts)),
	}, baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for tests that point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// upstreamError carries the message and detail for a failure envelope.
type upstreamError struct {
	message string
	detail  string
}

func (e *upstreamError) Error() string { return e.message }

// chartResponse is the subset of the chart document inspected here. The
// result itself is passed through without decoding.
type chartResponse struct {
	Chart struct {
		Result []json.RawMessage `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote looks up symbol once. creds is ignored.
func (c *Client) FetchQuote(ctx context.Context, _ *model.Credentials, symbol string) model.QuoteResult {
	data, err := c.fetchChart(ctx, symbol)
	if err != nil {
		var uerr *upstreamError
		if errors.As(err, &uerr) {
			return model.QuoteFailed(uerr.message, uerr.detail)
		}
		return model.QuoteFailed(err.Error(), "yahoo finance request failed")
	}

	return model.QuoteSucceeded(model.PublicQuote{Data: data})
}

func (c *Client) fetchChart(ctx context.Context, symbol string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	// A quote test must be live, never a replay of a fresh cache entry.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &upstreamError{message: err.Error(), detail: "yahoo finance unreachable"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &upstreamError{message: err.Error(), detail: "reading yahoo finance response"}
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)

	if decodeErr == nil && chart.Chart.Error != nil {
		message := chart.Chart.Error.Description
		if chart.Chart.Error.Code == "Not Found" || resp.StatusCode == http.StatusNotFound {
			message = ErrSymbolNotFound.Error()
		}
		return nil, &upstreamError{
			message: message,
			detail:  fmt.Sprintf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description),
		}
	}

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("yahoo finance http %d", resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			message = ErrSymbolNotFound.Error()
		}
		return nil, &upstreamError{message: message, detail: c.detailFromBody(body)}
	}

	if decodeErr != nil {
		return nil, &upstreamError{message: "malformed yahoo finance response", detail: decodeErr.Error()}
	}

	if len(chart.Chart.Result) == 0 || string(chart.Chart.Result[0]) == "null" {
		return nil, &upstreamError{
			message: ErrSymbolNotFound.Error(),
			detail:  fmt.Sprintf("no chart result for %s", symbol),
		}
	}

	return chart.Chart.Result[0], nil
}

// detailFromBody strips markup from an error page and truncates it.
func (c *Client) detailFromBody(body []byte) string {
	text := strings.Join(strings.Fields(c.sanitizer.Sanitize(string(body))), " ")
	if text == "" {
		return "empty response body"
	}
	if runes := []rune(text); len(runes) > maxDetailRunes {
		return string(runes[:maxDetailRunes]) + "…"
	}
	return text
}
