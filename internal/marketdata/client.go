package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is an HTTP client for the aggregates/quote provider API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type lastTradeResponse struct {
	Status  string `json:"status"`
	Results struct {
		Price     float64 `json:"p"`
		Timestamp int64   `json:"t"` // Unix milliseconds
	} `json:"results"`
}

type aggregatesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Timestamp int64   `json:"t"` // Unix milliseconds
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

// GetQuote returns the most recent traded price for a symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/v2/last/trade/%s", c.baseURL, url.PathEscape(symbol))

	var resp lastTradeResponse
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	if resp.Results.Price <= 0 {
		return nil, fmt.Errorf("no quote available for %s", symbol)
	}

	return &Quote{
		Symbol: symbol,
		Price:  resp.Results.Price,
		Time:   time.UnixMilli(resp.Results.Timestamp),
	}, nil
}

// GetAggregates returns up to limit OHLCV bars for a symbol, oldest first
func (c *Client) GetAggregates(ctx context.Context, symbol, timeframe string, limit int) ([]Bar, error) {
	multiplier, timespan, err := parseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	to := time.Now()
	from := to.Add(-lookbackWindow(multiplier, timespan, limit))

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%d/%d",
		c.baseURL, url.PathEscape(symbol), multiplier, timespan,
		from.UnixMilli(), to.UnixMilli())

	params := url.Values{}
	params.Set("sort", "asc")
	params.Set("limit", strconv.Itoa(limit*2))

	var resp aggregatesResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s aggregates: %w", symbol, timeframe, err)
	}

	bars := make([]Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, Bar{
			Time:   time.UnixMilli(r.Timestamp),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	// The provider may return more history than asked for; keep the most
	// recent limit bars, still oldest first.
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	return bars, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}

// parseTimeframe maps an engine timeframe key to the provider's
// multiplier/timespan pair. Bare numeric strings are treated as minute
// multiples.
func parseTimeframe(timeframe string) (int, string, error) {
	switch timeframe {
	case "daily", "day":
		return 1, "day", nil
	case "weekly", "week":
		return 1, "week", nil
	case "1h":
		return 1, "hour", nil
	case "4h":
		return 4, "hour", nil
	}

	key := strings.TrimSuffix(timeframe, "m")
	minutes, err := strconv.Atoi(key)
	if err != nil || minutes <= 0 {
		return 0, "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return minutes, "minute", nil
}

// lookbackWindow computes the wall-clock span needed to cover limit bars,
// padded for market-closed hours and weekends.
func lookbackWindow(multiplier int, timespan string, limit int) time.Duration {
	switch timespan {
	case "minute":
		return time.Duration(multiplier*limit) * time.Minute * 4
	case "hour":
		return time.Duration(multiplier*limit) * time.Hour * 4
	case "day":
		return time.Duration(limit) * 24 * time.Hour * 2
	case "week":
		return time.Duration(limit) * 7 * 24 * time.Hour * 2
	default:
		return time.Duration(limit) * 24 * time.Hour
	}
}
