package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/pkg/config"
	"github.com/wonny/equitylens/pkg/httputil"
	"github.com/wonny/equitylens/pkg/logger"
)

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("ALPHA_VANTAGE_API_KEY not configured")

// Soft error keys. Alpha Vantage answers 200 with one of these instead of data.
const (
	KeyErrorMessage = "Error Message"
	KeyNote         = "Note"
	KeyInformation  = "Information"
)

// APIError is a soft error returned in a 200 response body
type APIError struct {
	Function string
	Symbol   string
	Kind     string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphavantage %s %s: %s: %s", e.Function, e.Symbol, e.Kind, e.Message)
}

// IsRateLimited reports whether the provider asked us to slow down
func (e *APIError) IsRateLimited() bool {
	return e.Kind == KeyNote
}

// Client fetches fundamentals, daily prices and technical indicators
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	apiKey     string
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new Alpha Vantage client
func NewClient(httpClient *httputil.Client, cfg config.AlphaVantageConfig, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		logger:     log.Component("alphavantage"),
	}, nil
}

// GetOverview fetches the company overview (P/E, EV/EBITDA, ...)
func (c *Client) GetOverview(ctx context.Context, symbol string) (payload.Payload, error) {
	return c.query(ctx, "OVERVIEW", symbol, nil)
}

// GetIncomeStatement fetches annual income statements
func (c *Client) GetIncomeStatement(ctx context.Context, symbol string) (payload.Payload, error) {
	return c.query(ctx, "INCOME_STATEMENT", symbol, nil)
}

// GetBalanceSheet fetches annual balance sheets
func (c *Client) GetBalanceSheet(ctx context.Context, symbol string) (payload.Payload, error) {
	return c.query(ctx, "BALANCE_SHEET", symbol, nil)
}

// GetCashFlow fetches annual cash flow statements
func (c *Client) GetCashFlow(ctx context.Context, symbol string) (payload.Payload, error) {
	return c.query(ctx, "CASH_FLOW", symbol, nil)
}

// GetEarnings fetches annual and quarterly EPS
func (c *Client) GetEarnings(ctx context.Context, symbol string) (payload.Payload, error) {
	return c.query(ctx, "EARNINGS", symbol, nil)
}

// GetDailySeries fetches the daily OHLCV series
func (c *Client) GetDailySeries(ctx context.Context, symbol string) (payload.Payload, error) {
	return c.query(ctx, "TIME_SERIES_DAILY", symbol, nil)
}

// GetTechnicalIndicator fetches one indicator series
func (c *Client) GetTechnicalIndicator(ctx context.Context, function, symbol, interval string, params map[string]string) (payload.Payload, error) {
	extra := url.Values{}
	extra.Set("interval", interval)
	for k, v := range params {
		extra.Set(k, v)
	}
	return c.query(ctx, function, symbol, extra)
}

func (c *Client) query(ctx context.Context, function, symbol string, extra url.Values) (payload.Payload, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	var out payload.Payload
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("alphavantage %s %s: %w", function, symbol, err)
	}

	if apiErr := softError(function, symbol, out); apiErr != nil {
		c.logger.WithFields(map[string]interface{}{
			"function": function,
			"symbol":   symbol,
			"kind":     apiErr.Kind,
		}).Warn("Alpha Vantage returned an error body")
		return nil, apiErr
	}

	c.logger.WithFields(map[string]interface{}{
		"function": function,
		"symbol":   symbol,
	}).Debug("Fetched Alpha Vantage payload")

	return out, nil
}

// softError detects an error body. Only bodies made of nothing but the
// message key count; data payloads may carry an "Information" note.
func softError(function, symbol string, p payload.Payload) *APIError {
	for _, key := range []string{KeyErrorMessage, KeyNote, KeyInformation} {
		msg, ok := p[key].(string)
		if !ok {
			continue
		}
		if key == KeyErrorMessage || len(p) == 1 {
			return &APIError{Function: function, Symbol: symbol, Kind: key, Message: msg}
		}
	}
	return nil
}
