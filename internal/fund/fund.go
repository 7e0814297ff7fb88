// Package fund looks up live quote data for a listed real-estate fund.
package fund

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the provider has no quote for the ticker.
var ErrNotFound = errors.New("fund quote not found")

// Quote is the market snapshot of a fund.
type Quote struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	MarketCap     float64 `json:"market_cap"`
	Volume        float64 `json:"volume"`
	DividendYield float64 `json:"dividend_yield"`
}

// Provider fetches fund quotes.
type Provider interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

// NormalizeTicker upper-cases the ticker and appends the B3 suffix when missing.
func NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || strings.HasSuffix(t, constants.TickerSuffix) {
		return t
	}
	return t + constants.TickerSuffix
}

// HTTPProvider queries a Yahoo Finance compatible quote endpoint.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPProvider creates a provider for baseURL with the given timeout.
func NewHTTPProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPProvider {
	if baseURL == "" {
		baseURL = constants.DefaultQuoteEndpoint
	}
	if timeout <= 0 {
		timeout = constants.DefaultQuoteTimeoutSeconds * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                      string  `json:"symbol"`
			LongName                    string  `json:"longName"`
			ShortName                   string  `json:"shortName"`
			RegularMarketPrice          float64 `json:"regularMarketPrice"`
			RegularMarketPreviousClose  float64 `json:"regularMarketPreviousClose"`
			MarketCap                   float64 `json:"marketCap"`
			RegularMarketVolume         float64 `json:"regularMarketVolume"`
			TrailingAnnualDividendYield float64 `json:"trailingAnnualDividendYield"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// Quote fetches the latest quote for ticker.
func (p *HTTPProvider) Quote(ctx context.Context, ticker string) (*Quote, error) {
	symbol := NormalizeTicker(ticker)
	if symbol == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", p.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	p.logger.Debug("fetching fund quote",
		zap.String("op", "fund.Quote"),
		zap.String("symbol", symbol),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request for %s failed: %w", symbol, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote for %s: %w", symbol, err)
	}
	if e := payload.QuoteResponse.Error; e != nil {
		return nil, fmt.Errorf("quote provider error for %s: %s %s", symbol, e.Code, e.Description)
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	r := payload.QuoteResponse.Result[0]
	name := r.LongName
	if name == "" {
		name = r.ShortName
	}
	if name == "" {
		name = symbol
	}

	quote := &Quote{
		Ticker:        symbol,
		Name:          name,
		Price:         r.RegularMarketPrice,
		PreviousClose: r.RegularMarketPreviousClose,
		MarketCap:     r.MarketCap,
		Volume:        r.RegularMarketVolume,
		DividendYield: r.TrailingAnnualDividendYield,
	}

	p.logger.Info("fetched fund quote",
		zap.String("op", "fund.Quote"),
		zap.String("symbol", symbol),
		zap.Float64("price", quote.Price),
	)
	return quote, nil
}
