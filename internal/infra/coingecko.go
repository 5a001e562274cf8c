package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

// coinIDs maps tracked symbols to CoinGecko coin ids.
var coinIDs = map[domain.Symbol]string{
	domain.BTC: "bitcoin",
	domain.LTC: "litecoin",
	domain.XMR: "monero",
}

// PriceClient fetches USD prices for the tracked coins from the CoinGecko
// simple/price endpoint. One request per call, no retries: the refresh loop's
// fixed interval is the retry policy.
type PriceClient struct {
	apiURL     string
	userAgent  string
	httpClient *http.Client
}

// NewPriceClient creates a price client with the configured endpoint and a
// bounded timeout so a hung request cannot stall the refresh loop.
func NewPriceClient(cfg *Config) *PriceClient {
	return &PriceClient{
		apiURL:    cfg.API.Price.URL,
		userAgent: cfg.API.Price.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout(),
		},
	}
}

// FetchPrices issues one GET to the price API and returns a complete
// snapshot. Any transport error, non-200 status, or missing field fails the
// whole fetch; the caller decides how to recover.
func (c *PriceClient) FetchPrices(ctx context.Context) (domain.PriceSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed response body", domain.ErrFetchFailed)
	}

	snapshot := make(domain.PriceSnapshot, len(coinIDs))
	for sym, id := range coinIDs {
		field := gjson.GetBytes(body, id+".usd")
		// A null or string value would read as 0 through Float(); only a
		// JSON number counts as a present price.
		if field.Type != gjson.Number {
			return nil, fmt.Errorf("%w: missing or non-numeric %s.usd in response", domain.ErrFetchFailed, id)
		}
		price, err := decimal.NewFromString(field.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad price for %s: %v", domain.ErrFetchFailed, id, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price for %s", domain.ErrFetchFailed, id)
		}
		snapshot[sym] = price
	}

	return snapshot, nil
}
