package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko queries the CoinGecko simple price endpoints.
type CoinGecko struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCoinGecko builds a client; an empty baseURL uses the public API.
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type simplePrice map[string]struct {
	USD *float64 `json:"usd"`
}

// NativePrice returns the USD price of a coin id such as "ethereum".
func (c *CoinGecko) NativePrice(ctx context.Context, coinID string) (float64, error) {
	prices, err := c.NativePrices(ctx, []string{coinID})
	if err != nil {
		return 0, err
	}
	price, ok := prices[coinID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", coinID, ErrPriceNotFound)
	}
	return price, nil
}

// NativePrices returns USD prices for several coin ids in one request. Ids the
// provider does not know are absent from the result.
func (c *CoinGecko) NativePrices(ctx context.Context, coinIDs []string) (map[string]float64, error) {
	if len(coinIDs) == 0 {
		return map[string]float64{}, nil
	}
	params := url.Values{}
	params.Set("ids", strings.Join(coinIDs, ","))
	params.Set("vs_currencies", "usd")

	var body simplePrice
	if err := c.get(ctx, "/simple/price", params, &body); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(body))
	for id, entry := range body {
		if entry.USD != nil {
			out[id] = *entry.USD
		}
	}
	return out, nil
}

// TokenPrice returns the USD price of a token contract on a platform. EVM
// contracts come back keyed lower-case; Solana mints keep their case.
func (c *CoinGecko) TokenPrice(ctx context.Context, platform, contract string) (float64, error) {
	params := url.Values{}
	params.Set("contract_addresses", contract)
	params.Set("vs_currencies", "usd")

	var body simplePrice
	if err := c.get(ctx, "/simple/token_price/"+url.PathEscape(platform), params, &body); err != nil {
		return 0, err
	}

	entry, ok := body[contract]
	if !ok {
		entry, ok = body[strings.ToLower(contract)]
	}
	if !ok || entry.USD == nil {
		return 0, fmt.Errorf("%s on %s: %w", contract, platform, ErrPriceNotFound)
	}
	return *entry.USD, nil
}

func (c *CoinGecko) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
