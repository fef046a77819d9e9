// Package hyperliquid talks to the venue's info and exchange endpoints. The
// two "venues" of a spread pair are two listings of the same instrument
// (e.g. "flx:TSLA" and "xyz:TSLA"), so one client serves both sides.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// MainnetAPIURL is the production API base.
	MainnetAPIURL = "https://api.hyperliquid.xyz"
	// TestnetAPIURL is the testnet API base.
	TestnetAPIURL = "https://api.hyperliquid-testnet.xyz"

	requestTimeout = 10 * time.Second
)

// Client is a REST client for the read-only info endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client against the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// L2Book fetches the current order book snapshot for one coin and returns
// its top of book.
func (c *Client) L2Book(ctx context.Context, coin string) (BookTop, error) {
	body, err := json.Marshal(infoRequest{Type: "l2Book", Coin: coin})
	if err != nil {
		return BookTop{}, fmt.Errorf("hyperliquid: marshal l2Book request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return BookTop{}, fmt.Errorf("hyperliquid: build l2Book request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return BookTop{}, fmt.Errorf("hyperliquid: l2Book %q: %w", coin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return BookTop{}, fmt.Errorf("hyperliquid: l2Book %q: status %d: %s", coin, resp.StatusCode, snippet)
	}

	var book l2Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return BookTop{}, fmt.Errorf("hyperliquid: decode l2Book %q: %w", coin, err)
	}
	return book.top()
}
