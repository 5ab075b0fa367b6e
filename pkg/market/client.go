package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"autotrader/metrics"

	"github.com/google/uuid"
)

// Client issues calls against the remote market service. It classifies
// failures into RateLimitError and RequestError and registers every call,
// success or failure, with the rate tracker exactly once. Retry policy
// lives entirely in the trade executor, never here.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	tracker    *RateTracker
}

func NewClient(baseURL, authToken string, timeout time.Duration, tracker *RateTracker) *Client {
	return &Client{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
		tracker:    tracker,
	}
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Tracker() *RateTracker {
	return c.tracker
}

// GetPrice fetches the current unit price.
func (c *Client) GetPrice(ctx context.Context) (int64, error) {
	var out priceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/price", nil, &out); err != nil {
		return 0, err
	}
	if out.Price <= 0 {
		return 0, &RequestError{Op: "get price", Err: fmt.Errorf("non-positive price %d", out.Price)}
	}
	return out.Price, nil
}

// GetOwnedUnits fetches the number of units currently owned.
func (c *Client) GetOwnedUnits(ctx context.Context) (int64, error) {
	var out holdingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/holdings", nil, &out); err != nil {
		return 0, err
	}
	if out.Units < 0 {
		return 0, &RequestError{Op: "get holdings", Err: fmt.Errorf("negative units %d", out.Units)}
	}
	return out.Units, nil
}

// GetBalance fetches the spendable balance.
func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	var out balanceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/balance", nil, &out); err != nil {
		return 0, err
	}
	if out.Balance < 0 {
		return 0, &RequestError{Op: "get balance", Err: fmt.Errorf("negative balance %d", out.Balance)}
	}
	return out.Balance, nil
}

// SubmitBuy places a single buy order of quantity units.
func (c *Client) SubmitBuy(ctx context.Context, quantity int64) (*OrderAck, error) {
	return c.submitOrder(ctx, "/api/v1/orders/buy", quantity)
}

// SubmitSell places a single sell order of quantity units.
func (c *Client) SubmitSell(ctx context.Context, quantity int64) (*OrderAck, error) {
	return c.submitOrder(ctx, "/api/v1/orders/sell", quantity)
}

func (c *Client) submitOrder(ctx context.Context, path string, quantity int64) (*OrderAck, error) {
	req := orderRequest{
		Quantity:      quantity,
		ClientOrderID: uuid.NewString(),
	}
	var ack OrderAck
	if err := c.do(ctx, http.MethodPost, path, &req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// do executes one remote call and counts its outcome.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	err := c.doRequest(ctx, method, path, payload, out)

	var rateLimited *RateLimitError
	switch {
	case err == nil:
		metrics.IncRemoteCall("ok")
	case errors.As(err, &rateLimited):
		metrics.IncRemoteCall("rate_limited")
	default:
		metrics.IncRemoteCall("failed")
	}
	return err
}

// doRequest marshals the payload, sends the call, classifies the failure
// and decodes the response. The tracker registration happens up front so
// failed calls count against the budget too.
func (c *Client) doRequest(ctx context.Context, method, path string, payload, out interface{}) error {
	c.tracker.Record()

	op := fmt.Sprintf("%s %s", method, path)

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("encode payload: %w", err)}
		}
		body = bytes.NewReader(buf)
	}

	// Construct the request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return &RateLimitError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}
