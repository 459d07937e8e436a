// Package topstep talks to the TopstepX (ProjectX Gateway) REST API.
package topstep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/riskgate/broker"
)

// DefaultURL is the TopstepX gateway.
const DefaultURL = "https://api.topstepx.com"

// ErrAuth is returned when the API key login fails.
var ErrAuth = errors.New("topstep: authentication failed")

// Order enums used by /api/Order/place.
const (
	OrderTypeMarket = 2
	SideBid         = 0 // buy
	SideAsk         = 1 // sell
)

// Order statuses in /api/Order/search.
const (
	OrderStatusOpen      = 1
	OrderStatusFilled    = 2
	OrderStatusCancelled = 3
	OrderStatusExpired   = 4
	OrderStatusRejected  = 5
	OrderStatusPending   = 6
)

// Position types in /api/Position/searchOpen.
const (
	PositionLong  = 1
	PositionShort = 2
)

// Client is a thin JSON-over-POST client. It logs in with an API key and
// re-authenticates once when a request comes back 401.
type Client struct {
	baseURL    string
	username   string
	apiKey     string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

func NewClient(baseURL, username, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope is the common part of every response.
type envelope struct {
	Success      bool   `json:"success"`
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (e envelope) err() error {
	if e.Success {
		return nil
	}
	msg := e.ErrorMessage
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Errorf("code %d: %s", e.ErrorCode, msg)
}

type loginResponse struct {
	envelope
	Token string `json:"token"`
}

// Login exchanges the API key for a session token.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" || c.apiKey == "" {
		return fmt.Errorf("%w: username and api key are required", ErrAuth)
	}

	var resp loginResponse
	status, err := c.do(ctx, "/api/Auth/loginKey", map[string]string{
		"userName": c.username,
		"apiKey":   c.apiKey,
	}, &resp, "")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAuth, status)
	}
	if !resp.Success || resp.Token == "" {
		return fmt.Errorf("%w: %v", ErrAuth, resp.err())
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// post sends an authenticated request and decodes a 200 response into out.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	status, err := c.do(ctx, path, in, out, c.currentToken())
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if err := c.Login(ctx); err != nil {
			return err
		}
		if status, err = c.do(ctx, path, in, out, c.currentToken()); err != nil {
			return err
		}
	}
	return statusError(path, status)
}

func statusError(path string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: status %d: %w", path, status, broker.ErrTransient)
	default:
		return fmt.Errorf("%s: status %d", path, status)
	}
}

// do performs one POST. Network failures are transient. The body is decoded
// only for 200 responses.
func (c *Client) do(ctx context.Context, path string, in, out any, token string) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, fmt.Errorf("execute request %s: %w: %w", path, broker.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

// Contract is an entry from the contract search endpoints. Price fields are
// only present on some gateway versions.
type Contract struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TickSize       float64  `json:"tickSize"`
	TickValue      float64  `json:"tickValue"`
	ActiveContract bool     `json:"activeContract"`
	LastPrice      *float64 `json:"lastPrice,omitempty"`
	Last           *float64 `json:"last,omitempty"`
}

// Price returns lastPrice, falling back to last.
func (c Contract) Price() (float64, bool) {
	switch {
	case c.LastPrice != nil:
		return *c.LastPrice, true
	case c.Last != nil:
		return *c.Last, true
	default:
		return 0, false
	}
}

type contractsResponse struct {
	envelope
	Contracts []Contract `json:"contracts"`
}

func (c *Client) SearchContracts(ctx context.Context, text string, live bool) ([]Contract, error) {
	var resp contractsResponse
	err := c.post(ctx, "/api/Contract/search", map[string]any{
		"searchText": text,
		"live":       live,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("contract search %q: %w", text, err)
	}
	return resp.Contracts, nil
}

func (c *Client) ContractByID(ctx context.Context, id string) (Contract, error) {
	var resp contractsResponse
	if err := c.post(ctx, "/api/Contract/searchById", map[string]string{"contractId": id}, &resp); err != nil {
		return Contract{}, err
	}
	if err := resp.err(); err != nil {
		return Contract{}, fmt.Errorf("contract %s: %w", id, err)
	}
	if len(resp.Contracts) == 0 {
		return Contract{}, fmt.Errorf("contract %s not found", id)
	}
	return resp.Contracts[0], nil
}

type PlaceOrderRequest struct {
	AccountID  int64    `json:"accountId"`
	ContractID string   `json:"contractId"`
	Type       int      `json:"type"`
	Side       int      `json:"side"`
	Size       int64    `json:"size"`
	LimitPrice *float64 `json:"limitPrice"`
	StopPrice  *float64 `json:"stopPrice"`
	TrailPrice *float64 `json:"trailPrice"`
	CustomTag  string   `json:"customTag,omitempty"`
}

type placeOrderResponse struct {
	envelope
	OrderID int64 `json:"orderId"`
}

// ErrOrderFailed carries the gateway's reason for refusing an order.
var ErrOrderFailed = errors.New("topstep: order failed")

func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (int64, error) {
	var resp placeOrderResponse
	if err := c.post(ctx, "/api/Order/place", req, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}
	return resp.OrderID, nil
}

// Order is an entry from /api/Order/search.
type Order struct {
	ID                int64     `json:"id"`
	AccountID         int64     `json:"accountId"`
	ContractID        string    `json:"contractId"`
	CreationTimestamp time.Time `json:"creationTimestamp"`
	Status            int       `json:"status"`
	Type              int       `json:"type"`
	Side              int       `json:"side"`
	Size              int64     `json:"size"`
	FillVolume        int64     `json:"fillVolume"`
	CustomTag         string    `json:"customTag"`
}

type ordersResponse struct {
	envelope
	Orders []Order `json:"orders"`
}

// SearchOrders lists the account's orders created since the given time.
func (c *Client) SearchOrders(ctx context.Context, accountID int64, since time.Time) ([]Order, error) {
	var resp ordersResponse
	err := c.post(ctx, "/api/Order/search", map[string]any{
		"accountId":      accountID,
		"startTimestamp": since.UTC().Format(time.RFC3339),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("order search: %w", err)
	}
	return resp.Orders, nil
}

type Position struct {
	ID           int64   `json:"id"`
	AccountID    int64   `json:"accountId"`
	ContractID   string  `json:"contractId"`
	Type         int     `json:"type"`
	Size         int64   `json:"size"`
	AveragePrice float64 `json:"averagePrice"`
}

// Signed returns the size, negative for shorts.
func (p Position) Signed() int64 {
	if p.Type == PositionShort {
		return -p.Size
	}
	return p.Size
}

type positionsResponse struct {
	envelope
	Positions []Position `json:"positions"`
}

func (c *Client) OpenPositions(ctx context.Context, accountID int64) ([]Position, error) {
	var resp positionsResponse
	if err := c.post(ctx, "/api/Position/searchOpen", map[string]int64{"accountId": accountID}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}
	return resp.Positions, nil
}

// Trade is one execution from /api/Trade/search.
type Trade struct {
	ID                int64     `json:"id"`
	AccountID         int64     `json:"accountId"`
	ContractID        string    `json:"contractId"`
	OrderID           int64     `json:"orderId"`
	Price             float64   `json:"price"`
	Side              int       `json:"side"`
	Size              int64     `json:"size"`
	CreationTimestamp time.Time `json:"creationTimestamp"`
	Voided            bool      `json:"voided"`
}

type tradesResponse struct {
	envelope
	Trades []Trade `json:"trades"`
}

func (c *Client) SearchTrades(ctx context.Context, accountID int64, since time.Time) ([]Trade, error) {
	var resp tradesResponse
	err := c.post(ctx, "/api/Trade/search", map[string]any{
		"accountId":      accountID,
		"startTimestamp": since.UTC().Format(time.RFC3339),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("trade search: %w", err)
	}
	return resp.Trades, nil
}
