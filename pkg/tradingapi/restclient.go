package tradingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RESTClient talks to the remote trading API over HTTP. All requests carry
// the session bearer token and honor the caller's context.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewRESTClient(baseURL, token string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// GetStocks fetches the full stock listing with current prices.
func (c *RESTClient) GetStocks(ctx context.Context) ([]Stock, error) {
	var stocks []Stock
	if err := c.getJSON(ctx, "/stocks", &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

// GetPortfolio fetches the user's holdings.
func (c *RESTClient) GetPortfolio(ctx context.Context, userID string) ([]PortfolioEntry, error) {
	var entries []PortfolioEntry
	if err := c.getJSON(ctx, "/users/"+userID+"/portfolio", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetBalance fetches the user's cash balance.
func (c *RESTClient) GetBalance(ctx context.Context, userID string) (Balance, error) {
	var balance Balance
	if err := c.getJSON(ctx, "/users/"+userID+"/balance", &balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// GetTransactions fetches the user's transaction history.
func (c *RESTClient) GetTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	var txns []Transaction
	if err := c.getJSON(ctx, "/txn/"+userID, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// Buy submits a buy order. A non-2xx status means the server declined it.
func (c *RESTClient) Buy(ctx context.Context, req OrderRequest) error {
	return c.postJSON(ctx, "/txn/buy", req)
}

// Sell submits a sell order.
func (c *RESTClient) Sell(ctx context.Context, req OrderRequest) error {
	return c.postJSON(ctx, "/txn/sell", req)
}

// TakeLoan requests a loan for the user.
func (c *RESTClient) TakeLoan(ctx context.Context, req LoanRequest) error {
	return c.postJSON(ctx, "/loan/take", req)
}

// RepayLoan repays part or all of the user's outstanding loan.
func (c *RESTClient) RepayLoan(ctx context.Context, req LoanRequest) error {
	return c.postJSON(ctx, "/loan/repay", req)
}

// GetLoanStatus fetches the user's outstanding loan.
func (c *RESTClient) GetLoanStatus(ctx context.Context, userID string) (LoanStatus, error) {
	var status LoanStatus
	if err := c.getJSON(ctx, "/loan/"+userID, &status); err != nil {
		return LoanStatus{}, err
	}
	return status, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, out interface{}) error {
	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *RESTClient) postJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *RESTClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
