// Package chain implements the ledger/network client: balance queries,
// value-transfer submission and confirmation over JSON-RPC, and push-based
// account-change notifications over a WebSocket channel. It also adapts
// price-feed accounts into the oracle's FeedSource.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/zentrolabs/zentro-engine/internal/domain"
	"github.com/zentrolabs/zentro-engine/internal/metrics"
)

// lamportsPerUnit converts the ledger's integer base denomination to the
// engine's decimal amounts.
const lamportsPerUnit = 1e9

// Config holds the chain client endpoints.
type Config struct {
	RPCURL string
	WSURL  string
}

// Client talks to a ledger node. Safe for concurrent use.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	logger     *slog.Logger
	reqID      atomic.Uint64

	ws *wsConn
}

// NewClient creates a chain client for the given endpoints.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	logger = logger.With(slog.String("component", "chain"))
	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		ws:     newWSConn(cfg.WSURL, logger),
	}
}

// Close tears down the WebSocket notification channel.
func (c *Client) Close() error {
	return c.ws.close()
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
// Transport and server-side failures are wrapped with domain.ErrNetwork.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{
		Jsonrpc: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("chain: marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chain: build %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("chain: %s: %v: %w", method, err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("chain: %s: http %d: %w", method, resp.StatusCode, domain.ErrNetwork)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("chain: %s: read response: %v: %w", method, err, domain.ErrNetwork)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("chain: %s: decode response: %v: %w", method, err, domain.ErrNetwork)
	}
	if rpcResp.Error != nil {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("chain: %s: rpc error %d: %s: %w",
			method, rpcResp.Error.Code, rpcResp.Error.Message, domain.ErrNetwork)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			metrics.RPCRequests.WithLabelValues(method, "error").Inc()
			return fmt.Errorf("chain: %s: decode result: %v: %w", method, err, domain.ErrNetwork)
		}
	}

	metrics.RPCRequests.WithLabelValues(method, "ok").Inc()
	return nil
}

// GetBalance returns the account balance in decimal units.
func (c *Client) GetBalance(ctx context.Context, account string) (float64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{account}, &result); err != nil {
		return 0, err
	}
	return float64(result.Value) / lamportsPerUnit, nil
}

// Submit sends a signed value transfer and returns the pending receipt.
func (c *Client) Submit(ctx context.Context, req domain.TransferRequest) (domain.Receipt, error) {
	params := []any{map[string]any{
		"from":     req.From,
		"to":       req.To,
		"lamports": uint64(req.Amount * lamportsPerUnit),
		"memo":     req.Memo,
	}}

	var signature string
	if err := c.call(ctx, "sendTransfer", params, &signature); err != nil {
		return domain.Receipt{}, err
	}

	c.logger.InfoContext(ctx, "transfer submitted",
		slog.String("signature", signature),
		slog.Float64("amount", req.Amount),
	)
	return domain.Receipt{
		Signature:   signature,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Confirm queries the confirmation status of a submitted transfer.
func (c *Client) Confirm(ctx context.Context, receipt domain.Receipt) (domain.TxStatus, error) {
	var result struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, "getSignatureStatus", []any{receipt.Signature}, &result); err != nil {
		return "", err
	}

	switch result.Status {
	case "committed", "finalized":
		return domain.TxCommitted, nil
	case "failed":
		return domain.TxFailed, nil
	default:
		return domain.TxPending, nil
	}
}

// OnAccountChange registers a push listener for an account's data changes
// on the WebSocket notification channel.
func (c *Client) OnAccountChange(ctx context.Context, account string, fn func(domain.AccountUpdate)) (domain.Subscription, error) {
	return c.ws.subscribe(ctx, account, fn)
}
