package network

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/libmcm-go/tag"
	"github.com/bitfsorg/libmcm-go/tx"
	"github.com/bitfsorg/libmcm-go/wots"
)

// Mesh API paths and call methods used by MeshClient.
const (
	pathCall         = "/call"
	pathSubmit       = "/construction/submit"
	pathStatus       = "/network/status"
	pathMempool      = "/mempool"
	methodTagResolve = "tag_resolve"

	blockchainName = "mochimo"

	// DefaultTimeout bounds a single gateway request.
	DefaultTimeout = 30 * time.Second
)

// MeshClient talks to a Mochimo Mesh API gateway over HTTP/JSON.
type MeshClient struct {
	url     string
	network networkIdentifier
	client  *http.Client
	logger  *zap.Logger
	metrics *Metrics
}

var _ Resolver = (*MeshClient)(nil)

// ClientOption configures a MeshClient.
type ClientOption func(*MeshClient)

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *MeshClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *MeshClient) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *MeshClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *MeshClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

type networkIdentifier struct {
	Blockchain string `json:"blockchain"`
	Network    string `json:"network"`
}

type callRequest struct {
	NetworkIdentifier networkIdentifier `json:"network_identifier"`
	Method            string            `json:"method"`
	Parameters        map[string]any    `json:"parameters"`
}

type tagResolveResponse struct {
	Result struct {
		Address string `json:"address"`
		Amount  uint64 `json:"amount"`
	} `json:"result"`
}

type submitRequest struct {
	NetworkIdentifier networkIdentifier `json:"network_identifier"`
	SignedTransaction string            `json:"signed_transaction"`
}

type transactionIdentifier struct {
	Hash string `json:"hash"`
}

type submitResponse struct {
	TransactionIdentifier transactionIdentifier `json:"transaction_identifier"`
}

type networkRequest struct {
	NetworkIdentifier networkIdentifier `json:"network_identifier"`
}

type statusResponse struct {
	CurrentBlock BlockID `json:"current_block_identifier"`
	GenesisBlock BlockID `json:"genesis_block_identifier"`
}

type mempoolResponse struct {
	TransactionIdentifiers []transactionIdentifier `json:"transaction_identifiers"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retriable  bool   `json:"retriable"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("network: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("network: HTTP %d: code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap lets errors.Is match ErrAPIError.
func (e *APIError) Unwrap() error { return ErrAPIError }

// NewMeshClient creates a client for the gateway described by cfg.
func NewMeshClient(cfg MeshConfig, opts ...ClientOption) (*MeshClient, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	network := cfg.Network
	if network == "" {
		network = "mainnet"
	}
	c := &MeshClient{
		url:     strings.TrimSuffix(cfg.URL, "/"),
		network: networkIdentifier{Blockchain: blockchainName, Network: network},
		client: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the gateway base URL.
func (c *MeshClient) URL() string { return c.url }

// post sends body as JSON to path and decodes a 2xx response into result.
// Non-2xx answers are returned as *APIError.
func (c *MeshClient) post(ctx context.Context, method, path string, body, result any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(method, start, err)
		if err != nil {
			c.logger.Debug("mesh request failed",
				zap.String("method", method),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
		}
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("network: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: decode %s response: %w", ErrInvalidResponse, method, err)
		}
	}
	return nil
}

// ResolveTag resolves t through the tag_resolve call.
func (c *MeshClient) ResolveTag(ctx context.Context, t tag.Tag) (*TagResolution, error) {
	req := callRequest{
		NetworkIdentifier: c.network,
		Method:            methodTagResolve,
		Parameters:        map[string]any{"tag": "0x" + t.String()},
	}
	var resp tagResolveResponse
	if err := c.post(ctx, methodTagResolve, pathCall, req, &resp); err != nil {
		return nil, err
	}

	if resp.Result.Address == "" || resp.Result.Address == "0x" {
		return nil, fmt.Errorf("%w: %s", ErrTagNotFound, t)
	}
	addr, err := wots.ParseAddress(resp.Result.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: address: %w", ErrInvalidResponse, err)
	}
	if addr.Tag() != t {
		return nil, fmt.Errorf("%w: resolved address carries tag %s, want %s", ErrInvalidResponse, addr.Tag(), t)
	}

	c.logger.Debug("tag resolved",
		zap.Stringer("tag", t),
		zap.Uint64("balance", resp.Result.Amount))
	return &TagResolution{Address: addr, Balance: resp.Result.Amount}, nil
}

// rejected reports whether a submit status means the gateway refused the
// transaction. A timeout or server error leaves the outcome unknown.
func rejected(status int) bool {
	return status >= http.StatusBadRequest &&
		status < http.StatusInternalServerError &&
		status != http.StatusRequestTimeout
}

// SubmitTransaction validates raw as a datagram and submits its transaction
// buffer. A gateway rejection yields Accepted=false with the gateway message.
func (c *MeshClient) SubmitTransaction(ctx context.Context, raw []byte) (*SubmitResult, error) {
	d, err := tx.Of(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	req := submitRequest{
		NetworkIdentifier: c.network,
		SignedTransaction: hex.EncodeToString(d.TxBuffer()),
	}
	var resp submitResponse
	err = c.post(ctx, "submit", pathSubmit, req, &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && rejected(apiErr.StatusCode) {
		c.logger.Warn("transaction rejected",
			zap.String("txid", d.TxID()),
			zap.Int("status", apiErr.StatusCode),
			zap.String("reason", apiErr.Message))
		return &SubmitResult{Accepted: false, TxID: d.TxID(), Reason: apiErr.Message}, nil
	}
	if err != nil {
		return nil, err
	}

	txID := resp.TransactionIdentifier.Hash
	if txID == "" {
		txID = d.TxID()
	}
	c.logger.Info("transaction submitted", zap.String("txid", txID))
	return &SubmitResult{Accepted: true, TxID: txID}, nil
}

// NetworkStatus returns the gateway's current and genesis blocks.
func (c *MeshClient) NetworkStatus(ctx context.Context) (*NetworkStatus, error) {
	var resp statusResponse
	if err := c.post(ctx, "status", pathStatus, networkRequest{NetworkIdentifier: c.network}, &resp); err != nil {
		return nil, err
	}
	return &NetworkStatus{Current: resp.CurrentBlock, Genesis: resp.GenesisBlock}, nil
}

// MempoolTransactions lists the transaction ids waiting in the gateway's mempool.
func (c *MeshClient) MempoolTransactions(ctx context.Context) ([]string, error) {
	var resp mempoolResponse
	if err := c.post(ctx, "mempool", pathMempool, networkRequest{NetworkIdentifier: c.network}, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.TransactionIdentifiers))
	for _, id := range resp.TransactionIdentifiers {
		ids = append(ids, id.Hash)
	}
	return ids, nil
}
