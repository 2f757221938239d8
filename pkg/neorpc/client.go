// Package neorpc is the JSON-RPC 2.0 client for the target chain node. It
// covers the four calls the feeder needs: contract invocation, transaction
// lookup, balance query and native transfer.
package neorpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 8 << 20
)

// vmFaultState is the VM halting state reported for a failed invocation.
const vmFaultState = "FAULT"

// Client talks JSON-RPC 2.0 to one node endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   log.Logger
	nextID   atomic.Uint64
}

// New creates a client for the endpoint.
func New(endpoint string, timeout time.Duration, logger log.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With("endpoint", endpoint),
	}
}

// Endpoint returns the node endpoint the client serves.
func (c *Client) Endpoint() string { return c.endpoint }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      uint64          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Call performs one JSON-RPC request and decodes the result into out.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return sdkerrors.Wrapf(types.ErrRPC, "%s: encode request: %v", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return sdkerrors.Wrapf(types.ErrRPC, "%s: %v", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return sdkerrors.Wrapf(types.ErrCancelled, "%s: %v", method, ctx.Err())
		}
		return sdkerrors.Wrapf(types.ErrRPC, "%s: %v", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return sdkerrors.Wrapf(types.ErrRPC, "%s: read body: %v", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return sdkerrors.Wrapf(types.ErrRPC, "%s: status %d", method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return sdkerrors.Wrapf(types.ErrRPC, "%s: decode response: %v", method, err)
	}
	if envelope.Error != nil {
		return sdkerrors.Wrapf(types.ErrRPC, "%s: node error %d: %s",
			method, envelope.Error.Code, envelope.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return sdkerrors.Wrapf(types.ErrRPC, "%s: decode result: %v", method, err)
		}
	}
	return nil
}

// ContractParameter is one typed argument of a contract invocation.
type ContractParameter struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Signer scopes one witness of an invocation.
type Signer struct {
	Account string `json:"account"`
	Scopes  string `json:"scopes"`
}

// ScopeCalledByEntry restricts a witness to entry-script calls.
const ScopeCalledByEntry = "CalledByEntry"

// Witness carries the invocation and verification scripts of one signer.
type Witness struct {
	Invocation   string `json:"invocation"`
	Verification string `json:"verification"`
}

// InvokeResult is the outcome of invokefunction.
type InvokeResult struct {
	Script      string `json:"script"`
	State       string `json:"state"`
	GasConsumed string `json:"gasconsumed"`
	Exception   string `json:"exception"`
	TxHash      string `json:"txhash"`
}

// Faulted reports whether the VM halted in a fault state.
func (r InvokeResult) Faulted() bool { return r.State == vmFaultState }

// InvokeFunction submits a contract invocation with the given signers and
// witnesses. A FAULT state surfaces as ErrTxFault carrying the exception.
func (c *Client) InvokeFunction(ctx context.Context, scriptHash, operation string,
	params []ContractParameter, signers []Signer, witnesses []Witness) (*InvokeResult, error) {

	args := []any{scriptHash, operation, params, signers}
	if len(witnesses) > 0 {
		args = append(args, witnesses)
	}

	var result InvokeResult
	if err := c.Call(ctx, "invokefunction", args, &result); err != nil {
		return nil, err
	}
	if result.Faulted() {
		return &result, sdkerrors.Wrapf(types.ErrTxFault, "%s on %s: %s",
			operation, scriptHash, result.Exception)
	}
	return &result, nil
}

// Transaction is the confirmed transaction record returned by gettransaction.
type Transaction struct {
	Hash          string `json:"hash"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	BlockIndex    int64  `json:"blockindex"`
	BlockTime     int64  `json:"blocktime"`
	VMState       string `json:"vmstate"`
}

// Confirmed reports whether the transaction made it into a block.
func (t Transaction) Confirmed() bool { return t.Confirmations > 0 }

// GetTransaction looks up a transaction by hash.
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*Transaction, error) {
	var tx Transaction
	if err := c.Call(ctx, "gettransaction", []any{txHash, true}, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Balance is one asset balance of an address.
type Balance struct {
	AssetHash string `json:"assethash"`
	Amount    string `json:"amount"`
	Decimals  int    `json:"decimals"`
}

// GetBalance returns the balances of an address.
func (c *Client) GetBalance(ctx context.Context, address string) ([]Balance, error) {
	var result struct {
		Address  string    `json:"address"`
		Balances []Balance `json:"balance"`
	}
	if err := c.Call(ctx, "getbalance", []any{address}, &result); err != nil {
		return nil, err
	}
	return result.Balances, nil
}

// SendToAddress transfers a native asset amount out of the from account and
// returns the tx hash.
func (c *Client) SendToAddress(ctx context.Context, assetHash, from, to, amount string) (string, error) {
	var result struct {
		Hash string `json:"hash"`
	}
	if err := c.Call(ctx, "sendtoaddress", []any{assetHash, to, amount, from}, &result); err != nil {
		return "", err
	}
	c.logger.Info("native transfer submitted", "from", from, "to", to, "amount", amount, "tx", result.Hash)
	return result.Hash, nil
}
