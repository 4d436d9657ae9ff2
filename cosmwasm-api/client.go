package cosmwasmapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

// Execute sends msg to the contract in opts and decodes the first data entry of the
// confirmed tx into Answer. A confirmed failure is never retried and is returned as a
// *types.TxError of kind ErrExecution. Empty data leaves Answer at its zero value.
func Execute[Answer interface{}](
	ctx context.Context, chain io.ChainIO, opts BroadcastOptions, msg interface{},
) (Answer, *types.TxResult, error) {
	var answer Answer
	if err := ValidateVariant(msg); err != nil {
		return answer, nil, fmt.Errorf("%w: %w", types.ErrExecution, err)
	}

	executeMsg, err := json.Marshal(msg)
	if err != nil {
		return answer, nil, fmt.Errorf("%w: %w", types.ErrExecution, err)
	}
	opts.ExecuteMsg = executeMsg

	res, err := chain.Execute(ctx, opts.executeOptions())
	if err != nil {
		return answer, nil, fmt.Errorf("%w: %w", types.ErrExecution, err)
	}
	if err := types.CheckTx(types.ErrExecution, res); err != nil {
		return answer, res, err
	}

	if len(res.Data) == 0 || len(res.Data[0]) == 0 {
		return answer, res, nil
	}
	if err := json.Unmarshal(res.Data[0], &answer); err != nil {
		return answer, res, fmt.Errorf("%w: failed to decode answer %q: %w", types.ErrExecution, res.Data[0], err)
	}
	if err := ValidateVariant(answer); err != nil {
		return answer, res, fmt.Errorf("%w: unexpected answer %s: %w", types.ErrExecution, res.Data[0], err)
	}
	return answer, res, nil
}

// Query runs a read-only query and decodes the response into Response.
func Query[Response interface{}](
	ctx context.Context, chain io.ChainIO, addr, codeHash string, msg interface{},
) (Response, error) {
	var result Response
	data, err := QueryRaw(ctx, chain, addr, codeHash, msg)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("%w: failed to decode response: %w", types.ErrQuery, err)
	}
	return result, nil
}

// QueryRaw runs a query and returns the undecoded response. Explicit error responses
// are turned into an error wrapping ErrQuery and *ErrorResponse.
func QueryRaw(ctx context.Context, chain io.ChainIO, addr, codeHash string, msg interface{}) (json.RawMessage, error) {
	if err := ValidateVariant(msg); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrQuery, err)
	}
	queryBytes, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrQuery, err)
	}

	data, err := chain.QueryContract(ctx, types.QueryOptions{
		ContractAddr: addr,
		CodeHash:     codeHash,
		QueryMsg:     queryBytes,
	})
	if err != nil {
		if errors.Is(err, types.ErrQuery) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", types.ErrQuery, err)
	}

	if errResp, ok := ParseErrorResponse(data); ok {
		return nil, fmt.Errorf("%w: %w", types.ErrQuery, errResp)
	}
	return data, nil
}

// Client binds a chain and a contract so typed contract clients need not repeat them.
type Client struct {
	chain io.ChainIO
	opts  BroadcastOptions
}

func NewClient(chain io.ChainIO, contractAddr, codeHash string, opts BroadcastOptions) *Client {
	return &Client{chain: chain, opts: opts.WithContract(contractAddr, codeHash)}
}

func (c *Client) Chain() io.ChainIO {
	return c.chain
}

func (c *Client) Address() string {
	return c.opts.ContractAddr
}

func (c *Client) CodeHash() string {
	return c.opts.CodeHash
}

func (c *Client) Options() BroadcastOptions {
	return c.opts
}

func (c *Client) SetOptions(opts BroadcastOptions) {
	c.opts = opts.WithContract(c.opts.ContractAddr, c.opts.CodeHash)
}
