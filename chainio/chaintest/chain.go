// Package chaintest provides an in-memory ChainIO whose contracts are plain Go values.
package chaintest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

const (
	CodeOutOfGas          uint32 = 11
	CodeContractErr       uint32 = 5
	CodeNoContract        uint32 = 2
	CodeInsufficientFunds uint32 = 10

	defaultGasPerByte = 100
	defaultBaseGas    = 50_000
)

// Env is handed to a contract on every call. Funds were already moved to the
// contract when it runs.
type Env struct {
	Chain    *Chain
	Sender   string
	Contract string
	Funds    math.Int
}

// Response is what an executed contract hands back to the chain.
type Response struct {
	Data       []byte
	Attributes []types.Attribute
}

type Contract interface {
	Execute(env Env, msg []byte) (*Response, error)
	Query(env Env, msg []byte) ([]byte, error)
}

// Factory instantiates a contract from its init message.
type Factory func(env Env, initMsg []byte) (Contract, error)

type code struct {
	hash    string
	factory Factory
}

type instance struct {
	contract Contract
	hash     string
}

// Chain implements io.ChainIO entirely in memory. Gas used by a tx is BaseGas plus
// GasPerByte for every byte of the message; a tx over its limit fails with CodeOutOfGas.
// Contract calls must carry the code hash of the contract they address.
type Chain struct {
	Prefix     string
	Denom      string
	BaseGas    int64
	GasPerByte int64

	// Intercept, when set, may replace the result of any tx before it is executed.
	// kind is one of upload, instantiate, execute.
	Intercept func(kind string) *types.TxResult

	mu        sync.Mutex
	address   string
	chainID   string
	balances  map[string]math.Int
	factories map[string]Factory
	codes     map[uint64]code
	contracts map[string]instance
	labels    map[string]struct{}
	height    int64
	txs       []*types.TxResult
}

var _ io.ChainIO = (*Chain)(nil)

func NewChain(chainID, prefix string) *Chain {
	c := &Chain{
		Prefix:     prefix,
		Denom:      "uscrt",
		BaseGas:    defaultBaseGas,
		GasPerByte: defaultGasPerByte,
		chainID:    chainID,
		balances:   make(map[string]math.Int),
		factories:  make(map[string]Factory),
		codes:      make(map[uint64]code),
		contracts:  make(map[string]instance),
		labels:     make(map[string]struct{}),
	}
	c.address = c.NewAddress("harness")
	return c
}

// NewAddress derives a deterministic bech32 address from seed.
func (c *Chain) NewAddress(seed string) string {
	hash := sha256.Sum256([]byte(seed))
	addr, err := bech32.ConvertAndEncode(c.Prefix, hash[:20])
	if err != nil {
		panic(err)
	}
	return addr
}

// RegisterCode binds wasm bytes to the Go implementation used once they are uploaded.
func (c *Chain) RegisterCode(wasm []byte, factory Factory) string {
	hash := codeHash(wasm)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[hash] = factory
	return hash
}

func (c *Chain) Fund(address string, amount math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[address] = c.balanceLocked(address).Add(amount)
}

// Txs returns every tx processed so far, failed ones included.
func (c *Chain) Txs() []*types.TxResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.TxResult, len(c.txs))
	copy(out, c.txs)
	return out
}

func (c *Chain) Address() string {
	return c.address
}

func (c *Chain) ChainID() string {
	return c.chainID
}

func (c *Chain) Endpoint() string {
	return "memory://" + c.chainID
}

func (c *Chain) StoreCode(_ context.Context, opts types.StoreCodeOptions) (*types.TxResult, error) {
	if res := c.intercept("upload"); res != nil {
		return res, nil
	}
	res, ok := c.newTx(opts.Gas, len(opts.WasmByteCode))
	if !ok {
		return res, nil
	}

	hash := codeHash(opts.WasmByteCode)
	c.mu.Lock()
	codeID := uint64(len(c.codes) + 1)
	c.codes[codeID] = code{hash: hash, factory: c.factories[hash]}
	c.mu.Unlock()

	res.Events = append(res.Events, types.Event{Type: "message", Attributes: []types.Attribute{
		{Key: "action", Value: "/secret.compute.v1beta1.MsgStoreCode"},
		{Key: "code_id", Value: strconv.FormatUint(codeID, 10)},
	}})
	return c.record(res), nil
}

func (c *Chain) CodeHash(_ context.Context, codeID uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.codes[codeID]
	if !ok {
		return "", fmt.Errorf("%w: code %d not found", types.ErrQuery, codeID)
	}
	return stored.hash, nil
}

func (c *Chain) Instantiate(_ context.Context, opts types.InstantiateOptions) (*types.TxResult, error) {
	if res := c.intercept("instantiate"); res != nil {
		return res, nil
	}
	res, ok := c.newTx(opts.Gas, len(opts.InitMsg))
	if !ok {
		return res, nil
	}

	c.mu.Lock()
	stored, found := c.codes[opts.CodeID]
	_, duplicate := c.labels[opts.Label]
	address := c.contractAddress(len(c.contracts) + 1)
	c.mu.Unlock()

	switch {
	case !found || stored.factory == nil:
		return c.fail(res, CodeNoContract, fmt.Sprintf("no contract implementation for code %d", opts.CodeID)), nil
	case opts.CodeHash != stored.hash:
		return c.fail(res, CodeContractErr, "code hash mismatch"), nil
	case duplicate:
		return c.fail(res, CodeContractErr, fmt.Sprintf("label %q already exists", opts.Label)), nil
	}

	funds, err := c.transfer(c.address, address, opts.Funds)
	if err != nil {
		return c.fail(res, CodeInsufficientFunds, err.Error()), nil
	}
	contract, err := stored.factory(Env{Chain: c, Sender: c.address, Contract: address, Funds: funds}, opts.InitMsg)
	if err != nil {
		c.refund(address, c.address, funds)
		return c.fail(res, CodeContractErr, err.Error()), nil
	}

	c.mu.Lock()
	c.contracts[address] = instance{contract: contract, hash: stored.hash}
	c.labels[opts.Label] = struct{}{}
	c.mu.Unlock()

	res.Events = append(res.Events, types.Event{Type: "message", Attributes: []types.Attribute{
		{Key: "action", Value: "/secret.compute.v1beta1.MsgInstantiateContract"},
		{Key: "code_id", Value: strconv.FormatUint(opts.CodeID, 10)},
		{Key: "contract_address", Value: address},
	}})
	return c.record(res), nil
}

func (c *Chain) Execute(_ context.Context, opts types.ExecuteOptions) (*types.TxResult, error) {
	if res := c.intercept("execute"); res != nil {
		return res, nil
	}
	res, ok := c.newTx(opts.Gas, len(opts.ExecuteMsg))
	if !ok {
		return res, nil
	}

	c.mu.Lock()
	inst, found := c.contracts[opts.ContractAddr]
	c.mu.Unlock()
	switch {
	case !found:
		return c.fail(res, CodeNoContract, fmt.Sprintf("contract %s not found", opts.ContractAddr)), nil
	case opts.CodeHash != inst.hash:
		return c.fail(res, CodeContractErr, "code hash mismatch"), nil
	}

	funds, err := c.transfer(c.address, opts.ContractAddr, opts.Funds)
	if err != nil {
		return c.fail(res, CodeInsufficientFunds, err.Error()), nil
	}
	resp, err := inst.contract.Execute(Env{Chain: c, Sender: c.address, Contract: opts.ContractAddr, Funds: funds}, opts.ExecuteMsg)
	if err != nil {
		c.refund(opts.ContractAddr, c.address, funds)
		return c.fail(res, CodeContractErr, err.Error()), nil
	}

	wasm := types.Event{Type: "wasm", Attributes: []types.Attribute{{Key: "contract_address", Value: opts.ContractAddr}}}
	wasm.Attributes = append(wasm.Attributes, resp.Attributes...)
	res.Events = append(res.Events,
		types.Event{Type: "message", Attributes: []types.Attribute{
			{Key: "action", Value: "/secret.compute.v1beta1.MsgExecuteContract"},
			{Key: "contract_address", Value: opts.ContractAddr},
		}},
		wasm,
	)
	res.Data = [][]byte{resp.Data}
	return c.record(res), nil
}

func (c *Chain) QueryContract(_ context.Context, opts types.QueryOptions) ([]byte, error) {
	c.mu.Lock()
	inst, found := c.contracts[opts.ContractAddr]
	c.mu.Unlock()
	switch {
	case !found:
		return nil, fmt.Errorf("%w: contract %s not found", types.ErrQuery, opts.ContractAddr)
	case opts.CodeHash != inst.hash:
		return nil, fmt.Errorf("%w: %s: code hash mismatch", types.ErrQuery, opts.ContractAddr)
	}
	resp, err := inst.contract.Query(Env{Chain: c, Contract: opts.ContractAddr, Funds: math.ZeroInt()}, opts.QueryMsg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrQuery, opts.ContractAddr, err)
	}
	return resp, nil
}

func (c *Chain) Balance(ctx context.Context, denom string) (math.Int, error) {
	return c.BalanceOf(ctx, c.address, denom)
}

func (c *Chain) BalanceOf(_ context.Context, address, denom string) (math.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if denom != c.Denom {
		return math.ZeroInt(), nil
	}
	return c.balanceLocked(address), nil
}

// transfer moves the Denom part of coins from one account to another. Coins of
// other denoms are rejected.
func (c *Chain) transfer(from, to, coins string) (math.Int, error) {
	parsed, err := sdktypes.ParseCoinsNormalized(coins)
	if err != nil {
		return math.ZeroInt(), err
	}
	amount := math.ZeroInt()
	for _, coin := range parsed {
		if coin.Denom != c.Denom {
			return math.ZeroInt(), fmt.Errorf("insufficient funds: no %s", coin.Denom)
		}
		amount = amount.Add(coin.Amount)
	}
	if amount.IsZero() {
		return amount, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	balance := c.balanceLocked(from)
	if balance.LT(amount) {
		return math.ZeroInt(), fmt.Errorf("insufficient funds: %s%s is smaller than %s%s", balance, c.Denom, amount, c.Denom)
	}
	c.balances[from] = balance.Sub(amount)
	c.balances[to] = c.balanceLocked(to).Add(amount)
	return amount, nil
}

func (c *Chain) refund(from, to string, amount math.Int) {
	if amount.IsZero() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[from] = c.balanceLocked(from).Sub(amount)
	c.balances[to] = c.balanceLocked(to).Add(amount)
}

func (c *Chain) balanceLocked(address string) math.Int {
	balance, ok := c.balances[address]
	if !ok {
		return math.ZeroInt()
	}
	return balance
}

func (c *Chain) intercept(kind string) *types.TxResult {
	if c.Intercept == nil {
		return nil
	}
	res := c.Intercept(kind)
	if res != nil {
		c.record(res)
	}
	return res
}

// newTx opens a result for a message of size n and charges gas against limit.
func (c *Chain) newTx(limit uint64, n int) (*types.TxResult, bool) {
	c.mu.Lock()
	c.height++
	hash := sha256.Sum256([]byte(fmt.Sprintf("tx/%d", c.height)))
	res := &types.TxResult{
		TxHash:    strings.ToUpper(hex.EncodeToString(hash[:])),
		Height:    c.height,
		GasWanted: int64(limit),
		GasUsed:   c.BaseGas + c.GasPerByte*int64(n),
	}
	c.mu.Unlock()

	if res.GasUsed > res.GasWanted {
		res.GasUsed = res.GasWanted
		c.fail(res, CodeOutOfGas, fmt.Sprintf("out of gas: gasWanted: %d", limit))
		return res, false
	}
	return res, true
}

func (c *Chain) fail(res *types.TxResult, code uint32, log string) *types.TxResult {
	res.Code = code
	res.RawLog = log
	res.Events = nil
	res.Data = nil
	return c.record(res)
}

func (c *Chain) record(res *types.TxResult) *types.TxResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs = append(c.txs, res)
	return res
}

func (c *Chain) contractAddress(n int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("contract/%d", n)))
	addr, err := bech32.ConvertAndEncode(c.Prefix, hash[:])
	if err != nil {
		panic(err)
	}
	return addr
}

func codeHash(wasm []byte) string {
	hash := sha256.Sum256(wasm)
	return hex.EncodeToString(hash[:])
}
