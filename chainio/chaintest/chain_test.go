package chaintest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

type counter struct {
	count int
}

func (c *counter) Execute(_ Env, msg []byte) (*Response, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}
	if _, ok := m["increment"]; !ok {
		return nil, errors.New("unknown message")
	}
	c.count++
	return &Response{
		Data:       []byte(`{"increment":{"status":"success"}}`),
		Attributes: []types.Attribute{{Key: "count", Value: "1"}},
	}, nil
}

func (c *counter) Query(_ Env, _ []byte) ([]byte, error) {
	return json.Marshal(map[string]int{"count": c.count})
}

var counterWasm = []byte("\x00asm counter")

func deployCounter(t *testing.T, chain *Chain) (string, string) {
	chain.RegisterCode(counterWasm, func(Env, []byte) (Contract, error) { return &counter{}, nil })
	ctx := context.Background()

	res, err := chain.StoreCode(ctx, types.StoreCodeOptions{WasmByteCode: counterWasm, Gas: 5_000_000})
	require.NoError(t, err)
	codeID, err := res.CodeID("code_id")
	require.NoError(t, err)

	hash, err := chain.CodeHash(ctx, codeID)
	require.NoError(t, err)

	res, err = chain.Instantiate(ctx, types.InstantiateOptions{CodeID: codeID, CodeHash: hash, InitMsg: []byte(`{}`), Label: "counter", Gas: 1_000_000})
	require.NoError(t, err)
	require.True(t, res.Succeeded(), res.RawLog)
	addr, err := res.MustFindAttribute("message", "contract_address")
	require.NoError(t, err)
	return addr, hash
}

func TestChainLifecycle(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	addr, hash := deployCounter(t, chain)
	ctx := context.Background()

	res, err := chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"increment":{}}`), Gas: 200_000})
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	assert.Equal(t, `{"increment":{"status":"success"}}`, string(res.Data[0]))
	count, ok := res.FindAttribute("wasm", "count")
	assert.True(t, ok)
	assert.Equal(t, "1", count)

	out, err := chain.QueryContract(ctx, types.QueryOptions{ContractAddr: addr, CodeHash: hash, QueryMsg: []byte(`{"get_count":{}}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1}`, string(out))
	assert.Len(t, chain.Txs(), 3)
}

func TestChainExecuteFailures(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	addr, hash := deployCounter(t, chain)
	ctx := context.Background()

	res, err := chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"decrement":{}}`), Gas: 200_000})
	require.NoError(t, err)
	assert.Equal(t, CodeContractErr, res.Code)
	assert.Equal(t, "unknown message", res.RawLog)

	res, err = chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"increment":{}}`), Gas: 1_000})
	require.NoError(t, err)
	assert.Equal(t, CodeOutOfGas, res.Code)
	assert.Equal(t, int64(1_000), res.GasUsed)

	res, err = chain.Execute(ctx, types.ExecuteOptions{ContractAddr: chain.NewAddress("nobody"), ExecuteMsg: []byte(`{}`), Gas: 200_000})
	require.NoError(t, err)
	assert.Equal(t, CodeNoContract, res.Code)

	_, err = chain.QueryContract(ctx, types.QueryOptions{ContractAddr: chain.NewAddress("nobody")})
	assert.ErrorIs(t, err, types.ErrQuery)
}

func TestChainDuplicateLabel(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	_, hash := deployCounter(t, chain)

	res, err := chain.Instantiate(context.Background(), types.InstantiateOptions{CodeID: 1, CodeHash: hash, InitMsg: []byte(`{}`), Label: "counter", Gas: 1_000_000})
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Contains(t, res.RawLog, "already exists")
}

func TestChainCodeHashRouting(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	addr, hash := deployCounter(t, chain)
	ctx := context.Background()
	other := codeHash([]byte("\x00asm other"))

	for _, h := range []string{"", other} {
		res, err := chain.Instantiate(ctx, types.InstantiateOptions{CodeID: 1, CodeHash: h, InitMsg: []byte(`{}`), Label: "counter-" + h, Gas: 1_000_000})
		require.NoError(t, err)
		assert.Equal(t, CodeContractErr, res.Code)
		assert.Equal(t, "code hash mismatch", res.RawLog)

		res, err = chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: h, ExecuteMsg: []byte(`{"increment":{}}`), Gas: 200_000})
		require.NoError(t, err)
		assert.Equal(t, CodeContractErr, res.Code)
		assert.Equal(t, "code hash mismatch", res.RawLog)

		_, err = chain.QueryContract(ctx, types.QueryOptions{ContractAddr: addr, CodeHash: h, QueryMsg: []byte(`{"get_count":{}}`)})
		assert.ErrorIs(t, err, types.ErrQuery)
		assert.ErrorContains(t, err, "code hash mismatch")
	}

	out, err := chain.QueryContract(ctx, types.QueryOptions{ContractAddr: addr, CodeHash: hash, QueryMsg: []byte(`{"get_count":{}}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0}`, string(out))
}

func TestChainExecuteFunds(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	addr, hash := deployCounter(t, chain)
	ctx := context.Background()
	chain.Fund(chain.Address(), math.NewInt(1_000))

	res, err := chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"increment":{}}`), Funds: "300uscrt", Gas: 200_000})
	require.NoError(t, err)
	require.True(t, res.Succeeded(), res.RawLog)
	assertBalance(t, chain, chain.Address(), 700)
	assertBalance(t, chain, addr, 300)

	res, err = chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"decrement":{}}`), Funds: "100uscrt", Gas: 200_000})
	require.NoError(t, err)
	assert.Equal(t, CodeContractErr, res.Code)
	assertBalance(t, chain, chain.Address(), 700)
	assertBalance(t, chain, addr, 300)

	res, err = chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"increment":{}}`), Funds: "5000uscrt", Gas: 200_000})
	require.NoError(t, err)
	assert.Equal(t, CodeInsufficientFunds, res.Code)
	assert.Contains(t, res.RawLog, "insufficient funds")
	assertBalance(t, chain, chain.Address(), 700)

	res, err = chain.Execute(ctx, types.ExecuteOptions{ContractAddr: addr, CodeHash: hash, ExecuteMsg: []byte(`{"increment":{}}`), Funds: "1uatom", Gas: 200_000})
	require.NoError(t, err)
	assert.Equal(t, CodeInsufficientFunds, res.Code)
}

func assertBalance(t *testing.T, chain *Chain, address string, want int64) {
	t.Helper()
	balance, err := chain.BalanceOf(context.Background(), address, chain.Denom)
	require.NoError(t, err)
	assert.Equal(t, math.NewInt(want).String(), balance.String())
}

func TestChainIntercept(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	chain.Intercept = func(kind string) *types.TxResult {
		if kind == "upload" {
			return &types.TxResult{Code: 13, RawLog: "insufficient fee"}
		}
		return nil
	}

	res, err := chain.StoreCode(context.Background(), types.StoreCodeOptions{WasmByteCode: counterWasm, Gas: 5_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint32(13), res.Code)
	assert.Len(t, chain.Txs(), 1)
}

func TestChainBalance(t *testing.T) {
	chain := NewChain("secretdev-1", "secret")
	ctx := context.Background()

	balance, err := chain.Balance(ctx, "uscrt")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	chain.Fund(chain.Address(), math.NewInt(1_000))
	chain.Fund(chain.Address(), math.NewInt(500))
	balance, err = chain.Balance(ctx, "uscrt")
	require.NoError(t, err)
	assert.True(t, balance.Equal(math.NewInt(1_500)))
	assert.Contains(t, chain.Address(), "secret1")
}
