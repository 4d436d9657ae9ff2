package io

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cosmossdk.io/math"
	"github.com/CosmWasm/wasmd/x/wasm/ioutils"
	abci "github.com/cometbft/cometbft/abci/types"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	cryptocodec "github.com/cosmos/cosmos-sdk/crypto/codec"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	"github.com/cosmos/cosmos-sdk/std"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
	"github.com/cosmos/cosmos-sdk/types/module"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	compute "github.com/scrtlabs/SecretNetwork/x/compute"

	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/metrics"
)

// ChainIO is the single handle every harness component talks to the chain through.
type ChainIO interface {
	Address() string
	ChainID() string
	Endpoint() string
	StoreCode(ctx context.Context, opts types.StoreCodeOptions) (*types.TxResult, error)
	CodeHash(ctx context.Context, codeID uint64) (string, error)
	Instantiate(ctx context.Context, opts types.InstantiateOptions) (*types.TxResult, error)
	Execute(ctx context.Context, opts types.ExecuteOptions) (*types.TxResult, error)
	QueryContract(ctx context.Context, opts types.QueryOptions) ([]byte, error)
	Balance(ctx context.Context, denom string) (math.Int, error)
	BalanceOf(ctx context.Context, address, denom string) (math.Int, error)
}

type Config struct {
	ChainID      string
	RPCURI       string
	Bech32Prefix string
	Params       types.TxManagerParams
	Indicators   metrics.TxIndicators
}

// chainIO chain io Facade
type chainIO struct {
	clientCtx  client.Context
	signer     *Signer
	encryption *Encryption
	endpoint   string
	params     types.TxManagerParams
	indicators metrics.TxIndicators
}

var _ ChainIO = (*chainIO)(nil)

// NewChainIO opens a client bound to the node at cfg.RPCURI and signs with a freshly
// generated key held in an in-memory keyring.
func NewChainIO(ctx context.Context, cfg Config) (ChainIO, error) {
	setAddressPrefixes(cfg.Bech32Prefix)
	interfaceRegistry, marshaler, legacyAmino := initCodec()
	clientCtx := initClientContext(cfg.ChainID, interfaceRegistry, marshaler, legacyAmino)

	rpcClient, err := client.NewClientFromNode(cfg.RPCURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrConnection, cfg.RPCURI, err)
	}
	clientCtx = clientCtx.WithClient(rpcClient).WithNodeURI(cfg.RPCURI)

	status, err := rpcClient.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrConnection, cfg.RPCURI, err)
	}
	if cfg.ChainID != "" && status.NodeInfo.Network != cfg.ChainID {
		return nil, fmt.Errorf("%w: node at %s serves chain %q, want %q", types.ErrConnection, cfg.RPCURI, status.NodeInfo.Network, cfg.ChainID)
	}

	ioKey, err := abciQuery(clientCtx, pathTxKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: consensus io key: %v", types.ErrConnection, err)
	}
	consensusKey, err := bytesField(ioKey, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: consensus io key: %v", types.ErrConnection, err)
	}
	encryption, err := NewEncryption(consensusKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConnection, err)
	}

	kr := keyring.NewInMemory(marshaler)
	privKey := secp256k1.GenPrivKey()
	if err := kr.ImportPrivKeyHex(types.DefaultKeyName, hex.EncodeToString(privKey.Bytes()), "secp256k1"); err != nil {
		return nil, fmt.Errorf("failed to import key: %w", err)
	}
	accAddress := sdktypes.AccAddress(privKey.PubKey().Address())
	clientCtx = clientCtx.
		WithKeyring(kr).
		WithFromAddress(accAddress).
		WithFromName(types.DefaultKeyName).
		WithFrom(types.DefaultKeyName)

	indicators := cfg.Indicators
	if indicators == nil {
		indicators = metrics.Noop{}
	}

	zap.L().Debug("Client ready",
		zap.String("address", accAddress.String()),
		zap.String("chainId", cfg.ChainID),
		zap.Int64("height", status.SyncInfo.LatestBlockHeight),
	)
	return &chainIO{
		clientCtx:  clientCtx,
		signer:     NewSigner(clientCtx),
		encryption: encryption,
		endpoint:   cfg.RPCURI,
		params:     cfg.Params,
		indicators: indicators,
	}, nil
}

func (c *chainIO) Address() string {
	return c.clientCtx.GetFromAddress().String()
}

func (c *chainIO) ChainID() string {
	return c.clientCtx.ChainID
}

func (c *chainIO) Endpoint() string {
	return c.endpoint
}

func (c *chainIO) StoreCode(ctx context.Context, opts types.StoreCodeOptions) (*types.TxResult, error) {
	wasm := opts.WasmByteCode
	if ioutils.IsWasm(wasm) {
		gzipped, err := ioutils.GzipIt(wasm)
		if err != nil {
			return nil, err
		}
		wasm = gzipped
	}
	msg := &compute.MsgStoreCode{
		Sender:       c.clientCtx.GetFromAddress(),
		WASMByteCode: wasm,
	}
	return c.SendTransaction(ctx, "upload", txOptions{gasPrice: opts.GasPrice, gas: opts.Gas, memo: opts.Memo}, msg)
}

func (c *chainIO) CodeHash(_ context.Context, codeID uint64) (string, error) {
	resp, err := abciQuery(c.clientCtx, pathCodeHash, encodeCodeHashRequest(codeID))
	if err != nil {
		return "", fmt.Errorf("%w: code %d: %v", types.ErrQuery, codeID, err)
	}
	hash, err := bytesField(resp, 1)
	if err != nil {
		return "", fmt.Errorf("%w: code %d: %v", types.ErrQuery, codeID, err)
	}
	if len(hash) == 0 {
		return "", fmt.Errorf("%w: code %d not found", types.ErrQuery, codeID)
	}
	return string(hash), nil
}

func (c *chainIO) Instantiate(ctx context.Context, opts types.InstantiateOptions) (*types.TxResult, error) {
	funds, err := sdktypes.ParseCoinsNormalized(opts.Funds)
	if err != nil {
		return nil, err
	}
	initMsg, err := c.seal(opts.CodeHash, opts.InitMsg, "init")
	if err != nil {
		return nil, err
	}
	msg := &compute.MsgInstantiateContract{
		Sender:    c.clientCtx.GetFromAddress(),
		CodeID:    opts.CodeID,
		Label:     opts.Label,
		InitMsg:   initMsg,
		InitFunds: funds,
		Admin:     opts.Admin,
	}
	return c.SendTransaction(ctx, "instantiate", txOptions{
		gasPrice: opts.GasPrice,
		gas:      opts.Gas,
		memo:     opts.Memo,
		nonce:    Nonce(initMsg),
	}, msg)
}

func (c *chainIO) Execute(ctx context.Context, opts types.ExecuteOptions) (*types.TxResult, error) {
	funds, err := sdktypes.ParseCoinsNormalized(opts.Funds)
	if err != nil {
		return nil, err
	}
	contract, err := sdktypes.AccAddressFromBech32(opts.ContractAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address %q: %w", opts.ContractAddr, err)
	}
	executeMsg, err := c.seal(opts.CodeHash, opts.ExecuteMsg, "execute")
	if err != nil {
		return nil, err
	}
	msg := &compute.MsgExecuteContract{
		Sender:    c.clientCtx.GetFromAddress(),
		Contract:  contract,
		Msg:       executeMsg,
		SentFunds: funds,
	}
	return c.SendTransaction(ctx, "execute", txOptions{
		gasAdjustment: opts.GasAdjustment,
		gasPrice:      opts.GasPrice,
		gas:           opts.Gas,
		memo:          opts.Memo,
		simulate:      opts.Simulate,
		nonce:         Nonce(executeMsg),
	}, msg)
}

// seal checks that msg is JSON and encrypts it for the contract behind codeHash.
func (c *chainIO) seal(codeHash string, msg []byte, kind string) ([]byte, error) {
	if !json.Valid(msg) {
		return nil, fmt.Errorf("invalid JSON in %s message", kind)
	}
	if codeHash == "" {
		return nil, errors.New("code hash is required")
	}
	return c.encryption.Encrypt(codeHash, msg)
}

func (c *chainIO) QueryContract(ctx context.Context, opts types.QueryOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, err := c.seal(opts.CodeHash, opts.QueryMsg, "query")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrQuery, opts.ContractAddr, err)
	}
	nonce := Nonce(query)
	resp, err := abciQuery(c.clientCtx, pathSecretContract, encodeSecretContractRequest(opts.ContractAddr, query))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", types.ErrQuery, opts.ContractAddr, c.encryption.DecryptErrors(err.Error(), nonce))
	}
	data, err := bytesField(resp, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrQuery, opts.ContractAddr, err)
	}
	answer, err := c.encryption.DecryptBase64(data, nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decrypt answer: %v", types.ErrQuery, opts.ContractAddr, err)
	}
	return answer, nil
}

func (c *chainIO) Balance(ctx context.Context, denom string) (math.Int, error) {
	return c.BalanceOf(ctx, c.Address(), denom)
}

func (c *chainIO) BalanceOf(ctx context.Context, address, denom string) (math.Int, error) {
	queryClient := banktypes.NewQueryClient(c.clientCtx)
	resp, err := queryClient.Balance(ctx, &banktypes.QueryBalanceRequest{
		Address: address,
		Denom:   denom,
	})
	if err != nil {
		return math.ZeroInt(), fmt.Errorf("%w: balance of %s: %v", types.ErrQuery, address, err)
	}
	if resp.Balance == nil {
		return math.ZeroInt(), nil
	}
	return resp.Balance.Amount, nil
}

type txOptions struct {
	gasAdjustment float64
	gasPrice      sdktypes.DecCoin
	gas           uint64
	memo          string
	simulate      bool
	// nonce of the sealed contract message, empty for uploads
	nonce []byte
}

// SendTransaction signs and broadcasts msg, then waits until it is included in a block.
// Only broadcasts that never reach the mempool are retried, with a bumped gas price. A
// tx included with a non-zero code is returned as is and left to the caller to judge.
func (c *chainIO) SendTransaction(ctx context.Context, kind string, opts txOptions, msg sdktypes.Msg) (*types.TxResult, error) {
	maxRetries := max(c.params.MaxRetries, 1)
	var (
		txResp *sdktypes.TxResponse
		err    error
	)

	start := time.Now()
	for attempt := 0; attempt < maxRetries; attempt++ {
		txResp, err = c.broadcast(ctx, opts, msg)
		if err == nil {
			break
		}
		zap.L().Warn("Failed to send transaction", zap.String("kind", kind), zap.Int("attempt", attempt+1), zap.Error(err))
		if attempt == maxRetries-1 {
			c.indicators.IncrementProcessedTxsTotal(kind, "error")
			return nil, fmt.Errorf("max retries exceeded: %w", err)
		}
		if c.params.GasPriceAdjustmentRate != "" && opts.gasPrice.IsValid() {
			opts.gasPrice = sdktypes.NewDecCoinFromDec(opts.gasPrice.Denom, opts.gasPrice.Amount.Mul(math.LegacyMustNewDecFromStr(c.params.GasPriceAdjustmentRate)))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.params.RetryInterval):
		}
	}
	c.indicators.ObserveBroadcastLatencyMs(time.Since(start).Milliseconds())

	// rejected by CheckTx, never included
	if txResp.Code != 0 {
		c.indicators.IncrementProcessedTxsTotal(kind, "error")
		return &types.TxResult{
			TxHash:    txResp.TxHash,
			Code:      txResp.Code,
			RawLog:    c.encryption.DecryptErrors(txResp.RawLog, opts.nonce),
			GasWanted: txResp.GasWanted,
			GasUsed:   txResp.GasUsed,
		}, nil
	}

	confirmed, err := c.waitForConfirmation(ctx, txResp.TxHash)
	if err != nil {
		c.indicators.IncrementProcessedTxsTotal(kind, "error")
		return nil, err
	}
	c.indicators.ObserveConfirmationLatencyMs(time.Since(start).Milliseconds())
	c.indicators.ObserveGasUsed(confirmed.TxResult.GasUsed)

	result := c.toTxResult(confirmed, opts.nonce)
	if result.Succeeded() {
		c.indicators.IncrementProcessedTxsTotal(kind, "success")
	} else {
		c.indicators.IncrementProcessedTxsTotal(kind, "error")
	}
	return result, nil
}

func (c *chainIO) broadcast(ctx context.Context, opts txOptions, msg sdktypes.Msg) (*sdktypes.TxResponse, error) {
	signedTx, err := c.signer.BuildAndSignTx(ctx, opts.gasAdjustment, opts.gasPrice, opts.gas, opts.memo, opts.simulate, msg)
	if err != nil {
		return nil, err
	}
	txBytes, err := c.clientCtx.TxConfig.TxEncoder()(signedTx)
	if err != nil {
		return nil, err
	}
	return c.clientCtx.BroadcastTx(txBytes)
}

func (c *chainIO) waitForConfirmation(ctx context.Context, txHash string) (*coretypes.ResultTx, error) {
	hashBytes, err := hex.DecodeString(txHash)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.params.PollInterval)
	defer ticker.Stop()

	timeout := time.After(c.params.ConfirmationTimeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("transaction %s confirmation timed out", txHash)
		case <-ticker.C:
			txResp, err := c.clientCtx.Client.Tx(ctx, hashBytes, false)
			if err != nil {
				zap.L().Debug("Failed to query transaction", zap.String("txHash", txHash), zap.Error(err))
				continue
			}
			return txResp, nil
		}
	}
}

func (c *chainIO) toTxResult(res *coretypes.ResultTx, nonce []byte) *types.TxResult {
	result := &types.TxResult{
		TxHash:    res.Hash.String(),
		Height:    res.Height,
		Code:      res.TxResult.Code,
		RawLog:    res.TxResult.Log,
		GasWanted: res.TxResult.GasWanted,
		GasUsed:   res.TxResult.GasUsed,
		Events:    msgEvents(res.TxResult.Events),
	}
	if len(nonce) == 0 {
		return result
	}

	result.RawLog = c.encryption.DecryptErrors(result.RawLog, nonce)
	for i, event := range result.Events {
		if event.Type != "wasm" {
			continue
		}
		for j, attr := range event.Attributes {
			if attr.Key == "contract_address" {
				continue
			}
			result.Events[i].Attributes[j] = types.Attribute{
				Key:   c.encryption.decryptAttribute(attr.Key, nonce),
				Value: c.encryption.decryptAttribute(attr.Value, nonce),
			}
		}
	}
	if result.Succeeded() {
		data, err := decodeMsgData(c.clientCtx.Codec, res.TxResult.Data)
		if err != nil {
			zap.L().Warn("Failed to decode tx data", zap.String("txHash", result.TxHash), zap.Error(err))
		}
		for _, sealed := range data {
			answer, err := c.encryption.DecryptBase64(sealed, nonce)
			if err != nil {
				zap.L().Warn("Failed to decrypt tx data", zap.String("txHash", result.TxHash), zap.Error(err))
				answer = nil
			}
			result.Data = append(result.Data, answer)
		}
	}
	return result
}

// msgEvents flattens the events emitted by the first message of a tx, one event per
// type in order of first appearance. Ante handler events are dropped. Events of nodes
// that do not tag them with a message index are all kept.
func msgEvents(events []abci.Event) []types.Event {
	var scoped []abci.Event
	for _, e := range events {
		for _, attr := range e.Attributes {
			if attr.Key == "msg_index" && attr.Value == "0" {
				scoped = append(scoped, e)
				break
			}
		}
	}
	if len(scoped) == 0 {
		scoped = events
	}

	var out []types.Event
	for _, e := range sdktypes.StringifyEvents(scoped) {
		event := types.Event{Type: e.Type}
		for _, attr := range e.Attributes {
			event.Attributes = append(event.Attributes, types.Attribute{Key: attr.Key, Value: attr.Value})
		}
		out = append(out, event)
	}
	return out
}

// decodeMsgData unpacks the per-message responses of a tx into the sealed contract answers.
func decodeMsgData(cdc codec.Codec, bz []byte) ([][]byte, error) {
	if len(bz) == 0 {
		return nil, nil
	}
	var txMsgData sdktypes.TxMsgData
	if err := cdc.Unmarshal(bz, &txMsgData); err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(txMsgData.MsgResponses))
	for _, msgResp := range txMsgData.MsgResponses {
		switch msgResp.TypeUrl {
		case typeURLExecuteResponse:
			data, err := bytesField(msgResp.Value, 1)
			if err != nil {
				return nil, err
			}
			out = append(out, data)
		case typeURLInstantiateResponse:
			data, err := bytesField(msgResp.Value, 2)
			if err != nil {
				return nil, err
			}
			out = append(out, data)
		default:
			out = append(out, msgResp.Value)
		}
	}
	return out, nil
}

func setAddressPrefixes(bech32Prefix string) {
	config := sdktypes.GetConfig()
	config.SetBech32PrefixForAccount(bech32Prefix, bech32Prefix+"pub")
	config.SetBech32PrefixForValidator(bech32Prefix+"valoper", bech32Prefix+"valoperpub")
	config.SetBech32PrefixForConsensusNode(bech32Prefix+"valcons", bech32Prefix+"valconspub")

	config.SetAddressVerifier(func(bytes []byte) error {
		if len(bytes) == 0 {
			return fmt.Errorf("addresses cannot be empty")
		}

		if len(bytes) > address.MaxAddrLen {
			return fmt.Errorf("address max length is %d, got %d, %x", address.MaxAddrLen, len(bytes), bytes)
		}

		if len(bytes) != 20 && len(bytes) != 32 {
			return fmt.Errorf("address length must be 20 or 32 bytes, got %d, %x", len(bytes), bytes)
		}

		return nil
	})
}

func initCodec() (codectypes.InterfaceRegistry, codec.Codec, *codec.LegacyAmino) {
	interfaceRegistry := codectypes.NewInterfaceRegistry()
	authtypes.RegisterInterfaces(interfaceRegistry)
	banktypes.RegisterInterfaces(interfaceRegistry)
	cryptocodec.RegisterInterfaces(interfaceRegistry)
	std.RegisterInterfaces(interfaceRegistry)

	marshaler := codec.NewProtoCodec(interfaceRegistry)

	legacyAmino := codec.NewLegacyAmino()
	std.RegisterLegacyAminoCodec(legacyAmino)
	module.NewBasicManager(compute.AppModuleBasic{}).RegisterInterfaces(interfaceRegistry)

	return interfaceRegistry, marshaler, legacyAmino
}

func initClientContext(chainID string, interfaceRegistry codectypes.InterfaceRegistry, marshaler codec.Codec, legacyAmino *codec.LegacyAmino) client.Context {
	txConfig := authtx.NewTxConfig(marshaler, authtx.DefaultSignModes)
	return client.Context{}.
		WithChainID(chainID).
		WithOutputFormat("json").
		WithInterfaceRegistry(interfaceRegistry).
		WithTxConfig(txConfig).
		WithCodec(marshaler).
		WithLegacyAmino(legacyAmino).
		WithAccountRetriever(authtypes.AccountRetriever{}).
		WithBroadcastMode(flags.BroadcastSync)
}
