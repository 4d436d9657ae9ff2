package io

import (
	"bytes"
	"encoding/base64"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	compute "github.com/scrtlabs/SecretNetwork/x/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/zorostang/secret-upgradable-nfts/metrics"
)

func bytesMsg(num protowire.Number, v []byte) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func TestDecodeMsgData(t *testing.T) {
	_, cdc, _ := initCodec()

	initValue := append(bytesMsg(1, []byte("secret1contract")), bytesMsg(2, []byte("sealed-init"))...)
	bz, err := cdc.Marshal(&sdktypes.TxMsgData{MsgResponses: []*codectypes.Any{
		{TypeUrl: typeURLExecuteResponse, Value: bytesMsg(1, []byte("sealed-execute"))},
		{TypeUrl: typeURLInstantiateResponse, Value: initValue},
	}})
	require.NoError(t, err)

	data, err := decodeMsgData(cdc, bz)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "sealed-execute", string(data[0]))
	assert.Equal(t, "sealed-init", string(data[1]))
}

func TestDecodeMsgDataEmpty(t *testing.T) {
	_, cdc, _ := initCodec()
	data, err := decodeMsgData(cdc, nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestBytesField(t *testing.T) {
	b := protowire.AppendTag(nil, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)
	b = append(b, bytesMsg(1, []byte("key"))...)

	got, err := bytesField(b, 1)
	require.NoError(t, err)
	assert.Equal(t, "key", string(got))

	got, err = bytesField(b, 2)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = bytesField([]byte{0x0a, 0x05, 0x01}, 1)
	assert.Error(t, err)
}

func TestSecretContractRequest(t *testing.T) {
	b := encodeSecretContractRequest("secret1contract", []byte("sealed"))
	contract, err := bytesField(b, 1)
	require.NoError(t, err)
	query, err := bytesField(b, 2)
	require.NoError(t, err)
	assert.Equal(t, "secret1contract", string(contract))
	assert.Equal(t, "sealed", string(query))

	num, typ, n := protowire.ConsumeTag(encodeCodeHashRequest(7))
	require.Positive(t, n)
	assert.Equal(t, protowire.Number(1), num)
	assert.Equal(t, protowire.VarintType, typ)
}

func newTestChainIO(t *testing.T) (*chainIO, *Encryption) {
	t.Helper()
	sender, enclave := testPair(t)
	registry, cdc, amino := initCodec()
	return &chainIO{
		clientCtx:  initClientContext("secretdev-1", registry, cdc, amino),
		encryption: sender,
		indicators: metrics.Noop{},
	}, enclave
}

func tagged(e abci.Event) abci.Event {
	e.Attributes = append(e.Attributes, abci.EventAttribute{Key: "msg_index", Value: "0"})
	return e
}

func TestToTxResult(t *testing.T) {
	c, enclave := newTestChainIO(t)
	nonce := bytes.Repeat([]byte{0x07}, nonceSize)
	b64 := func(v string) string {
		return base64.StdEncoding.EncodeToString(answer(t, enclave, nonce, []byte(v)))
	}

	sealedData := answer(t, enclave, nonce, []byte(base64.StdEncoding.EncodeToString([]byte(`{"mint_nft":{"token_id":"001"}}`))))
	data, err := c.clientCtx.Codec.Marshal(&sdktypes.TxMsgData{MsgResponses: []*codectypes.Any{
		{TypeUrl: typeURLExecuteResponse, Value: bytesMsg(1, sealedData)},
	}})
	require.NoError(t, err)

	res := &coretypes.ResultTx{
		Hash:   []byte{0xAB, 0xCD},
		Height: 42,
		TxResult: abci.ExecTxResult{
			GasWanted: 200_000,
			GasUsed:   150_000,
			Data:      data,
			Events: []abci.Event{
				{Type: "tx", Attributes: []abci.EventAttribute{{Key: "fee", Value: "5000uscrt"}}},
				tagged(abci.Event{Type: "message", Attributes: []abci.EventAttribute{
					{Key: "action", Value: "/secret.compute.v1beta1.MsgExecuteContract"},
				}}),
				tagged(abci.Event{Type: "message", Attributes: []abci.EventAttribute{
					{Key: "contract_address", Value: "secret1contract"},
				}}),
				tagged(abci.Event{Type: "wasm", Attributes: []abci.EventAttribute{
					{Key: "contract_address", Value: "secret1contract"},
					{Key: b64("minted"), Value: b64("001")},
				}}),
			},
		},
	}

	result := c.toTxResult(res, nonce)
	assert.Equal(t, "ABCD", result.TxHash)
	assert.Equal(t, int64(42), result.Height)
	assert.Equal(t, int64(150_000), result.GasUsed)
	assert.True(t, result.Succeeded())

	require.Len(t, result.Events, 2)
	assert.Equal(t, "message", result.Events[0].Type)
	addr, ok := result.FindAttribute("message", "contract_address")
	assert.True(t, ok)
	assert.Equal(t, "secret1contract", addr)
	_, ok = result.FindAttribute("tx", "fee")
	assert.False(t, ok)

	minted, ok := result.FindAttribute("wasm", "minted")
	assert.True(t, ok)
	assert.Equal(t, "001", minted)

	require.Len(t, result.Data, 1)
	assert.JSONEq(t, `{"mint_nft":{"token_id":"001"}}`, string(result.Data[0]))
}

func TestToTxResultCodeIDInFirstEvent(t *testing.T) {
	c, _ := newTestChainIO(t)
	result := c.toTxResult(&coretypes.ResultTx{
		Hash: []byte{0x02},
		TxResult: abci.ExecTxResult{Events: []abci.Event{
			{Type: "coin_spent", Attributes: []abci.EventAttribute{{Key: "amount", Value: "5000uscrt"}}},
			tagged(abci.Event{Type: "message", Attributes: []abci.EventAttribute{
				{Key: "action", Value: "/secret.compute.v1beta1.MsgStoreCode"},
			}}),
			tagged(abci.Event{Type: "message", Attributes: []abci.EventAttribute{
				{Key: "module", Value: "compute"},
				{Key: "code_id", Value: "7"},
			}}),
		}},
	}, nil)

	codeID, err := result.CodeID("code_id")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), codeID)
}

func TestToTxResultUntaggedEvents(t *testing.T) {
	events := msgEvents([]abci.Event{
		{Type: "message", Attributes: []abci.EventAttribute{{Key: "code_id", Value: "3"}}},
	})
	require.Len(t, events, 1)
	assert.Equal(t, "code_id", events[0].Attributes[0].Key)
}

func TestToTxResultFailed(t *testing.T) {
	c, enclave := newTestChainIO(t)
	nonce := bytes.Repeat([]byte{0x07}, nonceSize)
	sealed := answer(t, enclave, nonce, []byte(`{"generic_err":{"msg":"not authorized"}}`))

	result := c.toTxResult(&coretypes.ResultTx{
		Hash: []byte{0x01},
		TxResult: abci.ExecTxResult{
			Code: 3,
			Log:  "encrypted: " + base64.StdEncoding.EncodeToString(sealed) + ": execute contract failed",
			Data: []byte("not a proto"),
		},
	}, nonce)
	assert.False(t, result.Succeeded())
	assert.Contains(t, result.RawLog, "not authorized")
	assert.Nil(t, result.Data)
}

func TestSealRequiresJSONAndHash(t *testing.T) {
	c, enclave := newTestChainIO(t)

	_, err := c.seal(testCodeHash, []byte(`{`), "execute")
	assert.ErrorContains(t, err, "invalid JSON in execute message")
	_, err = c.seal("", []byte(`{}`), "execute")
	assert.Error(t, err)

	sealed, err := c.seal(testCodeHash, []byte(`{}`), "execute")
	require.NoError(t, err)
	plaintext, err := enclave.Decrypt(sealed[nonceSize+keySize:], Nonce(sealed))
	require.NoError(t, err)
	assert.Equal(t, testCodeHash+`{}`, string(plaintext))
}

func TestValidateMsg(t *testing.T) {
	sealed := bytes.Repeat([]byte{0x01}, nonceSize+keySize+16)
	contract := sdktypes.AccAddress(bytes.Repeat([]byte{0x05}, 20))

	testCases := []struct {
		name    string
		msg     sdktypes.Msg
		wantErr bool
	}{
		{"nil", nil, true},
		{"empty wasm", &compute.MsgStoreCode{}, true},
		{"wasm", &compute.MsgStoreCode{WASMByteCode: []byte{0x00, 0x61, 0x73, 0x6d}}, false},
		{"zero code id", &compute.MsgInstantiateContract{Label: "l", InitMsg: sealed}, true},
		{"empty label", &compute.MsgInstantiateContract{CodeID: 1, InitMsg: sealed}, true},
		{"plaintext init", &compute.MsgInstantiateContract{CodeID: 1, Label: "l", InitMsg: []byte(`{}`)}, true},
		{"instantiate", &compute.MsgInstantiateContract{CodeID: 1, Label: "l", InitMsg: sealed}, false},
		{"no contract", &compute.MsgExecuteContract{Msg: sealed}, true},
		{"plaintext execute", &compute.MsgExecuteContract{Contract: contract, Msg: []byte(`{"mint_nft":{}}`)}, true},
		{"execute", &compute.MsgExecuteContract{Contract: contract, Msg: sealed}, false},
		{"other", &banktypes.MsgSend{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMsg(tc.msg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
