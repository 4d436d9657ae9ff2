package io

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cosmos/cosmos-sdk/client"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	pathTxKey          = "/secret.registration.v1beta1.Query/TxKey"
	pathCodeHash       = "/secret.compute.v1beta1.Query/CodeHashByCodeId"
	pathSecretContract = "/secret.compute.v1beta1.Query/QuerySecretContract"

	typeURLExecuteResponse     = "/secret.compute.v1beta1.MsgExecuteContractResponse"
	typeURLInstantiateResponse = "/secret.compute.v1beta1.MsgInstantiateContractResponse"
)

// abciQuery runs a raw gRPC query through the node's ABCI endpoint.
func abciQuery(clientCtx client.Context, path string, data []byte) ([]byte, error) {
	resp, err := clientCtx.QueryABCI(abci.RequestQuery{Path: path, Data: data})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func encodeCodeHashRequest(codeID uint64) []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	return protowire.AppendVarint(b, codeID)
}

func encodeSecretContractRequest(contract string, query []byte) []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, contract)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	return protowire.AppendBytes(b, query)
}

// bytesField returns the last occurrence of the length delimited field num in a
// protobuf message. Other fields are skipped.
func bytesField(b []byte, num protowire.Number) ([]byte, error) {
	var out []byte
	for len(b) > 0 {
		n, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return nil, fmt.Errorf("malformed tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		if n == num && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("malformed field %d: %w", num, protowire.ParseError(m))
			}
			out = v
			b = b[m:]
			continue
		}
		m := protowire.ConsumeFieldValue(n, typ, b)
		if m < 0 {
			return nil, fmt.Errorf("malformed field %d: %w", n, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return out, nil
}
