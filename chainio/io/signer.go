package io

import (
	"context"
	"errors"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/tx"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	compute "github.com/scrtlabs/SecretNetwork/x/compute"
)

// Signer builds and signs transactions with the key named by the client context.
type Signer struct {
	ClientCtx client.Context
}

func NewSigner(clientCtx client.Context) *Signer {
	return &Signer{ClientCtx: clientCtx}
}

func (s *Signer) BuildAndSignTx(ctx context.Context, gasAdjustment float64, gasPrice sdktypes.DecCoin, maxGas uint64, memo string, simulate bool, msgs ...sdktypes.Msg) (sdktypes.Tx, error) {
	txBuilder, txf, err := s.BuildUnsignedTx(gasAdjustment, gasPrice, maxGas, memo, simulate, msgs...)
	if err != nil {
		return nil, err
	}

	if err = tx.Sign(ctx, txf, s.ClientCtx.GetFromName(), txBuilder, true); err != nil {
		return nil, err
	}
	return txBuilder.GetTx(), nil
}

func (s *Signer) BuildUnsignedTx(gasAdjustment float64, gasPrice sdktypes.DecCoin, maxGas uint64, memo string, simulate bool, msgs ...sdktypes.Msg) (client.TxBuilder, tx.Factory, error) {
	for _, msg := range msgs {
		if err := ValidateMsg(msg); err != nil {
			return nil, tx.Factory{}, err
		}
	}
	txf, err := s.factory(gasAdjustment, gasPrice, maxGas, memo, simulate).Prepare(s.ClientCtx)
	if err != nil {
		return nil, tx.Factory{}, err
	}
	if txf.SimulateAndExecute() {
		_, adjusted, err := tx.CalculateGas(s.ClientCtx, txf, msgs...)
		if err != nil {
			return nil, tx.Factory{}, err
		}
		if adjusted > maxGas {
			adjusted = maxGas
		}
		txf = txf.WithGas(adjusted)
	}
	txBuilder, err := txf.BuildUnsignedTx(msgs...)
	if err != nil {
		return nil, tx.Factory{}, err
	}
	return txBuilder, txf, nil
}

func (s *Signer) factory(gasAdjustment float64, gasPrice sdktypes.DecCoin, maxGas uint64, memo string, simulate bool) tx.Factory {
	txf := tx.Factory{}.
		WithChainID(s.ClientCtx.ChainID).
		WithKeybase(s.ClientCtx.Keyring).
		WithTxConfig(s.ClientCtx.TxConfig).
		WithAccountRetriever(s.ClientCtx.AccountRetriever).
		WithSimulateAndExecute(simulate).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT).
		WithGas(maxGas).
		WithGasAdjustment(gasAdjustment).
		WithFromName(s.ClientCtx.FromName).
		WithMemo(memo)
	if gasPrice.IsValid() && gasPrice.IsPositive() {
		txf = txf.WithGasPrices(gasPrice.String())
	}
	return txf
}

// ValidateMsg rejects messages that would certainly fail on chain. Contract messages
// must already be sealed.
func ValidateMsg(msg sdktypes.Msg) error {
	switch m := msg.(type) {
	case nil:
		return errors.New("nil message")
	case *compute.MsgStoreCode:
		if len(m.WASMByteCode) == 0 {
			return errors.New("empty wasm byte code")
		}
	case *compute.MsgInstantiateContract:
		if m.CodeID == 0 {
			return errors.New("code id must be positive")
		}
		if m.Label == "" {
			return errors.New("empty label")
		}
		if !isSealed(m.InitMsg) {
			return errors.New("init message is not encrypted")
		}
	case *compute.MsgExecuteContract:
		if m.Contract.Empty() {
			return errors.New("empty contract address")
		}
		if !isSealed(m.Msg) {
			return errors.New("execute message is not encrypted")
		}
	}
	return nil
}

func isSealed(msg []byte) bool {
	return len(msg) > nonceSize+keySize
}
