package cosmwasmapi

import (
	"cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

type BroadcastOptions struct {
	ContractAddr  string           // ContractAddr: Address of the smart contract
	CodeHash      string           // CodeHash: Content hash of the contract code
	ExecuteMsg    []byte           // ExecuteMsg: Message to be executed, json encoded
	Funds         sdktypes.Coins   // Funds: Amount of funds to send to the contract, represented as Coins
	GasAdjustment float64          // GasAdjustment: Gas adjustment factor for adjusting the estimated gas amount
	GasPrice      sdktypes.DecCoin // GasPrice: Gas price, represented as a string (e.g., "0.25uscrt")
	Gas           uint64           // Gas: Amount of gas reserved for transaction execution
	Memo          string           // Memo: Transaction memo information
	Simulate      bool             // Simulate: Whether to simulate the transaction to estimate gas usage and set Gas accordingly
}

func DefaultBroadcastOptions() BroadcastOptions {
	return BroadcastOptions{
		Funds:         sdktypes.Coins{},
		GasAdjustment: 1.2,
		GasPrice:      sdktypes.NewDecCoinFromDec("uscrt", math.LegacyMustNewDecFromStr("0.25")),
		Gas:           200_000,
		Simulate:      false,
	}
}

func (opts BroadcastOptions) WithContract(contractAddr, codeHash string) BroadcastOptions {
	opts.ContractAddr = contractAddr
	opts.CodeHash = codeHash
	return opts
}

func (opts BroadcastOptions) WithFunds(funds string) BroadcastOptions {
	coinFunds, err := sdktypes.ParseCoinsNormalized(funds)
	if err != nil {
		panic(err)
	}

	opts.Funds = coinFunds
	return opts
}

func (opts BroadcastOptions) WithGasAdjustment(gasAdjustment float64) BroadcastOptions {
	opts.GasAdjustment = gasAdjustment
	return opts
}

func (opts BroadcastOptions) WithGasPrice(gasPrice string) BroadcastOptions {
	coin, err := sdktypes.ParseDecCoin(gasPrice)
	if err != nil {
		panic(err)
	}
	opts.GasPrice = coin
	return opts
}

func (opts BroadcastOptions) WithGas(gas uint64) BroadcastOptions {
	opts.Gas = gas
	return opts
}

func (opts BroadcastOptions) WithMemo(memo string) BroadcastOptions {
	opts.Memo = memo
	return opts
}

func (opts BroadcastOptions) WithSimulate(simulate bool) BroadcastOptions {
	opts.Simulate = simulate
	return opts
}

func (opts BroadcastOptions) executeOptions() types.ExecuteOptions {
	return types.ExecuteOptions{
		ContractAddr:  opts.ContractAddr,
		CodeHash:      opts.CodeHash,
		ExecuteMsg:    opts.ExecuteMsg,
		Funds:         opts.Funds.String(),
		GasAdjustment: opts.GasAdjustment,
		GasPrice:      opts.GasPrice,
		Gas:           opts.Gas,
		Memo:          opts.Memo,
		Simulate:      opts.Simulate,
	}
}
