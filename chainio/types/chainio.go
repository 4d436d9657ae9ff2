package types

import (
	"time"

	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

const DefaultKeyName = "harness"

type ExecuteOptions struct {
	ContractAddr  string           // ContractAddr: Address of the smart contract
	CodeHash      string           // CodeHash: Content hash of the contract code, used for call routing
	ExecuteMsg    []byte           // ExecuteMsg: Message to be executed, json encoded
	Funds         string           // Funds: Amount of funds to send to the contract, represented as a string (e.g., "10uscrt")
	GasAdjustment float64          // GasAdjustment: Gas adjustment factor for adjusting the estimated gas amount
	GasPrice      sdktypes.DecCoin // GasPrice: Gas price, represented as a DecCoin (e.g., "0.25uscrt")
	Gas           uint64           // Gas: Amount of gas reserved for transaction execution
	Memo          string           // Memo: Transaction memo information
	Simulate      bool             // Simulate: Whether to simulate the transaction to estimate gas usage and set Gas accordingly
}

type StoreCodeOptions struct {
	WasmByteCode []byte
	GasPrice     sdktypes.DecCoin
	Gas          uint64
	Memo         string
}

type InstantiateOptions struct {
	CodeID   uint64
	CodeHash string
	InitMsg  []byte
	Label    string
	Admin    string
	Funds    string
	GasPrice sdktypes.DecCoin
	Gas      uint64
	Memo     string
}

type QueryOptions struct {
	ContractAddr string // ContractAddr: Address of the smart contract
	CodeHash     string // CodeHash: Content hash of the contract code
	QueryMsg     []byte // QueryMsg: Query message json encoding
}

type TxManagerParams struct {
	MaxRetries             int
	RetryInterval          time.Duration
	ConfirmationTimeout    time.Duration
	PollInterval           time.Duration
	GasPriceAdjustmentRate string
}

func DefaultTxManagerParams() TxManagerParams {
	return TxManagerParams{
		MaxRetries:             3,
		RetryInterval:          2 * time.Second,
		ConfirmationTimeout:    60 * time.Second,
		PollInterval:           time.Second,
		GasPriceAdjustmentRate: "1.1",
	}
}
