package deployer

import (
	"context"
	"encoding/json"
	"fmt"

	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/logger"
)

// Contract is a fully deployed contract: uploaded, hashed and instantiated.
type Contract struct {
	CodeID   uint64 `json:"code_id" yaml:"code_id"`
	CodeHash string `json:"code_hash" yaml:"code_hash"`
	Address  string `json:"address" yaml:"address"`
	Label    string `json:"label" yaml:"label"`
}

type Deployed[T interface{}] struct {
	Contract
	InstantiateMsg T
}

type Options struct {
	LabelPrefix    string
	UploadGas      uint64
	InstantiateGas uint64
	GasPrice       sdktypes.DecCoin
	// CodeIDKey is the attribute holding the code id in an upload receipt; the first
	// match across all events wins.
	CodeIDKey string
	// AddressEvent and AddressKey locate the new contract address in an instantiate
	// receipt.
	AddressEvent string
	AddressKey   string
}

func DefaultOptions() Options {
	return Options{
		LabelPrefix:    "My contract",
		UploadGas:      5_000_000,
		InstantiateGas: 1_000_000,
		CodeIDKey:      "code_id",
		AddressEvent:   "message",
		AddressKey:     "contract_address",
	}
}

type Deployer struct {
	chain  io.ChainIO
	opts   Options
	logger logger.Logger
}

func NewDeployer(chain io.ChainIO, opts Options, l logger.Logger) *Deployer {
	return &Deployer{chain: chain, opts: opts, logger: l}
}

// Upload stores wasm and returns the code id assigned to it.
func (d *Deployer) Upload(ctx context.Context, wasm []byte) (uint64, error) {
	d.logger.Info("Uploading contract", logger.WithField("size", len(wasm)))
	res, err := d.chain.StoreCode(ctx, types.StoreCodeOptions{
		WasmByteCode: wasm,
		GasPrice:     d.opts.GasPrice,
		Gas:          d.opts.UploadGas,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrUpload, err)
	}
	if err := types.CheckTx(types.ErrUpload, res); err != nil {
		if res != nil {
			d.logger.Error("Failed to get code id", logger.WithField("rawLog", res.RawLog))
		}
		return 0, err
	}

	codeID, err := res.CodeID(d.opts.CodeIDKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrUpload, err)
	}
	d.logger.Info("Contract uploaded", logger.WithField("codeId", codeID), logger.WithField("gasUsed", res.GasUsed))
	return codeID, nil
}

// Instantiate resolves the code hash of codeID and creates a new instance under a
// unique label.
func (d *Deployer) Instantiate(ctx context.Context, codeID uint64, initMsg []byte) (*Contract, error) {
	codeHash, err := d.chain.CodeHash(ctx, codeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInstantiate, err)
	}
	d.logger.Info("Contract hash", logger.WithField("codeId", codeID), logger.WithField("codeHash", codeHash))

	label := NewLabel(d.opts.LabelPrefix)
	res, err := d.chain.Instantiate(ctx, types.InstantiateOptions{
		CodeID:   codeID,
		CodeHash: codeHash,
		InitMsg:  initMsg,
		Label:    label,
		GasPrice: d.opts.GasPrice,
		Gas:      d.opts.InstantiateGas,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInstantiate, err)
	}
	if err := types.CheckTx(types.ErrInstantiate, res); err != nil {
		return nil, err
	}

	address, err := res.MustFindAttribute(d.opts.AddressEvent, d.opts.AddressKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInstantiate, err)
	}
	d.logger.Info("Contract instantiated", logger.WithField("address", address), logger.WithField("label", label))

	return &Contract{
		CodeID:   codeID,
		CodeHash: codeHash,
		Address:  address,
		Label:    label,
	}, nil
}

func (d *Deployer) Deploy(ctx context.Context, wasm []byte, initMsg []byte) (*Contract, error) {
	codeID, err := d.Upload(ctx, wasm)
	if err != nil {
		return nil, err
	}
	return d.Instantiate(ctx, codeID, initMsg)
}

// Deploy uploads and instantiates wasm with a typed init message.
func Deploy[T interface{}](ctx context.Context, d *Deployer, wasm []byte, initMsg T) (*Deployed[T], error) {
	initBytes, err := json.Marshal(initMsg)
	if err != nil {
		return nil, err
	}
	contract, err := d.Deploy(ctx, wasm, initBytes)
	if err != nil {
		return nil, err
	}
	return &Deployed[T]{
		Contract:       *contract,
		InstantiateMsg: initMsg,
	}, nil
}

// NewLabel returns prefix followed by a random suffix. Labels must be unique per chain.
func NewLabel(prefix string) string {
	return prefix + " " + uuid.NewString()
}
