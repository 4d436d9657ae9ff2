package provider

import (
	"context"
	"encoding/json"
	"fmt"

	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/contracts/snip721"
	cosmwasmapi "github.com/zorostang/secret-upgradable-nfts/cosmwasm-api"
)

type Provider interface {
	WithGasLimit(gasLimit uint64) Provider
	WithGasPrice(gasPrice sdktypes.DecCoin) Provider

	Address() string
	CodeHash() string

	SetMetadata(ctx context.Context, msg SetMetadata) (*types.TxResult, error)
	CreateViewingKey(ctx context.Context, entropy string) (string, *types.TxResult, error)
	SetViewingKey(ctx context.Context, key string) (*types.TxResult, error)
	ChangeAdmin(ctx context.Context, address string) (*types.TxResult, error)

	NftInfo(ctx context.Context, tokenIdx uint32) (*snip721.Metadata, error)
	PrivateMetadata(ctx context.Context, tokenID string, viewer *snip721.ViewerInfo) (*snip721.Metadata, error)
}

type providerImpl struct {
	client *cosmwasmapi.Client
}

func NewProvider(chain io.ChainIO, contractAddr, codeHash string, opts cosmwasmapi.BroadcastOptions) Provider {
	return &providerImpl{client: cosmwasmapi.NewClient(chain, contractAddr, codeHash, opts)}
}

func (p *providerImpl) WithGasLimit(gasLimit uint64) Provider {
	p.client.SetOptions(p.client.Options().WithGas(gasLimit))
	return p
}

func (p *providerImpl) WithGasPrice(gasPrice sdktypes.DecCoin) Provider {
	opts := p.client.Options()
	opts.GasPrice = gasPrice
	p.client.SetOptions(opts)
	return p
}

func (p *providerImpl) Address() string {
	return p.client.Address()
}

func (p *providerImpl) CodeHash() string {
	return p.client.CodeHash()
}

func (p *providerImpl) SetMetadata(ctx context.Context, msg SetMetadata) (*types.TxResult, error) {
	for _, m := range []*snip721.Metadata{msg.PublicMetadata, msg.PrivateMetadata} {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrExecution, err)
		}
	}
	answer, res, err := p.execute(ctx, ExecuteMsg{SetMetadata: &msg})
	if err != nil {
		return res, err
	}
	return res, checkStatus("set_metadata", answer.SetMetadata, res)
}

func (p *providerImpl) CreateViewingKey(ctx context.Context, entropy string) (string, *types.TxResult, error) {
	answer, res, err := p.execute(ctx, ExecuteMsg{CreateViewingKey: &CreateViewingKey{Entropy: entropy}})
	if err != nil {
		return "", res, err
	}
	if answer.ViewingKey == nil || answer.ViewingKey.Key == "" {
		return "", res, fmt.Errorf("%w: expected viewing_key answer in tx %s", types.ErrExecution, res.TxHash)
	}
	return answer.ViewingKey.Key, res, nil
}

func (p *providerImpl) SetViewingKey(ctx context.Context, key string) (*types.TxResult, error) {
	answer, res, err := p.execute(ctx, ExecuteMsg{SetViewingKey: &SetViewingKey{Key: key}})
	if err != nil {
		return res, err
	}
	if answer.ViewingKey == nil {
		return res, fmt.Errorf("%w: expected viewing_key answer in tx %s", types.ErrExecution, res.TxHash)
	}
	return res, nil
}

func (p *providerImpl) ChangeAdmin(ctx context.Context, address string) (*types.TxResult, error) {
	answer, res, err := p.execute(ctx, ExecuteMsg{ChangeAdmin: &ChangeAdmin{Address: address}})
	if err != nil {
		return res, err
	}
	return res, checkStatus("change_admin", answer.ChangeAdmin, res)
}

func (p *providerImpl) NftInfo(ctx context.Context, tokenIdx uint32) (*snip721.Metadata, error) {
	var out NftInfoResponse
	if err := p.query(ctx, QueryMsg{NftInfo: &NftInfo{TokenIdx: tokenIdx}}, &out); err != nil {
		return nil, err
	}
	if out.NftInfo == nil {
		return nil, fmt.Errorf("%w: missing nft_info in response", types.ErrQuery)
	}
	return out.NftInfo, nil
}

func (p *providerImpl) PrivateMetadata(ctx context.Context, tokenID string, viewer *snip721.ViewerInfo) (*snip721.Metadata, error) {
	var out PrivateMetadataResponse
	if err := p.query(ctx, QueryMsg{PrivateMetadata: &PrivateMetadata{TokenID: tokenID, Viewer: viewer}}, &out); err != nil {
		return nil, err
	}
	if out.PrivateMetadata == nil {
		return nil, fmt.Errorf("%w: missing private_metadata in response", types.ErrQuery)
	}
	return out.PrivateMetadata, nil
}

func (p *providerImpl) execute(ctx context.Context, msg ExecuteMsg) (ExecuteAnswer, *types.TxResult, error) {
	return cosmwasmapi.Execute[ExecuteAnswer](ctx, p.client.Chain(), p.client.Options(), msg)
}

func (p *providerImpl) query(ctx context.Context, msg QueryMsg, out interface{}) error {
	data, err := cosmwasmapi.QueryRaw(ctx, p.client.Chain(), p.client.Address(), p.client.CodeHash(), msg)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", types.ErrQuery, err)
	}
	return nil
}

func checkStatus(variant string, answer *snip721.StatusAnswer, res *types.TxResult) error {
	if answer == nil {
		return fmt.Errorf("%w: expected %s answer in tx %s", types.ErrExecution, variant, res.TxHash)
	}
	if answer.Status != snip721.Success {
		return fmt.Errorf("%w: %s returned status %q in tx %s", types.ErrExecution, variant, answer.Status, res.TxHash)
	}
	return nil
}
