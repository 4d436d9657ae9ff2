package snip721

import (
	"context"
	"fmt"

	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	cosmwasmapi "github.com/zorostang/secret-upgradable-nfts/cosmwasm-api"
)

// SNIP721 is a typed client of the upgradable SNIP-721 contract.
type SNIP721 interface {
	WithGasLimit(gasLimit uint64) SNIP721
	WithGasPrice(gasPrice sdktypes.DecCoin) SNIP721

	Address() string
	CodeHash() string

	MintNft(ctx context.Context, msg MintNft) (*MintNftAnswer, *types.TxResult, error)
	SetMetadata(ctx context.Context, msg SetMetadata) (*types.TxResult, error)
	SetViewingKey(ctx context.Context, key string) (*types.TxResult, error)
	RegisterMetadataProvider(ctx context.Context, address, codeHash string) (*types.TxResult, error)

	NftInfo(ctx context.Context, tokenID string) (*Metadata, error)
	PrivateMetadata(ctx context.Context, tokenID string, viewer ViewerInfo) (*Metadata, error)
	BatchProviderMetadata(ctx context.Context, tokenID string, viewer *ViewerInfo) ([]ProviderMetadata, error)
}

type snip721Impl struct {
	client *cosmwasmapi.Client
}

func NewSNIP721(chain io.ChainIO, contractAddr, codeHash string, opts cosmwasmapi.BroadcastOptions) SNIP721 {
	return &snip721Impl{client: cosmwasmapi.NewClient(chain, contractAddr, codeHash, opts)}
}

func (s *snip721Impl) WithGasLimit(gasLimit uint64) SNIP721 {
	s.client.SetOptions(s.client.Options().WithGas(gasLimit))
	return s
}

func (s *snip721Impl) WithGasPrice(gasPrice sdktypes.DecCoin) SNIP721 {
	opts := s.client.Options()
	opts.GasPrice = gasPrice
	s.client.SetOptions(opts)
	return s
}

func (s *snip721Impl) Address() string {
	return s.client.Address()
}

func (s *snip721Impl) CodeHash() string {
	return s.client.CodeHash()
}

func (s *snip721Impl) MintNft(ctx context.Context, msg MintNft) (*MintNftAnswer, *types.TxResult, error) {
	if err := validateMetadata(msg.PublicMetadata, msg.PrivateMetadata); err != nil {
		return nil, nil, err
	}
	answer, res, err := s.execute(ctx, ExecuteMsg{MintNft: &msg})
	if err != nil {
		return nil, res, err
	}
	if answer.MintNft == nil {
		return nil, res, unexpectedAnswer("mint_nft", res)
	}
	return answer.MintNft, res, nil
}

func (s *snip721Impl) SetMetadata(ctx context.Context, msg SetMetadata) (*types.TxResult, error) {
	if err := validateMetadata(msg.PublicMetadata, msg.PrivateMetadata); err != nil {
		return nil, err
	}
	answer, res, err := s.execute(ctx, ExecuteMsg{SetMetadata: &msg})
	if err != nil {
		return res, err
	}
	return res, checkStatus("set_metadata", answer.SetMetadata, res)
}

func (s *snip721Impl) SetViewingKey(ctx context.Context, key string) (*types.TxResult, error) {
	answer, res, err := s.execute(ctx, ExecuteMsg{SetViewingKey: &SetViewingKey{Key: key}})
	if err != nil {
		return res, err
	}
	if answer.ViewingKey == nil {
		return res, unexpectedAnswer("viewing_key", res)
	}
	return res, nil
}

func (s *snip721Impl) RegisterMetadataProvider(ctx context.Context, address, codeHash string) (*types.TxResult, error) {
	answer, res, err := s.execute(ctx, ExecuteMsg{RegisterMetadataProvider: &RegisterMetadataProvider{
		Address:  address,
		CodeHash: codeHash,
	}})
	if err != nil {
		return res, err
	}
	return res, checkStatus("register_metadata_provider", answer.RegisterMetadataProvider, res)
}

func (s *snip721Impl) NftInfo(ctx context.Context, tokenID string) (*Metadata, error) {
	resp, err := s.query(ctx, QueryMsg{NftInfo: &NftInfo{TokenID: tokenID}})
	if err != nil {
		return nil, err
	}
	var out NftInfoResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.NftInfo == nil {
		return nil, fmt.Errorf("%w: missing nft_info in response", types.ErrQuery)
	}
	return out.NftInfo, nil
}

func (s *snip721Impl) PrivateMetadata(ctx context.Context, tokenID string, viewer ViewerInfo) (*Metadata, error) {
	resp, err := s.query(ctx, QueryMsg{PrivateMetadata: &PrivateMetadata{TokenID: tokenID, Viewer: &viewer}})
	if err != nil {
		return nil, err
	}
	var out PrivateMetadataResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.PrivateMetadata == nil {
		return nil, fmt.Errorf("%w: missing private_metadata in response", types.ErrQuery)
	}
	return out.PrivateMetadata, nil
}

func (s *snip721Impl) BatchProviderMetadata(ctx context.Context, tokenID string, viewer *ViewerInfo) ([]ProviderMetadata, error) {
	resp, err := s.query(ctx, QueryMsg{BatchProviderMetadata: &BatchProviderMetadata{TokenID: tokenID, Viewer: viewer}})
	if err != nil {
		return nil, err
	}
	var out BatchProviderMetadataResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.BatchProviderMetadata, nil
}

func (s *snip721Impl) execute(ctx context.Context, msg ExecuteMsg) (ExecuteAnswer, *types.TxResult, error) {
	return cosmwasmapi.Execute[ExecuteAnswer](ctx, s.client.Chain(), s.client.Options(), msg)
}

func (s *snip721Impl) query(ctx context.Context, msg QueryMsg) ([]byte, error) {
	return cosmwasmapi.QueryRaw(ctx, s.client.Chain(), s.client.Address(), s.client.CodeHash(), msg)
}

func validateMetadata(metadata ...*Metadata) error {
	for _, m := range metadata {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %w", types.ErrExecution, err)
		}
	}
	return nil
}

func checkStatus(variant string, answer *StatusAnswer, res *types.TxResult) error {
	if answer == nil {
		return unexpectedAnswer(variant, res)
	}
	if answer.Status != Success {
		return fmt.Errorf("%w: %s returned status %q in tx %s", types.ErrExecution, variant, answer.Status, res.TxHash)
	}
	return nil
}

func unexpectedAnswer(variant string, res *types.TxResult) error {
	return fmt.Errorf("%w: expected %s answer in tx %s", types.ErrExecution, variant, res.TxHash)
}

// RegisteredProvider returns the provider address logged by a register_metadata_provider tx.
func RegisteredProvider(res *types.TxResult) (string, error) {
	return res.MustFindAttribute("wasm", RegisterProviderKey)
}
