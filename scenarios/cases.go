package scenarios

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	"github.com/cosmos/cosmos-sdk/types/bech32"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/contracts/provider"
	"github.com/zorostang/secret-upgradable-nfts/contracts/snip721"
	cosmwasmapi "github.com/zorostang/secret-upgradable-nfts/cosmwasm-api"
	"github.com/zorostang/secret-upgradable-nfts/deployer"
	"github.com/zorostang/secret-upgradable-nfts/suite"
)

const (
	TokenID    = "001"
	ViewingKey = "password"
)

// Cases returns the default suite in run order.
func Cases() []suite.TestCase {
	return []suite.TestCase{
		{
			Name:     "test_mint",
			Requires: []suite.Key{KeyNFT, KeyBroadcast},
			Produces: []suite.Key{KeyToken},
			Run:      testMint,
		},
		{
			Name:     "test_register_provider",
			Requires: []suite.Key{KeyNFT, KeyProvider, KeyBroadcast},
			Produces: []suite.Key{KeyProviders},
			Run:      testRegisterProvider,
		},
		{
			Name:     "test_set_metadata",
			Requires: []suite.Key{KeyNFT, KeyToken, KeyBroadcast},
			Run:      testSetMetadata,
		},
		{
			Name:     "test_query_metadata",
			Requires: []suite.Key{KeyNFT, KeyToken, KeyBroadcast},
			Produces: []suite.Key{KeyViewingKey},
			Run:      testQueryMetadata,
		},
		{
			Name:     "test_provider_metadata",
			Requires: []suite.Key{KeyProvider, KeyToken, KeyDeployer, KeyNFT, KeyBroadcast},
			Run:      testProviderMetadata,
		},
		{
			Name:     "test_batch_providers",
			Requires: []suite.Key{KeyNFT, KeyProvider, KeyDeployer, KeyBroadcast},
			Run:      testBatchProviders,
		},
		{
			Name:     "test_gas_limits",
			Requires: []suite.Key{KeyRecorder},
			Run:      testGasLimits,
		},
	}
}

func nftClient(env *suite.Env, c *deployer.Contract) snip721.SNIP721 {
	return snip721.NewSNIP721(env.Chain, c.Address, c.CodeHash, suite.MustGet[cosmwasmapi.BroadcastOptions](env, KeyBroadcast))
}

func providerClient(env *suite.Env, c *deployer.Contract) provider.Provider {
	return provider.NewProvider(env.Chain, c.Address, c.CodeHash, suite.MustGet[cosmwasmapi.BroadcastOptions](env, KeyBroadcast))
}

func testMint(ctx context.Context, env *suite.Env) error {
	nft := nftClient(env, suite.MustGet[*deployer.Contract](env, KeyNFT))

	answer, _, err := nft.MintNft(ctx, snip721.MintNft{
		TokenID:         snip721.Ptr(TokenID),
		Owner:           snip721.Ptr(env.Chain.Address()),
		PublicMetadata:  &snip721.Metadata{Extension: &snip721.Extension{}},
		PrivateMetadata: &snip721.Metadata{Extension: &snip721.Extension{}},
	})
	if err != nil {
		return err
	}
	if answer.TokenID != TokenID {
		return fmt.Errorf("minted token %q, want %q", answer.TokenID, TokenID)
	}
	env.Set(KeyToken, answer.TokenID)
	return nil
}

func testRegisterProvider(ctx context.Context, env *suite.Env) error {
	nft := nftClient(env, suite.MustGet[*deployer.Contract](env, KeyNFT))
	p := suite.MustGet[*deployer.Contract](env, KeyProvider)

	res, err := nft.RegisterMetadataProvider(ctx, p.Address, p.CodeHash)
	if err != nil {
		return err
	}
	registered, err := snip721.RegisteredProvider(res)
	if err != nil {
		return err
	}
	if registered != p.Address {
		return fmt.Errorf("registered provider %s, want %s", registered, p.Address)
	}

	_, err = nft.RegisterMetadataProvider(ctx, p.Address, p.CodeHash)
	if !errors.Is(err, types.ErrExecution) {
		return fmt.Errorf("duplicate registration of %s: want an execution error, got %v", p.Address, err)
	}
	env.Set(KeyProviders, []string{registered})
	return nil
}

func testSetMetadata(ctx context.Context, env *suite.Env) error {
	nft := nftClient(env, suite.MustGet[*deployer.Contract](env, KeyNFT))

	_, err := nft.SetMetadata(ctx, snip721.SetMetadata{
		TokenID: suite.MustGet[string](env, KeyToken),
		PublicMetadata: &snip721.Metadata{Extension: &snip721.Extension{
			Name:        snip721.Ptr("test name"),
			Description: snip721.Ptr("hello world"),
		}},
		PrivateMetadata: &snip721.Metadata{Extension: &snip721.Extension{
			Name:        snip721.Ptr("private name"),
			Description: snip721.Ptr("hello world, but private"),
		}},
	})
	return err
}

func testQueryMetadata(ctx context.Context, env *suite.Env) error {
	nft := nftClient(env, suite.MustGet[*deployer.Contract](env, KeyNFT))
	tokenID := suite.MustGet[string](env, KeyToken)

	public, err := nft.NftInfo(ctx, tokenID)
	if err != nil {
		return err
	}
	if err := expectName(public, "test name"); err != nil {
		return fmt.Errorf("nft_info: %w", err)
	}

	if _, err := nft.SetViewingKey(ctx, ViewingKey); err != nil {
		return err
	}
	env.Set(KeyViewingKey, ViewingKey)

	viewer := snip721.ViewerInfo{Address: env.Chain.Address(), ViewingKey: ViewingKey}
	private, err := nft.PrivateMetadata(ctx, tokenID, viewer)
	if err != nil {
		return err
	}
	if err := expectName(private, "private name"); err != nil {
		return fmt.Errorf("private_metadata: %w", err)
	}

	viewer.ViewingKey = "wrong" + ViewingKey
	_, err = nft.PrivateMetadata(ctx, tokenID, viewer)
	if !errors.Is(err, types.ErrQuery) {
		return fmt.Errorf("private_metadata with a wrong viewing key: want a query error, got %v", err)
	}
	return nil
}

func testProviderMetadata(ctx context.Context, env *suite.Env) error {
	contract := suite.MustGet[*deployer.Contract](env, KeyProvider)
	p := providerClient(env, contract)

	_, err := p.SetMetadata(ctx, provider.SetMetadata{
		TokenID: suite.MustGet[string](env, KeyToken),
		Idx:     0,
		PublicMetadata: &snip721.Metadata{Extension: &snip721.Extension{
			Name:        snip721.Ptr("provider name"),
			Description: snip721.Ptr("provided by a metadata provider"),
		}},
		PrivateMetadata: &snip721.Metadata{Extension: &snip721.Extension{
			Name: snip721.Ptr("provider private name"),
		}},
	})
	if err != nil {
		return err
	}
	metadata, err := p.NftInfo(ctx, 0)
	if err != nil {
		return err
	}
	if err := expectName(metadata, "provider name"); err != nil {
		return fmt.Errorf("provider nft_info: %w", err)
	}

	// hand a throwaway instance to another admin and check we are locked out
	d := suite.MustGet[*deployer.Deployer](env, KeyDeployer)
	nft := suite.MustGet[*deployer.Contract](env, KeyNFT)
	initMsg, err := marshal(ProviderInstantiateMsg(nft))
	if err != nil {
		return err
	}
	other, err := d.Instantiate(ctx, contract.CodeID, initMsg)
	if err != nil {
		return err
	}
	otherClient := providerClient(env, other)

	newAdmin, err := randomAddress(env.Chain.Address())
	if err != nil {
		return err
	}
	if _, err := otherClient.ChangeAdmin(ctx, newAdmin); err != nil {
		return err
	}
	_, err = otherClient.ChangeAdmin(ctx, env.Chain.Address())
	if !errors.Is(err, types.ErrExecution) {
		return fmt.Errorf("change_admin from a non-admin: want an execution error, got %v", err)
	}
	return nil
}

func testBatchProviders(ctx context.Context, env *suite.Env) error {
	d := suite.MustGet[*deployer.Deployer](env, KeyDeployer)
	nftContract := suite.MustGet[*deployer.Contract](env, KeyNFT)
	providerContract := suite.MustGet[*deployer.Contract](env, KeyProvider)

	// a fresh NFT instance keeps the registered set to exactly the providers below
	initMsg, err := marshal(NFTInstantiateMsg())
	if err != nil {
		return err
	}
	fresh, err := d.Instantiate(ctx, nftContract.CodeID, initMsg)
	if err != nil {
		return err
	}
	nft := nftClient(env, fresh)
	if _, _, err := nft.MintNft(ctx, snip721.MintNft{
		TokenID: snip721.Ptr(TokenID),
		Owner:   snip721.Ptr(env.Chain.Address()),
	}); err != nil {
		return err
	}
	if _, err := nft.SetViewingKey(ctx, ViewingKey); err != nil {
		return err
	}

	providerInit, err := marshal(ProviderInstantiateMsg(fresh))
	if err != nil {
		return err
	}
	var registered []string
	for i := 0; i < 2; i++ {
		instance, err := d.Instantiate(ctx, providerContract.CodeID, providerInit)
		if err != nil {
			return err
		}
		uri := fmt.Sprintf("https://provider-%d.example/%s", i, TokenID)
		if _, err := providerClient(env, instance).SetMetadata(ctx, provider.SetMetadata{
			TokenID:        TokenID,
			Idx:            0,
			PublicMetadata: &snip721.Metadata{TokenURI: snip721.Ptr(uri)},
		}); err != nil {
			return err
		}

		res, err := nft.RegisterMetadataProvider(ctx, instance.Address, instance.CodeHash)
		if err != nil {
			return err
		}
		addr, err := snip721.RegisteredProvider(res)
		if err != nil {
			return err
		}
		registered = append(registered, addr)
	}

	entries, err := nft.BatchProviderMetadata(ctx, TokenID, &snip721.ViewerInfo{
		Address:    env.Chain.Address(),
		ViewingKey: ViewingKey,
	})
	if err != nil {
		return err
	}
	if len(entries) != len(registered) {
		return fmt.Errorf("batch_provider_metadata returned %d entries, want %d", len(entries), len(registered))
	}
	for i, entry := range entries {
		if entry.Provider != registered[i] {
			return fmt.Errorf("entry %d is from provider %s, want %s", i, entry.Provider, registered[i])
		}
		want := fmt.Sprintf("https://provider-%d.example/%s", i, TokenID)
		if entry.PublicMetadata == nil || entry.PublicMetadata.TokenURI == nil || *entry.PublicMetadata.TokenURI != want {
			return fmt.Errorf("entry %d has public metadata %+v, want token_uri %s", i, entry.PublicMetadata, want)
		}
	}
	return nil
}

func testGasLimits(_ context.Context, env *suite.Env) error {
	rec := suite.MustGet[*io.Recorder](env, KeyRecorder)
	txs := rec.Txs()
	if len(txs) == 0 {
		return errors.New("no transactions recorded")
	}
	for _, tx := range txs {
		res := tx.Result
		if res.GasUsed <= 0 {
			return fmt.Errorf("%s tx %s used no gas", tx.Kind, res.TxHash)
		}
		if res.GasUsed > res.GasWanted {
			return fmt.Errorf("%s tx %s used %d gas over its limit %d", tx.Kind, res.TxHash, res.GasUsed, res.GasWanted)
		}
	}
	return nil
}

func expectName(m *snip721.Metadata, name string) error {
	if m.Extension == nil || m.Extension.Name == nil {
		return fmt.Errorf("metadata has no extension name, want %q", name)
	}
	if *m.Extension.Name != name {
		return fmt.Errorf("metadata name %q, want %q", *m.Extension.Name, name)
	}
	return nil
}

// randomAddress returns a fresh address with the same prefix as like.
func randomAddress(like string) (string, error) {
	prefix, _, err := bech32.DecodeAndConvert(like)
	if err != nil {
		return "", err
	}
	return bech32.ConvertAndEncode(prefix, secp256k1.GenPrivKey().PubKey().Address())
}

func marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode init message: %w", err)
	}
	return data, nil
}
