// Package scenarios wires the harness together: it connects, funds the key, deploys the
// NFT and provider contracts and defines the default suite run against them.
package scenarios

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/math"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/contracts/provider"
	"github.com/zorostang/secret-upgradable-nfts/contracts/snip721"
	cosmwasmapi "github.com/zorostang/secret-upgradable-nfts/cosmwasm-api"
	"github.com/zorostang/secret-upgradable-nfts/deployer"
	"github.com/zorostang/secret-upgradable-nfts/faucet"
	"github.com/zorostang/secret-upgradable-nfts/logger"
	"github.com/zorostang/secret-upgradable-nfts/suite"
)

const (
	KeyRecorder   suite.Key = "recorder"
	KeyDeployer   suite.Key = "deployer"
	KeyBroadcast  suite.Key = "broadcast"
	KeyNFT        suite.Key = "nft"
	KeyProvider   suite.Key = "provider"
	KeyToken      suite.Key = "token_id"
	KeyViewingKey suite.Key = "viewing_key"
	KeyProviders  suite.Key = "providers"
)

type Config struct {
	// Dial opens the chain client.
	Dial func(ctx context.Context) (io.ChainIO, error)
	// Filler funds the client key before deploying; nil skips funding.
	Filler        *faucet.Filler
	TargetBalance math.Int

	NFTWasm      []byte
	ProviderWasm []byte

	Deployer  deployer.Options
	Broadcast cosmwasmapi.BroadcastOptions
	Logger    logger.Logger
}

// NFTInstantiateMsg is the init message of the NFT contract under test.
func NFTInstantiateMsg() snip721.InstantiateMsg {
	return snip721.InstantiateMsg{
		Name:    "test_NFT",
		Symbol:  "token_symbol",
		Entropy: "secret",
		Config: &snip721.InstantiateConfig{
			UnwrappedMetadataIsPrivate: true,
			MinterMayUpdateMetadata:    true,
			EnableBurn:                 true,
		},
	}
}

// ProviderInstantiateMsg binds a provider to the given NFT contract.
func ProviderInstantiateMsg(nft *deployer.Contract) provider.InstantiateMsg {
	return provider.InstantiateMsg{
		Name:          "test_NFT",
		Symbol:        "token_symbol",
		TokenAddress:  nft.Address,
		TokenCodeHash: nft.CodeHash,
	}
}

// Setup connects, fills the key from the faucet and deploys the NFT contract followed
// by a provider bound to it. The returned Env carries everything the default cases need.
func Setup(ctx context.Context, cfg Config) (*suite.Env, error) {
	if cfg.Dial == nil {
		return nil, errors.New("no dial function configured")
	}
	l := cfg.Logger
	if l == nil {
		l = logger.NewLogrusLogger("text")
	}

	chain, err := cfg.Dial(ctx)
	if err != nil {
		return nil, err
	}
	l.Info("Initialized client", logger.WithField("address", chain.Address()), logger.WithField("chainId", chain.ChainID()))
	rec := io.NewRecorder(chain)

	if cfg.Filler != nil {
		if _, err := cfg.Filler.Fill(ctx, rec, cfg.TargetBalance); err != nil {
			return nil, err
		}
	}

	d := deployer.NewDeployer(rec, cfg.Deployer, l)
	nft, err := deployer.Deploy(ctx, d, cfg.NFTWasm, NFTInstantiateMsg())
	if err != nil {
		return nil, fmt.Errorf("deploy nft contract: %w", err)
	}
	p, err := deployer.Deploy(ctx, d, cfg.ProviderWasm, ProviderInstantiateMsg(&nft.Contract))
	if err != nil {
		return nil, fmt.Errorf("deploy provider contract: %w", err)
	}
	l.Info("Contracts deployed", logger.WithField("nft", nft.Address), logger.WithField("provider", p.Address))

	env := suite.NewEnv(rec)
	env.Set(KeyRecorder, rec)
	env.Set(KeyDeployer, d)
	env.Set(KeyBroadcast, cfg.Broadcast)
	env.Set(KeyNFT, &nft.Contract)
	env.Set(KeyProvider, &p.Contract)
	return env, nil
}

// Contracts returns the NFT and provider handles published by Setup.
func Contracts(env *suite.Env) (nft, p *deployer.Contract, err error) {
	if nft, err = suite.Get[*deployer.Contract](env, KeyNFT); err != nil {
		return nil, nil, err
	}
	if p, err = suite.Get[*deployer.Contract](env, KeyProvider); err != nil {
		return nil, nil, err
	}
	return nft, p, nil
}
