package cmd

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/conf"
	cosmwasmapi "github.com/zorostang/secret-upgradable-nfts/cosmwasm-api"
	"github.com/zorostang/secret-upgradable-nfts/deployer"
	"github.com/zorostang/secret-upgradable-nfts/devnet"
	"github.com/zorostang/secret-upgradable-nfts/faucet"
	"github.com/zorostang/secret-upgradable-nfts/logger"
	"github.com/zorostang/secret-upgradable-nfts/metrics"
	"github.com/zorostang/secret-upgradable-nfts/scenarios"
)

// app holds what every command builds from the loaded config.
type app struct {
	cfg        conf.Conf
	logger     logger.Logger
	registry   *prometheus.Registry
	indicators *metrics.PromIndicators
	devnet     *devnet.Devnet
}

func newApp(ctx context.Context) (*app, error) {
	if conf.C == nil {
		return nil, errors.New("config not loaded")
	}
	cfg := *conf.C

	l, err := logger.New(logger.Options{Backend: cfg.Log.Backend, Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	a := &app{
		cfg:        cfg,
		logger:     l,
		registry:   registry,
		indicators: metrics.NewPromIndicators(registry),
	}

	if cfg.Metrics.Addr != "" {
		errChan := metrics.NewServer(cfg.Metrics.Addr, l).Start(ctx, registry)
		go func() {
			for err := range errChan {
				l.Error("Metrics server error", logger.WithError(err))
			}
		}()
	}

	if cfg.Devnet.Enabled {
		l.Info("Starting devnet", logger.WithField("image", cfg.Devnet.Image))
		d, err := devnet.Run(ctx, devnet.Options{Image: cfg.Devnet.Image, ChainID: cfg.Chain.ChainID})
		if err != nil {
			return nil, err
		}
		a.devnet = d
		a.cfg.Chain.RPC = d.Endpoints.RPC
		a.cfg.Faucet.URL = d.Endpoints.Faucet
		l.Info("Devnet ready", logger.WithField("rpc", d.Endpoints.RPC), logger.WithField("faucet", d.Endpoints.Faucet))
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.devnet == nil {
		return
	}
	if err := a.devnet.Terminate(ctx); err != nil {
		a.logger.Warn("Failed to terminate devnet", logger.WithError(err))
	}
}

func (a *app) dial(ctx context.Context) (io.ChainIO, error) {
	return io.NewChainIO(ctx, io.Config{
		ChainID:      a.cfg.Chain.ChainID,
		RPCURI:       a.cfg.Chain.RPC,
		Bech32Prefix: a.cfg.Chain.Bech32Prefix,
		Params: types.TxManagerParams{
			MaxRetries:             a.cfg.Tx.MaxRetries,
			RetryInterval:          a.cfg.Tx.RetryInterval,
			ConfirmationTimeout:    a.cfg.Tx.ConfirmationTimeout,
			PollInterval:           a.cfg.Tx.PollInterval,
			GasPriceAdjustmentRate: a.cfg.Tx.GasPriceAdjustmentRate,
		},
		Indicators: a.indicators,
	})
}

func (a *app) filler() *faucet.Filler {
	return faucet.NewFiller(faucet.NewClient(a.cfg.Faucet.URL), faucet.Options{
		Denom:         a.cfg.Chain.Denom,
		MaxAttempts:   a.cfg.Faucet.MaxAttempts,
		RetryInterval: a.cfg.Faucet.RetryInterval,
		Timeout:       a.cfg.Faucet.Timeout,
		RatePerSecond: a.cfg.Faucet.RatePerSecond,
	}, a.logger)
}

func (a *app) targetBalance() math.Int {
	return math.NewInt(a.cfg.Faucet.TargetBalance)
}

func (a *app) scenarioConfig() (scenarios.Config, error) {
	gasPrice, err := sdktypes.ParseDecCoin(a.cfg.Chain.GasPrice)
	if err != nil {
		return scenarios.Config{}, fmt.Errorf("invalid chain.gas_price %q: %w", a.cfg.Chain.GasPrice, err)
	}
	nftWasm, err := deployer.ReadArtifact(a.cfg.Contracts.NFTWasm)
	if err != nil {
		return scenarios.Config{}, err
	}
	providerWasm, err := deployer.ReadArtifact(a.cfg.Contracts.ProviderWasm)
	if err != nil {
		return scenarios.Config{}, err
	}

	return scenarios.Config{
		Dial:          a.dial,
		Filler:        a.filler(),
		TargetBalance: a.targetBalance(),
		NFTWasm:       nftWasm,
		ProviderWasm:  providerWasm,
		Deployer: deployer.Options{
			LabelPrefix:    a.cfg.Contracts.LabelPrefix,
			UploadGas:      a.cfg.Contracts.UploadGas,
			InstantiateGas: a.cfg.Contracts.InstantiateGas,
			GasPrice:       gasPrice,
			CodeIDKey:      a.cfg.Events.CodeIDKey,
			AddressEvent:   a.cfg.Events.ContractAddressEvent,
			AddressKey:     a.cfg.Events.ContractAddressKey,
		},
		Broadcast: cosmwasmapi.DefaultBroadcastOptions().
			WithGasPrice(a.cfg.Chain.GasPrice).
			WithGas(a.cfg.Contracts.ExecuteGas).
			WithGasAdjustment(a.cfg.Tx.GasAdjustment).
			WithSimulate(a.cfg.Tx.Simulate).
			WithMemo(a.cfg.Tx.Memo),
		Logger: a.logger,
	}, nil
}
