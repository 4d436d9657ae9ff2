package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zorostang/secret-upgradable-nfts/deployer"
	"github.com/zorostang/secret-upgradable-nfts/scenarios"
)

type deployment struct {
	ChainID  string             `yaml:"chain_id"`
	Account  string             `yaml:"account"`
	NFT      *deployer.Contract `yaml:"nft"`
	Provider *deployer.Contract `yaml:"provider"`
}

func deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Fund the client key, deploy the NFT and a provider bound to it, and print their handles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			cfg, err := a.scenarioConfig()
			if err != nil {
				return err
			}
			env, err := scenarios.Setup(ctx, cfg)
			if err != nil {
				return err
			}
			nft, p, err := scenarios.Contracts(env)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(deployment{
				ChainID:  env.Chain.ChainID(),
				Account:  env.Chain.Address(),
				NFT:      nft,
				Provider: p,
			}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
