package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zorostang/secret-upgradable-nfts/faucet"
)

func faucetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faucet [address]",
		Short: "Request tokens until the address holds the target balance. Defaults to the client key.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			chain, err := a.dial(ctx)
			if err != nil {
				return err
			}
			account := faucet.Account(chain)
			if len(args) == 1 {
				account = faucet.AccountAt(chain, args[0])
			}

			balance, err := a.filler().Fill(ctx, account, a.targetBalance())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s%s\n", account.Address(), balance, a.cfg.Chain.Denom)
			return nil
		},
	}
}
