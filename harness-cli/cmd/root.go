package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "harness",
		Short:         "Integration harness for the upgradable SNIP-721 and metadata-provider contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the config file, e.g. ./config.toml")
	rootCmd.PersistentFlags().String("node", "", "Node RPC uri, e.g. http://localhost:26657")
	rootCmd.PersistentFlags().String("chain-id", "", "Chain id of the node, e.g. secretdev-1")
	rootCmd.PersistentFlags().String("faucet", "", "Faucet url, e.g. http://localhost:5000/faucet")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("devnet", false, "Start a local devnet container and run against it")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9100")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	bindOverride("chain.rpc", rootCmd, "node")
	bindOverride("chain.chain_id", rootCmd, "chain-id")
	bindOverride("faucet.url", rootCmd, "faucet")
	bindOverride("log.level", rootCmd, "log-level")
	bindOverride("devnet.enabled", rootCmd, "devnet")
	bindOverride("metrics.addr", rootCmd, "metrics-addr")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(deployCmd())
	rootCmd.AddCommand(faucetCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// bindOverride binds a persistent flag to a config key; unset flags leave the file and
// default values in place.
func bindOverride(key string, cmd *cobra.Command, flag string) {
	_ = viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}
