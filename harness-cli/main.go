package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zorostang/secret-upgradable-nfts/conf"
	"github.com/zorostang/secret-upgradable-nfts/harness-cli/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("error:", r)
			os.Exit(1)
		}
	}()
	cobra.OnInitialize(initConfig)
	rootCmd := cmd.RootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if err := conf.InitConfig(viper.GetString("config")); err != nil {
		fmt.Printf("Error reading config file: %s\n", err)
		os.Exit(1)
	}
}
