package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zorostang/secret-upgradable-nfts/logger"
	"github.com/zorostang/secret-upgradable-nfts/scenarios"
	"github.com/zorostang/secret-upgradable-nfts/suite"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy both contracts and run the default suite against them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			cfg, err := a.scenarioConfig()
			if err != nil {
				return err
			}
			env, err := scenarios.Setup(ctx, cfg)
			if err != nil {
				return err
			}

			runner, err := suite.New(scenarios.Cases(), suite.WithLogger(a.logger), suite.WithIndicators(a.indicators))
			if err != nil {
				return err
			}
			report, runErr := runner.Run(ctx, env)

			if path := a.cfg.Report.Path; path != "" && report != nil {
				if err := report.WriteFile(path); err != nil {
					a.logger.Error("Failed to write report", logger.WithField("path", path), logger.WithError(err))
				} else {
					a.logger.Info("Report written", logger.WithField("path", path))
				}
			}
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed, %d skipped in %s\n",
					report.Passed, report.Failed, report.Skipped, report.Duration)
			}
			return runErr
		},
	}

	cmd.Flags().String("report", "", "Write a YAML report of the run to this path")
	_ = viper.BindPFlag("report.path", cmd.Flags().Lookup("report"))
	return cmd
}
