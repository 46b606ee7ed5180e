package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debatetab/debatetab/cmd/migrate"
	"github.com/debatetab/debatetab/cmd/notify"
	"github.com/debatetab/debatetab/cmd/serve"
	"github.com/debatetab/debatetab/internal/buildinfo"
	"github.com/debatetab/debatetab/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "debatetab",
		Short:         "debatetab tournament notifications and data migrations",
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		// Flag binding only fails on programming errors.
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		migrate.Command(settings),
		notify.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Command-line flags take precedence over the config file.
		settings.Debug = viper.GetBool("debug")
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
