package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/channelgate/channelgate/internal/interfaces/cli/catalog"
	"github.com/channelgate/channelgate/internal/interfaces/cli/legacyimport"
	"github.com/channelgate/channelgate/internal/interfaces/cli/migrate"
	"github.com/channelgate/channelgate/internal/interfaces/cli/serve"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "channelgate",
		Short: "Channelgate - paid access to Telegram channels",
		Long:  `Channelgate sells subscriptions to gated Telegram channels and keeps channel membership in line with them.`,
	}

	rootCmd.AddCommand(
		serve.NewCommand(),
		migrate.NewCommand(),
		catalog.NewCommand(),
		legacyimport.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
