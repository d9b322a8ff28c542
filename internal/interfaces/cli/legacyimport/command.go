package legacyimport

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	legacyImportUsecases "github.com/channelgate/channelgate/internal/application/legacyimport/usecases"
	"github.com/channelgate/channelgate/internal/interfaces/cli/app"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

var (
	env        string
	configPath string
	dumpDir    string
	planName   string
	dryRun     bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import users and subscriptions from a legacy CSV dump",
		Long: `Read every users_<volume>.csv in --dir together with its subs_<volume>.csv and merge
them into the store. Users are matched by Telegram id and subscriptions by their dates, so
running the import twice changes nothing. Any malformed row aborts the whole import.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVar(&dumpDir, "dir", "", "Directory holding the dump files (required)")
	cmd.Flags().StringVar(&planName, "plan", "", "Plan name every imported subscription is bound to (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count what would change and roll back")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, log, err := app.Bootstrap(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	volumes, err := legacyImportUsecases.ReadLegacyDump(dumpDir)
	if err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}

	ctx := context.Background()
	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	res, err := container.UseCases.ImportLegacyDump.Execute(ctx, legacyImportUsecases.ImportLegacyDumpCommand{
		Volumes:  volumes,
		PlanName: planName,
		DryRun:   dryRun,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if dryRun {
		fmt.Fprintln(w, "DRY RUN, nothing was written")
	}
	fmt.Fprintf(w, "plan id\t%d\n", res.PlanID)
	fmt.Fprintf(w, "users created\t%d\n", res.UsersCreated)
	fmt.Fprintf(w, "users existing\t%d\n", res.UsersExisting)
	fmt.Fprintf(w, "users skipped\t%d\n", res.UsersSkipped)
	fmt.Fprintf(w, "subscriptions created\t%d\n", res.SubsCreated)
	fmt.Fprintf(w, "subscriptions duplicate\t%d\n", res.SubsDuplicate)
	fmt.Fprintf(w, "subscriptions orphaned\t%d\n", res.SubsOrphaned)
	fmt.Fprintf(w, "subscriptions deactivated\t%d\n", res.SubsDeactivated)
	return w.Flush()
}
