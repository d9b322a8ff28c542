package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	planUsecases "github.com/channelgate/channelgate/internal/application/plan/usecases"
	"github.com/channelgate/channelgate/internal/interfaces/cli/app"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

var (
	env         string
	configPath  string
	catalogPath string
	migrate     bool
	targetName  string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the plan catalog",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(newSyncCommand())
	return cmd
}

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make the stored plans match the catalog file",
		Long: `Create or update every plan listed in the catalog file. With --migrate, active
subscriptions on plans that are no longer in the catalog move to the target plan.`,
		RunE: runSync,
	}

	cmd.Flags().StringVar(&catalogPath, "path", "", "Catalog file (default: catalog.path from config)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Move active subscriptions off retired plans")
	cmd.Flags().StringVar(&targetName, "target", "", "Plan name that receives migrated subscriptions (default: catalog.migrate_target_name)")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, log, err := app.Bootstrap(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path := catalogPath
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		return fmt.Errorf("no catalog file: pass --path or set catalog.path")
	}

	ctx := context.Background()
	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	res, err := container.SyncCatalogFile(ctx, path)
	if err != nil {
		log.Errorw("catalog sync failed", "path", path, "error", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog synced: %d plans, %d created, %d updated, %d retired\n", len(res.PlanIDs), res.Created, res.Updated, res.Retired)

	if !migrate {
		return nil
	}

	target := targetName
	if target == "" {
		target = cfg.Catalog.MigrateTargetName
	}
	moved, err := container.UseCases.MigrateSupersededPlans.Execute(ctx, planUsecases.MigrateSupersededPlansCommand{
		CatalogPlanIDs: res.PlanIDs,
		TargetPlanName: target,
	})
	if err != nil {
		log.Errorw("plan migration failed", "target", target, "error", err)
		return err
	}
	fmt.Fprintf(out, "Moved %d active subscriptions to %q\n", moved, target)
	return nil
}
