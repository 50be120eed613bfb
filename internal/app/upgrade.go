package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/blackwell-systems/brewster/internal/schedule"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	upgradeAll bool

	upgradeCmd = &cobra.Command{
		Use:   "upgrade [name]",
		Short: "Upgrade one outdated package, or all of them",
		Long: `Upgrade a single formula or cask by name, or every outdated package with
--all. The name may also be a line copied from 'brewster check', e.g.
"git (2.40.0) < 2.41.0".

When the upgrade finishes, brewster checks again and prints what is still
outdated.`,
		Example: `  # Upgrade one package
  brewster upgrade wget

  # Upgrade everything
  brewster upgrade --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUpgrade,
	}
)

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeAll, "all", false, "upgrade every outdated package")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	if upgradeAll && len(args) > 0 {
		return errors.New("pass a package name or --all, not both")
	}
	if !upgradeAll && len(args) == 0 {
		return errors.New("package name required (or use --all)")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	return withServices(containerOptions{}, func(s services) error {
		out := cmd.OutOrStdout()

		label := "Upgrading all packages"
		var name string
		if !upgradeAll {
			name = packageName(args[0])
			label = fmt.Sprintf("Upgrading %s", name)
		}

		spinner := output.NewSpinner(label).WithTimeout(s.Config.UpgradeTimeout())
		spinner.SetWriter(cmd.ErrOrStderr())
		spinner.Start()

		var err error
		if upgradeAll {
			err = s.Manager.UpgradeAll(ctx)
		} else {
			err = s.Manager.UpgradePackage(ctx, name)
		}
		if err != nil {
			spinner.Stop()
			return err
		}

		spinner.UpdateMessage("Re-checking for updates")
		runUpdateFirst := boolPreference(s.Store, schedule.PrefRunUpdateFirst, false)
		updates, err := s.Manager.CheckForUpdates(ctx, runUpdateFirst)
		spinner.Stop()
		if err != nil {
			s.Logger.Debug("re-check after upgrade failed", zap.Error(err))
		}

		if upgradeAll {
			fmt.Fprintln(out, output.Success.Sprint("✓ All packages upgraded"))
		} else {
			fmt.Fprintln(out, output.Success.Sprintf("✓ Upgraded %s", name))
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderMenu(updates, err))
		return nil
	})
}
