package app

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/brewster/internal/output"
	"github.com/spf13/cobra"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "Print brew's own outdated listing",
	Long: `Run 'brew outdated' and print its text unchanged. Like 'check', it is
bounded by the query timeout and refused while another operation runs.`,
	Args: cobra.NoArgs,
	RunE: runOutdated,
}

func runOutdated(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	return withServices(containerOptions{}, func(s services) error {
		text, err := s.Manager.Outdated(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(cmd.OutOrStdout(), output.UpToDateText)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	})
}
