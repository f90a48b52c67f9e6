package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cubepkg/internal/domain"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var installed, upgradable bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			var (
				entries []domain.Entry
				label   string
			)
			switch {
			case upgradable:
				entries, label = c.ListUpgradable(), "upgradable"
			case installed:
				entries, label = c.ListInstalled(), "installed"
			default:
				entries, label = c.ListAvailable(), "available"
			}

			if len(entries) == 0 {
				fmt.Printf("\n%s No %s packages\n", dim("○"), label)
				return nil
			}

			fmt.Printf("%s %s packages:\n\n", bold(len(entries)), label)

			latest := make(map[string]string)
			if installed {
				for _, e := range c.ListUpgradable() {
					latest[e.ID] = e.Metadata.EffectiveVersion()
				}
			}

			for _, e := range entries {
				line := fmt.Sprintf(" %s", bold(fmt.Sprintf("%s-%s", e.ID, e.Metadata.EffectiveVersion())))
				if e.Metadata.Size != "" {
					line += fmt.Sprintf("  %s", dim(e.Metadata.Size))
				}
				if ver, ok := latest[e.ID]; ok {
					line += fmt.Sprintf("  %s", yellow(fmt.Sprintf("↑ %s", ver)))
				}
				if !installed && c.IsInstalled(e.ID) {
					line += fmt.Sprintf("  %s", green("installed"))
				}
				fmt.Println(line)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&installed, "installed", "i", false, "List installed packages")
	cmd.Flags().BoolVarP(&upgradable, "upgradable", "u", false, "List packages with an update available")
	cmd.MarkFlagsMutuallyExclusive("installed", "upgradable")
	return cmd
}
