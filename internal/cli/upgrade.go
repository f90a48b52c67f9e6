package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cubepkg/internal/catalog"
)

func newUpgradeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade [id...]",
		Short: "Upgrade installed packages to the available version",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			ids := args
			if len(ids) == 0 {
				for _, e := range c.ListUpgradable() {
					ids = append(ids, e.ID)
				}
			}

			if len(ids) == 0 {
				fmt.Printf("\n%s Everything is up-to-date\n", dim("○"))
				return nil
			}

			before := make(map[string]string, len(ids))
			for _, id := range ids {
				if meta, ok := c.Installed(id); ok {
					before[id] = meta.EffectiveVersion()
				}
			}

			report, err := c.UpgradePackages(cmd.Context(), ids)

			after := make(map[string]string, len(report.Upgraded))
			for _, id := range report.Upgraded {
				meta, _ := c.Installed(id)
				after[id] = meta.EffectiveVersion()
			}
			printUpgrades(os.Stdout, report, before, after)

			return err
		},
	}
}

// printUpgrades lists the upgraded packages. Packages already at the
// available version are reported by the catalog on stderr, so they print
// nothing here.
func printUpgrades(w io.Writer, report catalog.UpgradeReport, from, to map[string]string) {
	if len(report.Upgraded) == 0 {
		return
	}

	fmt.Fprintln(w)
	for _, id := range report.Upgraded {
		fmt.Fprintf(w, "%s %s%s%s → %s\n", green("✓"), bold(id), bold("-"), bold(from[id]), bold(to[id]))
	}
}
