package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh the package list from every remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			stop := withSpinner(cmd.Context(), "Fetching remote catalogs...")
			err = c.UpdateCache(cmd.Context())
			stop()
			if err != nil {
				return err
			}

			fmt.Printf("%s %s packages available\n", green("✓"), bold(len(c.ListAvailable())))
			if upgradable := c.ListUpgradable(); len(upgradable) > 0 {
				fmt.Printf("  %s %d can be upgraded, see %s\n", dim("↳"), len(upgradable), cyan("cubepkg list --upgradable"))
			}
			return nil
		},
	}
}
