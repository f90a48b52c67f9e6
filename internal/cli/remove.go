package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove installed packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			versions := make(map[string]string, len(args))
			for _, id := range args {
				if meta, ok := c.Installed(id); ok {
					versions[id] = meta.EffectiveVersion()
				}
			}

			fmt.Printf("Removing %d package(s)...\n", len(args))
			err = c.RemovePackages(cmd.Context(), args)

			fmt.Println()
			for _, id := range args {
				version, was := versions[id]
				if !was || c.IsInstalled(id) {
					continue
				}
				fmt.Printf("%s %s%s%s\n", green("✓"), bold(id), bold("-"), bold(version))
			}

			return err
		},
	}
}
