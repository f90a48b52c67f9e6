package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the package lists and empty the download cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			size, _ := c.CacheSize()

			if err := c.ClearCache(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}

			fmt.Printf("%s Cache cleared (%s freed)\n", green("✓"), formatSize(size))
			return nil
		},
	}
}
