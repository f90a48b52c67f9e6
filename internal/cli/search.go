package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var show int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the available packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			results := c.Search(args[0])
			if len(results) == 0 {
				fmt.Printf("%s No results found for %q\n", dim("○"), args[0])
				return nil
			}

			size := min(len(results), show)

			fmt.Printf("\nShowing %s of %s results for %q\n\n", green(size), green(len(results)), args[0])

			for _, r := range results[:size] {
				fmt.Printf("%s %s\n", green("●"), bold(r.ID))
				fmt.Printf("  %s %s\n", cyan("version:"), r.Metadata.EffectiveVersion())
				if r.Metadata.Name != "" {
					fmt.Printf("  %s %s\n", cyan("name:"), r.Metadata.Name)
				}
				if r.Metadata.Size != "" {
					fmt.Printf("  %s %s\n", cyan("size:"), r.Metadata.Size)
				}
				if c.IsInstalled(r.ID) {
					fmt.Printf("  %s %s\n", cyan("status:"), green("installed"))
				}
				fmt.Println()
			}

			if len(results) > size {
				fmt.Printf("%s %d more available, use %s to see all\n", dim("..."), len(results)-size, cyan(fmt.Sprintf("--show %d", len(results))))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&show, "show", "s", 50, "Shows first n packages")
	return cmd
}
