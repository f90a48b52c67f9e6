package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoteCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the remotes packages are fetched from",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <id> <name> <url>",
			Short: "Add a remote",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, _, err := newCatalog(flags)
				if err != nil {
					return err
				}
				defer c.Close()

				if err := c.AddRemote(args[0], args[1], args[2]); err != nil {
					return err
				}

				fmt.Printf("%s %s added\n", green("✓"), bold(args[0]))
				fmt.Printf("  %s run %s to fetch its packages\n", dim("↳"), cyan("cubepkg update"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a remote",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, _, err := newCatalog(flags)
				if err != nil {
					return err
				}
				defer c.Close()

				if err := c.RemoveRemote(args[0]); err != nil {
					return err
				}

				fmt.Printf("%s %s removed\n", green("✓"), bold(args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a remote",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, _, err := newCatalog(flags)
				if err != nil {
					return err
				}
				defer c.Close()

				r, err := c.Remote(args[0])
				if err != nil {
					return err
				}

				fmt.Printf("%s %s\n", green("●"), bold(r.ID))
				fmt.Printf("  %s %s\n", cyan("name:"), r.Name)
				fmt.Printf("  %s %s\n", cyan("url:"), dim(r.URL))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List remotes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, _, err := newCatalog(flags)
				if err != nil {
					return err
				}
				defer c.Close()

				remotes, err := c.ListRemotes()
				if err != nil {
					return err
				}

				if len(remotes) == 0 {
					fmt.Printf("%s No remotes configured\n", dim("○"))
					return nil
				}

				for _, r := range remotes {
					fmt.Printf("%s %s\n", green("●"), bold(r.ID))
					fmt.Printf("  %s %s\n", cyan("name:"), r.Name)
					fmt.Printf("  %s %s\n", cyan("url:"), dim(r.URL))
				}
				return nil
			},
		},
	)

	return cmd
}
