package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teamcutter/cubepkg/internal/pkgtype"
)

func newInstallCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install <id>...",
		Short: "Install packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := newCatalog(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			err = c.InstallPackages(cmd.Context(), args)

			fmt.Println()
			for _, id := range args {
				meta, ok := c.Installed(id)
				if !ok {
					continue
				}
				fmt.Printf("%s %s%s%s\n", green("✓"), bold(id), bold("-"), bold(meta.EffectiveVersion()))
				if h, ok := cfg.Handlers[meta.Handler]; ok {
					fmt.Printf("  %s %s\n", cyan("path:"), filepath.Join(h.InstallDir, filepath.FromSlash(pkgtype.ContentPath(id))))
				}
			}

			return err
		},
	}
}
