package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/extractor"
	"github.com/teamcutter/cubepkg/internal/fetcher"
	"github.com/teamcutter/cubepkg/internal/handler"
	"github.com/teamcutter/cubepkg/internal/pkgtype"
)

func newPackCmd(flags *globalFlags) *cobra.Command {
	var (
		format  string
		version string
		name    string
		baseURL string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "pack <id> <dir>",
		Short: "Build a package payload from a directory and print its manifest entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}

			id, dir := args[0], args[1]
			if !slices.Contains(cfg.Formats.Creation, format) {
				return fmt.Errorf("cannot create %s payloads, allowed: %s", format, strings.Join(cfg.Formats.Creation, ", "))
			}

			file := fmt.Sprintf("%s-%s.%s", id, version, format)
			if output == "" {
				abs, err := filepath.Abs(dir)
				if err != nil {
					return err
				}
				output = filepath.Dir(abs)
			}
			dest := filepath.Join(output, file)

			stop := withSpinner(cmd.Context(), fmt.Sprintf("Packing %s...", id))
			err = extractor.Create(dir, dest, format)
			stop()
			if err != nil {
				return err
			}

			sum, err := fetcher.Checksum(dest)
			if err != nil {
				return err
			}
			info, err := os.Stat(dest)
			if err != nil {
				return err
			}

			typ := pkgtype.TarredZim
			if format == extractor.FormatZip {
				typ = pkgtype.ZippedZim
			}

			url := file
			if baseURL != "" {
				url = strings.TrimSuffix(baseURL, "/") + "/" + file
			}

			entry := map[string]domain.Metadata{
				id: {
					Name:      name,
					Version:   version,
					Type:      typ,
					Handler:   handler.KiwixTag,
					Size:      humanize.Bytes(uint64(info.Size())),
					URL:       url,
					SHA256Sum: sum,
				},
			}
			out, err := yaml.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to encode manifest entry: %w", err)
			}

			fmt.Fprintf(os.Stderr, "%s %s (%s)\n", green("✓"), bold(dest), formatSize(info.Size()))
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", extractor.FormatZip, "Payload format")
	cmd.Flags().StringVarP(&version, "version", "v", domain.DefaultVersion, "Package version")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Human readable package name")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL the payload will be published under")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Directory to write the payload to (default: the parent of <dir>)")
	return cmd
}
