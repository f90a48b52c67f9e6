package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/teamcutter/cubepkg/internal/domain"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func withSpinner(ctx context.Context, desc string) (stop func()) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				spinner.Finish()
				return
			default:
				spinner.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
	return func() {
		close(done)
		spinner.Finish()
	}
}

// printErr reports err on stderr, with a hint for the errors a user can act on.
func printErr(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)

	var checksum *domain.ChecksumMismatchError
	switch {
	case errors.As(err, &checksum):
		fmt.Fprintf(os.Stderr, "  %s the download was discarded, run the command again to retry\n", dim("↳"))
	case errors.Is(err, domain.ErrNoSuchPackage):
		fmt.Fprintf(os.Stderr, "  %s run %s to refresh the package list\n", dim("↳"), cyan("cubepkg update"))
	case errors.Is(err, domain.ErrConflict):
		fmt.Fprintf(os.Stderr, "  %s set %s to %s to let the last remote win\n", dim("↳"), cyan("merge_policy"), cyan("\"last-wins\""))
	}
}

func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}
