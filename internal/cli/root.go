package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/teamcutter/cubepkg/internal/cache"
	"github.com/teamcutter/cubepkg/internal/catalog"
	"github.com/teamcutter/cubepkg/internal/config"
	"github.com/teamcutter/cubepkg/internal/fetcher"
	"github.com/teamcutter/cubepkg/internal/handler"
	"github.com/teamcutter/cubepkg/internal/logging"
	"github.com/teamcutter/cubepkg/internal/pkgtype"
	"github.com/teamcutter/cubepkg/internal/registry"
	"github.com/teamcutter/cubepkg/internal/remote"
	"github.com/teamcutter/cubepkg/internal/resolver"
	"github.com/teamcutter/cubepkg/internal/service"
	"github.com/teamcutter/cubepkg/internal/state"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func Execute() error {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "cubepkg",
		Short:         "Install and update offline content packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Configuration file (default ~/.cubepkg/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRemoteCmd(flags),
		newUpdateCmd(flags),
		newClearCmd(flags),
		newInstallCmd(flags),
		newUpgradeCmd(flags),
		newRemoveCmd(flags),
		newListCmd(flags),
		newSearchCmd(flags),
		newPackCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printErr(err)
	}
	return err
}

func loadConfig(flags *globalFlags) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, logging.Nop, err
	}

	if flags.logLevel != "" {
		return cfg, logging.New(flags.logLevel, os.Getenv("CUBEPKG_LOG_FORMAT"), os.Stderr), nil
	}
	return cfg, logging.FromEnv(cfg.LogLevel), nil
}

func newCatalog(flags *globalFlags) (*catalog.Catalog, *config.Config, error) {
	cfg, log, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}

	remotes, err := remote.NewOS(cfg.RemotesDir())
	if err != nil {
		return nil, nil, err
	}

	payloads, err := cache.New(cfg.PackagesDir())
	if err != nil {
		return nil, nil, err
	}

	st, err := state.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	f := fetcher.New(cfg.TimeoutDuration(),
		fetcher.WithProgress(isatty.IsTerminal(os.Stdout.Fd())),
		fetcher.WithLogger(log.With().Str("component", "fetcher").Logger()),
	)

	services := service.NewSystemd(service.WithLogger(log.With().Str("component", "systemd").Logger()))

	c, err := catalog.New(
		remotes,
		registry.New(f, cfg.ManifestsDir(), log.With().Str("component", "registry").Logger()),
		f,
		payloads,
		st,
		resolver.New(pkgtype.Default(cfg.Formats.Supported)),
		handler.Default(cfg.Handlers, services, log),
		catalog.WithMergePolicy(cfg.MergePolicy),
		catalog.WithMaxParallel(cfg.MaxParallel),
		catalog.WithRetries(cfg.DownloadRetries),
		catalog.WithLogger(log),
	)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	return c, cfg, nil
}
