package state

import (
	"fmt"

	"github.com/teamcutter/cubepkg/internal/config"
	"github.com/teamcutter/cubepkg/internal/domain"
)

// New opens the state backend selected by cfg.StateBackend.
func New(cfg *config.Config) (domain.State, error) {
	switch cfg.StateBackend {
	case config.StateBackendFile, "":
		return NewFile(cfg.StateFile()), nil
	case config.StateBackendSQLite:
		return NewSQLite(cfg.StateDB(), cfg.InstalledExport(), cfg.StateFile())
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
