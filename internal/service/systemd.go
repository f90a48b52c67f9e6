// Package service restarts the system services that serve installed content.
package service

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/teamcutter/cubepkg/internal/domain"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return string(output), fmt.Errorf("%s %s: exit status %d: %s",
				name, strings.Join(args, " "), exitError.ExitCode(), strings.TrimSpace(string(output)))
		}
		return string(output), err
	}
	return string(output), nil
}

// Systemd talks to systemd through systemctl.
type Systemd struct {
	run Runner
	log zerolog.Logger
}

type Option func(*Systemd)

func WithRunner(r Runner) Option {
	return func(s *Systemd) { s.run = r }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Systemd) { s.log = log }
}

func NewSystemd(opts ...Option) *Systemd {
	s := &Systemd{run: execRunner, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetService returns the unit called name, or a NoSuchServiceError when
// systemd does not know it.
func (s *Systemd) GetService(ctx context.Context, name string) (domain.Service, error) {
	unit := unitName(name)

	out, err := s.run(ctx, "systemctl", "show", "--property=LoadState", "--value", unit)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", unit, err)
	}

	state := strings.TrimSpace(out)
	s.log.Debug().Str("unit", unit).Str("load_state", state).Msg("queried unit")

	if state == "not-found" || state == "" {
		return nil, &domain.NoSuchServiceError{Name: name}
	}
	return &unitService{name: unit, mgr: s}, nil
}

func unitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

type unitService struct {
	name string
	mgr  *Systemd
}

func (u *unitService) Name() string {
	return u.name
}

func (u *unitService) Restart(ctx context.Context) error {
	u.mgr.log.Info().Str("unit", u.name).Msg("restarting")
	if _, err := u.mgr.run(ctx, "systemctl", "restart", u.name); err != nil {
		return fmt.Errorf("restarting %s: %w", u.name, err)
	}
	return nil
}
