package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamcutter/cubepkg/internal/domain"
)

type recorder struct {
	calls     []string
	loadState string
	err       error
}

func (r *recorder) run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	if r.err != nil {
		return "", r.err
	}
	if args[0] == "show" {
		return r.loadState + "\n", nil
	}
	return "", nil
}

func TestGetService(t *testing.T) {
	ctx := context.Background()

	t.Run("loaded unit restarts", func(t *testing.T) {
		rec := &recorder{loadState: "loaded"}
		s := NewSystemd(WithRunner(rec.run))

		svc, err := s.GetService(ctx, "kiwix-server")
		require.NoError(t, err)
		assert.Equal(t, "kiwix-server.service", svc.Name())

		require.NoError(t, svc.Restart(ctx))
		assert.Equal(t, []string{
			"systemctl show --property=LoadState --value kiwix-server.service",
			"systemctl restart kiwix-server.service",
		}, rec.calls)
	})

	t.Run("unknown unit", func(t *testing.T) {
		rec := &recorder{loadState: "not-found"}
		s := NewSystemd(WithRunner(rec.run))

		_, err := s.GetService(ctx, "kiwix-server")
		assert.ErrorIs(t, err, domain.ErrNoSuchService)
		assert.Contains(t, err.Error(), "kiwix-server")
	})

	t.Run("explicit unit suffix is kept", func(t *testing.T) {
		rec := &recorder{loadState: "loaded"}
		s := NewSystemd(WithRunner(rec.run))

		svc, err := s.GetService(ctx, "kiwix.socket")
		require.NoError(t, err)
		assert.Equal(t, "kiwix.socket", svc.Name())
	})

	t.Run("systemctl failure", func(t *testing.T) {
		rec := &recorder{err: errors.New("no bus")}
		s := NewSystemd(WithRunner(rec.run))

		_, err := s.GetService(ctx, "kiwix-server")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNoSuchService)
	})
}
