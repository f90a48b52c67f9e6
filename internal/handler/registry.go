package handler

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/teamcutter/cubepkg/internal/config"
	"github.com/teamcutter/cubepkg/internal/domain"
)

type Constructor func(cfg config.HandlerConfig, services domain.ServiceManager, log zerolog.Logger) domain.Handler

// Registry maps metadata handler tags to handler constructors and hands
// each constructor the [handlers.<tag>] section of the configuration.
type Registry struct {
	sync.RWMutex
	ctors    map[string]Constructor
	configs  map[string]config.HandlerConfig
	services domain.ServiceManager
	log      zerolog.Logger
}

func NewRegistry(configs map[string]config.HandlerConfig, services domain.ServiceManager, log zerolog.Logger) *Registry {
	return &Registry{
		ctors:    make(map[string]Constructor),
		configs:  configs,
		services: services,
		log:      log,
	}
}

func Default(configs map[string]config.HandlerConfig, services domain.ServiceManager, log zerolog.Logger) *Registry {
	r := NewRegistry(configs, services, log)
	r.Register(KiwixTag, NewKiwix)
	return r
}

func (r *Registry) Register(tag string, ctor Constructor) {
	r.Lock()
	defer r.Unlock()
	r.ctors[tag] = ctor
}

// New builds a fresh handler for tag. Handlers accumulate pending changes,
// so callers keep one instance per batch.
func (r *Registry) New(tag string) (domain.Handler, error) {
	r.RLock()
	ctor, ok := r.ctors[tag]
	cfg, configured := r.configs[tag]
	r.RUnlock()

	if !ok {
		return nil, &domain.InvalidHandlerTypeError{Handler: tag}
	}
	if !configured || cfg.InstallDir == "" {
		return nil, fmt.Errorf("handler %s: no install_dir configured", tag)
	}

	return ctor(cfg, r.services, r.log.With().Str("handler", tag).Logger()), nil
}

func (r *Registry) Tags() []string {
	r.RLock()
	defer r.RUnlock()

	tags := make([]string, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
