package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/teamcutter/cubepkg/internal/domain"
)

// FileState keeps the catalog state in a single YAML document.
type FileState struct {
	mu    sync.RWMutex
	path  string
	state *domain.CatalogState
}

func NewFile(path string) *FileState {
	return &FileState{
		path: path,
	}
}

func (f *FileState) init() error {
	if f.state != nil {
		return nil
	}

	s, err := readFile(f.path)
	if err != nil {
		return err
	}
	f.state = s
	return nil
}

func readFile(path string) (*domain.CatalogState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.NewCatalogState(), nil
	}
	if err != nil {
		return nil, err
	}

	var s domain.CatalogState
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.Normalize()
	return &s, nil
}

// Load returns a copy of the persisted state, so callers may mutate it
// freely before handing it back to Save.
func (f *FileState) Load() (*domain.CatalogState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.init(); err != nil {
		return nil, err
	}
	return clone(f.state), nil
}

func (f *FileState) Save(s *domain.CatalogState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return err
	}

	f.state = clone(s)
	return nil
}

func (f *FileState) Close() error {
	return nil
}

func clone(s *domain.CatalogState) *domain.CatalogState {
	out := domain.NewCatalogState()
	for id, m := range s.Installed {
		out.Installed[id] = m
	}
	for id, m := range s.Available {
		out.Available[id] = m
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
