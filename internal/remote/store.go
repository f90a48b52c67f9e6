package remote

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/teamcutter/cubepkg/internal/domain"
)

const ext = ".yml"

// Store keeps one descriptor file per remote under dir.
type Store struct {
	sync.RWMutex
	fs  afero.Fs
	dir string
}

func New(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create remotes directory: %w", err)
	}

	return &Store{fs: fs, dir: dir}, nil
}

// NewOS is New on the real filesystem.
func NewOS(dir string) (*Store, error) {
	return New(afero.NewOsFs(), dir)
}

func (s *Store) Add(r domain.Remote) error {
	if err := validateID(r.ID); err != nil {
		return err
	}
	if r.Name == "" || r.URL == "" {
		return fmt.Errorf("remote %s: name and url are required", r.ID)
	}

	s.Lock()
	defer s.Unlock()

	path := s.path(r.ID)
	if _, err := s.fs.Stat(path); err == nil {
		return &domain.DuplicateRemoteError{ID: r.ID}
	}

	return writeDescriptor(s.fs, path, r)
}

func (s *Store) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	path := s.path(id)
	if _, err := s.fs.Stat(path); os.IsNotExist(err) {
		return &domain.NoSuchRemoteError{ID: id}
	}

	return s.fs.Remove(path)
}

func (s *Store) Get(id string) (domain.Remote, error) {
	if err := validateID(id); err != nil {
		return domain.Remote{}, err
	}

	s.RLock()
	defer s.RUnlock()

	path := s.path(id)
	if _, err := s.fs.Stat(path); os.IsNotExist(err) {
		return domain.Remote{}, &domain.NoSuchRemoteError{ID: id}
	}

	return readDescriptor(s.fs, path)
}

// List returns every remote sorted by id.
func (s *Store) List() ([]domain.Remote, error) {
	s.RLock()
	defer s.RUnlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}

	remotes := make([]domain.Remote, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}

		r, err := readDescriptor(s.fs, filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		remotes = append(remotes, r)
	}

	sort.Slice(remotes, func(i, j int) bool {
		return remotes[i].ID < remotes[j].ID
	})

	return remotes, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid remote id %q", id)
	}
	return nil
}

func readDescriptor(fs afero.Fs, path string) (domain.Remote, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return domain.Remote{}, err
	}

	var r domain.Remote
	if err := yaml.Unmarshal(data, &r); err != nil {
		return domain.Remote{}, &domain.InvalidDescriptorError{Path: path, Err: err}
	}

	switch {
	case r.ID == "":
		return domain.Remote{}, &domain.InvalidDescriptorError{Path: path, Key: "id"}
	case r.Name == "":
		return domain.Remote{}, &domain.InvalidDescriptorError{Path: path, Key: "name"}
	case r.URL == "":
		return domain.Remote{}, &domain.InvalidDescriptorError{Path: path, Key: "url"}
	}

	return r, nil
}

func writeDescriptor(fs afero.Fs, path string, r domain.Remote) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return err
	}

	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return err
	}

	return nil
}
