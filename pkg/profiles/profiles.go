// Package profiles stores named MAAS connection profiles on disk. A
// profile records the API URL, the API token, and a cached copy of the
// server's description document so that sessions can be rebuilt without a
// round-trip. Profiles live in a single YAML file under the user's
// configuration directory.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/canonical/gomaas/internal/common/apperrors"
)

// Error bases for profile storage.
var (
	ErrStore           = apperrors.New("profile store error")
	ErrProfileNotFound = ErrStore.New("profile not found")
	ErrNoDefault       = ErrStore.New("no default profile is set")
)

// Profile is one saved connection: everything needed to rebuild an
// authenticated session. Credentials is the colon-joined API token and is
// empty for anonymous profiles.
type Profile struct {
	Name        string `yaml:"name" validate:"required"`
	URL         string `yaml:"url" validate:"required,url"`
	Credentials string `yaml:"credentials,omitempty"`
	Description []byte `yaml:"description,omitempty"`
}

type storeFile struct {
	Default  string     `yaml:"default,omitempty"`
	Profiles []*Profile `yaml:"profiles"`
}

// Store reads and writes the profiles file. It is not safe for concurrent
// use by multiple processes; last writer wins.
type Store struct {
	path     string
	validate *validator.Validate
}

// Path returns the default location of the profiles file.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine config directory")
	}
	return filepath.Join(configDir, "gomaas", "profiles.yaml"), nil
}

// Open opens the store at the default location. The file need not exist
// yet; it is created on first save.
func Open() (*Store, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return OpenPath(path), nil
}

// OpenPath opens a store at an explicit location, mainly for tests.
func OpenPath(path string) *Store {
	return &Store{
		path:     path,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Store) load() (*storeFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &storeFile{}, nil
		}
		return nil, ErrStore.MsgErr(
			fmt.Sprintf("cannot read %s", s.path), err)
	}
	var file storeFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, ErrStore.MsgErr(
			fmt.Sprintf("cannot parse %s", s.path), err)
	}
	return &file, nil
}

// save writes the file atomically with owner-only permissions; the file
// contains API tokens.
func (s *Store) save(file *storeFile) error {
	sort.Slice(file.Profiles, func(i, j int) bool {
		return file.Profiles[i].Name < file.Profiles[j].Name
	})
	raw, err := yaml.Marshal(file)
	if err != nil {
		return ErrStore.MsgErr("cannot encode profiles", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ErrStore.MsgErr(fmt.Sprintf("cannot create %s", dir), err)
	}
	tmp, err := os.CreateTemp(dir, ".profiles-*.yaml")
	if err != nil {
		return ErrStore.MsgErr("cannot create temporary file", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return ErrStore.MsgErr("cannot set permissions", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return ErrStore.MsgErr("cannot write profiles", err)
	}
	if err := tmp.Close(); err != nil {
		return ErrStore.MsgErr("cannot write profiles", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return ErrStore.MsgErr(fmt.Sprintf("cannot replace %s", s.path), err)
	}
	return nil
}

// List returns the names of all saved profiles, sorted.
func (s *Store) List() ([]string, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(file.Profiles))
	for _, profile := range file.Profiles {
		names = append(names, profile.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Load returns the named profile, or ErrProfileNotFound.
func (s *Store) Load(name string) (*Profile, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, profile := range file.Profiles {
		if profile.Name == name {
			return profile, nil
		}
	}
	return nil, ErrProfileNotFound.Msg(
		fmt.Sprintf("profile %q not found", name))
}

// Save inserts or replaces a profile. The first profile saved becomes the
// default.
func (s *Store) Save(profile *Profile) error {
	if err := s.validate.Struct(profile); err != nil {
		return ErrStore.MsgErr(
			fmt.Sprintf("invalid profile %q", profile.Name), err)
	}
	file, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range file.Profiles {
		if existing.Name == profile.Name {
			file.Profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		file.Profiles = append(file.Profiles, profile)
	}
	if file.Default == "" {
		file.Default = profile.Name
	}
	return s.save(file)
}

// Delete removes the named profile. Deleting the default clears the
// default selection.
func (s *Store) Delete(name string) error {
	file, err := s.load()
	if err != nil {
		return err
	}
	kept := file.Profiles[:0]
	found := false
	for _, profile := range file.Profiles {
		if profile.Name == name {
			found = true
			continue
		}
		kept = append(kept, profile)
	}
	if !found {
		return ErrProfileNotFound.Msg(
			fmt.Sprintf("profile %q not found", name))
	}
	file.Profiles = kept
	if file.Default == name {
		file.Default = ""
	}
	return s.save(file)
}

// Default returns the default profile, or ErrNoDefault when none is set.
func (s *Store) Default() (*Profile, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	if file.Default == "" {
		return nil, ErrNoDefault
	}
	return s.Load(file.Default)
}

// DefaultName returns the name of the default profile, empty when unset.
func (s *Store) DefaultName() (string, error) {
	file, err := s.load()
	if err != nil {
		return "", err
	}
	return file.Default, nil
}

// SetDefault marks an existing profile as the default.
func (s *Store) SetDefault(name string) error {
	file, err := s.load()
	if err != nil {
		return err
	}
	for _, profile := range file.Profiles {
		if profile.Name == name {
			file.Default = name
			return s.save(file)
		}
	}
	return ErrProfileNotFound.Msg(
		fmt.Sprintf("profile %q not found", name))
}
