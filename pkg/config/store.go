package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a grab configuration.
type File struct {
	Version string  `yaml:"version"`
	Options Options `yaml:"options"`
	Theme   Theme   `yaml:"theme"`
}

// Store persists options and theme overrides.
type Store interface {
	// Load loads the configuration from disk
	Load() (*File, error)

	// Save saves the configuration to disk
	Save(*File) error
}

// FileStore implements Store using a YAML file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a new file-based configuration store.
// If path is empty, defaults to ~/.grab/config.yaml
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".grab", "config.yaml")
	}

	return &FileStore{path: path}, nil
}

// Load loads the configuration from disk. A missing file is not an error:
// it yields defaults so first runs work without setup.
func (s *FileStore) Load() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{
				Version: "1.0",
				Options: DefaultOptions(),
				Theme:   DefaultTheme(),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Sparse files are normal: fill the gaps with defaults.
	file.Options = file.Options.Normalize()
	file.Theme = DefaultTheme().Merge(file.Theme)
	if file.Version == "" {
		file.Version = "1.0"
	}
	return &file, nil
}

// Save saves the configuration to disk atomically.
func (s *FileStore) Save(file *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Write to a temp file then rename for atomicity.
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}
