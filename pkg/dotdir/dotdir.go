// Package dotdir manages the .quilt/ and ~/.quilt directories.
//
// The quilt directory holds the config file and the flat-file stores for
// local development, so every process working against the same checkout
// shares one memory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the quilt directory.
	dirName = ".quilt"

	// ConfigFile is the config file name inside a quilt directory.
	ConfigFile = "config.toml"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .quilt/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.quilt/ dir
//  3. Home ~/.quilt/ dir
//  4. If none found, attempt to create ~/.quilt/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating quilt directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// ConfigPath returns the config file path inside the target directory, or
// empty when no config file exists there yet.
func (m *Manager) ConfigPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// Anchor joins a relative store path onto the quilt directory. Absolute
// paths pass through untouched.
func Anchor(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// localDirExists checks whether a .quilt/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
