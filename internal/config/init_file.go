package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var userHomeDir = os.UserHomeDir

// ErrConfigExists is returned by WriteDefaultConfig when it would overwrite a file.
var ErrConfigExists = errors.New("config file already exists")

const defaultConfigYAML = `# resumelift configuration
api:
  # Absolute URL of the analysis service, or a path resolved against origin.
  base_url: /api
  origin: http://localhost:8000

timeouts:
  wake: 45s
  analyze: 60s
  connection_test: 30s

log:
  level: info
  format: text

export:
  format: txt
  dir: .
  s3:
    enabled: false
    bucket: ""
    prefix: ""
    region: us-east-1
    endpoint: ""

server:
  addr: 127.0.0.1:8080
  max_upload_mb: 10
`

// DefaultConfigPath is config.yaml inside UserConfigDir.
func DefaultConfigPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefaultConfig writes a commented config.yaml to path, or to
// DefaultConfigPath when path is empty. Existing files are left alone
// unless force is set.
func WriteDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s: %w", path, ErrConfigExists)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return path, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return path, fmt.Errorf("failed to create config directory '%s': %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0600); err != nil {
		return path, fmt.Errorf("failed to write config file '%s': %w", path, err)
	}
	return path, nil
}
