package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "labcms.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "labcms.yml"

// LoadFile reads a labcms.yaml file into a koanf layer keyed by section,
// ready to be merged over the defaults.
func LoadFile(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return k, nil
}

// ResolvePaths makes relative file locations relative to baseDir.
func (p *PlatformConfig) ResolvePaths(baseDir string) {
	if p.Rows != nil && p.Rows.Path != ":memory:" {
		p.Rows.Path = resolve(p.Rows.Path, baseDir)
	}
	if p.Blobs != nil {
		p.Blobs.Root = resolve(p.Blobs.Root, baseDir)
		if p.Blobs.Path != ":memory:" {
			p.Blobs.Path = resolve(p.Blobs.Path, baseDir)
		}
	}
}

func resolve(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile returns the config file in dir, or "" when there is none.
func FindConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing labcms.yaml or labcms.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
